package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizleague/backend/internal/config"
	"github.com/quizleague/backend/internal/domain"
)

// Repository provides PostgreSQL-based data access
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// Pool returns the underlying connection pool
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// Ping checks database connectivity
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto`,
		`CREATE TABLE IF NOT EXISTS leagues (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			creator_id VARCHAR(64) NOT NULL,
			is_private BOOLEAN NOT NULL DEFAULT FALSE,
			code VARCHAR(6),
			members TEXT[] NOT NULL DEFAULT '{}',
			points BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_leagues_code ON leagues(code) WHERE code IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_leagues_members ON leagues USING GIN(members)`,
		`CREATE TABLE IF NOT EXISTS users (
			telegram_id VARCHAR(64) PRIMARY KEY,
			username VARCHAR(255) NOT NULL DEFAULT '',
			first_name VARCHAR(255) NOT NULL DEFAULT '',
			last_name VARCHAR(255) NOT NULL DEFAULT '',
			avatar_url TEXT NOT NULL DEFAULT '',
			overall_score BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_users_score ON users(overall_score DESC)`,
		`CREATE TABLE IF NOT EXISTS score_events (
			id BIGSERIAL PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			quiz_id VARCHAR(128),
			points BIGINT NOT NULL,
			correct INT NOT NULL DEFAULT 0,
			answered INT NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_score_events_user ON score_events(user_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS questions (
			id BIGSERIAL PRIMARY KEY,
			doc JSONB NOT NULL
		)`,
	}

	for _, migration := range migrations {
		_, err := r.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

// InsertLeague persists a new league and returns the store-assigned id
func (r *Repository) InsertLeague(ctx context.Context, league *domain.League) (string, error) {
	query := `
		INSERT INTO leagues (name, description, creator_id, is_private, code, members, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $7)
		RETURNING id
	`
	now := time.Now()
	var id string
	err := r.pool.QueryRow(ctx, query,
		league.Name,
		league.Description,
		league.CreatorID,
		league.IsPrivate,
		league.Code,
		league.Members,
		now,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("inserting league: %w", err)
	}
	return id, nil
}

// CodeExists reports whether any league already uses the code
func (r *Repository) CodeExists(ctx context.Context, code string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM leagues WHERE code = $1)`
	var exists bool
	err := r.pool.QueryRow(ctx, query, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking code existence: %w", err)
	}
	return exists, nil
}

// GetLeagueByCode retrieves the private league with the given code
func (r *Repository) GetLeagueByCode(ctx context.Context, code string) (*domain.League, error) {
	query := `
		SELECT id, name, description, creator_id, is_private, COALESCE(code, ''), members, points, created_at, updated_at
		FROM leagues
		WHERE code = $1 AND is_private
	`
	var league domain.League
	err := r.pool.QueryRow(ctx, query, code).Scan(
		&league.ID,
		&league.Name,
		&league.Description,
		&league.CreatorID,
		&league.IsPrivate,
		&league.Code,
		&league.Members,
		&league.Points,
		&league.CreatedAt,
		&league.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLeagueNotFound
		}
		return nil, fmt.Errorf("getting league by code: %w", err)
	}
	return &league, nil
}

// AddMemberByCode adds the user to the private league matching code in a
// single conditional update. The predicate and the append are one statement,
// so concurrent joins cannot race.
func (r *Repository) AddMemberByCode(ctx context.Context, code, userID string) (int64, error) {
	query := `
		UPDATE leagues
		SET members = array_append(members, $2), updated_at = $3
		WHERE code = $1 AND is_private AND NOT ($2 = ANY(members))
	`
	result, err := r.pool.Exec(ctx, query, code, userID, time.Now())
	if err != nil {
		return 0, fmt.Errorf("adding member: %w", err)
	}
	return result.RowsAffected(), nil
}

// SearchPublicLeagues returns public leagues matching the query case-insensitively
func (r *Repository) SearchPublicLeagues(ctx context.Context, query string, limit int) ([]domain.LeagueSummary, error) {
	sql := `
		SELECT id, name, description, cardinality(members)
		FROM leagues
		WHERE NOT is_private
		  AND ($1 = '' OR name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, sql, query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching leagues: %w", err)
	}
	defer rows.Close()

	var leagues []domain.LeagueSummary
	for rows.Next() {
		var l domain.LeagueSummary
		if err := rows.Scan(&l.LeagueID, &l.Name, &l.Description, &l.MemberCount); err != nil {
			return nil, fmt.Errorf("scanning league: %w", err)
		}
		leagues = append(leagues, l)
	}
	return leagues, nil
}

// LeaguesForMember returns the leagues the user belongs to
func (r *Repository) LeaguesForMember(ctx context.Context, userID string) ([]domain.MemberLeague, error) {
	query := `
		SELECT id, name, description, creator_id, cardinality(members), points
		FROM leagues
		WHERE $1 = ANY(members)
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing member leagues: %w", err)
	}
	defer rows.Close()

	var leagues []domain.MemberLeague
	for rows.Next() {
		var l domain.MemberLeague
		var creatorID string
		if err := rows.Scan(&l.ID, &l.Name, &l.Description, &creatorID, &l.Members, &l.Points); err != nil {
			return nil, fmt.Errorf("scanning member league: %w", err)
		}
		l.IsOwner = creatorID == userID
		leagues = append(leagues, l)
	}
	return leagues, nil
}

// GetUser retrieves a user's score record
func (r *Repository) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `
		SELECT telegram_id, username, first_name, last_name, avatar_url, overall_score, created_at, updated_at
		FROM users
		WHERE telegram_id = $1
	`
	var user domain.User
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&user.TelegramID,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.AvatarURL,
		&user.OverallScore,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return &user, nil
}

// UpsertUser creates the user with a zero score on first sight, otherwise
// refreshes the profile fields. The cumulative score is never touched here.
func (r *Repository) UpsertUser(ctx context.Context, profile domain.TelegramProfile) (*domain.User, error) {
	query := `
		INSERT INTO users (telegram_id, username, first_name, last_name, overall_score, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, $5, $5)
		ON CONFLICT (telegram_id)
		DO UPDATE SET username = $2, first_name = $3, last_name = $4, updated_at = $5
		RETURNING telegram_id, username, first_name, last_name, avatar_url, overall_score, created_at, updated_at
	`
	now := time.Now()
	var user domain.User
	err := r.pool.QueryRow(ctx, query,
		profile.ID,
		profile.Username,
		profile.FirstName,
		profile.LastName,
		now,
	).Scan(
		&user.TelegramID,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.AvatarURL,
		&user.OverallScore,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upserting user: %w", err)
	}
	return &user, nil
}

// IncrementScore atomically adds delta to the user's cumulative score,
// creating the record if absent, and returns the new total
func (r *Repository) IncrementScore(ctx context.Context, userID string, delta int64) (int64, error) {
	query := `
		INSERT INTO users (telegram_id, overall_score, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (telegram_id)
		DO UPDATE SET overall_score = users.overall_score + $2, updated_at = $3
		RETURNING overall_score
	`
	now := time.Now()
	var newScore int64
	err := r.pool.QueryRow(ctx, query, userID, delta, now).Scan(&newScore)
	if err != nil {
		return 0, fmt.Errorf("incrementing score: %w", err)
	}
	return newScore, nil
}

// CountHigherScores returns the number of users with a strictly greater score
func (r *Repository) CountHigherScores(ctx context.Context, score int64) (int64, error) {
	query := `SELECT COUNT(*) FROM users WHERE overall_score > $1`
	var count int64
	err := r.pool.QueryRow(ctx, query, score).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting higher scores: %w", err)
	}
	return count, nil
}

// TopUsers returns up to limit users ordered by score descending
func (r *Repository) TopUsers(ctx context.Context, limit int) ([]domain.User, error) {
	query := `
		SELECT telegram_id, username, first_name, last_name, avatar_url, overall_score, created_at, updated_at
		FROM users
		ORDER BY overall_score DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing top users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var user domain.User
		err := rows.Scan(
			&user.TelegramID,
			&user.Username,
			&user.FirstName,
			&user.LastName,
			&user.AvatarURL,
			&user.OverallScore,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, user)
	}
	return users, nil
}

// AllScores returns every user's cumulative score keyed by id (for sync)
func (r *Repository) AllScores(ctx context.Context) (map[string]int64, error) {
	query := `SELECT telegram_id, overall_score FROM users`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("getting all scores: %w", err)
	}
	defer rows.Close()

	scores := make(map[string]int64)
	for rows.Next() {
		var userID string
		var score int64
		if err := rows.Scan(&userID, &score); err != nil {
			return nil, fmt.Errorf("scanning score: %w", err)
		}
		scores[userID] = score
	}
	return scores, nil
}

// AllDisplayNames returns every user's resolved display name keyed by id (for sync)
func (r *Repository) AllDisplayNames(ctx context.Context) (map[string]string, error) {
	query := `SELECT telegram_id, username, first_name FROM users`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("getting display names: %w", err)
	}
	defer rows.Close()

	names := make(map[string]string)
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.TelegramID, &user.Username, &user.FirstName); err != nil {
			return nil, fmt.Errorf("scanning display name: %w", err)
		}
		names[user.TelegramID] = user.DisplayName()
	}
	return names, nil
}

// RecordEvent records an immutable score event
func (r *Repository) RecordEvent(ctx context.Context, event domain.ScoreEvent) error {
	query := `
		INSERT INTO score_events (user_id, quiz_id, points, correct, answered, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		event.UserID,
		event.QuizID,
		event.Points,
		event.Correct,
		event.Answered,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("recording event: %w", err)
	}
	return nil
}

// ListQuestions returns all question documents verbatim, ids stringified
func (r *Repository) ListQuestions(ctx context.Context) ([]map[string]interface{}, error) {
	query := `SELECT id, doc FROM questions ORDER BY id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing questions: %w", err)
	}
	defer rows.Close()

	var docs []map[string]interface{}
	for rows.Next() {
		var id int64
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scanning question: %w", err)
		}
		doc := make(map[string]interface{})
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decoding question: %w", err)
		}
		doc["_id"] = strconv.FormatInt(id, 10)
		docs = append(docs, doc)
	}
	return docs, nil
}

// ReplaceQuestions drops the question collection and inserts docs inside one
// transaction, returning (inserted, deleted) counts
func (r *Repository) ReplaceQuestions(ctx context.Context, docs []map[string]interface{}) (int64, int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `DELETE FROM questions`)
	if err != nil {
		return 0, 0, fmt.Errorf("clearing questions: %w", err)
	}
	deleted := result.RowsAffected()

	batch := &pgx.Batch{}
	for _, doc := range docs {
		raw, err := json.Marshal(doc)
		if err != nil {
			return 0, 0, fmt.Errorf("encoding question: %w", err)
		}
		batch.Queue(`INSERT INTO questions (doc) VALUES ($1)`, raw)
	}

	br := tx.SendBatch(ctx, batch)
	for range docs {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return 0, 0, fmt.Errorf("inserting question: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return 0, 0, fmt.Errorf("closing batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("committing questions: %w", err)
	}
	return int64(len(docs)), deleted, nil
}

// CountQuestions returns the number of stored question documents
func (r *Repository) CountQuestions(ctx context.Context) (int64, error) {
	query := `SELECT COUNT(*) FROM questions`
	var count int64
	err := r.pool.QueryRow(ctx, query).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting questions: %w", err)
	}
	return count, nil
}
