package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/quizleague/backend/internal/auth"
	"github.com/quizleague/backend/internal/domain"
	"github.com/quizleague/backend/internal/service"
	"github.com/quizleague/backend/internal/websocket"
)

// Handler wires the HTTP surface to the service layer.
type Handler struct {
	leagues     *service.LeagueService
	scoring     *service.ScoringService
	leaderboard *service.LeaderboardService
	users       *service.UserService
	content     *service.ContentService
	hub         *websocket.Hub
	adminKey    string
	botToken    string
	logger      *slog.Logger
}

func NewHandler(
	leagues *service.LeagueService,
	scoring *service.ScoringService,
	leaderboard *service.LeaderboardService,
	users *service.UserService,
	content *service.ContentService,
	hub *websocket.Hub,
	adminKey, botToken string,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		leagues:     leagues,
		scoring:     scoring,
		leaderboard: leaderboard,
		users:       users,
		content:     content,
		hub:         hub,
		adminKey:    adminKey,
		botToken:    botToken,
		logger:      logger,
	}
}

func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)
	r.Get("/ws", h.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.handleStatus)
		r.Get("/questions", h.handleQuestions)

		r.With(h.requireAdmin).Post("/admin/quiz/upload", h.handleQuizUpload)

		r.Post("/leagues/create", h.handleCreateLeague)
		r.Post("/leagues/join/check", h.handleJoinCheck)
		r.Post("/leagues/join/confirm", h.handleJoinConfirm)
		r.Get("/leagues/search", h.handleSearchLeagues)
		r.Get("/leagues/my", h.handleMyLeagues)

		// Legacy alias kept for older webapp builds.
		r.Get("/league/search", h.handleSearchLeaguesLegacy)

		r.Post("/auth/telegram", h.handleTelegramAuth)
		r.Post("/score/submit", h.handleScoreSubmit)
		r.Get("/leaderboard/global", h.handleGlobalLeaderboard)
	})

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-KEY, X-USER-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeMessage(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"message": msg})
}

func (h *Handler) writeInternal(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op+" failed", "error", err)
	h.writeMessage(w, http.StatusInternalServerError, "An unexpected error occurred. Please try again later.")
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	status := h.content.Status(r.Context())
	if status.Database != "Connected" {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.content.Status(r.Context()))
}

func (h *Handler) handleQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.content.Questions(r.Context())
	if err != nil {
		h.writeInternal(w, "fetch questions", err)
		return
	}
	h.writeJSON(w, http.StatusOK, questions)
}

func (h *Handler) handleQuizUpload(w http.ResponseWriter, r *http.Request) {
	var questions []map[string]any
	if err := json.NewDecoder(r.Body).Decode(&questions); err != nil || len(questions) == 0 {
		h.writeMessage(w, http.StatusBadRequest, "Invalid data format. Expected a non-empty list of question objects.")
		return
	}

	inserted, deleted, err := h.content.Upload(r.Context(), questions)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			h.writeMessage(w, http.StatusBadRequest, "Invalid data format. Expected a non-empty list of question objects.")
			return
		}
		h.writeInternal(w, "quiz upload", err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]any{
		"message":        "Quiz data uploaded successfully.",
		"inserted_count": inserted,
		"deleted_count":  deleted,
	})
}

type createLeagueRequest struct {
	identityFields
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPrivate   bool   `json:"is_private"`
}

func (h *Handler) handleCreateLeague(w http.ResponseWriter, r *http.Request) {
	var req createLeagueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeMessage(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}

	creatorID := resolveIdentity(r, req.candidates()...)
	if creatorID == "" {
		h.writeMessage(w, http.StatusUnauthorized, "Authentication Required: User identity is missing.")
		return
	}

	league, err := h.leagues.Create(r.Context(), domain.CreateLeagueRequest{
		Name:        req.Name,
		Description: req.Description,
		IsPrivate:   req.IsPrivate,
		CreatorID:   creatorID,
	})
	if err != nil {
		if domain.IsValidationError(err) {
			h.writeMessage(w, http.StatusBadRequest, err.Error())
			return
		}
		h.writeInternal(w, "create league", err)
		return
	}

	resp := map[string]any{
		"message":    "League created successfully!",
		"league_id":  league.ID,
		"is_private": league.IsPrivate,
	}
	if league.IsPrivate {
		resp["code"] = league.Code
	}
	h.writeJSON(w, http.StatusCreated, resp)
}

type joinRequest struct {
	identityFields
	Code string `json:"code"`
}

func (h *Handler) handleJoinCheck(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeMessage(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}

	userID := resolveIdentity(r, req.candidates()...)
	if userID == "" {
		h.writeMessage(w, http.StatusUnauthorized, "Authentication Required: User identity is missing.")
		return
	}

	lookup, err := h.leagues.CheckCode(r.Context(), req.Code, userID)
	if err != nil {
		switch {
		case domain.IsValidationError(err):
			h.writeMessage(w, http.StatusBadRequest, err.Error())
		case domain.IsNotFoundError(err):
			h.writeMessage(w, http.StatusNotFound, err.Error())
		default:
			h.writeInternal(w, "join check", err)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"message":     "League found. Please confirm joining.",
		"league_id":   lookup.LeagueID,
		"name":        lookup.Name,
		"description": lookup.Description,
		"is_member":   lookup.IsMember,
	})
}

func (h *Handler) handleJoinConfirm(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeMessage(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}

	userID := resolveIdentity(r, req.candidates()...)
	if userID == "" {
		h.writeMessage(w, http.StatusUnauthorized, "Authentication Required: User identity is missing.")
		return
	}

	result, err := h.leagues.Join(r.Context(), req.Code, userID)
	if err != nil {
		switch {
		case domain.IsValidationError(err):
			h.writeMessage(w, http.StatusBadRequest, err.Error())
		case domain.IsNotFoundError(err):
			h.writeMessage(w, http.StatusNotFound, "League not found or not private.")
		default:
			h.writeInternal(w, "join confirm", err)
		}
		return
	}

	if result.Status == domain.JoinStatusAlreadyMember {
		h.writeMessage(w, http.StatusOK, "You are already a member of this league.")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"message":       "Successfully joined the league!",
		"members_added": result.MembersAdded,
	})
}

func (h *Handler) handleSearchLeagues(w http.ResponseWriter, r *http.Request) {
	h.searchLeagues(w, r, r.URL.Query().Get("q"), 3)
}

func (h *Handler) handleSearchLeaguesLegacy(w http.ResponseWriter, r *http.Request) {
	h.searchLeagues(w, r, r.URL.Query().Get("query"), 10)
}

func (h *Handler) searchLeagues(w http.ResponseWriter, r *http.Request, query string, limit int) {
	results, err := h.leagues.Search(r.Context(), query, limit)
	if err != nil {
		h.writeInternal(w, "league search", err)
		return
	}
	if results == nil {
		results = []domain.LeagueSummary{}
	}
	h.writeJSON(w, http.StatusOK, results)
}

func (h *Handler) handleMyLeagues(w http.ResponseWriter, r *http.Request) {
	userID := resolveIdentity(r)
	if userID == "" {
		h.writeMessage(w, http.StatusBadRequest, "User ID is required.")
		return
	}

	leagues, err := h.leagues.MemberOf(r.Context(), userID)
	if err != nil {
		h.writeInternal(w, "my leagues", err)
		return
	}
	if leagues == nil {
		leagues = []domain.MemberLeague{}
	}
	h.writeJSON(w, http.StatusOK, leagues)
}

type telegramAuthRequest struct {
	InitData string          `json:"init_data"`
	User     json.RawMessage `json:"user"`
}

func (h *Handler) handleTelegramAuth(w http.ResponseWriter, r *http.Request) {
	var req telegramAuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeMessage(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}

	var profile domain.TelegramProfile
	switch {
	case req.InitData != "":
		var values map[string]string
		var err error
		if h.botToken != "" {
			values, err = auth.Verify(req.InitData, h.botToken)
			if err != nil {
				h.writeMessage(w, http.StatusUnauthorized, "Invalid authentication data.")
				return
			}
		} else {
			values, _, err = auth.ParseInitData(req.InitData)
			if err != nil {
				h.writeMessage(w, http.StatusBadRequest, "Malformed init data.")
				return
			}
		}
		profile, err = auth.ProfileFromValues(values)
		if err != nil {
			h.writeMessage(w, http.StatusBadRequest, "Missing user data in init data.")
			return
		}
	case len(req.User) > 0:
		var err error
		profile, err = auth.ProfileFromJSON(req.User)
		if err != nil {
			h.writeMessage(w, http.StatusBadRequest, "Invalid user data.")
			return
		}
	default:
		h.writeMessage(w, http.StatusBadRequest, "Missing user data.")
		return
	}

	if profile.ID == "" {
		h.writeMessage(w, http.StatusBadRequest, "Missing user data.")
		return
	}

	user, err := h.users.Authenticate(r.Context(), profile)
	if err != nil {
		h.writeInternal(w, "telegram auth", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"message": "Authentication successful",
		"user":    user,
	})
}

type scoreSubmitRequest struct {
	identityFields
	QuizID   string `json:"quiz_id"`
	Points   int64  `json:"points"`
	Correct  int    `json:"correct"`
	Answered int    `json:"answered"`
}

func (h *Handler) handleScoreSubmit(w http.ResponseWriter, r *http.Request) {
	var req scoreSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeMessage(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}

	userID := resolveIdentity(r, req.candidates()...)
	if userID == "" {
		h.writeMessage(w, http.StatusUnauthorized, "Authentication Required: User identity is missing.")
		return
	}

	result, err := h.scoring.Submit(r.Context(), domain.ScoreSubmission{
		UserID:   userID,
		QuizID:   req.QuizID,
		Points:   req.Points,
		Correct:  req.Correct,
		Answered: req.Answered,
	})
	if err != nil {
		if domain.IsValidationError(err) {
			h.writeMessage(w, http.StatusBadRequest, err.Error())
			return
		}
		h.writeInternal(w, "score submit", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"message":       "Score submitted",
		"overall_score": result.OverallScore,
		"rank":          result.Rank,
	})
}

func (h *Handler) handleGlobalLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.writeMessage(w, http.StatusBadRequest, "Invalid limit parameter.")
			return
		}
		limit = n
	}

	entries, err := h.leaderboard.Global(r.Context(), limit)
	if err != nil {
		h.writeInternal(w, "global leaderboard", err)
		return
	}
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	h.writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, h.logger, w, r)
}
