package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quizleague/backend/internal/domain"
)

// ContentService exposes the quiz-question collection as an opaque blob
// store: documents go in and come out verbatim, no schema enforced.
type ContentService struct {
	store  QuestionStore
	logger *slog.Logger
}

// ServiceStatus reports liveness of the backing store
type ServiceStatus struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	QuizCount int64  `json:"quiz_count"`
}

// NewContentService creates a new content service
func NewContentService(store QuestionStore, logger *slog.Logger) *ContentService {
	return &ContentService{
		store:  store,
		logger: logger,
	}
}

// Questions returns all stored question documents.
func (s *ContentService) Questions(ctx context.Context) ([]map[string]interface{}, error) {
	docs, err := s.store.ListQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing questions: %w", err)
	}
	if docs == nil {
		docs = []map[string]interface{}{}
	}
	return docs, nil
}

// Upload replaces the whole question collection with the supplied documents
// and returns (inserted, deleted) counts.
func (s *ContentService) Upload(ctx context.Context, docs []map[string]interface{}) (int64, int64, error) {
	if len(docs) == 0 {
		return 0, 0, domain.ErrInvalidRequest
	}
	inserted, deleted, err := s.store.ReplaceQuestions(ctx, docs)
	if err != nil {
		return 0, 0, fmt.Errorf("replacing questions: %w", err)
	}
	s.logger.Info("quiz questions replaced", "inserted", inserted, "deleted", deleted)
	return inserted, deleted, nil
}

// Status pings the store and reports the question count.
func (s *ContentService) Status(ctx context.Context) ServiceStatus {
	status := ServiceStatus{Status: "Server Running"}
	if err := s.store.Ping(ctx); err != nil {
		status.Database = "Failed"
		return status
	}
	status.Database = "Connected"
	if count, err := s.store.CountQuestions(ctx); err == nil {
		status.QuizCount = count
	}
	return status
}
