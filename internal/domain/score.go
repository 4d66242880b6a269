package domain

import "time"

// ScoreEvent is an immutable record of a single quiz completion. Events are
// append-only; they are never mutated or deleted.
type ScoreEvent struct {
	UserID    string    `json:"user_id"`
	QuizID    string    `json:"quiz_id"`
	Points    int64     `json:"points"`
	Correct   int       `json:"correct"`
	Answered  int       `json:"answered"`
	Timestamp time.Time `json:"timestamp"`
}

// ScoreSubmission represents a request to submit a quiz result
type ScoreSubmission struct {
	UserID   string `json:"user_id"`
	QuizID   string `json:"quiz_id"`
	Points   int64  `json:"points"`
	Correct  int    `json:"correct"`
	Answered int    `json:"answered"`
}

// BatchScoreSubmission represents multiple score submissions
type BatchScoreSubmission struct {
	Scores []ScoreSubmission `json:"scores"`
}

// SubmitResult is the outcome of a score submission: the authoritative
// cumulative score after the increment and the tie-aware rank computed
// from it.
type SubmitResult struct {
	OverallScore int64 `json:"overall_score"`
	Rank         int64 `json:"rank"`
}
