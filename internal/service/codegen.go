package service

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/quizleague/backend/internal/domain"
)

const (
	codeLength      = 6
	codeAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeAttempts = 10
)

// CodeTakenFunc reports whether a candidate code is already in use. It is
// consulted once per attempt so that each check reflects current store
// state, including leagues created concurrently.
type CodeTakenFunc func(ctx context.Context, code string) (bool, error)

// GenerateUniqueCode produces a 6-character uppercase alphanumeric league
// code that is not currently taken. After maxCodeAttempts collisions it
// gives up with domain.ErrCodeExhausted and the caller must abort without
// persisting anything.
func GenerateUniqueCode(ctx context.Context, taken CodeTakenFunc) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := randomCode()
		exists, err := taken(ctx, code)
		if err != nil {
			return "", fmt.Errorf("checking code uniqueness: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", domain.ErrCodeExhausted
}

func randomCode() string {
	b := make([]byte, codeLength)
	for i := range b {
		b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return string(b)
}
