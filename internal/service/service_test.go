package service

import (
	"fmt"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/coursekit/livequiz-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// startRequest builds a request with n four-option questions, option 1
// correct on each.
func startRequest(n int) *model.StartSessionRequest {
	questions := make([]model.QuestionPayload, n)
	for i := range questions {
		questions[i] = model.QuestionPayload{
			Question:       fmt.Sprintf("Question %d", i+1),
			Options:        []string{"A", "B", "C", "D"},
			CorrectIndices: []int{1},
			Why:            "B is correct.",
		}
	}
	return &model.StartSessionRequest{
		Channel:   "main-hall",
		CourseID:  "course-101",
		Questions: questions,
	}
}
