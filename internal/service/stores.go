package service

import (
	"context"
	"time"

	"github.com/coursekit/livequiz-backend/internal/model"
	"github.com/google/uuid"
)

// SessionStore abstracts quiz session persistence. Implemented by the
// PostgreSQL repository in production and the memory store in tests.
type SessionStore interface {
	Create(ctx context.Context, s *model.QuizSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.QuizSession, error)
	LatestByChannel(ctx context.Context, channel string) (*model.QuizSession, error)
	// ApplyTransition applies a precomputed transition only if the session is
	// still in exactly (from, fromIdx); otherwise it returns
	// model.ErrInvalidTransition without touching the session.
	ApplyTransition(ctx context.Context, id uuid.UUID, from model.Phase, fromIdx int, next model.TransitionResult) (time.Time, error)
	UpdatedAt(ctx context.Context, id uuid.UUID) (time.Time, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListExpiredTimers(ctx context.Context) ([]model.QuizSession, error)
}

// AnswerStore abstracts the answer ledger and the participant roster.
type AnswerStore interface {
	// Join adds a participant if absent. Reports whether the roster grew and,
	// when it did, the session's bumped updated_at.
	Join(ctx context.Context, sessionID uuid.UUID, participantID string) (bool, time.Time, error)
	// Submit records an answer for the current question under the storage
	// layer's uniqueness constraint. A duplicate returns (false, _, nil); an
	// answer for a question that is not current returns
	// model.ErrStaleSubmission.
	Submit(ctx context.Context, rec *model.AnswerRecord, policy model.SubmitPolicy) (bool, time.Time, error)
	Aggregate(ctx context.Context, sessionID uuid.UUID, questionIndex, optionCount int) (model.Aggregate, error)
	Participants(ctx context.Context, sessionID uuid.UUID) ([]string, error)
}
