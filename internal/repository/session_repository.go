package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/coursekit/livequiz-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// sessionColumns is the scan order shared by all session queries.
const sessionColumns = `id, channel, course_id, questions, phase, current_index,
	timer_seconds, timer_started_at, created_at, updated_at`

// SessionRepository handles quiz session persistence. The session row is the
// unit of mutable shared state; every mutation goes through a single atomic
// statement so phase and current_index can never drift apart.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create inserts a new session in the waiting phase.
func (r *SessionRepository) Create(ctx context.Context, s *model.QuizSession) error {
	questions, err := json.Marshal(s.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}

	return withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO quiz_sessions (channel, course_id, questions, phase, current_index, timer_seconds)
			 VALUES ($1, $2, $3, $4, 0, $5)
			 RETURNING id, created_at, updated_at`,
			s.Channel, s.CourseID, questions, model.PhaseWaiting, s.TimerSeconds,
		).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	})
}

// GetByID retrieves a session by id.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.QuizSession, error) {
	var s *model.QuizSession
	err := withRetry(ctx, func() error {
		row := r.pool.QueryRow(ctx,
			`SELECT `+sessionColumns+` FROM quiz_sessions WHERE id = $1`, id)
		var scanErr error
		s, scanErr = scanSession(row)
		return scanErr
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// LatestByChannel retrieves the most recently created session bound to a
// channel. Presenter and projector agree on the channel name out-of-band.
func (r *SessionRepository) LatestByChannel(ctx context.Context, channel string) (*model.QuizSession, error) {
	var s *model.QuizSession
	err := withRetry(ctx, func() error {
		row := r.pool.QueryRow(ctx,
			`SELECT `+sessionColumns+` FROM quiz_sessions
			 WHERE channel = $1
			 ORDER BY created_at DESC
			 LIMIT 1`, channel)
		var scanErr error
		s, scanErr = scanSession(row)
		return scanErr
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ApplyTransition applies a precomputed phase transition under compare-and-set:
// the update only lands if the session is still in the exact (phase, index)
// the transition was computed from. Zero rows affected means a concurrent
// command won the race; the caller surfaces ErrInvalidTransition.
// The updated_at bump is strictly monotonic at second granularity so the
// Last-Modified header always grows across mutations.
func (r *SessionRepository) ApplyTransition(ctx context.Context, id uuid.UUID, from model.Phase, fromIdx int, next model.TransitionResult) (time.Time, error) {
	var updatedAt time.Time
	err := withRetry(ctx, func() error {
		scanErr := r.pool.QueryRow(ctx,
			`UPDATE quiz_sessions
			 SET phase = $1,
			     current_index = $2,
			     timer_started_at = CASE WHEN $3 THEN now() ELSE NULL END,
			     updated_at = GREATEST(now(), updated_at + interval '1 second')
			 WHERE id = $4 AND phase = $5 AND current_index = $6
			 RETURNING updated_at`,
			next.Phase, next.CurrentIndex, next.StartTimer, id, from, fromIdx,
		).Scan(&updatedAt)
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return model.ErrInvalidTransition
		}
		return scanErr
	})
	if err != nil {
		return time.Time{}, err
	}
	return updatedAt, nil
}

// UpdatedAt reads only the session's updated_at. This is the cache-miss
// fallback for the conditional-GET fast path.
func (r *SessionRepository) UpdatedAt(ctx context.Context, id uuid.UUID) (time.Time, error) {
	var updatedAt time.Time
	err := withRetry(ctx, func() error {
		scanErr := r.pool.QueryRow(ctx,
			`SELECT updated_at FROM quiz_sessions WHERE id = $1`, id).Scan(&updatedAt)
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return model.ErrSessionNotFound
		}
		return scanErr
	})
	if err != nil {
		return time.Time{}, err
	}
	return updatedAt, nil
}

// Delete removes a session and, via cascading constraints, its roster and
// answers. Deletion is the signal for every role to stop polling.
func (r *SessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return withRetry(ctx, func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM quiz_sessions WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return model.ErrSessionNotFound
		}
		return nil
	})
}

// ListExpiredTimers returns active sessions whose question timer has expired.
// Consumed by the optional auto-reveal worker.
func (r *SessionRepository) ListExpiredTimers(ctx context.Context) ([]model.QuizSession, error) {
	var sessions []model.QuizSession
	err := withRetry(ctx, func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+sessionColumns+` FROM quiz_sessions
			 WHERE phase = $1
			   AND timer_seconds IS NOT NULL
			   AND timer_started_at IS NOT NULL
			   AND timer_started_at + make_interval(secs => timer_seconds) <= now()`,
			model.PhaseActive)
		if err != nil {
			return err
		}
		defer rows.Close()

		sessions = sessions[:0]
		for rows.Next() {
			s, err := scanSession(rows)
			if err != nil {
				return err
			}
			sessions = append(sessions, *s)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// scanSession scans one session row, decoding the JSONB question set.
func scanSession(row pgx.Row) (*model.QuizSession, error) {
	s := &model.QuizSession{}
	var questions []byte
	err := row.Scan(&s.ID, &s.Channel, &s.CourseID, &questions, &s.Phase, &s.CurrentIndex,
		&s.TimerSeconds, &s.TimerStartedAt, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(questions, &s.Questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return s, nil
}
