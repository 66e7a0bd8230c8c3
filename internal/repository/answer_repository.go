package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/coursekit/livequiz-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AnswerRepository is the answer ledger: one row per
// (session, question, participant), enforced by the table's primary key so
// concurrent duplicate submissions cannot both land. Aggregates are always
// recomputed by scanning the rows — there is no incremented counter to race on.
type AnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(pool *pgxpool.Pool) *AnswerRepository {
	return &AnswerRepository{pool: pool}
}

// Join adds a participant to the session roster if absent. Returns whether
// the participant was newly added and, when so, the session's bumped
// updated_at. The insert is guarded so a closed session's roster (and
// updated_at) can never change.
func (r *AnswerRepository) Join(ctx context.Context, sessionID uuid.UUID, participantID string) (bool, time.Time, error) {
	var (
		joined    bool
		updatedAt time.Time
	)
	err := withRetry(ctx, func() error {
		return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
			tag, err := tx.Exec(ctx,
				`INSERT INTO quiz_participants (session_id, participant_id)
				 SELECT $1, $2
				 WHERE EXISTS (
				     SELECT 1 FROM quiz_sessions WHERE id = $1 AND phase <> $3
				 )
				 ON CONFLICT (session_id, participant_id) DO NOTHING`,
				sessionID, participantID, model.PhaseClosed)
			if err != nil {
				return err
			}

			joined = tag.RowsAffected() == 1
			if !joined {
				return nil
			}
			return tx.QueryRow(ctx, bumpUpdatedAtSQL, sessionID).Scan(&updatedAt)
		})
	})
	if err != nil {
		return false, time.Time{}, err
	}
	return joined, updatedAt, nil
}

// Submit records an answer for the session's current question. The insert is
// guarded in-statement: it only lands while the session is active at exactly
// this question index, closing the race between a stale client and an
// advancing presenter. Duplicate handling follows the policy: first_wins
// leaves the stored row untouched, last_wins overwrites it while the question
// is still active. Returns whether a row was written and the bumped
// updated_at when one was.
func (r *AnswerRepository) Submit(ctx context.Context, rec *model.AnswerRecord, policy model.SubmitPolicy) (bool, time.Time, error) {
	conflict := `DO NOTHING`
	if policy == model.SubmitPolicyLastWins {
		conflict = `DO UPDATE SET selected_indices = EXCLUDED.selected_indices, submitted_at = now()`
	}

	var (
		written   bool
		updatedAt time.Time
	)
	err := withRetry(ctx, func() error {
		return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
			tag, err := tx.Exec(ctx,
				`INSERT INTO quiz_answers (session_id, question_index, participant_id, selected_indices)
				 SELECT $1, $2, $3, $4
				 WHERE EXISTS (
				     SELECT 1 FROM quiz_sessions
				     WHERE id = $1 AND phase = $5 AND current_index = $2
				 )
				 ON CONFLICT (session_id, question_index, participant_id) `+conflict,
				rec.SessionID, rec.QuestionIndex, rec.ParticipantID, rec.SelectedIndices, model.PhaseActive)
			if err != nil {
				return err
			}

			written = tag.RowsAffected() == 1
			if !written {
				// Nothing landed: either a duplicate under first_wins (a
				// success for the caller) or the question has moved on.
				var isDuplicate bool
				if err := tx.QueryRow(ctx,
					`SELECT EXISTS (
					     SELECT 1 FROM quiz_answers
					     WHERE session_id = $1 AND question_index = $2 AND participant_id = $3
					 )`,
					rec.SessionID, rec.QuestionIndex, rec.ParticipantID,
				).Scan(&isDuplicate); err != nil {
					return err
				}
				if isDuplicate {
					return nil
				}
				return model.ErrStaleSubmission
			}
			return tx.QueryRow(ctx, bumpUpdatedAtSQL, rec.SessionID).Scan(&updatedAt)
		})
	})
	if err != nil {
		return false, time.Time{}, err
	}
	return written, updatedAt, nil
}

// Aggregate recomputes the answer distribution for one question by scanning
// the ledger. optionCount sizes the returned slice to the question's options;
// counts can exceed answeredCount since answers may select multiple options.
func (r *AnswerRepository) Aggregate(ctx context.Context, sessionID uuid.UUID, questionIndex, optionCount int) (model.Aggregate, error) {
	agg := model.Aggregate{OptionCounts: make([]int, optionCount)}

	err := withRetry(ctx, func() error {
		if err := r.pool.QueryRow(ctx,
			`SELECT count(*) FROM quiz_answers
			 WHERE session_id = $1 AND question_index = $2`,
			sessionID, questionIndex,
		).Scan(&agg.AnsweredCount); err != nil {
			return err
		}

		rows, err := r.pool.Query(ctx,
			`SELECT opt, count(*)
			 FROM quiz_answers, unnest(selected_indices) AS opt
			 WHERE session_id = $1 AND question_index = $2
			 GROUP BY opt`,
			sessionID, questionIndex)
		if err != nil {
			return err
		}
		defer rows.Close()

		for i := range agg.OptionCounts {
			agg.OptionCounts[i] = 0
		}
		for rows.Next() {
			var opt, count int
			if err := rows.Scan(&opt, &count); err != nil {
				return err
			}
			if opt < 0 || opt >= optionCount {
				return fmt.Errorf("option index %d outside question's %d options", opt, optionCount)
			}
			agg.OptionCounts[opt] = count
		}
		return rows.Err()
	})
	if err != nil {
		return model.Aggregate{}, err
	}
	return agg, nil
}

// Participants returns the session roster in join order.
func (r *AnswerRepository) Participants(ctx context.Context, sessionID uuid.UUID) ([]string, error) {
	var participants []string
	err := withRetry(ctx, func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT participant_id FROM quiz_participants
			 WHERE session_id = $1
			 ORDER BY joined_at, participant_id`,
			sessionID)
		if err != nil {
			return err
		}
		defer rows.Close()

		participants = participants[:0]
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			participants = append(participants, id)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return participants, nil
}

// bumpUpdatedAtSQL advances the session's cache-invalidation timestamp. The
// GREATEST keeps it strictly increasing at second granularity even when two
// mutations land within the same wall-clock second.
const bumpUpdatedAtSQL = `
	UPDATE quiz_sessions
	SET updated_at = GREATEST(now(), updated_at + interval '1 second')
	WHERE id = $1
	RETURNING updated_at`
