package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/coursekit/livequiz-backend/internal/config"
	"github.com/coursekit/livequiz-backend/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// LedgerService is the student command surface: joining a session and
// submitting answers. Both operations are idempotent — the roster and the
// answer ledger are keyed sets, and a repeat is a quiet success.
type LedgerService struct {
	sessions SessionStore
	answers  AnswerStore
	policy   model.SubmitPolicy
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewLedgerService creates a new LedgerService. An unknown policy string
// falls back to first_wins, the stricter interpretation.
func NewLedgerService(sessions SessionStore, answers AnswerStore, policy string, rdb *redis.Client, log zerolog.Logger) *LedgerService {
	p := model.SubmitPolicyFirstWins
	if policy == string(model.SubmitPolicyLastWins) {
		p = model.SubmitPolicyLastWins
	}
	return &LedgerService{
		sessions: sessions,
		answers:  answers,
		policy:   p,
		rdb:      rdb,
		log:      log.With().Str("component", "ledger_service").Logger(),
	}
}

// Join adds the participant to the session roster. Joining twice is a no-op
// success; joining a closed session fails with ErrSessionClosed.
func (s *LedgerService) Join(ctx context.Context, sessionID uuid.UUID, participantID string) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Phase == model.PhaseClosed {
		return model.ErrSessionClosed
	}

	joined, updatedAt, err := s.answers.Join(ctx, sessionID, participantID)
	if err != nil {
		return fmt.Errorf("join session: %w", err)
	}
	if joined {
		s.cacheUpdatedAt(ctx, sessionID, updatedAt)
	}
	return nil
}

// Submit records the participant's answer to the current question. The
// option indices are normalized to a sorted set before storage. A duplicate
// submission succeeds without overwriting (unless the last_wins policy is
// configured); an answer for a question that is not current fails with
// ErrStaleSubmission.
func (s *LedgerService) Submit(ctx context.Context, sessionID uuid.UUID, participantID string, req *model.SubmitAnswerRequest) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Phase == model.PhaseClosed {
		return model.ErrSessionClosed
	}
	if req.QuestionIndex >= len(session.Questions) {
		return model.ErrStaleSubmission
	}

	question := session.Questions[req.QuestionIndex]
	selected := normalizeIndices(req.SelectedIndices)
	for _, idx := range selected {
		if idx < 0 || idx >= len(question.Options) {
			return fmt.Errorf("selected index %d: %w", idx, model.ErrOptionOutOfRange)
		}
	}

	rec := &model.AnswerRecord{
		SessionID:       sessionID,
		QuestionIndex:   req.QuestionIndex,
		ParticipantID:   participantID,
		SelectedIndices: selected,
	}
	written, updatedAt, err := s.answers.Submit(ctx, rec, s.policy)
	if err != nil {
		return err
	}
	if written {
		s.cacheUpdatedAt(ctx, sessionID, updatedAt)
	}
	return nil
}

func (s *LedgerService) cacheUpdatedAt(ctx context.Context, sessionID uuid.UUID, updatedAt time.Time) {
	key := config.CacheKey.SessionUpdatedAtKey(sessionID.String())
	if err := s.rdb.Set(ctx, key, strconv.FormatInt(updatedAt.Unix(), 10), config.SessionUpdatedAtTTL).Err(); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Failed to cache updated_at")
	}
}

// normalizeIndices sorts and deduplicates the submitted option indices.
func normalizeIndices(indices []int) []int {
	out := append([]int(nil), indices...)
	sort.Ints(out)
	n := 0
	for i, v := range out {
		if i == 0 || v != out[n-1] {
			out[n] = v
			n++
		}
	}
	return out[:n]
}
