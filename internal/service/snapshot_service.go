package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/coursekit/livequiz-backend/internal/config"
	"github.com/coursekit/livequiz-backend/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SnapshotService is the synchronization gateway's read side: it derives the
// role-appropriate projections of a session and answers the cheap
// "has anything changed" question behind the conditional-GET contract.
type SnapshotService struct {
	sessions SessionStore
	answers  AnswerStore
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewSnapshotService creates a new SnapshotService.
func NewSnapshotService(sessions SessionStore, answers AnswerStore, rdb *redis.Client, log zerolog.Logger) *SnapshotService {
	return &SnapshotService{
		sessions: sessions,
		answers:  answers,
		rdb:      rdb,
		log:      log.With().Str("component", "snapshot_service").Logger(),
	}
}

// UpdatedAt returns the session's cache-invalidation timestamp, preferring
// the Redis fast path. A cache miss falls back to the store and self-heals
// the key; a Redis failure degrades to the store silently. Every write of
// the key carries SessionUpdatedAtTTL, so a stale hit left behind by a
// failed refresh expires instead of masking later mutations.
func (s *SnapshotService) UpdatedAt(ctx context.Context, sessionID uuid.UUID) (time.Time, error) {
	key := config.CacheKey.SessionUpdatedAtKey(sessionID.String())

	val, err := s.rdb.Get(ctx, key).Result()
	if err == nil {
		if unix, parseErr := strconv.ParseInt(val, 10, 64); parseErr == nil {
			return time.Unix(unix, 0), nil
		}
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("Redis error reading updated_at, falling back to store")
	}

	updatedAt, err := s.sessions.UpdatedAt(ctx, sessionID)
	if err != nil {
		return time.Time{}, err
	}

	// Self-heal so the next poll is served from cache.
	if err := s.rdb.Set(ctx, key, strconv.FormatInt(updatedAt.Unix(), 10), config.SessionUpdatedAtTTL).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to self-heal updated_at cache")
	}
	return updatedAt, nil
}

// StudentState builds the student projection. It never exposes aggregate
// counts or the roster, reveals correct_indices/why only in reveal_correct,
// and refuses closed sessions with ErrSessionClosed — students must stop
// polling once the quiz has ended. The second return is the session's
// updated_at, which the handler echoes as Last-Modified.
func (s *SnapshotService) StudentState(ctx context.Context, sessionID uuid.UUID) (*model.QuizStateDTO, time.Time, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, time.Time{}, err
	}
	if session.Phase == model.PhaseClosed {
		return nil, time.Time{}, model.ErrSessionClosed
	}
	return studentProjection(session), session.UpdatedAt, nil
}

// Results builds the presenter/projector projection: the student view plus
// the roster and the answer distribution for the current question. Unlike
// students, elevated roles keep observing a closed session until it is
// deleted.
func (s *SnapshotService) Results(ctx context.Context, sessionID uuid.UUID) (*model.QuizResultsDTO, time.Time, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, time.Time{}, err
	}

	question := session.CurrentQuestion()
	agg, err := s.answers.Aggregate(ctx, sessionID, session.CurrentIndex, len(question.Options))
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("aggregate answers: %w", err)
	}
	participants, err := s.answers.Participants(ctx, sessionID)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("list participants: %w", err)
	}
	if participants == nil {
		participants = []string{}
	}

	return &model.QuizResultsDTO{
		QuizStateDTO:  *studentProjection(session),
		Participants:  participants,
		AnsweredCount: agg.AnsweredCount,
		OptionCounts:  agg.OptionCounts,
	}, session.UpdatedAt, nil
}

// Summary builds the post-closed per-question review.
func (s *SnapshotService) Summary(ctx context.Context, sessionID uuid.UUID) (*model.QuizSummaryDTO, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Phase != model.PhaseClosed {
		return nil, model.ErrSessionNotClosed
	}

	participants, err := s.answers.Participants(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	if participants == nil {
		participants = []string{}
	}

	summary := &model.QuizSummaryDTO{
		SessionID:    session.ID.String(),
		Channel:      session.Channel,
		CourseID:     session.CourseID,
		Participants: participants,
		Questions:    make([]model.QuestionSummary, len(session.Questions)),
	}
	for i, q := range session.Questions {
		agg, err := s.answers.Aggregate(ctx, sessionID, i, len(q.Options))
		if err != nil {
			return nil, fmt.Errorf("aggregate question %d: %w", i, err)
		}
		summary.Questions[i] = model.QuestionSummary{
			Index:          i,
			Question:       q.Question,
			Options:        q.Options,
			CorrectIndices: q.CorrectIndices,
			Why:            q.Why,
			AnsweredCount:  agg.AnsweredCount,
			OptionCounts:   agg.OptionCounts,
		}
	}
	return summary, nil
}

// ResolveChannel maps a projector channel to its current session. The
// mapping is cached in Redis with a store fallback that self-heals the key.
func (s *SnapshotService) ResolveChannel(ctx context.Context, channel string) (uuid.UUID, error) {
	key := config.CacheKey.ChannelSessionKey(channel)

	if val, err := s.rdb.Get(ctx, key).Result(); err == nil {
		if id, parseErr := uuid.Parse(val); parseErr == nil {
			return id, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("Redis error resolving channel, falling back to store")
	}

	session, err := s.sessions.LatestByChannel(ctx, channel)
	if err != nil {
		return uuid.Nil, err
	}
	if err := s.rdb.Set(ctx, key, session.ID.String(), 0).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to self-heal channel cache")
	}
	return session.ID, nil
}

// studentProjection shapes the minimally-revealing view every role shares.
func studentProjection(session *model.QuizSession) *model.QuizStateDTO {
	question := session.CurrentQuestion()

	dto := &model.QuizStateDTO{
		SessionID:      session.ID.String(),
		Phase:          session.Phase,
		CurrentIndex:   session.CurrentIndex,
		TotalQuestions: len(session.Questions),
		Question:       question.Question,
		Options:        question.Options,
		TimerSeconds:   session.TimerSeconds,
		TimerStartedAt: session.TimerStartedAt,
	}
	if session.Phase == model.PhaseRevealCorrect {
		dto.CorrectIndices = question.CorrectIndices
		dto.Why = question.Why
	}
	return dto
}
