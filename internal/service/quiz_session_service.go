package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/coursekit/livequiz-backend/internal/config"
	"github.com/coursekit/livequiz-backend/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// QuizSessionService drives the presenter command surface: creating a session
// and stepping it through its phases. Every command is a single guarded
// compare-and-set in the store, so a retried or concurrent duplicate command
// fails cleanly instead of applying twice.
type QuizSessionService struct {
	sessions SessionStore
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewQuizSessionService creates a new QuizSessionService.
func NewQuizSessionService(sessions SessionStore, rdb *redis.Client, log zerolog.Logger) *QuizSessionService {
	return &QuizSessionService{
		sessions: sessions,
		rdb:      rdb,
		log:      log.With().Str("component", "quiz_session_service").Logger(),
	}
}

// Start creates a new session in the waiting phase from the presenter's
// question set and binds it to the channel. The question set is validated
// here once and never mutated afterwards.
func (s *QuizSessionService) Start(ctx context.Context, req *model.StartSessionRequest) (*model.QuizSession, error) {
	questions := make([]model.Question, len(req.Questions))
	for i, q := range req.Questions {
		for _, idx := range q.CorrectIndices {
			if idx < 0 || idx >= len(q.Options) {
				return nil, fmt.Errorf("question %d: correct index %d: %w", i, idx, model.ErrOptionOutOfRange)
			}
		}
		questions[i] = model.Question{
			Question:       q.Question,
			Options:        q.Options,
			CorrectIndices: q.CorrectIndices,
			Why:            q.Why,
		}
	}

	session := &model.QuizSession{
		Channel:      req.Channel,
		CourseID:     req.CourseID,
		Questions:    questions,
		TimerSeconds: req.TimerSeconds,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.cacheUpdatedAt(ctx, session.ID, session.UpdatedAt.Unix())
	s.cacheChannel(ctx, session.Channel, session.ID)

	s.log.Info().
		Str("session_id", session.ID.String()).
		Str("channel", session.Channel).
		Int("questions", len(questions)).
		Msg("Quiz session started")
	return session, nil
}

// Command applies one presenter command. The transition is computed as a pure
// function of the observed state and applied under compare-and-set; if the
// session moved in between (e.g. a retried network request already applied
// this command), the result is ErrInvalidTransition with no partial effects.
func (s *QuizSessionService) Command(ctx context.Context, sessionID uuid.UUID, cmd model.Command) (*model.QuizSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	next, err := model.Transition(session.Phase, session.CurrentIndex, len(session.Questions), cmd)
	if err != nil {
		return nil, err
	}

	updatedAt, err := s.sessions.ApplyTransition(ctx, sessionID, session.Phase, session.CurrentIndex, next)
	if err != nil {
		return nil, err
	}

	s.cacheUpdatedAt(ctx, sessionID, updatedAt.Unix())

	session.Phase = next.Phase
	session.CurrentIndex = next.CurrentIndex
	session.UpdatedAt = updatedAt
	if !next.StartTimer {
		session.TimerStartedAt = nil
	} else {
		started := updatedAt
		session.TimerStartedAt = &started
	}

	s.log.Info().
		Str("session_id", sessionID.String()).
		Str("command", string(cmd)).
		Str("phase", string(next.Phase)).
		Int("current_index", next.CurrentIndex).
		Msg("Phase transition applied")
	return session, nil
}

// Delete removes a session entirely. All roles observing it receive 410 on
// their next poll and stop.
func (s *QuizSessionService) Delete(ctx context.Context, sessionID uuid.UUID) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}

	if err := s.rdb.Del(ctx, config.CacheKey.SessionUpdatedAtKey(sessionID.String())).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to drop updated_at cache key")
	}
	// Unbind the channel only if it still points at this session — a newer
	// session may have taken the channel over.
	channelKey := config.CacheKey.ChannelSessionKey(session.Channel)
	if cur, err := s.rdb.Get(ctx, channelKey).Result(); err == nil && cur == sessionID.String() {
		if err := s.rdb.Del(ctx, channelKey).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to drop channel cache key")
		}
	}

	s.log.Info().Str("session_id", sessionID.String()).Msg("Quiz session deleted")
	return nil
}

// cacheUpdatedAt refreshes the conditional-GET fast path. Failures are logged
// and ignored: the cache is advisory and pollers fall back to the store. The
// TTL guarantees a failed refresh leaves at most a briefly stale stamp behind.
func (s *QuizSessionService) cacheUpdatedAt(ctx context.Context, sessionID uuid.UUID, unixSeconds int64) {
	key := config.CacheKey.SessionUpdatedAtKey(sessionID.String())
	if err := s.rdb.Set(ctx, key, strconv.FormatInt(unixSeconds, 10), config.SessionUpdatedAtTTL).Err(); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Failed to cache updated_at")
	}
}

func (s *QuizSessionService) cacheChannel(ctx context.Context, channel string, sessionID uuid.UUID) {
	key := config.CacheKey.ChannelSessionKey(channel)
	if err := s.rdb.Set(ctx, key, sessionID.String(), 0).Err(); err != nil {
		s.log.Warn().Err(err).Str("channel", channel).Msg("Failed to cache channel mapping")
	}
}
