package worker

import (
	"context"
	"errors"
	"time"

	"github.com/coursekit/livequiz-backend/internal/model"
	"github.com/coursekit/livequiz-backend/internal/service"
	"github.com/rs/zerolog"
)

// TimerWorker sweeps active sessions whose question timer has expired and
// reveals the answer distribution. The timer itself is advisory and
// clients render their own countdown; this worker only exists so a
// presenter can opt into hands-off pacing. Losing a race with a manual
// reveal is normal and ignored.
type TimerWorker struct {
	sessions service.SessionStore
	control  *service.QuizSessionService
	interval time.Duration
	log      zerolog.Logger
}

// NewTimerWorker creates a new TimerWorker.
func NewTimerWorker(
	sessions service.SessionStore,
	control *service.QuizSessionService,
	interval time.Duration,
	log zerolog.Logger,
) *TimerWorker {
	return &TimerWorker{
		sessions: sessions,
		control:  control,
		interval: interval,
		log:      log.With().Str("component", "timer_worker").Logger(),
	}
}

// Start begins the sweep loop. Call in a goroutine.
func (w *TimerWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("Worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep reveals the distribution for every session whose timer has run out.
func (w *TimerWorker) Sweep(ctx context.Context) {
	expired, err := w.sessions.ListExpiredTimers(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("Failed to list expired timers")
		return
	}

	for _, session := range expired {
		_, err := w.control.Command(ctx, session.ID, model.CommandRevealDistribution)
		if err != nil {
			// The presenter revealed (or skipped) first.
			if errors.Is(err, model.ErrInvalidTransition) || errors.Is(err, model.ErrSessionNotFound) {
				continue
			}
			w.log.Error().Err(err).
				Str("session_id", session.ID.String()).
				Msg("Failed to auto-reveal")
			continue
		}
		w.log.Info().
			Str("session_id", session.ID.String()).
			Int("question_index", session.CurrentIndex).
			Msg("Timer expired, revealed distribution")
	}
}
