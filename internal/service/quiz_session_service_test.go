package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/coursekit/livequiz-backend/internal/config"
	"github.com/coursekit/livequiz-backend/internal/model"
	"github.com/coursekit/livequiz-backend/internal/repository/memory"
)

func TestStartCreatesWaitingSession(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := memory.NewStore()
	svc := NewQuizSessionService(store, rdb, testLogger())

	session, err := svc.Start(context.Background(), startRequest(3))
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if session.Phase != model.PhaseWaiting {
		t.Errorf("phase = %q, want %q", session.Phase, model.PhaseWaiting)
	}
	if session.CurrentIndex != 0 {
		t.Errorf("current_index = %d, want 0", session.CurrentIndex)
	}
	if len(session.Questions) != 3 {
		t.Errorf("questions = %d, want 3", len(session.Questions))
	}

	// The channel mapping must be bound so projectors can find the session.
	bound, err := mr.Get(config.CacheKey.ChannelSessionKey("main-hall"))
	if err != nil {
		t.Fatalf("channel key not cached: %v", err)
	}
	if bound != session.ID.String() {
		t.Errorf("channel bound to %q, want %q", bound, session.ID)
	}
}

func TestStartRejectsOutOfRangeCorrectIndex(t *testing.T) {
	_, rdb := newTestRedis(t)
	svc := NewQuizSessionService(memory.NewStore(), rdb, testLogger())

	req := startRequest(1)
	req.Questions[0].CorrectIndices = []int{4}

	if _, err := svc.Start(context.Background(), req); !errors.Is(err, model.ErrOptionOutOfRange) {
		t.Fatalf("err = %v, want ErrOptionOutOfRange", err)
	}
}

func TestCommandLifecycle(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := memory.NewStore()
	svc := NewQuizSessionService(store, rdb, testLogger())

	timer := 30
	req := startRequest(2)
	req.TimerSeconds = &timer
	session, err := svc.Start(context.Background(), req)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	id := session.ID

	steps := []struct {
		cmd       model.Command
		wantPhase model.Phase
		wantIdx   int
	}{
		{model.CommandLaunch, model.PhaseActive, 0},
		{model.CommandRevealDistribution, model.PhaseRevealDist, 0},
		{model.CommandRevealCorrect, model.PhaseRevealCorrect, 0},
		{model.CommandNext, model.PhaseActive, 1},
		{model.CommandRevealDistribution, model.PhaseRevealDist, 1},
		{model.CommandRevealCorrect, model.PhaseRevealCorrect, 1},
		{model.CommandClose, model.PhaseClosed, 1},
	}
	for _, step := range steps {
		got, err := svc.Command(context.Background(), id, step.cmd)
		if err != nil {
			t.Fatalf("command %s: %v", step.cmd, err)
		}
		if got.Phase != step.wantPhase || got.CurrentIndex != step.wantIdx {
			t.Fatalf("after %s: (%s, %d), want (%s, %d)",
				step.cmd, got.Phase, got.CurrentIndex, step.wantPhase, step.wantIdx)
		}
		if step.wantPhase == model.PhaseActive && got.TimerStartedAt == nil {
			t.Fatalf("after %s: timer not started", step.cmd)
		}
		if step.wantPhase != model.PhaseActive && got.TimerStartedAt != nil {
			t.Fatalf("after %s: timer still running", step.cmd)
		}
	}

	// Closed is terminal.
	for _, cmd := range []model.Command{
		model.CommandLaunch, model.CommandNext, model.CommandSkip, model.CommandClose,
	} {
		if _, err := svc.Command(context.Background(), id, cmd); !errors.Is(err, model.ErrInvalidTransition) {
			t.Errorf("command %s on closed session: err = %v, want ErrInvalidTransition", cmd, err)
		}
	}
}

func TestCommandDuplicateRejected(t *testing.T) {
	_, rdb := newTestRedis(t)
	svc := NewQuizSessionService(memory.NewStore(), rdb, testLogger())

	session, err := svc.Start(context.Background(), startRequest(2))
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := svc.Command(context.Background(), session.ID, model.CommandLaunch); err != nil {
		t.Fatalf("launch: %v", err)
	}
	// A retried launch finds the session already active.
	if _, err := svc.Command(context.Background(), session.ID, model.CommandLaunch); !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("duplicate launch: err = %v, want ErrInvalidTransition", err)
	}
}

func TestCommandConcurrentDuplicatesApplyOnce(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := memory.NewStore()
	svc := NewQuizSessionService(store, rdb, testLogger())

	session, err := svc.Start(context.Background(), startRequest(2))
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	const racers = 8
	var wg sync.WaitGroup
	results := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Command(context.Background(), session.ID, model.CommandLaunch)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, model.ErrInvalidTransition):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("launch applied %d times, want exactly 1", succeeded)
	}

	got, err := store.GetByID(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Phase != model.PhaseActive || got.CurrentIndex != 0 {
		t.Fatalf("state = (%s, %d), want (active, 0)", got.Phase, got.CurrentIndex)
	}
}

func TestUpdatedAtStrictlyIncreasesAcrossCommands(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := memory.NewStore()
	svc := NewQuizSessionService(store, rdb, testLogger())

	session, err := svc.Start(context.Background(), startRequest(1))
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	// Commands land within the same wall-clock second; Last-Modified is
	// second-granular, so updated_at has to grow strictly anyway.
	prev := session.UpdatedAt
	for _, cmd := range []model.Command{
		model.CommandLaunch, model.CommandRevealDistribution, model.CommandRevealCorrect,
	} {
		got, err := svc.Command(context.Background(), session.ID, cmd)
		if err != nil {
			t.Fatalf("command %s: %v", cmd, err)
		}
		if got.UpdatedAt.Unix() <= prev.Unix() {
			t.Fatalf("after %s: updated_at %d not past %d", cmd, got.UpdatedAt.Unix(), prev.Unix())
		}
		prev = got.UpdatedAt
	}
}

func TestDeleteRemovesSessionAndCacheKeys(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := memory.NewStore()
	svc := NewQuizSessionService(store, rdb, testLogger())

	session, err := svc.Start(context.Background(), startRequest(1))
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := svc.Delete(context.Background(), session.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := store.GetByID(context.Background(), session.ID); !errors.Is(err, model.ErrSessionNotFound) {
		t.Errorf("get after delete: err = %v, want ErrSessionNotFound", err)
	}
	if mr.Exists(config.CacheKey.SessionUpdatedAtKey(session.ID.String())) {
		t.Error("updated_at cache key survived delete")
	}
	if mr.Exists(config.CacheKey.ChannelSessionKey("main-hall")) {
		t.Error("channel cache key survived delete")
	}

	if err := svc.Delete(context.Background(), session.ID); !errors.Is(err, model.ErrSessionNotFound) {
		t.Errorf("second delete: err = %v, want ErrSessionNotFound", err)
	}
}

func TestDeleteKeepsChannelBoundToNewerSession(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := memory.NewStore()
	svc := NewQuizSessionService(store, rdb, testLogger())

	old, err := svc.Start(context.Background(), startRequest(1))
	if err != nil {
		t.Fatalf("start old: %v", err)
	}
	current, err := svc.Start(context.Background(), startRequest(1))
	if err != nil {
		t.Fatalf("start current: %v", err)
	}

	if err := svc.Delete(context.Background(), old.ID); err != nil {
		t.Fatalf("delete old: %v", err)
	}

	bound, err := mr.Get(config.CacheKey.ChannelSessionKey("main-hall"))
	if err != nil {
		t.Fatalf("channel key missing: %v", err)
	}
	if bound != current.ID.String() {
		t.Errorf("channel bound to %q, want the newer session %q", bound, current.ID)
	}
}
