package service

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/coursekit/livequiz-backend/internal/model"
	"github.com/coursekit/livequiz-backend/internal/repository/memory"
	"github.com/google/uuid"
)

// activeSession creates a session and launches it to question 0.
func activeSession(t *testing.T, sessions *QuizSessionService, n int) uuid.UUID {
	t.Helper()
	session, err := sessions.Start(context.Background(), startRequest(n))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := sessions.Command(context.Background(), session.ID, model.CommandLaunch); err != nil {
		t.Fatalf("launch: %v", err)
	}
	return session.ID
}

func TestJoinIsIdempotent(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := memory.NewStore()
	sessions := NewQuizSessionService(store, rdb, testLogger())
	ledger := NewLedgerService(store, store, "first_wins", rdb, testLogger())

	id := activeSession(t, sessions, 1)

	for i := 0; i < 3; i++ {
		if err := ledger.Join(context.Background(), id, "alice"); err != nil {
			t.Fatalf("join attempt %d: %v", i+1, err)
		}
	}
	if err := ledger.Join(context.Background(), id, "bob"); err != nil {
		t.Fatalf("join bob: %v", err)
	}

	roster, err := store.Participants(context.Background(), id)
	if err != nil {
		t.Fatalf("participants: %v", err)
	}
	if want := []string{"alice", "bob"}; !reflect.DeepEqual(roster, want) {
		t.Errorf("roster = %v, want %v", roster, want)
	}
}

func TestJoinClosedSessionFails(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := memory.NewStore()
	sessions := NewQuizSessionService(store, rdb, testLogger())
	ledger := NewLedgerService(store, store, "first_wins", rdb, testLogger())

	id := activeSession(t, sessions, 1)
	if _, err := sessions.Command(context.Background(), id, model.CommandSkip); err != nil {
		t.Fatalf("skip to close: %v", err)
	}

	if err := ledger.Join(context.Background(), id, "alice"); !errors.Is(err, model.ErrSessionClosed) {
		t.Fatalf("join closed: err = %v, want ErrSessionClosed", err)
	}
}

func TestSubmitRecordsNormalizedAnswer(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := memory.NewStore()
	sessions := NewQuizSessionService(store, rdb, testLogger())
	ledger := NewLedgerService(store, store, "first_wins", rdb, testLogger())

	id := activeSession(t, sessions, 1)

	err := ledger.Submit(context.Background(), id, "alice", &model.SubmitAnswerRequest{
		QuestionIndex:   0,
		SelectedIndices: []int{2, 0, 2},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	rec, ok := store.AnswerFor(id, 0, "alice")
	if !ok {
		t.Fatal("answer not recorded")
	}
	if want := []int{0, 2}; !reflect.DeepEqual(rec.SelectedIndices, want) {
		t.Errorf("selected = %v, want sorted deduplicated %v", rec.SelectedIndices, want)
	}
}

func TestSubmitFirstWinsKeepsOriginal(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := memory.NewStore()
	sessions := NewQuizSessionService(store, rdb, testLogger())
	ledger := NewLedgerService(store, store, "first_wins", rdb, testLogger())

	id := activeSession(t, sessions, 1)

	submit := func(opt int) error {
		return ledger.Submit(context.Background(), id, "alice", &model.SubmitAnswerRequest{
			QuestionIndex:   0,
			SelectedIndices: []int{opt},
		})
	}
	if err := submit(1); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	// The duplicate is a quiet success that changes nothing.
	if err := submit(3); err != nil {
		t.Fatalf("duplicate submit: %v", err)
	}

	rec, _ := store.AnswerFor(id, 0, "alice")
	if want := []int{1}; !reflect.DeepEqual(rec.SelectedIndices, want) {
		t.Errorf("selected = %v, want the first answer %v", rec.SelectedIndices, want)
	}

	agg, err := store.Aggregate(context.Background(), id, 0, 4)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if agg.AnsweredCount != 1 {
		t.Errorf("answered_count = %d, want 1", agg.AnsweredCount)
	}
}

func TestSubmitLastWinsOverwrites(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := memory.NewStore()
	sessions := NewQuizSessionService(store, rdb, testLogger())
	ledger := NewLedgerService(store, store, "last_wins", rdb, testLogger())

	id := activeSession(t, sessions, 1)

	for _, opt := range []int{1, 3} {
		err := ledger.Submit(context.Background(), id, "alice", &model.SubmitAnswerRequest{
			QuestionIndex:   0,
			SelectedIndices: []int{opt},
		})
		if err != nil {
			t.Fatalf("submit %d: %v", opt, err)
		}
	}

	rec, _ := store.AnswerFor(id, 0, "alice")
	if want := []int{3}; !reflect.DeepEqual(rec.SelectedIndices, want) {
		t.Errorf("selected = %v, want the later answer %v", rec.SelectedIndices, want)
	}
}

func TestSubmitStaleAndOutOfRange(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := memory.NewStore()
	sessions := NewQuizSessionService(store, rdb, testLogger())
	ledger := NewLedgerService(store, store, "first_wins", rdb, testLogger())

	id := activeSession(t, sessions, 2)

	// Question 1 is not current yet.
	err := ledger.Submit(context.Background(), id, "alice", &model.SubmitAnswerRequest{
		QuestionIndex:   1,
		SelectedIndices: []int{0},
	})
	if !errors.Is(err, model.ErrStaleSubmission) {
		t.Fatalf("future question: err = %v, want ErrStaleSubmission", err)
	}

	// An index past the question list.
	err = ledger.Submit(context.Background(), id, "alice", &model.SubmitAnswerRequest{
		QuestionIndex:   7,
		SelectedIndices: []int{0},
	})
	if !errors.Is(err, model.ErrStaleSubmission) {
		t.Fatalf("out-of-list question: err = %v, want ErrStaleSubmission", err)
	}

	// An option the question does not have.
	err = ledger.Submit(context.Background(), id, "alice", &model.SubmitAnswerRequest{
		QuestionIndex:   0,
		SelectedIndices: []int{4},
	})
	if !errors.Is(err, model.ErrOptionOutOfRange) {
		t.Fatalf("bad option: err = %v, want ErrOptionOutOfRange", err)
	}

	// Once the distribution is revealed the window has shut.
	if _, err := sessions.Command(context.Background(), id, model.CommandRevealDistribution); err != nil {
		t.Fatalf("reveal: %v", err)
	}
	err = ledger.Submit(context.Background(), id, "bob", &model.SubmitAnswerRequest{
		QuestionIndex:   0,
		SelectedIndices: []int{0},
	})
	if !errors.Is(err, model.ErrStaleSubmission) {
		t.Fatalf("after reveal: err = %v, want ErrStaleSubmission", err)
	}
}

func TestSubmitConcurrentDuplicatesWriteOnce(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := memory.NewStore()
	sessions := NewQuizSessionService(store, rdb, testLogger())
	ledger := NewLedgerService(store, store, "first_wins", rdb, testLogger())

	id := activeSession(t, sessions, 1)

	// One panicked double-tap per participant: every request must succeed,
	// every participant must count exactly once.
	const participants = 16
	var wg sync.WaitGroup
	errs := make(chan error, participants*2)
	for i := 0; i < participants; i++ {
		participant := string(rune('a' + i))
		for j := 0; j < 2; j++ {
			wg.Add(1)
			opt := j % 4
			go func() {
				defer wg.Done()
				errs <- ledger.Submit(context.Background(), id, participant, &model.SubmitAnswerRequest{
					QuestionIndex:   0,
					SelectedIndices: []int{opt},
				})
			}()
		}
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	agg, err := store.Aggregate(context.Background(), id, 0, 4)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if agg.AnsweredCount != participants {
		t.Errorf("answered_count = %d, want %d", agg.AnsweredCount, participants)
	}
	total := 0
	for _, n := range agg.OptionCounts {
		total += n
	}
	if total != participants {
		t.Errorf("option counts sum to %d, want %d", total, participants)
	}
}
