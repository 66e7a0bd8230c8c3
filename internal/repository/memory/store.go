// Package memory provides in-memory implementations of the session store and
// answer ledger with the same semantics as the PostgreSQL repositories:
// compare-and-set transitions, first-write-wins inserts and the monotonic
// updated_at bump. Used by service and handler tests and for dependency-free
// local runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/coursekit/livequiz-backend/internal/model"
	"github.com/google/uuid"
)

type answerKey struct {
	questionIndex int
	participantID string
}

type sessionState struct {
	session      model.QuizSession
	participants []string
	joined       map[string]bool
	answers      map[answerKey]model.AnswerRecord
}

// Store holds all quiz state behind one mutex. The lock plays the role the
// database's atomic statements play in production: a transition or submission
// is validated and applied without any interleaved writer.
type Store struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*sessionState
	now      func() time.Time
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return NewStoreWithClock(time.Now)
}

// NewStoreWithClock allows deterministic timestamps in tests.
func NewStoreWithClock(now func() time.Time) *Store {
	return &Store{
		sessions: make(map[uuid.UUID]*sessionState),
		now:      now,
	}
}

// Create inserts a new session in the waiting phase.
func (s *Store) Create(_ context.Context, session *model.QuizSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	session.ID = uuid.New()
	session.Phase = model.PhaseWaiting
	session.CurrentIndex = 0
	session.CreatedAt = now
	session.UpdatedAt = now

	s.sessions[session.ID] = &sessionState{
		session: *session,
		joined:  make(map[string]bool),
		answers: make(map[answerKey]model.AnswerRecord),
	}
	return nil
}

// GetByID retrieves a copy of a session.
func (s *Store) GetByID(_ context.Context, id uuid.UUID) (*model.QuizSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.sessions[id]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	session := state.session
	return &session, nil
}

// LatestByChannel retrieves the most recently created session on a channel.
func (s *Store) LatestByChannel(_ context.Context, channel string) (*model.QuizSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *sessionState
	for _, state := range s.sessions {
		if state.session.Channel != channel {
			continue
		}
		if latest == nil || state.session.CreatedAt.After(latest.session.CreatedAt) {
			latest = state
		}
	}
	if latest == nil {
		return nil, model.ErrSessionNotFound
	}
	session := latest.session
	return &session, nil
}

// ApplyTransition applies a transition under compare-and-set, exactly like
// the SQL UPDATE with its phase/current_index guard.
func (s *Store) ApplyTransition(_ context.Context, id uuid.UUID, from model.Phase, fromIdx int, next model.TransitionResult) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.sessions[id]
	if !ok {
		return time.Time{}, model.ErrInvalidTransition
	}
	if state.session.Phase != from || state.session.CurrentIndex != fromIdx {
		return time.Time{}, model.ErrInvalidTransition
	}

	state.session.Phase = next.Phase
	state.session.CurrentIndex = next.CurrentIndex
	if next.StartTimer {
		started := s.now()
		state.session.TimerStartedAt = &started
	} else {
		state.session.TimerStartedAt = nil
	}
	state.session.UpdatedAt = s.bump(state.session.UpdatedAt)
	return state.session.UpdatedAt, nil
}

// UpdatedAt reads only the session's updated_at.
func (s *Store) UpdatedAt(_ context.Context, id uuid.UUID) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.sessions[id]
	if !ok {
		return time.Time{}, model.ErrSessionNotFound
	}
	return state.session.UpdatedAt, nil
}

// Delete removes a session with its roster and answers.
func (s *Store) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return model.ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// ListExpiredTimers returns active sessions whose timer has expired.
func (s *Store) ListExpiredTimers(_ context.Context) ([]model.QuizSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var expired []model.QuizSession
	for _, state := range s.sessions {
		sess := state.session
		if sess.Phase != model.PhaseActive || sess.TimerSeconds == nil || sess.TimerStartedAt == nil {
			continue
		}
		if !sess.TimerStartedAt.Add(time.Duration(*sess.TimerSeconds) * time.Second).After(now) {
			expired = append(expired, sess)
		}
	}
	return expired, nil
}

// Join adds a participant to the roster if absent and the session is open.
func (s *Store) Join(_ context.Context, sessionID uuid.UUID, participantID string) (bool, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.sessions[sessionID]
	if !ok || state.session.Phase == model.PhaseClosed {
		return false, time.Time{}, nil
	}
	if state.joined[participantID] {
		return false, time.Time{}, nil
	}

	state.joined[participantID] = true
	state.participants = append(state.participants, participantID)
	state.session.UpdatedAt = s.bump(state.session.UpdatedAt)
	return true, state.session.UpdatedAt, nil
}

// Submit records an answer under the same guard as the SQL insert: only while
// the session is active at exactly this question index, one record per key.
func (s *Store) Submit(_ context.Context, rec *model.AnswerRecord, policy model.SubmitPolicy) (bool, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.sessions[rec.SessionID]
	if !ok {
		return false, time.Time{}, model.ErrStaleSubmission
	}

	key := answerKey{questionIndex: rec.QuestionIndex, participantID: rec.ParticipantID}
	open := state.session.Phase == model.PhaseActive && state.session.CurrentIndex == rec.QuestionIndex
	_, exists := state.answers[key]

	if !open || (exists && policy != model.SubmitPolicyLastWins) {
		if exists {
			// Duplicate: a success for the caller, but nothing is written.
			return false, time.Time{}, nil
		}
		return false, time.Time{}, model.ErrStaleSubmission
	}

	stored := *rec
	stored.SubmittedAt = s.now()
	stored.SelectedIndices = append([]int(nil), rec.SelectedIndices...)
	state.answers[key] = stored
	state.session.UpdatedAt = s.bump(state.session.UpdatedAt)
	return true, state.session.UpdatedAt, nil
}

// Aggregate recomputes the distribution for one question from the records.
func (s *Store) Aggregate(_ context.Context, sessionID uuid.UUID, questionIndex, optionCount int) (model.Aggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	agg := model.Aggregate{OptionCounts: make([]int, optionCount)}
	state, ok := s.sessions[sessionID]
	if !ok {
		return agg, nil
	}

	for key, rec := range state.answers {
		if key.questionIndex != questionIndex {
			continue
		}
		agg.AnsweredCount++
		for _, opt := range rec.SelectedIndices {
			if opt >= 0 && opt < optionCount {
				agg.OptionCounts[opt]++
			}
		}
	}
	return agg, nil
}

// Participants returns the roster in join order.
func (s *Store) Participants(_ context.Context, sessionID uuid.UUID) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	return append([]string(nil), state.participants...), nil
}

// AnswerFor exposes a stored record for assertions in tests.
func (s *Store) AnswerFor(sessionID uuid.UUID, questionIndex int, participantID string) (model.AnswerRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.sessions[sessionID]
	if !ok {
		return model.AnswerRecord{}, false
	}
	rec, ok := state.answers[answerKey{questionIndex: questionIndex, participantID: participantID}]
	return rec, ok
}

// SessionIDs lists all stored session ids, sorted for deterministic tests.
func (s *Store) SessionIDs() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]uuid.UUID, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// bump mirrors the SQL GREATEST(now(), updated_at + 1s) rule: updated_at
// grows strictly at second granularity across consecutive mutations.
func (s *Store) bump(prev time.Time) time.Time {
	now := s.now()
	if next := prev.Add(time.Second); next.After(now) {
		return next
	}
	return now
}
