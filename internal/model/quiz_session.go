package model

import (
	"time"

	"github.com/google/uuid"
)

// Phase enumerates the lifecycle stages of a quiz session.
type Phase string

const (
	PhaseWaiting       Phase = "waiting"
	PhaseActive        Phase = "active"
	PhaseRevealDist    Phase = "reveal_dist"
	PhaseRevealCorrect Phase = "reveal_correct"
	PhaseClosed        Phase = "closed"
)

// Question is a single multiple-choice question. The question text, options
// and explanation are markdown; rendering is the frontend's concern.
type Question struct {
	Question       string   `json:"question"`
	Options        []string `json:"options"`
	CorrectIndices []int    `json:"correct_indices"`
	Why            string   `json:"why,omitempty"`
}

// QuizSession is one live quiz run. The question set is fixed at creation and
// never mutated. UpdatedAt is bumped on every phase transition, join and
// recorded answer — it is the sole cache-invalidation signal for the
// conditional-GET polling contract.
type QuizSession struct {
	ID             uuid.UUID  `json:"id"`
	Channel        string     `json:"channel"`
	CourseID       string     `json:"course_id"`
	Questions      []Question `json:"questions"`
	Phase          Phase      `json:"phase"`
	CurrentIndex   int        `json:"current_index"`
	TimerSeconds   *int       `json:"timer_seconds,omitempty"`
	TimerStartedAt *time.Time `json:"timer_started_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// CurrentQuestion returns the question at CurrentIndex.
func (s *QuizSession) CurrentQuestion() Question {
	return s.Questions[s.CurrentIndex]
}

// StartSessionRequest is the presenter payload for creating a quiz session.
type StartSessionRequest struct {
	Channel      string            `json:"channel" binding:"required,min=1,max=64"`
	CourseID     string            `json:"course_id" binding:"required,min=1,max=64"`
	TimerSeconds *int              `json:"timer_seconds" binding:"omitempty,min=5,max=3600"`
	Questions    []QuestionPayload `json:"questions" binding:"required,min=1,max=100,dive"`
}

// QuestionPayload is one question in a StartSessionRequest.
type QuestionPayload struct {
	Question       string   `json:"question" binding:"required,min=1,max=4000"`
	Options        []string `json:"options" binding:"required,min=2,max=10,dive,required,max=2000"`
	CorrectIndices []int    `json:"correct_indices" binding:"required,min=1"`
	Why            string   `json:"why" binding:"omitempty,max=4000"`
}

// SubmitAnswerRequest is the student payload for answering the current question.
type SubmitAnswerRequest struct {
	QuestionIndex   int   `json:"question_index" binding:"min=0"`
	SelectedIndices []int `json:"selected_indices" binding:"required,min=1"`
}
