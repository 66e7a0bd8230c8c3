package model

import "time"

// QuizStateDTO is the student projection of a session. It never exposes other
// participants' answers or counts, and carries correct_indices/why only once
// the presenter has revealed the correct answer. Phase is never "closed" —
// a closed session stops being served to students entirely (410).
type QuizStateDTO struct {
	SessionID      string     `json:"session_id"`
	Phase          Phase      `json:"phase"`
	CurrentIndex   int        `json:"current_index"`
	TotalQuestions int        `json:"total_questions"`
	Question       string     `json:"question"`
	Options        []string   `json:"options"`
	TimerSeconds   *int       `json:"timer_seconds,omitempty"`
	TimerStartedAt *time.Time `json:"timer_started_at,omitempty"`
	CorrectIndices []int      `json:"correct_indices,omitempty"`
	Why            string     `json:"why,omitempty"`
}

// QuizResultsDTO is the presenter/projector projection: the student view plus
// the roster and the live answer distribution for the current question.
type QuizResultsDTO struct {
	QuizStateDTO
	Participants  []string `json:"participants"`
	AnsweredCount int      `json:"answered_count"`
	OptionCounts  []int    `json:"option_counts"`
}

// QuestionSummary is the post-closed review of one question.
type QuestionSummary struct {
	Index          int      `json:"index"`
	Question       string   `json:"question"`
	Options        []string `json:"options"`
	CorrectIndices []int    `json:"correct_indices"`
	Why            string   `json:"why,omitempty"`
	AnsweredCount  int      `json:"answered_count"`
	OptionCounts   []int    `json:"option_counts"`
}

// QuizSummaryDTO is the read-only per-question review of a closed session.
type QuizSummaryDTO struct {
	SessionID    string            `json:"session_id"`
	Channel      string            `json:"channel"`
	CourseID     string            `json:"course_id"`
	Participants []string          `json:"participants"`
	Questions    []QuestionSummary `json:"questions"`
}
