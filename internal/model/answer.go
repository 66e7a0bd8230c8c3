package model

import (
	"time"

	"github.com/google/uuid"
)

// SubmitPolicy controls how a second submission for the same
// (session, question, participant) key is resolved.
type SubmitPolicy string

const (
	// SubmitPolicyFirstWins keeps the stored answer; duplicates are no-op successes.
	SubmitPolicyFirstWins SubmitPolicy = "first_wins"
	// SubmitPolicyLastWins overwrites the stored answer while the question is
	// still active (never after the distribution has been revealed).
	SubmitPolicyLastWins SubmitPolicy = "last_wins"
)

// AnswerRecord is one participant's answer to one question. The
// (SessionID, QuestionIndex, ParticipantID) key is unique; the storage layer
// enforces it so concurrent duplicate submissions cannot both land.
type AnswerRecord struct {
	SessionID       uuid.UUID `json:"session_id"`
	QuestionIndex   int       `json:"question_index"`
	ParticipantID   string    `json:"participant_id"`
	SelectedIndices []int     `json:"selected_indices"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

// Aggregate are the derived counts for one question, always recomputed from
// the stored answer rows at read time — never kept as incremented counters.
type Aggregate struct {
	AnsweredCount int   `json:"answered_count"`
	OptionCounts  []int `json:"option_counts"`
}
