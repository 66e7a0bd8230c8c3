package model

import (
	"errors"
	"testing"
)

func TestTransitionTable(t *testing.T) {
	const total = 3

	cases := []struct {
		name  string
		phase Phase
		idx   int
		cmd   Command
		want  TransitionResult
	}{
		{"launch from waiting", PhaseWaiting, 0, CommandLaunch, TransitionResult{PhaseActive, 0, true}},
		{"skip from waiting", PhaseWaiting, 0, CommandSkip, TransitionResult{PhaseActive, 1, true}},
		{"reveal distribution", PhaseActive, 0, CommandRevealDistribution, TransitionResult{PhaseRevealDist, 0, false}},
		{"skip mid-quiz", PhaseActive, 1, CommandSkip, TransitionResult{PhaseActive, 2, true}},
		{"skip last question closes", PhaseActive, 2, CommandSkip, TransitionResult{PhaseClosed, 2, false}},
		{"reveal correct", PhaseRevealDist, 1, CommandRevealCorrect, TransitionResult{PhaseRevealCorrect, 1, false}},
		{"next question", PhaseRevealCorrect, 0, CommandNext, TransitionResult{PhaseActive, 1, true}},
		{"close after last reveal", PhaseRevealCorrect, 2, CommandClose, TransitionResult{PhaseClosed, 2, false}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Transition(tc.phase, tc.idx, total, tc.cmd)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

// Every (phase, command) pair outside the legal table must fail with
// ErrInvalidTransition, regardless of index.
func TestTransitionTotality(t *testing.T) {
	phases := []Phase{PhaseWaiting, PhaseActive, PhaseRevealDist, PhaseRevealCorrect, PhaseClosed}
	commands := []Command{CommandLaunch, CommandRevealDistribution, CommandRevealCorrect, CommandNext, CommandSkip, CommandClose}

	const total = 3
	legal := map[string]bool{
		"waiting/launch":             true,
		"waiting/skip":               true,
		"active/reveal_distribution": true,
		"active/skip":                true,
		"reveal_dist/reveal_correct": true,
		"reveal_correct/next":        true,
		"reveal_correct/close":       true, // only at the last index
	}

	for _, phase := range phases {
		for _, cmd := range commands {
			for idx := 0; idx < total; idx++ {
				res, err := Transition(phase, idx, total, cmd)
				key := string(phase) + "/" + string(cmd)
				if !legal[key] {
					if !errors.Is(err, ErrInvalidTransition) {
						t.Fatalf("%s idx=%d: want ErrInvalidTransition, got %+v err=%v", key, idx, res, err)
					}
					continue
				}
				// Guarded rows: legal only at certain indices.
				if phase == PhaseRevealCorrect && cmd == CommandNext && idx == total-1 {
					if !errors.Is(err, ErrInvalidTransition) {
						t.Fatalf("next at last index must be illegal, got %+v", res)
					}
					continue
				}
				if phase == PhaseRevealCorrect && cmd == CommandClose && idx != total-1 {
					if !errors.Is(err, ErrInvalidTransition) {
						t.Fatalf("close before last index must be illegal, got %+v", res)
					}
					continue
				}
				if err != nil {
					t.Fatalf("%s idx=%d: unexpected error %v", key, idx, err)
				}
			}
		}
	}
}

func TestTransitionSkipFromWaitingSingleQuestion(t *testing.T) {
	// With one question there is nothing to skip to.
	if _, err := Transition(PhaseWaiting, 0, 1, CommandSkip); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("want ErrInvalidTransition, got %v", err)
	}
}
