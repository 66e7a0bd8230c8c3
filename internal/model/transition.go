package model

// Command enumerates the presenter commands that drive a quiz session.
type Command string

const (
	CommandLaunch             Command = "launch"
	CommandRevealDistribution Command = "reveal_distribution"
	CommandRevealCorrect      Command = "reveal_correct"
	CommandNext               Command = "next"
	CommandSkip               Command = "skip"
	CommandClose              Command = "close"
)

// TransitionResult is the computed next state for a legal transition.
// StartTimer is true exactly when the target phase is active — the session's
// timer_started_at must be set to now() then, and cleared otherwise.
type TransitionResult struct {
	Phase        Phase
	CurrentIndex int
	StartTimer   bool
}

// Transition computes the next session state for a presenter command. It is a
// pure function over an explicit state snapshot; persistence applies the
// result under a compare-and-set so that a concurrent duplicate command
// cannot apply twice. Any (phase, command) pair outside the transition table
// returns ErrInvalidTransition and must leave the session untouched.
func Transition(phase Phase, idx, total int, cmd Command) (TransitionResult, error) {
	switch phase {
	case PhaseWaiting:
		switch cmd {
		case CommandLaunch:
			return TransitionResult{Phase: PhaseActive, CurrentIndex: 0, StartTimer: true}, nil
		case CommandSkip:
			if total > 1 {
				return TransitionResult{Phase: PhaseActive, CurrentIndex: 1, StartTimer: true}, nil
			}
		}

	case PhaseActive:
		switch cmd {
		case CommandRevealDistribution:
			return TransitionResult{Phase: PhaseRevealDist, CurrentIndex: idx}, nil
		case CommandSkip:
			if idx < total-1 {
				return TransitionResult{Phase: PhaseActive, CurrentIndex: idx + 1, StartTimer: true}, nil
			}
			return TransitionResult{Phase: PhaseClosed, CurrentIndex: idx}, nil
		}

	case PhaseRevealDist:
		if cmd == CommandRevealCorrect {
			return TransitionResult{Phase: PhaseRevealCorrect, CurrentIndex: idx}, nil
		}

	case PhaseRevealCorrect:
		switch cmd {
		case CommandNext:
			if idx < total-1 {
				return TransitionResult{Phase: PhaseActive, CurrentIndex: idx + 1, StartTimer: true}, nil
			}
		case CommandClose:
			if idx == total-1 {
				return TransitionResult{Phase: PhaseClosed, CurrentIndex: idx}, nil
			}
		}
	}

	// PhaseClosed is terminal: no command is legal.
	return TransitionResult{}, ErrInvalidTransition
}
