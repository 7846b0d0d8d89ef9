// internal/puzzle/types.go
//
// Core type definitions for the decryption puzzle.
// Defines:
//   - State: where a visitor's session stands after their last submission.
//   - Session: all mutable puzzle state for one visitor.
//   - Outcome: what a single submission reports back to the terminal.

package puzzle

// State is the evaluator state of a session.
//   - Idle:      nothing submitted yet.
//   - Correct:   the last submission matched the secret.
//   - Incorrect: the last submission did not match.
type State string

const (
	StateIdle      State = "idle"
	StateCorrect   State = "correct"
	StateIncorrect State = "incorrect"
)

// Session holds one visitor's puzzle progress. The zero value is a fresh,
// idle session; it is passed into and returned from Submit.
type Session struct {
	Attempts    int   `json:"attempts"`    // every submission, right or wrong; never reset
	HintIndex   int   `json:"hintIndex"`   // position in the hint list, wraps
	HintVisible bool  `json:"hintVisible"` // set by the first revealed hint, stays set
	State       State `json:"state"`
}

// Status reports the session state, treating the zero value as idle.
func (s Session) Status() State {
	if s.State == "" {
		return StateIdle
	}
	return s.State
}

// Outcome is the result of one Submit call.
type Outcome struct {
	Correct      bool   `json:"correct"`
	Feedback     string `json:"feedback"`
	Attempts     int    `json:"attempts"`
	HintRevealed bool   `json:"hintRevealed"`   // this submission advanced the hint
	Hint         string `json:"hint,omitempty"` // shown only next to a failure
	Notice       string `json:"notice,omitempty"`
}
