// internal/puzzle/engine.go
//
// Evaluator for the terminal's decryption prompt.
// Responsibilities:
//   - Own the secret plaintext and its fixed hint list.
//   - Cache the Morse encoding and display chunks of the secret.
//   - Compare submissions (trimmed, case-insensitive) and drive the hint cadence.
//
// Notes:
//   - There is no error path: any string is a legal candidate.
//   - The hint cadence looks at the attempt count before the increment, so hints
//     appear on attempts 3, 6, 9, ... whenever those attempts fail.

package puzzle

import (
	"fmt"
	"strings"

	"github.com/robalobadob/breach/internal/morse"
)

// Plaintext is the message the visitor has to recover from the feed.
const Plaintext = "THEGRID2025"

const (
	feedbackGranted = "ACCESS GRANTED: SYSTEM COMPROMISED - AUTHENTICATION SUCCESSFUL"
	feedbackDenied  = "ACCESS DENIED: INVALID DECRYPTION KEY - ATTEMPT %d/∞"
	noticeGranted   = "calling...."

	hintEvery = 3
)

// DefaultHints is the ordered clue list revealed on the failure cadence.
var DefaultHints = []string{
	"PATTERN ANALYSIS: Signal contains repeating sequences",
	"DETECTED: Binary-like structure with two distinct symbols",
	"HISTORICAL CONTEXT: Pre-digital communication methods",
	"ANALYSIS: Dots and dashes detected in sequence",
	"WARNING: International signal patterns identified",
}

// Puzzle is immutable after New and safe for concurrent use.
type Puzzle struct {
	plaintext string
	target    string // normalized plaintext
	hints     []string
	encoded   string
	chunks    []string
}

// New builds a puzzle for plaintext with the given hints (copied).
func New(plaintext string, hints []string) *Puzzle {
	enc := morse.Encode(plaintext)
	return &Puzzle{
		plaintext: plaintext,
		target:    normalize(plaintext),
		hints:     append([]string(nil), hints...),
		encoded:   enc,
		chunks:    morse.Split(enc, morse.ChunkSize),
	}
}

// Default returns the canonical puzzle: Plaintext with DefaultHints.
func Default() *Puzzle { return New(Plaintext, DefaultHints) }

// Encoded returns the Morse form of the secret.
func (p *Puzzle) Encoded() string { return p.encoded }

// Chunks returns a copy of the display chunks of the encoded secret.
func (p *Puzzle) Chunks() []string { return append([]string(nil), p.chunks...) }

// Hints returns a copy of the hint list.
func (p *Puzzle) Hints() []string { return append([]string(nil), p.hints...) }

// Hint returns the hint at i (wrapped), or "" when there are no hints.
func (p *Puzzle) Hint(i int) string {
	if len(p.hints) == 0 {
		return ""
	}
	i %= len(p.hints)
	if i < 0 {
		i += len(p.hints)
	}
	return p.hints[i]
}

// Submit evaluates candidate against the secret and returns the next session
// state together with the outcome to display.
//
// State transitions:
//   - attempts always grows by one.
//   - match     → Correct; hint fields untouched.
//   - no match  → Incorrect; when the pre-increment count is 2 mod 3 the hint
//     index advances (wrapping) and hints become visible.
func (p *Puzzle) Submit(s Session, candidate string) (Session, Outcome) {
	before := s.Attempts
	s.Attempts++

	if normalize(candidate) == p.target {
		s.State = StateCorrect
		return s, Outcome{
			Correct:  true,
			Feedback: feedbackGranted,
			Attempts: s.Attempts,
			Notice:   noticeGranted,
		}
	}

	s.State = StateIncorrect
	out := Outcome{
		Feedback: fmt.Sprintf(feedbackDenied, s.Attempts),
		Attempts: s.Attempts,
	}
	if before%hintEvery == hintEvery-1 && len(p.hints) > 0 {
		s.HintIndex = (s.HintIndex + 1) % len(p.hints)
		s.HintVisible = true
		out.HintRevealed = true
	}
	if s.HintVisible {
		out.Hint = p.Hint(s.HintIndex)
	}
	return s, out
}

// normalize trims surrounding whitespace and uppercases.
func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
