// internal/store/record.go
//
// Per-visitor state kept between requests.
// Defines:
//   - Record: puzzle session plus the data-capture panel.
//   - capture helpers (toggle, bounded buffer).

package store

import (
	"time"

	"github.com/robalobadob/breach/internal/puzzle"
)

// CaptureLimit is how many captured chunks the panel keeps.
const CaptureLimit = 5

// Record is everything the server remembers about one visitor.
type Record struct {
	ID        string          `json:"id"`
	Puzzle    puzzle.Session  `json:"puzzle"`
	Last      *puzzle.Outcome `json:"last,omitempty"` // most recent submission, for page reloads
	Capturing bool            `json:"capturing"`
	Captured  []string        `json:"captured"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// ToggleCapture flips the capture switch. Turning it on starts from an empty buffer.
func (r *Record) ToggleCapture() {
	r.Capturing = !r.Capturing
	if r.Capturing {
		r.Captured = r.Captured[:0]
	}
}

// Capture appends chunks while capturing, keeping only the newest CaptureLimit.
func (r *Record) Capture(chunks ...string) {
	if !r.Capturing || len(chunks) == 0 {
		return
	}
	r.Captured = append(r.Captured, chunks...)
	if n := len(r.Captured); n > CaptureLimit {
		r.Captured = append([]string(nil), r.Captured[n-CaptureLimit:]...)
	}
}

// clone deep-copies the slices so callers never share memory with the store.
func (r Record) clone() Record {
	r.Captured = append([]string{}, r.Captured...)
	if r.Last != nil {
		last := *r.Last
		r.Last = &last
	}
	return r
}
