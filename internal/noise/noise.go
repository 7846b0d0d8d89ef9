// internal/noise/noise.go
//
// Decorative data feed for the terminal screen.
// Responsibilities:
//   - Produce frames of scrolling noise with Morse chunks mixed in.
//   - Pick a canned system status line per frame.
//   - Fill the fake CPU / memory / latency gauges.
//
// Nothing here is load-bearing for the puzzle; the only contract is the frame
// shape and that Ticker stops when its context ends.

package noise

import (
	"math/rand/v2"
	"sync"
	"time"
)

const (
	DefaultLines  = 20
	morseOdds     = 0.2
	maxNoiseWidth = 40
)

// Line is one row of the feed.
type Line struct {
	Text  string `json:"text"`
	Morse bool   `json:"morse"` // a chunk of the encoded secret
}

// Gauges are the fake system meters under the terminal.
type Gauges struct {
	CPULoad     int `json:"cpuLoad"`     // percent
	MemoryUsage int `json:"memoryUsage"` // percent
	LatencyMs   int `json:"latencyMs"`
}

// Frame is one refresh of the screen.
type Frame struct {
	Lines  []Line    `json:"lines"`
	Status string    `json:"status"`
	Gauges Gauges    `json:"gauges"`
	At     time.Time `json:"at"`
}

// MorseChunks returns the Morse lines of the frame in display order.
func (f Frame) MorseChunks() []string {
	var out []string
	for _, l := range f.Lines {
		if l.Morse {
			out = append(out, l.Text)
		}
	}
	return out
}

// Generator builds frames. It is safe for concurrent use.
type Generator struct {
	mu       sync.Mutex // guards rng
	rng      *rand.Rand
	chunks   []string
	statuses []string
	lines    int
	now      func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithLines sets the number of lines per frame.
func WithLines(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.lines = n
		}
	}
}

// WithSource replaces the random source (tests use a fixed seed).
func WithSource(src rand.Source) Option {
	return func(g *Generator) { g.rng = rand.New(src) }
}

// WithClock overrides the frame timestamp clock.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// NewGenerator returns a generator sampling from chunks and statuses.
func NewGenerator(chunks, statuses []string, opts ...Option) *Generator {
	g := &Generator{
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		chunks:   append([]string(nil), chunks...),
		statuses: append([]string(nil), statuses...),
		lines:    DefaultLines,
		now:      time.Now,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Frame renders the next frame.
func (g *Generator) Frame() Frame {
	g.mu.Lock()
	defer g.mu.Unlock()

	f := Frame{Lines: make([]Line, g.lines), At: g.now()}
	for i := range f.Lines {
		if len(g.chunks) > 0 && g.rng.Float64() < morseOdds {
			f.Lines[i] = Line{Text: g.chunks[g.rng.IntN(len(g.chunks))], Morse: true}
			continue
		}
		f.Lines[i] = Line{Text: g.noiseLine()}
	}
	if len(g.statuses) > 0 {
		f.Status = g.statuses[g.rng.IntN(len(g.statuses))]
	}
	f.Gauges = Gauges{
		CPULoad:     g.rng.IntN(100),
		MemoryUsage: g.rng.IntN(100),
		LatencyMs:   g.rng.IntN(100),
	}
	return f
}

// noiseLine draws symbols that look like data but not like Morse.
// Caller holds g.mu.
func (g *Generator) noiseLine() string {
	n := g.rng.IntN(maxNoiseWidth)
	b := make([]byte, n)
	for i := range b {
		kind := g.rng.Float64()
		heads := g.rng.Float64() < 0.5
		switch {
		case kind < 0.3:
			b[i] = pick(heads, '1', '0')
		case kind < 0.6:
			b[i] = pick(heads, '#', '@')
		default:
			b[i] = pick(heads, '|', '/')
		}
	}
	return string(b)
}

func pick(first bool, a, b byte) byte {
	if first {
		return a
	}
	return b
}
