package noise

import (
	"context"
	"time"
)

// Ticker calls fn every interval until ctx is done. It blocks; run it in its
// own goroutine or inside a handler whose context bounds it. The underlying
// time.Ticker is always stopped on return.
func Ticker(ctx context.Context, interval time.Duration, fn func(time.Time)) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			fn(now)
		}
	}
}
