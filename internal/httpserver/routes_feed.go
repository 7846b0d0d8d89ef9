// internal/httpserver/routes_feed.go
//
// Decorative feed and the data-capture panel:
//   - GET  /feed    → one frame of noise (JSON)
//   - GET  /stream  → Server-Sent Events, one "frame" event per feed interval
//   - GET  /capture → capture panel state
//   - POST /capture → toggle capturing (starting clears the buffer)
//
// Morse chunks shown to a visitor while capturing land in their capture buffer.
// A stream's ticker is scoped to the request and stops when the client leaves.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/breach/internal/noise"
	"github.com/robalobadob/breach/internal/store"
)

// feedRes is returned by /feed and sent as each /stream event.
type feedRes struct {
	Frame     noise.Frame `json:"frame"`
	Capturing bool        `json:"capturing"`
	Captured  []string    `json:"captured"`
}

// captureRes is returned by /capture.
type captureRes struct {
	Capturing bool     `json:"capturing"`
	Captured  []string `json:"captured"`
}

// nextFrame renders a frame for sid and feeds its Morse lines to the capture buffer.
func (s *Server) nextFrame(ctx context.Context, sid string) (feedRes, error) {
	f := s.feed.Frame()
	rec, err := s.store.Update(ctx, sid, func(rec *store.Record) error {
		rec.Capture(f.MorseChunks()...)
		return nil
	})
	if err != nil {
		return feedRes{}, err
	}
	return feedRes{Frame: f, Capturing: rec.Capturing, Captured: rec.Captured}, nil
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	res, err := s.nextFrame(r.Context(), sessionID(r.Context()))
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("feed frame")
		writeError(w, http.StatusInternalServerError, "feed_failed")
		return
	}
	_ = json.NewEncoder(w).Encode(res)
}

// handleStream pushes a frame immediately and then every feed interval until
// the client disconnects or the server shuts down.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported")
		return
	}
	ctx := r.Context()
	sid := sessionID(ctx)
	logger := hlog.FromRequest(r)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	closed := s.metrics.StreamOpened()
	defer closed()
	logger.Debug().Msg("stream opened")

	send := func() {
		res, err := s.nextFrame(ctx, sid)
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn().Err(err).Msg("stream frame")
			}
			return
		}
		b, err := json.Marshal(res)
		if err != nil {
			logger.Error().Err(err).Msg("encode frame")
			return
		}
		if _, err := fmt.Fprintf(w, "event: frame\ndata: %s\n\n", b); err != nil {
			return
		}
		flusher.Flush()
	}

	send()
	noise.Ticker(ctx, s.cfg.FeedInterval, func(time.Time) { send() })
	logger.Debug().Msg("stream closed")
}

func (s *Server) handleCaptureGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(r.Context(), sessionID(r.Context()))
	switch {
	case errors.Is(err, store.ErrNotFound):
		rec = store.Record{Captured: []string{}}
	case err != nil:
		hlog.FromRequest(r).Error().Err(err).Msg("load session")
		writeError(w, http.StatusInternalServerError, "load_failed")
		return
	}
	_ = json.NewEncoder(w).Encode(captureRes{Capturing: rec.Capturing, Captured: rec.Captured})
}

func (s *Server) handleCaptureToggle(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Update(r.Context(), sessionID(r.Context()), func(rec *store.Record) error {
		rec.ToggleCapture()
		return nil
	})
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("toggle capture")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	hlog.FromRequest(r).Debug().Bool("capturing", rec.Capturing).Msg("capture toggled")
	_ = json.NewEncoder(w).Encode(captureRes{Capturing: rec.Capturing, Captured: rec.Captured})
}
