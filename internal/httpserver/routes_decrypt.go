// internal/httpserver/routes_decrypt.go
//
// The decryption prompt:
//   - GET  /        → terminal page, restored from the visitor's last submission
//   - POST /decrypt → evaluate a key, update the session, report the outcome
//
// Every key is legal, including "". Only a body that cannot be decoded is a 400.

package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/breach/internal/puzzle"
	"github.com/robalobadob/breach/internal/store"
)

// decryptReq is the JSON payload for POST /decrypt.
type decryptReq struct {
	Key string `json:"key"`
}

// decryptRes is the response payload for POST /decrypt.
type decryptRes struct {
	puzzle.Outcome
	State puzzle.State `json:"state"`
}

// handleDecrypt runs one submission against the visitor's session.
func (s *Server) handleDecrypt(w http.ResponseWriter, r *http.Request) {
	key, err := readKey(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request")
		return
	}

	var out puzzle.Outcome
	rec, err := s.store.Update(r.Context(), sessionID(r.Context()), func(rec *store.Record) error {
		rec.Puzzle, out = s.puzzle.Submit(rec.Puzzle, key)
		last := out
		rec.Last = &last
		return nil
	})
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("update session")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	s.metrics.ObserveAttempt(out.Correct, out.HintRevealed)

	// never log the key itself
	hlog.FromRequest(r).Debug().
		Int("attempts", rec.Puzzle.Attempts).
		Bool("correct", out.Correct).
		Bool("hintRevealed", out.HintRevealed).
		Int("hintIndex", rec.Puzzle.HintIndex).
		Msg("decrypt attempt")

	_ = json.NewEncoder(w).Encode(decryptRes{Outcome: out, State: rec.Puzzle.Status()})
}

// readKey extracts the key from a JSON body or a submitted form.
func readKey(r *http.Request) (string, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch ct {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseForm(); err != nil {
			return "", err
		}
		return r.PostFormValue("key"), nil
	default:
		var req decryptReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return req.Key, nil
	}
}

// pageData feeds assets/index.html.
type pageData struct {
	Attempts  int
	Feedback  string
	Granted   bool
	Hint      string
	Capturing bool
	Captured  []string
}

// handlePage renders the terminal, restoring the last feedback and capture panel.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(r.Context(), sessionID(r.Context()))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		hlog.FromRequest(r).Error().Err(err).Msg("load session")
		writeError(w, http.StatusInternalServerError, "load_failed")
		return
	}

	data := pageData{
		Attempts:  rec.Puzzle.Attempts,
		Capturing: rec.Capturing,
		Captured:  rec.Captured,
	}
	if rec.Last != nil {
		data.Feedback = rec.Last.Feedback
		data.Granted = rec.Last.Correct
		data.Hint = rec.Last.Hint
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, data); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("render page")
	}
}
