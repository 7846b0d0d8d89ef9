package httpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/robalobadob/breach/internal/config"
	"github.com/robalobadob/breach/internal/metrics"
	"github.com/robalobadob/breach/internal/noise"
	"github.com/robalobadob/breach/internal/puzzle"
	"github.com/robalobadob/breach/internal/store"
)

func testConfig() config.Config {
	return config.Config{
		Port:          "0",
		LogLevel:      "disabled",
		Env:           config.EnvDevelopment,
		ClientOrigin:  "http://localhost:5173",
		CookieName:    "breach_session",
		SessionSecret: "test-secret",
		SessionTTL:    time.Hour,
		FeedInterval:  10 * time.Millisecond,
		FeedLines:     20,
	}
}

type harness struct {
	srv   *Server
	store store.Store
	pz    *puzzle.Puzzle
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testConfig()
	pz := puzzle.Default()
	st := store.NewMemoryStore()
	feed := noise.NewGenerator(pz.Chunks(), []string{"ACCESSING MAINFRAME..."},
		noise.WithLines(cfg.FeedLines), noise.WithSource(rand.NewPCG(7, 11)))
	m := metrics.New(prometheus.NewRegistry(), st.Len)
	srv, err := New(cfg, st, pz, feed, m)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return &harness{srv: srv, store: st, pz: pz}
}

// do runs a request and carries the session cookie between calls.
func (h *harness) do(t *testing.T, cookie *http.Cookie, method, path, contentType, body string) (*http.Response, *http.Cookie) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.srv.Router().ServeHTTP(rec, req)
	res := rec.Result()
	for _, c := range res.Cookies() {
		if c.Name == "breach_session" {
			cookie = c
		}
	}
	return res, cookie
}

func (h *harness) decrypt(t *testing.T, cookie *http.Cookie, key string) (decryptRes, *http.Cookie) {
	t.Helper()
	b, _ := json.Marshal(decryptReq{Key: key})
	res, cookie := h.do(t, cookie, http.MethodPost, "/decrypt", "application/json", string(b))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("decrypt %q: expected 200, got %d", key, res.StatusCode)
	}
	var out decryptRes
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out, cookie
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	res, cookie := h.do(t, nil, http.MethodGet, "/health", "", "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	if cookie != nil {
		t.Fatal("health checks should not mint sessions")
	}
	body, _ := io.ReadAll(res.Body)
	if string(body) != `{"ok":true}` {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestDecrypt_WrongThenHintThenRight(t *testing.T) {
	h := newHarness(t)

	out, cookie := h.decrypt(t, nil, "wrong")
	if cookie == nil {
		t.Fatal("expected a session cookie on first contact")
	}
	if out.Correct || out.Attempts != 1 || out.State != puzzle.StateIncorrect {
		t.Fatalf("unexpected first outcome %+v", out)
	}
	if out.Feedback != "ACCESS DENIED: INVALID DECRYPTION KEY - ATTEMPT 1/∞" {
		t.Fatalf("unexpected feedback %q", out.Feedback)
	}

	out, _ = h.decrypt(t, cookie, "")
	if out.Attempts != 2 || out.Hint != "" {
		t.Fatalf("unexpected second outcome %+v", out)
	}

	out, _ = h.decrypt(t, cookie, "still wrong")
	if !out.HintRevealed || out.Hint != puzzle.DefaultHints[1] {
		t.Fatalf("expected hint on third failure, got %+v", out)
	}

	out, _ = h.decrypt(t, cookie, "  thegrid2025 ")
	want := decryptRes{
		Outcome: puzzle.Outcome{
			Correct:  true,
			Feedback: "ACCESS GRANTED: SYSTEM COMPROMISED - AUTHENTICATION SUCCESSFUL",
			Attempts: 4,
			Notice:   "calling....",
		},
		State: puzzle.StateCorrect,
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("success outcome (-want +got):\n%s", diff)
	}
}

func TestDecrypt_SessionsAreIsolated(t *testing.T) {
	h := newHarness(t)
	_, a := h.decrypt(t, nil, "x")
	_, _ = h.decrypt(t, a, "x")
	out, _ := h.decrypt(t, nil, "x")
	if out.Attempts != 1 {
		t.Fatalf("new visitor should start at 1, got %d", out.Attempts)
	}
	if h.store.Len() != 2 {
		t.Fatalf("expected 2 sessions, got %d", h.store.Len())
	}
}

func TestDecrypt_FormSubmission(t *testing.T) {
	h := newHarness(t)
	form := url.Values{"key": {"THEGRID2025"}}.Encode()
	res, _ := h.do(t, nil, http.MethodPost, "/decrypt", "application/x-www-form-urlencoded", form)
	var out decryptRes
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.Correct {
		t.Fatalf("expected form submission to succeed, got %+v", out)
	}
}

func TestDecrypt_EmptyBodyIsAnEmptyKey(t *testing.T) {
	h := newHarness(t)
	res, _ := h.do(t, nil, http.MethodPost, "/decrypt", "application/json", "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for empty body, got %d", res.StatusCode)
	}
}

func TestDecrypt_BadJSON(t *testing.T) {
	h := newHarness(t)
	res, _ := h.do(t, nil, http.MethodPost, "/decrypt", "application/json", "{nope")
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.StatusCode)
	}
}

func TestSession_TamperedCookieIsReplaced(t *testing.T) {
	h := newHarness(t)
	_, cookie := h.decrypt(t, nil, "x")

	bad := *cookie
	bad.Value = cookie.Value + "tampered"
	out, fresh := h.decrypt(t, &bad, "x")
	if out.Attempts != 1 {
		t.Fatalf("tampered cookie must start a new session, got %d attempts", out.Attempts)
	}
	if fresh == nil || fresh.Value == bad.Value {
		t.Fatal("expected a replacement cookie")
	}
}

func TestSession_ForeignSecretRejected(t *testing.T) {
	h := newHarness(t)
	other := *h.srv
	other.cfg.SessionSecret = "someone-else"
	tok, _, err := other.signSession("0b9a4a1c-5d0e-4c1a-9a7a-1f1f1f1f1f1f")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := h.srv.parseSession(tok); err == nil {
		t.Fatal("token signed with another secret must be rejected")
	}
}

func TestPage_RestoresLastFeedback(t *testing.T) {
	h := newHarness(t)
	_, cookie := h.decrypt(t, nil, "a")
	_, _ = h.decrypt(t, cookie, "b")
	_, _ = h.decrypt(t, cookie, "c")

	res, _ := h.do(t, cookie, http.MethodGet, "/", "", "")
	if ct := res.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("expected html, got %q", ct)
	}
	body, _ := io.ReadAll(res.Body)
	page := string(body)
	for _, want := range []string{"ATTEMPT 3/∞", "SYSTEM ANALYSIS:", puzzle.DefaultHints[1]} {
		if !strings.Contains(page, want) {
			t.Fatalf("page missing %q", want)
		}
	}
}

func TestFeed_Shape(t *testing.T) {
	h := newHarness(t)
	res, _ := h.do(t, nil, http.MethodGet, "/feed", "", "")
	var out feedRes
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Frame.Lines) != 20 || out.Frame.Status != "ACCESSING MAINFRAME..." {
		t.Fatalf("unexpected frame %+v", out.Frame)
	}
	if out.Capturing || len(out.Captured) != 0 {
		t.Fatalf("capture should be off by default, got %+v", out)
	}
}

func TestCapture_CollectsShownChunks(t *testing.T) {
	h := newHarness(t)
	res, cookie := h.do(t, nil, http.MethodPost, "/capture", "", "")
	var c captureRes
	if err := json.NewDecoder(res.Body).Decode(&c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !c.Capturing || len(c.Captured) != 0 {
		t.Fatalf("expected empty active capture, got %+v", c)
	}

	var shown []string
	for i := 0; i < 5; i++ {
		res, _ := h.do(t, cookie, http.MethodGet, "/feed", "", "")
		var f feedRes
		if err := json.NewDecoder(res.Body).Decode(&f); err != nil {
			t.Fatalf("decode: %v", err)
		}
		shown = append(shown, f.Frame.MorseChunks()...)
	}
	if len(shown) == 0 {
		t.Fatal("expected at least one morse line across 100 lines")
	}

	res, _ = h.do(t, cookie, http.MethodGet, "/capture", "", "")
	if err := json.NewDecoder(res.Body).Decode(&c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := shown
	if len(want) > store.CaptureLimit {
		want = want[len(want)-store.CaptureLimit:]
	}
	if diff := cmp.Diff(want, c.Captured); diff != "" {
		t.Fatalf("captured (-want +got):\n%s", diff)
	}
	for _, chunk := range c.Captured {
		if !strings.Contains(h.pz.Encoded(), chunk) {
			t.Fatalf("captured %q is not part of the message", chunk)
		}
	}
}

func TestStream_SendsFramesUntilClientLeaves(t *testing.T) {
	h := newHarness(t)
	ts := httptest.NewServer(h.srv.Router())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/stream", nil)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer res.Body.Close()
	if ct := res.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected event stream, got %q", ct)
	}

	sc := bufio.NewScanner(res.Body)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	frames := 0
	for frames < 3 && sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var f feedRes
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &f); err != nil {
			t.Fatalf("bad frame: %v", err)
		}
		if len(f.Frame.Lines) != 20 {
			t.Fatalf("unexpected frame size %d", len(f.Frame.Lines))
		}
		frames++
	}
	if frames < 3 {
		t.Fatalf("expected 3 frames, got %d (err %v)", frames, sc.Err())
	}
}

func TestNotFoundIsJSON(t *testing.T) {
	h := newHarness(t)
	res, _ := h.do(t, nil, http.MethodGet, "/nope", "", "")
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.StatusCode)
	}
	body, _ := io.ReadAll(res.Body)
	if string(body) != `{"error":"not_found"}` {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)
	_, _ = h.decrypt(t, nil, "x")
	res, _ := h.do(t, nil, http.MethodGet, "/metrics", "", "")
	body, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(body), `breach_decrypt_attempts_total{outcome="incorrect"} 1`) {
		t.Fatalf("metrics missing attempt counter:\n%s", body)
	}
}
