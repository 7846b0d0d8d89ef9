// internal/httpserver/session.go
//
// Visitor sessions.
// A visitor is identified by a random session ID carried in an HS256 JWT cookie.
// The token only proves the ID was minted here; puzzle state stays in the store.
//
// Notes:
//   - Missing, tampered or expired tokens never fail a request: a fresh session
//     is minted and the cookie replaced.
//   - Cookies are HttpOnly; Secure + SameSite=None in production.

package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/hlog"
)

const sidClaim = "sid"

// ctxSessionKey is the context key type for the session ID.
type ctxSessionKey struct{}

// sessionID returns the session ID placed by withSession, or "".
func sessionID(ctx context.Context) string {
	sid, _ := ctx.Value(ctxSessionKey{}).(string)
	return sid
}

// withSession resolves the visitor's session from the cookie, minting one if needed.
func (s *Server) withSession() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := ""
			if c, err := r.Cookie(s.cfg.CookieName); err == nil && c.Value != "" {
				if id, err := s.parseSession(c.Value); err == nil {
					sid = id
				} else {
					hlog.FromRequest(r).Debug().Err(err).Msg("discarding session cookie")
				}
			}
			if sid == "" {
				sid = uuid.NewString()
				tok, exp, err := s.signSession(sid)
				if err != nil {
					hlog.FromRequest(r).Error().Err(err).Msg("sign session")
					writeError(w, http.StatusInternalServerError, "session_failed")
					return
				}
				s.setSessionCookie(w, tok, exp)
			}
			ctx := context.WithValue(r.Context(), ctxSessionKey{}, sid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// signSession creates an HS256 JWT for sid that expires after the session TTL.
func (s *Server) signSession(sid string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.cfg.SessionTTL)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		sidClaim: sid,
		"exp":    exp.Unix(),
		"iat":    now.Unix(),
	})
	ss, err := t.SignedString([]byte(s.cfg.SessionSecret))
	return ss, exp, err
}

// parseSession validates a session token and returns its session ID.
func (s *Server) parseSession(token string) (string, error) {
	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.SessionSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	if !t.Valid {
		return "", errors.New("session: invalid token")
	}
	sid, _ := claims[sidClaim].(string)
	if _, err := uuid.Parse(sid); err != nil {
		return "", errors.New("session: malformed sid")
	}
	return sid, nil
}

// setSessionCookie writes the session cookie with appropriate security attributes.
func (s *Server) setSessionCookie(w http.ResponseWriter, token string, exp time.Time) {
	secure := s.cfg.Production()
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode // required for third-party contexts when Secure
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		Expires:  exp,
	})
}
