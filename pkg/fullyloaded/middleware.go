package fullyloaded

import (
	"errors"
	"net/http"
	"time"

	"github.com/fullyloaded/fullyloaded/pkg/auth"
)

var errMissingToken = errors.New("missing bearer token")

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (a *App) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		a.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// authenticate resolves the caller from the bearer token. Session tokens
// are tried first; anything else goes to the verifier.
func (a *App) authenticate(r *http.Request) (*auth.Principal, error) {
	token := auth.BearerToken(r)
	if token == "" {
		return nil, errMissingToken
	}
	if p, ok := a.sessions.Lookup(token); ok {
		return p, nil
	}
	return a.verifier.Verify(r.Context(), token)
}

func (a *App) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := a.authenticate(r)
		if err != nil {
			a.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("authentication failed")
			respondError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
	}
}

func (a *App) admin(next http.HandlerFunc) http.HandlerFunc {
	return a.authed(func(w http.ResponseWriter, r *http.Request) {
		if !a.isAdmin(auth.FromContext(r.Context()).UID) {
			respondError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next(w, r)
	})
}
