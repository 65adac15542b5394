// Package auth turns identity-provider tokens into a [Principal] and keeps
// the server-side sessions the web client authenticates with.
//
// The identity provider is an external collaborator. [FirebaseVerifier]
// checks Firebase ID tokens; [JWTVerifier] checks HS256 tokens signed with
// a shared secret and is meant for development and tests. Either one is
// exchanged once for an opaque session token (see [Sessions]), which then
// travels as "Authorization: Bearer <token>".
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// Principal is the authenticated user.
type Principal struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

// Verifier validates an identity-provider token.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by WithPrincipal, or nil.
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}

// BearerToken extracts the token from the Authorization header. A header
// without the "Bearer " prefix is taken as the token itself.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return h[len(prefix):]
	}
	return h
}
