package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// DefaultIdleTimeout signs a user out after three hours without activity.
const DefaultIdleTimeout = 3 * time.Hour

type session struct {
	principal Principal
	lastSeen  time.Time
}

// Sessions is an in-memory session table. Every successful Lookup moves
// the idle deadline forward.
type Sessions struct {
	mu       sync.Mutex
	idle     time.Duration
	now      func() time.Time
	sessions map[string]*session
}

func NewSessions(idle time.Duration) *Sessions {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &Sessions{
		idle:     idle,
		now:      time.Now,
		sessions: map[string]*session{},
	}
}

// generateToken returns 32 random bytes, hex encoded.
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Create opens a session for p and returns its token.
func (s *Sessions) Create(p Principal) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.sessions[token] = &session{principal: p, lastSeen: s.now()}
	s.mu.Unlock()
	return token, nil
}

// Lookup returns the principal of a live session. An expired session is
// removed and reported as missing.
func (s *Sessions) Lookup(token string) (*Principal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return nil, false
	}
	now := s.now()
	if now.Sub(sess.lastSeen) > s.idle {
		delete(s.sessions, token)
		return nil, false
	}
	sess.lastSeen = now
	p := sess.principal
	return &p, true
}

// Update replaces the principal of a live session, e.g. after a profile
// change.
func (s *Sessions) Update(token string, p Principal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[token]; ok {
		sess.principal = p
	}
}

// Delete ends a session. Unknown tokens are ignored.
func (s *Sessions) Delete(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// Sweep drops every expired session and returns how many were dropped.
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for token, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.idle {
			delete(s.sessions, token)
			n++
		}
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *Sessions) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
