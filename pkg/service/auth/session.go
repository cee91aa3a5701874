package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is the ephemeral server-side state of one authenticated login.
// It carries the change-password attempt counter, which is deliberately
// separate from the persisted failed-attempt counter on the user record:
// the session counter dies with the session, the record counter survives
// restarts.
type Session struct {
	ID        uuid.UUID
	Username  string
	CreatedAt time.Time

	mu               sync.Mutex
	passwordAttempts int
	revoked          bool
}

// Revoked reports whether the session has been invalidated.
func (s *Session) Revoked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revoked
}

func (s *Session) revoke() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked = true
}

func (s *Session) bumpPasswordAttempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passwordAttempts++
	return s.passwordAttempts
}

func (s *Session) resetPasswordAttempts() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passwordAttempts = 0
}
