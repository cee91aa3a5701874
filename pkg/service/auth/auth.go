// Package auth implements credential verification with progressive lockout,
// registration, password changes, and the session registry that binds JWT
// tokens to server-side session state.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gokcenbank/ledger/pkg/config"
	"github.com/gokcenbank/ledger/pkg/domain/ledger"
	"github.com/gokcenbank/ledger/pkg/ledgerstore"
	"github.com/gokcenbank/ledger/pkg/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MaxChangePasswordAttempts caps wrong current-password tries per session.
const MaxChangePasswordAttempts = 3

// dummyHash is compared against when the username is unknown, so the
// response time does not reveal whether a user exists.
const dummyHash = "$2a$10$7zFqzDbD3RrlkMTczbXG9OWZ0FLOXjIxXzSZ.QZxkVXjXcx7QZQiC"

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.clock = now }
}

// Service is the authentication engine.
type Service struct {
	store  *ledgerstore.Store
	cfg    *config.Jwt
	logger *slog.Logger
	clock  func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

// New creates the authentication engine.
func New(store *ledgerstore.Store, cfg *config.Jwt, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		cfg:      cfg,
		logger:   logger,
		clock:    time.Now,
		sessions: make(map[uuid.UUID]*Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a new user with the default accounts.
func (s *Service) Register(ctx context.Context, username, password, question, answer string) error {
	log := s.logger.With("context", "Register", "username", username)
	if username == "" {
		return ledger.ErrEmptyUsername
	}
	if s.store.Exists(username) {
		return ledger.ErrDuplicateUser
	}
	if err := ledger.ValidatePassword(password); err != nil {
		return err
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.store.Create(ledger.NewUserRecord(username, hash, question, answer)); err != nil {
		return err
	}
	log.Info("user registered")
	return nil
}

// Authenticate verifies credentials and returns a fresh session.
//
// An active lockout rejects the attempt without touching the failure
// counter or the history. A wrong password increments the counter and, at
// the threshold, locks the account for 2^counter minutes, where the counter
// is cumulative across lockouts. Every processed attempt, success or
// failure, appends one audit line and is persisted.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*Session, error) {
	log := s.logger.With("context", "Authenticate", "username", username)

	var sess *Session
	var authErr error
	err := s.store.Update(username, func(rec *ledger.UserRecord) error {
		now := s.clock()
		if remaining, locked := rec.LockedRemaining(now); locked {
			authErr = &ledger.LockedError{Remaining: remaining}
			return ledgerstore.ErrSkipPersist
		}

		if utils.CheckPasswordHash(password, rec.PasswordHash) {
			rec.ClearLockout()
			rec.AppendHistory(now, "Successful login.")
			sess = s.newSession(username, now)
			return nil
		}

		rec.FailedAttempts++
		if rec.FailedAttempts >= ledger.MaxFailedAttempts {
			d := rec.ApplyLockout(now)
			authErr = &ledger.LockedError{Remaining: d}
		} else {
			authErr = ledger.ErrInvalidCredentials
		}
		rec.AppendHistory(now, "Failed login attempt.")
		return nil
	})
	if err != nil {
		// Burn a hash comparison for unknown users so lookup time stays flat.
		_ = utils.CheckPasswordHash(password, dummyHash)
		log.Warn("authentication failed", "error", err)
		return nil, err
	}
	if authErr != nil {
		log.Warn("authentication rejected", "error", authErr)
		return nil, authErr
	}
	log.Info("authentication successful", "session_id", sess.ID)
	return sess, nil
}

// ChangePassword replaces the caller's password after re-verifying the
// current one. Wrong tries are capped per session; hitting the cap applies
// the exponential lockout and revokes the session.
func (s *Service) ChangePassword(ctx context.Context, sess *Session, currentPassword, newPassword string) error {
	if sess == nil || sess.Revoked() {
		return ledger.ErrSessionInvalid
	}
	log := s.logger.With("context", "ChangePassword", "username", sess.Username)

	var opErr error
	err := s.store.Update(sess.Username, func(rec *ledger.UserRecord) error {
		now := s.clock()
		if remaining, locked := rec.LockedRemaining(now); locked {
			opErr = &ledger.LockedError{Remaining: remaining}
			return ledgerstore.ErrSkipPersist
		}

		if utils.CheckPasswordHash(currentPassword, rec.PasswordHash) {
			rec.ClearLockout()
			sess.resetPasswordAttempts()
			if err := ledger.ValidatePassword(newPassword); err != nil {
				opErr = err
				return nil // the counter reset above still persists
			}
			hash, err := utils.HashPassword(newPassword)
			if err != nil {
				opErr = err
				return ledgerstore.ErrSkipPersist
			}
			rec.PasswordHash = hash
			rec.AppendHistory(now, "Password changed.")
			return nil
		}

		attempts := sess.bumpPasswordAttempts()
		rec.FailedAttempts++
		if attempts >= MaxChangePasswordAttempts {
			d := rec.ApplyLockout(now)
			s.removeSession(sess)
			opErr = &ledger.LockedError{Remaining: d}
		} else {
			opErr = fmt.Errorf("%w: %d attempts remaining",
				ledger.ErrInvalidCredentials, MaxChangePasswordAttempts-attempts)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if opErr != nil {
		log.Warn("password change rejected", "error", opErr)
		return opErr
	}
	log.Info("password changed")
	return nil
}

// Logout revokes the session.
func (s *Service) Logout(sess *Session) {
	if sess == nil {
		return
	}
	s.removeSession(sess)
	s.logger.Info("session closed", "username", sess.Username, "session_id", sess.ID)
}

// Lookup resolves a session ID to its live session.
func (s *Service) Lookup(id uuid.UUID) (*Session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok || sess.Revoked() {
		return nil, ledger.ErrSessionInvalid
	}
	return sess, nil
}

// GenerateToken signs a JWT carrying the username and session ID.
func (s *Service) GenerateToken(sess *Session) (string, error) {
	token := jwt.New(jwt.SigningMethodHS256)
	claims := token.Claims.(jwt.MapClaims)
	claims["username"] = sess.Username
	claims["sid"] = sess.ID.String()
	claims["exp"] = s.clock().Add(s.cfg.Expiry).Unix()
	return token.SignedString([]byte(s.cfg.Secret))
}

// SessionFromToken resolves the session referenced by a verified JWT.
func (s *Service) SessionFromToken(token *jwt.Token) (*Session, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ledger.ErrSessionInvalid
	}
	raw, ok := claims["sid"].(string)
	if !ok {
		return nil, ledger.ErrSessionInvalid
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, ledger.ErrSessionInvalid
	}
	return s.Lookup(id)
}

func (s *Service) newSession(username string, now time.Time) *Session {
	sess := &Session{ID: uuid.New(), Username: username, CreatedAt: now}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

func (s *Service) removeSession(sess *Session) {
	sess.revoke()
	s.mu.Lock()
	delete(s.sessions, sess.ID)
	s.mu.Unlock()
}
