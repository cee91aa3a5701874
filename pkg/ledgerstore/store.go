// Package ledgerstore holds the in-memory ledger: the single source of truth
// for all user records during process lifetime, backed by a persistence
// gateway with synchronous write-through.
package ledgerstore

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/gokcenbank/ledger/pkg/domain/ledger"
	"github.com/gokcenbank/ledger/pkg/repository"
)

// ErrSkipPersist tells Update/UpdatePair that the callback rejected the
// operation without mutating anything, so no write-through is needed.
// It is never returned to callers.
var ErrSkipPersist = errors.New("skip persist")

// Reject marks err as a pure rejection: Update/UpdatePair skip the
// write-through and hand err back to the caller unchanged.
func Reject(err error) error {
	return &rejection{cause: err}
}

type rejection struct{ cause error }

func (r *rejection) Error() string { return r.cause.Error() }

// Store owns the username -> UserRecord map. Every mutating operation runs
// as a single critical section: read, validate, mutate, persist, release.
// One mutex serializes all writers, which also covers two-record operations
// (external transfers) without any lock-ordering concern.
type Store struct {
	mu      sync.Mutex
	records map[string]*ledger.UserRecord
	gateway repository.Gateway
	logger  *slog.Logger
}

// New loads the snapshot through the gateway and builds the store.
// A corrupt or unreadable snapshot is logged and the store starts empty;
// the process keeps running.
func New(gateway repository.Gateway, logger *slog.Logger) *Store {
	records, err := gateway.Load()
	if err != nil {
		logger.Warn("could not load ledger snapshot, starting empty", "error", err)
		records = map[string]*ledger.UserRecord{}
	}
	if records == nil {
		records = map[string]*ledger.UserRecord{}
	}
	logger.Info("ledger loaded", "users", len(records))
	return &Store{records: records, gateway: gateway, logger: logger}
}

// Exists reports whether a username is registered.
func (s *Store) Exists(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[username]
	return ok
}

// Create inserts a new user record and persists the snapshot.
func (s *Store) Create(rec *ledger.UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.Username]; ok {
		return ledger.ErrDuplicateUser
	}
	s.records[rec.Username] = rec
	s.persistLocked()
	return nil
}

// Update runs fn against one user record inside the store's critical
// section. The snapshot is written through afterwards unless fn asked for a
// dry run by returning ErrSkipPersist (used by operations that reject input
// without mutating anything).
//
// fn's error is returned as-is; mutations fn made are kept either way, so
// failure paths that still append audit history (failed logins) persist too.
func (s *Store) Update(username string, fn func(rec *ledger.UserRecord) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[username]
	if !ok {
		return ledger.ErrUserNotFound
	}
	err := fn(rec)
	var rej *rejection
	if errors.As(err, &rej) {
		return rej.cause
	}
	if err == ErrSkipPersist {
		return nil
	}
	s.persistLocked()
	return err
}

// UpdatePair runs fn against two distinct user records in the same critical
// section, for operations that must mutate both sides atomically in memory.
// The second record not existing maps to ledger.ErrUserNotFound; callers
// translate that to their own not-found error.
func (s *Store) UpdatePair(first, second string, fn func(a, b *ledger.UserRecord) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.records[first]
	if !ok {
		return ledger.ErrUserNotFound
	}
	b, ok := s.records[second]
	if !ok {
		return ledger.ErrUserNotFound
	}
	err := fn(a, b)
	var rej *rejection
	if errors.As(err, &rej) {
		return rej.cause
	}
	if err == ErrSkipPersist {
		return nil
	}
	s.persistLocked()
	return err
}

// View runs fn against one user record without persisting afterwards.
// For operations that are genuinely read-only (history snapshots).
func (s *Store) View(username string, fn func(rec *ledger.UserRecord) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[username]
	if !ok {
		return ledger.ErrUserNotFound
	}
	return fn(rec)
}

// Persist writes the current snapshot through the gateway, for shutdown
// hooks that want a final save.
func (s *Store) Persist() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persistLocked()
}

// persistLocked writes the snapshot through the gateway. A save failure is
// logged and the operation continues: in-memory state stays authoritative
// and may diverge from disk until the next successful save. Callers must
// hold s.mu.
func (s *Store) persistLocked() {
	if err := s.gateway.Save(s.records); err != nil {
		s.logger.Error("ledger snapshot save failed, continuing in-memory", "error", err)
	}
}
