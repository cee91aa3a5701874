// Package repository defines the persistence contract the ledger engines
// depend on. Implementations live under infra/persistence.
package repository

import (
	"errors"

	"github.com/gokcenbank/ledger/pkg/domain/ledger"
)

var (
	// ErrCorruptSnapshot is returned by Load when the stored snapshot cannot be
	// decoded. The caller is expected to start with an empty ledger.
	ErrCorruptSnapshot = errors.New("corrupt ledger snapshot")

	// ErrSnapshotIO is returned by Save when the snapshot could not be written
	// durably. In-memory state stays authoritative until the next save succeeds.
	ErrSnapshotIO = errors.New("ledger snapshot write failed")
)

// Gateway durably stores and loads a full snapshot of all user records.
// It is the engines' only I/O dependency.
//
// Load must apply documented defaults to legacy records (ledger.Normalize)
// so business logic never sees a partially-populated schema. Save must
// preserve every field across a save/load cycle.
type Gateway interface {
	Load() (map[string]*ledger.UserRecord, error)
	Save(records map[string]*ledger.UserRecord) error
}
