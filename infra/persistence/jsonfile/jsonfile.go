// Package jsonfile persists the full ledger snapshot as one human-readable
// JSON document. Writes are atomic: the snapshot goes to a temp file first
// and replaces the real file with a rename, so a crash mid-write never
// leaves a corrupt store behind.
package jsonfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/gokcenbank/ledger/pkg/domain/ledger"
	"github.com/gokcenbank/ledger/pkg/repository"
)

// Gateway implements repository.Gateway on top of a single JSON file.
type Gateway struct {
	path string
}

// New creates a gateway persisting to path.
func New(path string) *Gateway {
	return &Gateway{path: path}
}

// Load reads the snapshot. A missing or empty file yields an empty ledger;
// undecodable content fails with repository.ErrCorruptSnapshot. Legacy
// records are normalized to the documented defaults before being returned.
func (g *Gateway) Load() (map[string]*ledger.UserRecord, error) {
	data, err := os.ReadFile(g.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]*ledger.UserRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrCorruptSnapshot, err)
	}
	if len(data) == 0 {
		return map[string]*ledger.UserRecord{}, nil
	}

	var records map[string]*ledger.UserRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrCorruptSnapshot, err)
	}
	for username, rec := range records {
		rec.Normalize(username)
	}
	return records, nil
}

// Save writes the snapshot atomically. Any filesystem failure is reported as
// repository.ErrSnapshotIO; the caller decides whether to keep going.
func (g *Gateway) Save(records map[string]*ledger.UserRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", repository.ErrSnapshotIO, err)
	}

	tmp := g.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrSnapshotIO, err)
	}
	if err := os.Rename(tmp, g.path); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrSnapshotIO, err)
	}
	return nil
}
