// Package snapshot mirrors the report cache to a JSON file so a new process
// can show the last known list before the medium has been read.
//
// The file is rewritten after every cache change using a temp file and an
// atomic rename, so a crash leaves either the old or the new snapshot.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/roach88/epcr/internal/report"
	"github.com/roach88/epcr/internal/store"
)

// Version is the snapshot format version written by Save.
const Version = 1

// document is the on-disk layout.
type document struct {
	Version int   `json:"version"`
	State   state `json:"state"`
}

type state struct {
	Reports []report.PatientReport `json:"reports"`
}

// File stores the snapshot at a fixed path.
type File struct {
	mu   sync.Mutex
	path string
}

// NewFile returns a snapshot file at path. Nothing is created until Save.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the snapshot location.
func (f *File) Path() string {
	return f.path
}

// Load reads the snapshot. found is false when no snapshot exists.
// An unreadable, malformed or unknown-version file is a *store.StorageError.
func (f *File) Load() (reports []report.PatientReport, found bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &store.StorageError{Op: "snapshot", Err: fmt.Errorf("read %s: %w", f.path, err)}
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false, &store.StorageError{Op: "snapshot", Err: fmt.Errorf("decode %s: %w", f.path, err)}
	}
	if doc.Version != Version {
		return nil, false, &store.StorageError{
			Op:  "snapshot",
			Err: fmt.Errorf("%s: unsupported version %d (want %d)", f.path, doc.Version, Version),
		}
	}
	for i, r := range doc.State.Reports {
		if r.ID == "" {
			return nil, false, &store.StorageError{
				Op:  "snapshot",
				Err: fmt.Errorf("%s: report %d has no id", f.path, i),
			}
		}
	}

	if doc.State.Reports == nil {
		doc.State.Reports = []report.PatientReport{}
	}
	slog.Debug("snapshot loaded", "path", f.path, "reports", len(doc.State.Reports))
	return doc.State.Reports, true, nil
}

// Save atomically replaces the snapshot with reports.
func (f *File) Save(reports []report.PatientReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if reports == nil {
		reports = []report.PatientReport{}
	}
	data, err := json.MarshalIndent(document{Version: Version, State: state{Reports: reports}}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}

	// Write to temporary file first (atomic pattern)
	tempPath := f.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp snapshot file: %w", err)
	}

	if err := os.Rename(tempPath, f.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename snapshot file: %w", err)
	}

	slog.Debug("snapshot saved", "path", f.path, "reports", len(reports))
	return nil
}
