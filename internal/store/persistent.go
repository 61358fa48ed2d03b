package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/epcr/internal/report"
)

// Collection is the only collection a medium holds.
const Collection = "reports"

// PersistentStore is a durable keyed report collection.
type PersistentStore interface {
	// Add persists a new report.
	Add(ctx context.Context, r report.PatientReport) error

	// Get returns the report with the given id. ok is false when absent.
	Get(ctx context.Context, id string) (r report.PatientReport, ok bool, err error)

	// GetAll returns every persisted report.
	GetAll(ctx context.Context) ([]report.PatientReport, error)

	// Put inserts or replaces the report with r.ID.
	Put(ctx context.Context, r report.PatientReport) error

	// Delete removes the report if present.
	Delete(ctx context.Context, id string) error
}

// Medium is a PersistentStore that holds resources.
type Medium interface {
	PersistentStore
	Close() error
}

// ErrDuplicateID is the cause reported by media without a native unique
// constraint when Add receives an id that already exists.
var ErrDuplicateID = errors.New("duplicate report id")

// StorageError reports that the medium rejected a read or write.
type StorageError struct {
	// Op is the PersistentStore operation: add, get, getAll, put, delete.
	// Snapshot and open failures use "snapshot" and "open".
	Op string

	// ID is the report id, empty for collection-wide operations.
	ID string

	// Err is the underlying cause.
	Err error
}

func (e *StorageError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("storage: %s %s/%s: %v", e.Op, Collection, e.ID, e.Err)
	}
	return fmt.Sprintf("storage: %s %s: %v", e.Op, Collection, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError returns true if err is or wraps a *StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func storageErr(op, id string, err error) error {
	return &StorageError{Op: op, ID: id, Err: err}
}
