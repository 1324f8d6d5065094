// Package storage provides abstractions for persistent session state.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/courtside/courtbill/internal/models"
)

// Sentinel errors shared by store implementations.
var (
	// ErrNotFound is returned when a session, file or metadata record does
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrExists is returned when creating a session that already exists.
	ErrExists = errors.New("session already exists")

	// ErrNoActiveSession is returned by the service layer when a command
	// requires an open session.
	ErrNoActiveSession = errors.New("no active session")
)

// CorruptMetadataError marks a metadata record that could not be parsed or
// has a schema version this build does not understand. Recovery rebuilds a
// minimal record flagged for review; data is never dropped silently.
type CorruptMetadataError struct {
	Path string
	Err  error
}

func (e *CorruptMetadataError) Error() string {
	return fmt.Sprintf("corrupt metadata record %s: %v", e.Path, e.Err)
}

func (e *CorruptMetadataError) Unwrap() error { return e.Err }

// ListFilter selects which sessions a listing returns.
type ListFilter string

const (
	FilterAll     ListFilter = "all"
	FilterFlagged ListFilter = "flagged"
	FilterPaid    ListFilter = "paid"
	FilterUnpaid  ListFilter = "unpaid"
)

// Valid reports whether f is a known filter.
func (f ListFilter) Valid() bool {
	switch f {
	case FilterAll, FilterFlagged, FilterPaid, FilterUnpaid:
		return true
	}
	return false
}

// LoadReport describes the recoverable conditions a load encountered.
// Missing files and repaired flags are surfaced per file instead of failing
// the whole session load.
type LoadReport struct {
	// Missing lists filenames the metadata references but the disk lacks.
	Missing []string

	// Repaired lists filenames whose flagged state diverged from the
	// on-disk location and was corrected to match the filesystem.
	Repaired []string
}

// Clean reports whether the load found nothing to repair or report.
func (r *LoadReport) Clean() bool {
	return len(r.Missing) == 0 && len(r.Repaired) == 0
}

// Store defines the interface for session metadata storage. This
// abstraction keeps the service layer independent of the on-disk layout.
type Store interface {
	// Create persists a brand-new session and populates its ID, timestamps
	// and Path. Returns ErrExists if the session directory already holds a
	// metadata record.
	Create(ctx context.Context, session *models.Session) error

	// Load reads the session for club/label, touches its last-opened
	// timestamp, and reconciles flag state against the filesystem. The
	// report carries per-file recoverable conditions.
	Load(ctx context.Context, club, label string) (*models.Session, *LoadReport, error)

	// Save atomically replaces the session's metadata record. A crash
	// mid-save never leaves a half-written record behind.
	Save(ctx context.Context, session *models.Session) error

	// List returns session summaries under the data root matching filter,
	// ordered by last-opened descending.
	List(ctx context.Context, filter ListFilter) ([]models.SessionSummary, error)

	// Delete removes the session's entire storage subtree.
	Delete(ctx context.Context, club, label string) error

	// Recover rebuilds a minimal metadata record for a session whose
	// record is corrupt, from the directory contents. Every recovered
	// file is flagged for manual review.
	Recover(ctx context.Context, club, label string) (*models.Session, error)
}

// CompedStore defines the interface for the process-wide comped list.
type CompedStore interface {
	// Add inserts a name into the comped list.
	Add(ctx context.Context, name string) error

	// Remove deletes a name from the comped list.
	Remove(ctx context.Context, name string) error

	// All returns the current comped list.
	All(ctx context.Context) (models.CompedList, error)

	// Close releases any resources held by the store.
	Close() error
}
