// Package flagging implements the flag/unflag state machine for club
// files. A flag transition moves the file into the session's flagged/
// namespace and rewrites the session metadata as one logical transaction.
//
// The filesystem rename is the durable half: if the metadata write fails
// after a successful rename, the store's reconciliation-on-load repairs
// the record from the on-disk location, so the pair can lag but never
// diverge silently.
package flagging

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/courtside/courtbill/internal/models"
	"github.com/courtside/courtbill/internal/storage"
)

// UnresolvedError rejects an unflag attempt while the file still has
// records needing manual resolution.
type UnresolvedError struct {
	Filename   string
	Unresolved int
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("%s still has %d unresolved record(s); resolve them before unflagging", e.Filename, e.Unresolved)
}

// Engine drives flag transitions and persists them through a store.
type Engine struct {
	store storage.Store
}

// NewEngine creates an Engine backed by store.
func NewEngine(store storage.Store) *Engine {
	return &Engine{store: store}
}

// FlagIfNeeded flags the file when it has unresolved records. Flags are
// only ever derived from that condition; there is no direct flag command.
// Returns whether a transition happened. Flagging an already-flagged file
// is a no-op, not an error.
func (e *Engine) FlagIfNeeded(ctx context.Context, session *models.Session, file *models.ClubFile) (bool, error) {
	if !file.NeedsFlag() || file.Flagged {
		return false, nil
	}
	if file.Missing {
		return false, fmt.Errorf("cannot flag %s: %w", file.Filename, storage.ErrNotFound)
	}

	src := session.FilePath(file)
	if err := os.MkdirAll(session.FlaggedDir(), 0o755); err != nil {
		return false, fmt.Errorf("failed to create flagged directory: %w", err)
	}
	file.Flagged = true
	dst := session.FilePath(file)
	if err := os.Rename(src, dst); err != nil {
		file.Flagged = false
		return false, fmt.Errorf("failed to move %s into flagged namespace: %w", file.Filename, err)
	}

	e.persist(ctx, session, file, "flag")
	return true, nil
}

// AttemptUnflag unflags the file once every previously unresolved record
// has a non-Other status. Unflagging an unflagged file is a no-op; an
// attempt while unresolved records remain is rejected with the prior
// state intact.
func (e *Engine) AttemptUnflag(ctx context.Context, session *models.Session, file *models.ClubFile) (bool, error) {
	if !file.Flagged {
		return false, nil
	}
	if len(file.Records) == 0 {
		return false, fmt.Errorf("cannot unflag %s: no attendee records ingested", file.Filename)
	}
	if unresolved := countUnresolved(file); unresolved > 0 {
		return false, &UnresolvedError{Filename: file.Filename, Unresolved: unresolved}
	}
	if file.Missing {
		return false, fmt.Errorf("cannot unflag %s: %w", file.Filename, storage.ErrNotFound)
	}

	src := session.FilePath(file)
	file.Flagged = false
	dst := session.FilePath(file)
	if err := os.Rename(src, dst); err != nil {
		file.Flagged = true
		return false, fmt.Errorf("failed to restore %s from flagged namespace: %w", file.Filename, err)
	}

	e.persist(ctx, session, file, "unflag")
	return true, nil
}

// persist writes the metadata half of the transaction. A write failure is
// logged, not surfaced: the rename already happened, and load-time
// reconciliation re-derives the flag from the file's location.
func (e *Engine) persist(ctx context.Context, session *models.Session, file *models.ClubFile, transition string) {
	if err := e.store.Save(ctx, session); err != nil {
		slog.Warn("metadata write failed after rename; reconciliation will repair on next load",
			"transition", transition,
			"club", session.Club,
			"label", session.Label,
			"file", file.Filename,
			"error", err,
		)
	}
}

func countUnresolved(file *models.ClubFile) int {
	n := 0
	for _, r := range file.Records {
		if r.Unresolved() {
			n++
		}
	}
	return n
}
