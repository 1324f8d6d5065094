// Package metastore implements storage.Store on the local filesystem.
//
// Layout: <dataRoot>/<club>/<label>/ holds the session's imported files,
// a flagged/ subdirectory for files under review, and one session.json
// metadata record. The record is the sole source of truth on reload; the
// only state ever re-derived from the filesystem is the flagged location
// of a file, because the rename is the durable half of the flag
// transaction and metadata must follow it, never diverge from it.
package metastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/courtside/courtbill/internal/models"
	"github.com/courtside/courtbill/internal/storage"
)

// MetadataFilename is the per-session metadata record file.
const MetadataFilename = "session.json"

// Ensure MetaStore implements storage.Store.
var _ storage.Store = (*MetaStore)(nil)

// MetaStore persists sessions as JSON records under a data root.
type MetaStore struct {
	root string
}

// New creates a MetaStore rooted at dataRoot, creating the directory if
// needed.
func New(dataRoot string) (*MetaStore, error) {
	abs, err := filepath.Abs(dataRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data root: %w", err)
	}
	return &MetaStore{root: abs}, nil
}

// Root returns the absolute data root.
func (m *MetaStore) Root() string { return m.root }

// SessionDir returns the directory a club/label session lives in.
func (m *MetaStore) SessionDir(club, label string) string {
	return filepath.Join(m.root, club, label)
}

// validateComponent rejects names that would escape or mangle the layout.
func validateComponent(kind, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%s must not be empty", kind)
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%s %q must not contain path separators", kind, name)
	}
	return nil
}

// Create persists a brand-new session record.
func (m *MetaStore) Create(ctx context.Context, session *models.Session) error {
	if err := validateComponent("club", session.Club); err != nil {
		return err
	}
	if err := validateComponent("session label", session.Label); err != nil {
		return err
	}

	dir := m.SessionDir(session.Club, session.Label)
	if _, err := os.Stat(filepath.Join(dir, MetadataFilename)); err == nil {
		return fmt.Errorf("%s/%s: %w", session.Club, session.Label, storage.ErrExists)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	now := time.Now()
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.LastOpened = now
	session.DataRootVersion = models.MetadataVersion
	session.Path = dir
	if session.Files == nil {
		session.Files = []*models.ClubFile{}
	}

	return m.writeRecord(session)
}

// Save atomically replaces the session's metadata record: the new record
// is written to a temp file in the session directory and renamed over the
// old one in a single step.
func (m *MetaStore) Save(ctx context.Context, session *models.Session) error {
	dir := m.SessionDir(session.Club, session.Label)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s/%s: %w", session.Club, session.Label, storage.ErrNotFound)
		}
		return fmt.Errorf("failed to stat session directory: %w", err)
	}
	session.Path = dir
	return m.writeRecord(session)
}

func (m *MetaStore) writeRecord(session *models.Session) error {
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata record: %w", err)
	}

	tmp, err := os.CreateTemp(session.Path, ".session-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp record: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp record: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(session.Path, MetadataFilename)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace metadata record: %w", err)
	}
	return nil
}

// Load reads and reconciles the session for club/label. Missing files and
// repaired flag state are reported per file; neither fails the load.
func (m *MetaStore) Load(ctx context.Context, club, label string) (*models.Session, *storage.LoadReport, error) {
	dir := m.SessionDir(club, label)
	session, err := m.readRecord(dir)
	if err != nil {
		return nil, nil, err
	}

	report := &storage.LoadReport{}
	m.reconcile(session, report)
	session.LastOpened = time.Now()

	if err := m.writeRecord(session); err != nil {
		// The in-memory session is already correct; the record catches up
		// on the next successful save or load.
		slog.Warn("failed to persist reconciled session", "club", club, "label", label, "error", err)
	}
	return session, report, nil
}

func (m *MetaStore) readRecord(dir string) (*models.Session, error) {
	path := filepath.Join(dir, MetadataFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read metadata record: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, &storage.CorruptMetadataError{Path: path, Err: err}
	}
	if session.DataRootVersion == 0 {
		session.DataRootVersion = models.MetadataVersion
	}
	if session.DataRootVersion > models.MetadataVersion {
		return nil, &storage.CorruptMetadataError{
			Path: path,
			Err:  fmt.Errorf("record version %d is newer than supported version %d", session.DataRootVersion, models.MetadataVersion),
		}
	}

	session.Path = dir
	for _, f := range session.Files {
		if f.Fees == nil {
			f.Fees = models.FeeSchedule{}
		}
	}
	return &session, nil
}

// reconcile makes each file's flagged state match its on-disk location.
// The filesystem rename is the durable log of a flag transaction, so when
// metadata and disk disagree the disk wins.
func (m *MetaStore) reconcile(session *models.Session, report *storage.LoadReport) {
	for _, f := range session.Files {
		f.Missing = false
		if _, err := os.Stat(session.FilePath(f)); err == nil {
			continue
		}

		f.Flagged = !f.Flagged
		if _, err := os.Stat(session.FilePath(f)); err == nil {
			report.Repaired = append(report.Repaired, f.Filename)
			slog.Info("repaired flag state from filesystem",
				"club", session.Club, "label", session.Label,
				"file", f.Filename, "flagged", f.Flagged,
			)
			continue
		}

		f.Flagged = !f.Flagged
		f.Missing = true
		report.Missing = append(report.Missing, f.Filename)
	}
}

// List walks the data root and returns summaries matching filter, ordered
// by last-opened descending. Unreadable records are skipped with a
// warning; listing never fails because one session is broken.
func (m *MetaStore) List(ctx context.Context, filter storage.ListFilter) ([]models.SessionSummary, error) {
	if !filter.Valid() {
		return nil, fmt.Errorf("unknown list filter %q", filter)
	}

	clubs, err := os.ReadDir(m.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read data root: %w", err)
	}

	var summaries []models.SessionSummary
	for _, club := range clubs {
		if !club.IsDir() {
			continue
		}
		labels, err := os.ReadDir(filepath.Join(m.root, club.Name()))
		if err != nil {
			slog.Warn("failed to read club directory", "club", club.Name(), "error", err)
			continue
		}
		for _, label := range labels {
			if !label.IsDir() {
				continue
			}
			session, err := m.readRecord(m.SessionDir(club.Name(), label.Name()))
			if err != nil {
				if !errors.Is(err, storage.ErrNotFound) {
					slog.Warn("skipping unreadable session",
						"club", club.Name(), "label", label.Name(), "error", err)
				}
				continue
			}
			summary := session.Summarize()
			if matchesFilter(summary, filter) {
				summaries = append(summaries, summary)
			}
		}
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastOpened.After(summaries[j].LastOpened)
	})
	return summaries, nil
}

func matchesFilter(s models.SessionSummary, filter storage.ListFilter) bool {
	switch filter {
	case storage.FilterFlagged:
		return s.Flagged
	case storage.FilterPaid:
		return s.Paid
	case storage.FilterUnpaid:
		return !s.Paid
	default:
		return true
	}
}

// Delete removes the session's entire storage subtree.
func (m *MetaStore) Delete(ctx context.Context, club, label string) error {
	if err := validateComponent("club", club); err != nil {
		return err
	}
	if err := validateComponent("session label", label); err != nil {
		return err
	}
	dir := m.SessionDir(club, label)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s/%s: %w", club, label, storage.ErrNotFound)
		}
		return fmt.Errorf("failed to stat session directory: %w", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove session subtree: %w", err)
	}
	return nil
}

// Recover rebuilds a minimal metadata record from the session directory
// contents. Every recovered file is moved under flagged/ and marked
// flagged so the session surfaces for manual review instead of silently
// losing state.
func (m *MetaStore) Recover(ctx context.Context, club, label string) (*models.Session, error) {
	dir := m.SessionDir(club, label)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s/%s: %w", club, label, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to stat session directory: %w", err)
	}

	now := time.Now()
	session := &models.Session{
		ID:              uuid.New().String(),
		Club:            club,
		Label:           label,
		CreatedAt:       now,
		LastOpened:      now,
		DataRootVersion: models.MetadataVersion,
		Files:           []*models.ClubFile{},
		Path:            dir,
	}

	names, err := importableFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(names) > 0 {
		if err := os.MkdirAll(session.FlaggedDir(), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create flagged directory: %w", err)
		}
	}
	for _, name := range names {
		if err := os.Rename(filepath.Join(dir, name), filepath.Join(session.FlaggedDir(), name)); err != nil {
			return nil, fmt.Errorf("failed to quarantine %s: %w", name, err)
		}
	}

	flaggedNames, err := importableFiles(session.FlaggedDir())
	if err != nil {
		return nil, err
	}
	for _, name := range flaggedNames {
		session.Files = append(session.Files, &models.ClubFile{
			ID:         uuid.New().String(),
			Filename:   name,
			ImportedAt: now,
			Flagged:    true,
			Fees:       models.FeeSchedule{},
			Records:    []*models.AttendeeRecord{},
		})
	}

	if err := m.writeRecord(session); err != nil {
		return nil, err
	}
	slog.Info("recovered minimal session record",
		"club", club, "label", label, "files", len(session.Files))
	return session, nil
}

// importableFiles lists the attendance export files directly under dir.
func importableFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".csv", ".xlsx":
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
