// Package service exposes the command surface the GUI (or CLI) drives.
// Every mutation goes through here so the two engine-wide invariants hold:
// at most one active session per process, and no fee or status mutation
// returns success while the file's cached total is stale.
//
// The service is single-writer by contract: callers must not issue an
// overlapping mutating call on the same session while one is in flight.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/courtside/courtbill/internal/classify"
	"github.com/courtside/courtbill/internal/finance"
	"github.com/courtside/courtbill/internal/flagging"
	"github.com/courtside/courtbill/internal/importer"
	"github.com/courtside/courtbill/internal/models"
	"github.com/courtside/courtbill/internal/storage"
)

// StoreOpener builds the stores for a data root. Used by SetDataRoot to
// repoint the service at a new root.
type StoreOpener func(dataRoot string) (storage.Store, storage.CompedStore, error)

// SessionService implements the billing commands over a metadata store, a
// comped store and the flag engine.
type SessionService struct {
	store         storage.Store
	comped        storage.CompedStore
	engine        *flagging.Engine
	platformShare float64
	open          StoreOpener

	// active is the one session this process is working on.
	active *models.Session
}

// NewSessionService creates a service. open may be nil when data-root
// switching is not needed (tests).
func NewSessionService(store storage.Store, comped storage.CompedStore, platformShare float64, open StoreOpener) *SessionService {
	return &SessionService{
		store:         store,
		comped:        comped,
		engine:        flagging.NewEngine(store),
		platformShare: platformShare,
		open:          open,
	}
}

// Active returns the current session, or nil.
func (s *SessionService) Active() *models.Session {
	return s.active
}

func (s *SessionService) requireActive() (*models.Session, error) {
	if s.active == nil {
		return nil, storage.ErrNoActiveSession
	}
	return s.active, nil
}

// CreateSession creates and activates a new session for club/label.
func (s *SessionService) CreateSession(ctx context.Context, club, label string) (*models.Session, error) {
	session := &models.Session{Club: club, Label: label}
	if err := s.store.Create(ctx, session); err != nil {
		slog.Error("CreateSession failed", "club", club, "label", label, "error", err)
		return nil, err
	}
	s.active = session
	slog.Info("session created", "club", club, "label", label, "id", session.ID)
	return session, nil
}

// OpenSession loads and activates the session for club/label, replacing
// any previously active session. The report carries per-file recoverable
// conditions (missing files, repaired flags).
func (s *SessionService) OpenSession(ctx context.Context, club, label string) (*models.Session, *storage.LoadReport, error) {
	session, report, err := s.store.Load(ctx, club, label)
	if err != nil {
		slog.Error("OpenSession failed", "club", club, "label", label, "error", err)
		return nil, nil, err
	}
	s.active = session
	return session, report, nil
}

// RecoverSession rebuilds a record for a session whose metadata is
// corrupt: the store reconstructs the file list, then every quarantined
// file's attendee rows are re-ingested and classified so totals come from
// real records. Files whose rows cannot be re-read are reported in the
// returned slice; they keep no records, their total stays undefined, and
// they cannot be unflagged. The recovered session is activated.
func (s *SessionService) RecoverSession(ctx context.Context, club, label string) (*models.Session, []error, error) {
	session, err := s.store.Recover(ctx, club, label)
	if err != nil {
		slog.Error("RecoverSession failed", "club", club, "label", label, "error", err)
		return nil, nil, err
	}
	comped, err := s.comped.All(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read comped list: %w", err)
	}

	var failures []error
	for _, file := range session.Files {
		rows, err := importer.ReadFile(session.FilePath(file))
		if err != nil {
			slog.Warn("recovered file kept without records", "file", file.Filename, "error", err)
			failures = append(failures, fmt.Errorf("%s recovered without records: %w", file.Filename, err))
			continue
		}
		file.Records = buildRecords(rows)
		classify.Apply(file, comped)
		finance.Recompute(file)
	}
	if err := s.store.Save(ctx, session); err != nil {
		return nil, failures, err
	}

	s.active = session
	return session, failures, nil
}

// ImportResult reports one import batch. Failures are per source file;
// the batch continues past them and nothing fails silently.
type ImportResult struct {
	Files  []*models.ClubFile
	Errors []error
}

// ImportFiles copies each source file into the active session, classifies
// its rows against the comped list, computes its total, and flags it if
// any row is unresolved. Files that cannot be imported are reported in
// the result; the rest of the batch proceeds.
func (s *SessionService) ImportFiles(ctx context.Context, paths []string) (*ImportResult, error) {
	session, err := s.requireActive()
	if err != nil {
		return nil, err
	}
	comped, err := s.comped.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read comped list: %w", err)
	}

	result := &ImportResult{}
	for _, path := range paths {
		file, err := s.importOne(ctx, session, path, comped)
		if err != nil {
			slog.Error("import failed", "path", path, "error", err)
			if file != nil {
				// The file is in the session; only the flag move failed.
				// Report it as imported so the result matches what the
				// next save persists, with the flag failure alongside.
				result.Files = append(result.Files, file)
				err = fmt.Errorf("%s imported but left unflagged: %w", file.Filename, err)
			}
			result.Errors = append(result.Errors, err)
			continue
		}
		result.Files = append(result.Files, file)
	}

	if len(result.Files) > 0 {
		if err := s.store.Save(ctx, session); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (s *SessionService) importOne(ctx context.Context, session *models.Session, path string, comped models.CompedList) (*models.ClubFile, error) {
	rows, err := importer.ReadFile(path)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(path)
	if session.File(name) != nil {
		return nil, fmt.Errorf("%s is already imported into this session", name)
	}
	if err := copyFile(path, filepath.Join(session.Path, name)); err != nil {
		return nil, fmt.Errorf("failed to copy %s into session: %w", name, err)
	}

	file := &models.ClubFile{
		ID:         uuid.New().String(),
		Filename:   name,
		ImportedAt: time.Now(),
		Fees:       models.FeeSchedule{},
		Records:    buildRecords(rows),
	}
	classify.Apply(file, comped)
	finance.Recompute(file)
	session.Files = append(session.Files, file)

	if _, err := s.engine.FlagIfNeeded(ctx, session, file); err != nil {
		return file, err
	}
	return file, nil
}

func buildRecords(rows []importer.Row) []*models.AttendeeRecord {
	records := make([]*models.AttendeeRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, &models.AttendeeRecord{Name: row.Name, RawNote: row.Note})
	}
	return records
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

// findRecord resolves a file and record index in the active session.
func (s *SessionService) findRecord(fileKey string, index int) (*models.Session, *models.ClubFile, *models.AttendeeRecord, error) {
	session, file, err := s.findFile(fileKey)
	if err != nil {
		return nil, nil, nil, err
	}
	record := file.Record(index)
	if record == nil {
		return nil, nil, nil, fmt.Errorf("record %d out of range for %s: %w", index, file.Filename, storage.ErrNotFound)
	}
	return session, file, record, nil
}

func (s *SessionService) findFile(fileKey string) (*models.Session, *models.ClubFile, error) {
	session, err := s.requireActive()
	if err != nil {
		return nil, nil, err
	}
	file := session.File(fileKey)
	if file == nil {
		return nil, nil, fmt.Errorf("file %q: %w", fileKey, storage.ErrNotFound)
	}
	return session, file, nil
}

// SetStatus overrides a record's status by user decision. The override is
// authoritative from then on. The file's total is recomputed and flag
// state re-derived before the mutation is persisted.
func (s *SessionService) SetStatus(ctx context.Context, fileKey string, index int, status models.Status) error {
	if !status.Valid() {
		return fmt.Errorf("unknown status %q", status)
	}
	session, file, record, err := s.findRecord(fileKey, index)
	if err != nil {
		return err
	}

	record.Override(status)
	finance.Recompute(file)
	if _, err := s.engine.FlagIfNeeded(ctx, session, file); err != nil {
		return err
	}
	return s.store.Save(ctx, session)
}

// SetAnkleNote sets a record's free-form annotation.
func (s *SessionService) SetAnkleNote(ctx context.Context, fileKey string, index int, note string) error {
	session, _, record, err := s.findRecord(fileKey, index)
	if err != nil {
		return err
	}
	record.AnkleNote = note
	return s.store.Save(ctx, session)
}

// SetFee assigns a fee amount for a status on the file's schedule. An
// invalid amount is rejected with the prior value intact. On success the
// file's total has already been recomputed; a stale total is never
// persisted.
func (s *SessionService) SetFee(ctx context.Context, fileKey string, status models.Status, amount float64) error {
	session, file, err := s.findFile(fileKey)
	if err != nil {
		return err
	}
	if err := file.Fees.Set(status, amount); err != nil {
		return err
	}
	finance.Recompute(file)
	return s.store.Save(ctx, session)
}

// ResetAllFees sets every status present in the file back to the default
// fee and recomputes the total.
func (s *SessionService) ResetAllFees(ctx context.Context, fileKey string) error {
	session, file, err := s.findFile(fileKey)
	if err != nil {
		return err
	}
	file.Fees.ResetAll(file.PresentStatuses())
	finance.Recompute(file)
	return s.store.Save(ctx, session)
}

// FlagIfNeeded runs the automatic flag derivation for one file.
func (s *SessionService) FlagIfNeeded(ctx context.Context, fileKey string) (bool, error) {
	session, file, err := s.findFile(fileKey)
	if err != nil {
		return false, err
	}
	return s.engine.FlagIfNeeded(ctx, session, file)
}

// AttemptUnflag unflags a file once every record is resolved.
func (s *SessionService) AttemptUnflag(ctx context.Context, fileKey string) (bool, error) {
	session, file, err := s.findFile(fileKey)
	if err != nil {
		return false, err
	}
	return s.engine.AttemptUnflag(ctx, session, file)
}

// MarkPaid sets the paid flag. Paid is informational only: it locks no
// editing and both transitions are allowed unconditionally.
func (s *SessionService) MarkPaid(ctx context.Context) error {
	return s.setPaid(ctx, true)
}

// MarkUnpaid clears the paid flag.
func (s *SessionService) MarkUnpaid(ctx context.Context) error {
	return s.setPaid(ctx, false)
}

func (s *SessionService) setPaid(ctx context.Context, paid bool) error {
	session, err := s.requireActive()
	if err != nil {
		return err
	}
	session.Paid = paid
	return s.store.Save(ctx, session)
}

// DeleteSession removes a session's storage subtree. Deleting the active
// session deactivates it.
func (s *SessionService) DeleteSession(ctx context.Context, club, label string) error {
	if err := s.store.Delete(ctx, club, label); err != nil {
		return err
	}
	if s.active != nil && s.active.Club == club && s.active.Label == label {
		s.active = nil
	}
	slog.Info("session deleted", "club", club, "label", label)
	return nil
}

// ListSessions lists sessions under the data root, newest-opened first.
func (s *SessionService) ListSessions(ctx context.Context, filter storage.ListFilter) ([]models.SessionSummary, error) {
	return s.store.List(ctx, filter)
}

// Summary computes the financial summary of the active session.
func (s *SessionService) Summary() (finance.SessionSummary, error) {
	session, err := s.requireActive()
	if err != nil {
		return finance.SessionSummary{}, err
	}
	return finance.SummarizeSession(session, s.platformShare), nil
}

// FileSummary computes the financial summary of one file in the active
// session.
func (s *SessionService) FileSummary(fileKey string) (finance.FileSummary, error) {
	_, file, err := s.findFile(fileKey)
	if err != nil {
		return finance.FileSummary{}, err
	}
	return finance.SummarizeFile(file), nil
}

// CompedAdd adds a name to the process-wide comped list. Already-loaded
// sessions are not reclassified; the list applies from the next load or
// import.
func (s *SessionService) CompedAdd(ctx context.Context, name string) error {
	return s.comped.Add(ctx, name)
}

// CompedRemove removes a name from the comped list.
func (s *SessionService) CompedRemove(ctx context.Context, name string) error {
	return s.comped.Remove(ctx, name)
}

// CompedNames returns the comped list sorted for display.
func (s *SessionService) CompedNames(ctx context.Context) ([]string, error) {
	list, err := s.comped.All(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(list))
	for name := range list {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// SetDataRoot repoints the service at a new data root, closing the old
// comped store and deactivating any open session.
func (s *SessionService) SetDataRoot(dataRoot string) error {
	if s.open == nil {
		return fmt.Errorf("data root switching is not configured")
	}
	store, comped, err := s.open(dataRoot)
	if err != nil {
		return fmt.Errorf("failed to open data root %s: %w", dataRoot, err)
	}
	if s.comped != nil {
		if err := s.comped.Close(); err != nil {
			slog.Warn("failed to close previous comped store", "error", err)
		}
	}
	s.store = store
	s.comped = comped
	s.engine = flagging.NewEngine(store)
	s.active = nil
	slog.Info("data root switched", "dataRoot", dataRoot)
	return nil
}
