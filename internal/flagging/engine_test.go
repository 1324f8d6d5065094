package flagging

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/courtside/courtbill/internal/models"
	"github.com/courtside/courtbill/internal/storage"
	"github.com/courtside/courtbill/internal/storage/metastore"
)

// setupSession creates a real session on disk with one imported file whose
// second record is unresolved.
func setupSession(t *testing.T) (*metastore.MetaStore, *Engine, *models.Session, *models.ClubFile) {
	t.Helper()
	store, err := metastore.New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	session := &models.Session{Club: "Ankle Breakers", Label: "2026-08"}
	if err := store.Create(context.Background(), session); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	file := &models.ClubFile{
		ID:       "f1",
		Filename: "week1.csv",
		Fees:     models.FeeSchedule{models.StatusManual: 10.0},
		Records: []*models.AttendeeRecord{
			{Name: "Alice", RawNote: "cash $10", Status: models.StatusManual, AnkleNote: "left early"},
			{Name: "Bob", RawNote: "", Status: models.StatusOther},
		},
	}
	session.Files = append(session.Files, file)
	if err := os.WriteFile(filepath.Join(session.Path, file.Filename), []byte("name,notes\n"), 0o644); err != nil {
		t.Fatalf("Failed to write import file: %v", err)
	}
	if err := store.Save(context.Background(), session); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	return store, NewEngine(store), session, file
}

func TestFlagIfNeeded(t *testing.T) {
	_, engine, session, file := setupSession(t)
	ctx := context.Background()

	moved, err := engine.FlagIfNeeded(ctx, session, file)
	if err != nil {
		t.Fatalf("FlagIfNeeded failed: %v", err)
	}
	if !moved {
		t.Fatal("expected a flag transition")
	}
	if !file.Flagged {
		t.Error("file not marked flagged")
	}
	flaggedPath := filepath.Join(session.Path, models.FlaggedDirName, "week1.csv")
	if _, err := os.Stat(flaggedPath); err != nil {
		t.Errorf("file not at flagged path: %v", err)
	}
	if _, err := os.Stat(filepath.Join(session.Path, "week1.csv")); !os.IsNotExist(err) {
		t.Error("file still at unflagged path")
	}

	// Already flagged: a no-op, not an error.
	moved, err = engine.FlagIfNeeded(ctx, session, file)
	if err != nil {
		t.Fatalf("second FlagIfNeeded failed: %v", err)
	}
	if moved {
		t.Error("second FlagIfNeeded reported a transition")
	}
}

func TestFlagIfNeededSkipsResolvedFiles(t *testing.T) {
	_, engine, session, file := setupSession(t)
	file.Records[1].Override(models.StatusRegular)

	moved, err := engine.FlagIfNeeded(context.Background(), session, file)
	if err != nil {
		t.Fatalf("FlagIfNeeded failed: %v", err)
	}
	if moved || file.Flagged {
		t.Error("resolved file was flagged")
	}
}

func TestAttemptUnflagRejectsUnresolved(t *testing.T) {
	_, engine, session, file := setupSession(t)
	ctx := context.Background()

	if _, err := engine.FlagIfNeeded(ctx, session, file); err != nil {
		t.Fatalf("FlagIfNeeded failed: %v", err)
	}

	moved, err := engine.AttemptUnflag(ctx, session, file)
	var unresolved *UnresolvedError
	if !errors.As(err, &unresolved) {
		t.Fatalf("AttemptUnflag error = %v, want UnresolvedError", err)
	}
	if moved || !file.Flagged {
		t.Error("rejected unflag mutated state")
	}
	if unresolved.Unresolved != 1 {
		t.Errorf("Unresolved = %d, want 1", unresolved.Unresolved)
	}
}

// Flag then unflag restores path, metadata entry, fee schedule and notes
// to their pre-flag values exactly.
func TestFlagUnflagRoundTrip(t *testing.T) {
	store, engine, session, file := setupSession(t)
	ctx := context.Background()

	beforeFees := file.Fees.Clone()
	beforeNotes := []string{file.Records[0].AnkleNote, file.Records[1].AnkleNote}
	beforePath := session.FilePath(file)

	if _, err := engine.FlagIfNeeded(ctx, session, file); err != nil {
		t.Fatalf("FlagIfNeeded failed: %v", err)
	}
	file.Records[1].Override(models.StatusRegular)
	moved, err := engine.AttemptUnflag(ctx, session, file)
	if err != nil {
		t.Fatalf("AttemptUnflag failed: %v", err)
	}
	if !moved || file.Flagged {
		t.Fatal("expected unflag transition")
	}

	if got := session.FilePath(file); got != beforePath {
		t.Errorf("path = %s, want %s", got, beforePath)
	}
	if _, err := os.Stat(beforePath); err != nil {
		t.Errorf("file not restored to unflagged path: %v", err)
	}
	if !reflect.DeepEqual(file.Fees, beforeFees) {
		t.Errorf("fee schedule changed across round trip: %v != %v", file.Fees, beforeFees)
	}
	for i, want := range beforeNotes {
		if file.Records[i].AnkleNote != want {
			t.Errorf("ankle note %d changed: %q != %q", i, file.Records[i].AnkleNote, want)
		}
	}

	// Unflagging an unflagged file is a no-op.
	moved, err = engine.AttemptUnflag(ctx, session, file)
	if err != nil || moved {
		t.Errorf("no-op unflag = (%v, %v), want (false, nil)", moved, err)
	}

	// The persisted record agrees.
	loaded, report, err := store.Load(ctx, session.Club, session.Label)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !report.Clean() {
		t.Errorf("report = %+v, want clean", report)
	}
	if loaded.File("f1").Flagged {
		t.Error("persisted record still flagged")
	}
}

// A flagged file with no ingested records (a recovery that could not
// re-read its rows) must stay flagged until it has rows to judge.
func TestAttemptUnflagRejectsRecordlessFiles(t *testing.T) {
	store, engine, session, _ := setupSession(t)
	ctx := context.Background()

	empty := &models.ClubFile{
		ID:       "f2",
		Filename: "week2.csv",
		Flagged:  true,
		Fees:     models.FeeSchedule{},
	}
	session.Files = append(session.Files, empty)
	if err := os.MkdirAll(session.FlaggedDir(), 0o755); err != nil {
		t.Fatalf("Failed to create flagged dir: %v", err)
	}
	if err := os.WriteFile(session.FilePath(empty), []byte("name,notes\n"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	moved, err := engine.AttemptUnflag(ctx, session, empty)
	if err == nil {
		t.Fatal("unflag of a record-less file succeeded")
	}
	if moved || !empty.Flagged {
		t.Error("rejected unflag mutated state")
	}
}

// A metadata write failure after the rename must leave the system
// reconcilable, not inconsistent: the next load repairs the record from
// the on-disk path.
func TestFlagSurvivesLostMetadataWrite(t *testing.T) {
	store, _, session, file := setupSession(t)
	ctx := context.Background()

	engine := NewEngine(&failingSaveStore{Store: store})
	moved, err := engine.FlagIfNeeded(ctx, session, file)
	if err != nil {
		t.Fatalf("FlagIfNeeded failed: %v", err)
	}
	if !moved {
		t.Fatal("expected a flag transition")
	}

	// Reload from the record written before the flag: it claims unflagged,
	// the disk says flagged. The filesystem wins.
	loaded, report, err := store.Load(ctx, session.Club, session.Label)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(report.Repaired) != 1 {
		t.Fatalf("report = %+v, want one repair", report)
	}
	if !loaded.File("f1").Flagged {
		t.Error("reconciliation did not recover the flag from disk")
	}
}

// failingSaveStore drops every Save on the floor.
type failingSaveStore struct {
	storage.Store
}

func (f *failingSaveStore) Save(ctx context.Context, session *models.Session) error {
	return errors.New("disk full")
}
