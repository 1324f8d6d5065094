package metastore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/courtside/courtbill/internal/models"
	"github.com/courtside/courtbill/internal/storage"
)

func newTestStore(t *testing.T) *MetaStore {
	t.Helper()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return store
}

func testSession(club, label string) *models.Session {
	return &models.Session{Club: club, Label: label}
}

// writeImportFile drops a fake export into the session directory so flag
// reconciliation has something to check against.
func writeImportFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte("name,notes\nAlice,cash\n"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
}

func TestCreateAndLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session := testSession("Ankle Breakers", "2026-08")
	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if session.ID == "" {
		t.Error("Expected session ID to be generated")
	}
	if session.DataRootVersion != models.MetadataVersion {
		t.Errorf("DataRootVersion = %d, want %d", session.DataRootVersion, models.MetadataVersion)
	}

	// Populate every field that must survive a reload.
	total := 20.0
	file := &models.ClubFile{
		ID:         "file-1",
		Filename:   "week1.csv",
		ImportedAt: time.Now().Round(time.Second),
		Fees:       models.FeeSchedule{models.StatusManual: 12.5},
		Records: []*models.AttendeeRecord{
			{Name: "Alice", RawNote: "cash $10", Status: models.StatusManual, AnkleNote: "crossover"},
			{Name: "Bob", RawNote: "", Status: models.StatusRegular, Overridden: true, NoShow: true},
		},
		Total: &total,
	}
	session.Files = append(session.Files, file)
	session.Paid = true
	writeImportFile(t, filepath.Join(session.Path, "week1.csv"))

	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, report, err := store.Load(ctx, "Ankle Breakers", "2026-08")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !report.Clean() {
		t.Errorf("Expected clean report, got %+v", report)
	}
	if loaded.ID != session.ID || !loaded.Paid {
		t.Errorf("Session identity lost: ID=%q Paid=%v", loaded.ID, loaded.Paid)
	}
	if len(loaded.Files) != 1 {
		t.Fatalf("Files = %d, want 1", len(loaded.Files))
	}
	got := loaded.Files[0]
	if got.Fees.Get(models.StatusManual) != 12.5 {
		t.Errorf("Fee schedule lost: manual fee = %v, want 12.5", got.Fees.Get(models.StatusManual))
	}
	if got.Total == nil || *got.Total != 20.0 {
		t.Errorf("Cached total lost: %v", got.Total)
	}
	r := got.Records[1]
	if !r.Overridden || r.Status != models.StatusRegular || !r.NoShow {
		t.Errorf("Record fields lost across reload: %+v", r)
	}
	if got.Records[0].AnkleNote != "crossover" {
		t.Errorf("AnkleNote lost: %q", got.Records[0].AnkleNote)
	}
}

func TestCreateRejectsDuplicateAndBadNames(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, testSession("Club", "jan")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := store.Create(ctx, testSession("Club", "jan")); !errors.Is(err, storage.ErrExists) {
		t.Errorf("duplicate Create error = %v, want ErrExists", err)
	}

	for _, bad := range []struct{ club, label string }{
		{"", "jan"},
		{"Club", " "},
		{"a/b", "jan"},
		{"Club", ".."},
	} {
		if err := store.Create(ctx, testSession(bad.club, bad.label)); err == nil {
			t.Errorf("Create(%q, %q) succeeded, want validation error", bad.club, bad.label)
		}
	}
}

func TestLoadNotFoundAndCorrupt(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, _, err := store.Load(ctx, "Nobody", "never"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Load missing session error = %v, want ErrNotFound", err)
	}

	dir := store.SessionDir("Club", "bad")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, MetadataFilename), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	_, _, err := store.Load(ctx, "Club", "bad")
	var corrupt *storage.CorruptMetadataError
	if !errors.As(err, &corrupt) {
		t.Errorf("Load corrupt record error = %v, want CorruptMetadataError", err)
	}
}

func TestLoadRejectsNewerVersion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session := testSession("Club", "future")
	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	session.DataRootVersion = models.MetadataVersion + 1
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	_, _, err := store.Load(ctx, "Club", "future")
	var corrupt *storage.CorruptMetadataError
	if !errors.As(err, &corrupt) {
		t.Errorf("Load newer-version record error = %v, want CorruptMetadataError", err)
	}
}

func TestSaveIsAtomic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session := testSession("Club", "atomic")
	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := store.Save(ctx, session); err != nil {
			t.Fatalf("Save %d failed: %v", i, err)
		}
	}

	// No temp files may survive a completed save.
	entries, err := os.ReadDir(session.Path)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, entry := range entries {
		if entry.Name() != MetadataFilename {
			t.Errorf("unexpected leftover in session dir: %s", entry.Name())
		}
	}
}

func TestLoadReconcilesFlagStateFromDisk(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session := testSession("Club", "ghost")
	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	session.Files = []*models.ClubFile{
		{ID: "f1", Filename: "moved.csv", Flagged: false, Fees: models.FeeSchedule{}},
		{ID: "f2", Filename: "stayed.csv", Flagged: true, Fees: models.FeeSchedule{}},
		{ID: "f3", Filename: "gone.csv", Flagged: false, Fees: models.FeeSchedule{}},
	}
	// moved.csv was renamed into flagged/ but metadata missed the write.
	writeImportFile(t, filepath.Join(session.Path, models.FlaggedDirName, "moved.csv"))
	// stayed.csv claims flagged but sits unflagged on disk.
	writeImportFile(t, filepath.Join(session.Path, "stayed.csv"))
	// gone.csv exists nowhere.
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, report, err := store.Load(ctx, "Club", "ghost")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !loaded.File("f1").Flagged {
		t.Error("moved.csv should be repaired to flagged")
	}
	if loaded.File("f2").Flagged {
		t.Error("stayed.csv should be repaired to unflagged")
	}
	if !loaded.File("f3").Missing {
		t.Error("gone.csv should surface as missing")
	}
	if len(report.Repaired) != 2 || len(report.Missing) != 1 {
		t.Errorf("report = %+v, want 2 repaired 1 missing", report)
	}

	// The repair must be durable: a fresh load sees a clean session.
	reloaded, report2, err := store.Load(ctx, "Club", "ghost")
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if len(report2.Repaired) != 0 {
		t.Errorf("second load repaired again: %+v", report2)
	}
	if !reloaded.File("f1").Flagged || reloaded.File("f2").Flagged {
		t.Error("repair did not persist")
	}
}

func TestListOrderingAndFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older := testSession("Club", "older")
	if err := store.Create(ctx, older); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	older.Paid = true
	older.LastOpened = time.Now().Add(-time.Hour)
	if err := store.Save(ctx, older); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	newer := testSession("Club", "newer")
	if err := store.Create(ctx, newer); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	newer.Files = []*models.ClubFile{{ID: "f", Filename: "a.csv", Flagged: true, Fees: models.FeeSchedule{}}}
	if err := store.Save(ctx, newer); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	all, err := store.List(ctx, storage.FilterAll)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("List(all) = %d sessions, want 2", len(all))
	}
	if all[0].Label != "newer" || all[1].Label != "older" {
		t.Errorf("ordering = [%s, %s], want last-opened descending", all[0].Label, all[1].Label)
	}

	flagged, err := store.List(ctx, storage.FilterFlagged)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(flagged) != 1 || flagged[0].Label != "newer" {
		t.Errorf("List(flagged) = %+v, want only newer", flagged)
	}

	paid, err := store.List(ctx, storage.FilterPaid)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(paid) != 1 || paid[0].Label != "older" {
		t.Errorf("List(paid) = %+v, want only older", paid)
	}

	unpaid, err := store.List(ctx, storage.FilterUnpaid)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(unpaid) != 1 || unpaid[0].Label != "newer" {
		t.Errorf("List(unpaid) = %+v, want only newer", unpaid)
	}

	if _, err := store.List(ctx, storage.ListFilter("bogus")); err == nil {
		t.Error("List with unknown filter succeeded, want error")
	}
}

func TestDeleteRemovesSubtree(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session := testSession("Club", "doomed")
	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	writeImportFile(t, filepath.Join(session.Path, "week1.csv"))

	if err := store.Delete(ctx, "Club", "doomed"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := os.Stat(session.Path); !os.IsNotExist(err) {
		t.Error("session subtree still exists after delete")
	}
	if err := store.Delete(ctx, "Club", "doomed"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second Delete error = %v, want ErrNotFound", err)
	}
}

func TestRecoverBuildsMinimalFlaggedRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dir := store.SessionDir("Club", "broken")
	writeImportFile(t, filepath.Join(dir, "week1.csv"))
	writeImportFile(t, filepath.Join(dir, models.FlaggedDirName, "week2.csv"))
	if err := os.WriteFile(filepath.Join(dir, MetadataFilename), []byte("garbage"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	session, err := store.Recover(ctx, "Club", "broken")
	if err != nil {
		t.Fatalf("Recover failed: %v", err)
	}
	if len(session.Files) != 2 {
		t.Fatalf("recovered %d files, want 2", len(session.Files))
	}
	for _, f := range session.Files {
		if !f.Flagged {
			t.Errorf("recovered file %s not flagged for review", f.Filename)
		}
		if _, err := os.Stat(session.FilePath(f)); err != nil {
			t.Errorf("recovered file %s not at its flagged path: %v", f.Filename, err)
		}
	}

	// The recovered record must load cleanly.
	loaded, report, err := store.Load(ctx, "Club", "broken")
	if err != nil {
		t.Fatalf("Load after recover failed: %v", err)
	}
	if !report.Clean() {
		t.Errorf("load report after recover = %+v, want clean", report)
	}
	if len(loaded.Files) != 2 {
		t.Errorf("loaded %d files, want 2", len(loaded.Files))
	}
}
