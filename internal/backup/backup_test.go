package backup

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite"

	"github.com/julianstephens/routinely/internal/constants"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/storage"
	"github.com/julianstephens/routinely/internal/storage/sqlite"
)

func draft(title string) models.RoutineDraft {
	return models.RoutineDraft{
		Title:     title,
		StartTime: time.Date(2024, 3, 4, 7, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 3, 4, 7, 30, 0, 0, time.UTC),
		Frequency: constants.FrequencyDaily,
		Status:    constants.StatusActive,
	}
}

// setupDB creates an initialized routine database holding the given titles
func setupDB(t *testing.T, titles ...string) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "routinely.db")
	addRoutines(t, dbPath, titles...)
	return dbPath
}

func addRoutines(t *testing.T, dbPath string, titles ...string) {
	t.Helper()
	store := sqlite.NewStore(dbPath)
	if err := store.Init(); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	defer store.Close()
	for _, title := range titles {
		if _, err := store.CreateRoutine(context.Background(), draft(title)); err != nil {
			t.Fatalf("CreateRoutine() failed: %v", err)
		}
	}
}

func countRoutines(t *testing.T, dbPath string) int {
	t.Helper()
	store := sqlite.NewStore(dbPath)
	if err := store.Load(); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	defer store.Close()
	routines, err := store.ListRoutines(context.Background(), storage.Filter{})
	if err != nil {
		t.Fatalf("ListRoutines() failed: %v", err)
	}
	return len(routines)
}

func newManager(dbPath string) (*Manager, clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 6, 9, 30, 0, 0, time.UTC))
	mgr := NewManager(dbPath)
	mgr.SetClock(clock)
	return mgr, clock
}

func TestCreate(t *testing.T) {
	dbPath := setupDB(t, "Run", "Read")
	mgr, _ := newManager(dbPath)

	path, err := mgr.Create()
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if want := filepath.Join(mgr.Dir(), "routinely-20240306-093000.db"); path != want {
		t.Errorf("backup path = %s, want %s", path, want)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("failed to open backup: %v", err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM routines").Scan(&n); err != nil {
		t.Fatalf("failed to query backup: %v", err)
	}
	if n != 2 {
		t.Errorf("backup holds %d routines, want 2", n)
	}
}

func TestCreateMissingDatabase(t *testing.T) {
	mgr, _ := newManager(filepath.Join(t.TempDir(), "missing.db"))
	if _, err := mgr.Create(); err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("Create() error = %v", err)
	}
}

func TestCreateSameSecondGetsCounter(t *testing.T) {
	dbPath := setupDB(t, "Run")
	mgr, _ := newManager(dbPath)

	first, err := mgr.Create()
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	second, err := mgr.Create()
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if first == second || !strings.HasSuffix(second, "-093000-1.db") {
		t.Errorf("first = %s, second = %s", first, second)
	}

	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(backups) != 2 || backups[0].Path != second {
		t.Errorf("List() = %+v, want the counter backup first", backups)
	}
}

func TestListIgnoresForeignFiles(t *testing.T) {
	dbPath := setupDB(t, "Run")
	mgr, _ := newManager(dbPath)

	empty, err := mgr.List()
	if err != nil || len(empty) != 0 {
		t.Fatalf("List() on missing dir = %v, %v", empty, err)
	}

	if _, err := mgr.Create(); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	for _, name := range []string{"notes.txt", "routinely-latest.db", "backup-20240101-000000.db"} {
		if err := os.WriteFile(filepath.Join(mgr.Dir(), name), []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
	}

	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(backups) != 1 {
		t.Errorf("List() = %+v, want only the real backup", backups)
	}
	if backups[0].Size == 0 || !backups[0].Timestamp.Equal(time.Date(2024, 3, 6, 9, 30, 0, 0, time.UTC)) {
		t.Errorf("backup info = %+v", backups[0])
	}
}

func TestRotation(t *testing.T) {
	dbPath := setupDB(t, "Run")
	mgr, clock := newManager(dbPath)
	mgr.keep = 3

	var paths []string
	for i := 0; i < 5; i++ {
		path, err := mgr.Create()
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
		paths = append(paths, path)
		clock.Advance(time.Hour)
	}

	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(backups) != 3 {
		t.Fatalf("kept %d backups, want 3", len(backups))
	}
	if backups[0].Path != paths[4] || backups[2].Path != paths[2] {
		t.Errorf("kept %v, want the newest three", backups)
	}
	if _, err := os.Stat(paths[0]); !os.IsNotExist(err) {
		t.Error("oldest backup should have been removed")
	}
}

func TestRestore(t *testing.T) {
	dbPath := setupDB(t, "Run")
	mgr, clock := newManager(dbPath)

	snapshot, err := mgr.Create()
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	addRoutines(t, dbPath, "Read", "Write")
	if n := countRoutines(t, dbPath); n != 3 {
		t.Fatalf("routines before restore = %d", n)
	}

	clock.Advance(time.Minute)
	previous, err := mgr.Restore(snapshot)
	if err != nil {
		t.Fatalf("Restore() failed: %v", err)
	}
	if previous == "" || previous == snapshot {
		t.Errorf("Restore() should snapshot the current database first, got %q", previous)
	}
	if n := countRoutines(t, dbPath); n != 1 {
		t.Errorf("routines after restore = %d, want 1", n)
	}
	if n := countRoutines(t, previous); n != 3 {
		t.Errorf("pre-restore snapshot holds %d routines, want 3", n)
	}
	if _, err := os.Stat(dbPath + ".restore.tmp"); !os.IsNotExist(err) {
		t.Error("temporary restore file left behind")
	}
}

func TestRestoreRejectsInvalidFiles(t *testing.T) {
	dbPath := setupDB(t, "Run")
	mgr, _ := newManager(dbPath)
	dir := t.TempDir()

	garbage := filepath.Join(dir, "garbage.db")
	if err := os.WriteFile(garbage, []byte("not a database"), 0600); err != nil {
		t.Fatal(err)
	}

	foreign := filepath.Join(dir, "foreign.db")
	db, err := sql.Open("sqlite", foreign)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("CREATE TABLE tasks (id TEXT PRIMARY KEY)"); err != nil {
		t.Fatal(err)
	}
	db.Close()

	tests := []struct {
		name, path string
	}{
		{"missing", filepath.Join(dir, "missing.db")},
		{"garbage", garbage},
		{"no routines table", foreign},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := mgr.Restore(tt.path); err == nil {
				t.Errorf("Restore(%s) should fail", tt.path)
			}
			if n := countRoutines(t, dbPath); n != 1 {
				t.Errorf("database changed after failed restore: %d routines", n)
			}
		})
	}
}
