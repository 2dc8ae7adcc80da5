package storage

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"codelists/internal/definition"
	cerrors "codelists/internal/errors"
	"codelists/internal/logging"
	"codelists/internal/ontology"
	"codelists/internal/status"
	"codelists/internal/testutil"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), ".codelists", "codelists.db"), logging.Discard())
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})
	return db
}

func importFixtures(t *testing.T, db *DB, ids ...string) {
	t.Helper()
	repo := NewReleaseRepository(db)
	for _, id := range ids {
		if _, err := repo.Import(testutil.LoadRelease(t, id)); err != nil {
			t.Fatalf("Failed to import %s: %v", id, err)
		}
	}
}

func TestDatabaseInitialization(t *testing.T) {
	db := setupTestDB(t)

	if _, err := os.Stat(db.Path()); os.IsNotExist(err) {
		t.Fatalf("Database file was not created at %s", db.Path())
	}

	version, err := db.getSchemaVersion()
	if err != nil {
		t.Fatalf("Failed to get schema version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("Expected schema version %d, got %d", currentSchemaVersion, version)
	}
}

func TestReopenExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codelists.db")

	db, err := Open(path, logging.Discard())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	importFixtures(t, db, testutil.ElbowV1)
	db.Close()

	db, err = Open(path, logging.Discard())
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db.Close()

	info, err := NewReleaseRepository(db).Get(testutil.ElbowV1)
	if err != nil || info == nil {
		t.Fatalf("release lost across reopen: %v, %v", info, err)
	}
}

func TestReleaseRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReleaseRepository(db)

	info, err := repo.Import(testutil.LoadRelease(t, testutil.ElbowV1))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if info.CodingSystem != "snomedct" || info.Concepts != 8 || info.Edges != 7 {
		t.Errorf("unexpected release info %+v", info)
	}
	if time.Since(info.ImportedAt) > time.Minute {
		t.Errorf("ImportedAt = %v", info.ImportedAt)
	}

	_, err = repo.Import(testutil.LoadRelease(t, testutil.ElbowV1))
	if !cerrors.IsCode(err, cerrors.PreconditionFailed) {
		t.Errorf("second Import error = %v, want PRECONDITION_FAILED", err)
	}

	bad := &ontology.Release{ID: "bad", CodingSystem: "x", Concepts: []ontology.Concept{{Code: "a", Parents: []string{"b"}}}}
	if _, err := repo.Import(bad); !cerrors.IsCode(err, cerrors.InvalidRelease) {
		t.Errorf("Import of an invalid release error = %v, want INVALID_RELEASE", err)
	}

	missing, err := repo.Get("nope")
	if err != nil || missing != nil {
		t.Errorf("Get(nope) = %v, %v, want nil, nil", missing, err)
	}

	importFixtures(t, db, testutil.ElbowV2)
	list, err := repo.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != testutil.ElbowV1 || list[1].ID != testutil.ElbowV2 {
		t.Errorf("List() = %+v", list)
	}
}

func createVersion(t *testing.T, q Querier, id, codelist, parent string, created time.Time) *Version {
	t.Helper()
	v := &Version{
		ID:         id,
		CodelistID: codelist,
		ReleaseID:  testutil.ElbowV1,
		State:      StateDraft,
		ParentID:   parent,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
	if err := NewVersionRepository(q).Create(v); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return v
}

func TestVersionRepository(t *testing.T) {
	db := setupTestDB(t)
	importFixtures(t, db, testutil.ElbowV1)
	repo := NewVersionRepository(db)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	createVersion(t, db, "v1", "elbow", "", base)

	got, err := repo.Get("v1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.State != StateDraft || got.Fingerprint != "" || got.ParentID != "" || !got.CreatedAt.Equal(base) {
		t.Errorf("Get() = %+v", got)
	}
	if missing, err := repo.Get("none"); err != nil || missing != nil {
		t.Errorf("Get(none) = %v, %v", missing, err)
	}

	if latest, err := repo.LatestSaved("elbow", ""); err != nil || latest != nil {
		t.Errorf("LatestSaved before any save = %v, %v", latest, err)
	}
	if err := repo.UpdateState("v1", StateUnderReview, "abc"); err != nil {
		t.Fatalf("UpdateState failed: %v", err)
	}
	// an empty fingerprint keeps the stored one
	if err := repo.UpdateState("v1", StatePublished, ""); err != nil {
		t.Fatalf("UpdateState failed: %v", err)
	}
	got, _ = repo.Get("v1")
	if got.State != StatePublished || got.Fingerprint != "abc" {
		t.Errorf("after UpdateState: %+v", got)
	}

	createVersion(t, db, "v2", "elbow", "v1", base.Add(time.Second))
	latest, err := repo.LatestSaved("elbow", "v2")
	if err != nil || latest == nil || latest.ID != "v1" {
		t.Errorf("LatestSaved = %v, %v, want v1", latest, err)
	}
	if latest, _ := repo.LatestSaved("elbow", "v1"); latest != nil {
		t.Errorf("LatestSaved excluding v1 = %v, want nil", latest)
	}

	list, err := repo.ListByCodelist("elbow")
	if err != nil {
		t.Fatalf("ListByCodelist failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != "v1" || list[1].ParentID != "v1" {
		t.Errorf("ListByCodelist() = %+v", list)
	}

	err = NewVersionRepository(db).Create(&Version{ID: "v3", CodelistID: "elbow", ReleaseID: testutil.ElbowV1, State: "bogus"})
	if err == nil {
		t.Error("Create should reject unknown states")
	}
}

func TestVersionRows(t *testing.T) {
	db := setupTestDB(t)
	importFixtures(t, db, testutil.ElbowV1)
	repo := NewVersionRepository(db)
	createVersion(t, db, "v1", "elbow", "", time.Now())

	if _, ok, err := repo.LoadDefinition("v1"); err != nil || ok {
		t.Errorf("LoadDefinition before save = %v, %v", ok, err)
	}
	def, _ := definition.New([]string{"128133004", "156659008"}, []string{"439656005"})
	if err := repo.SaveDefinition("v1", def); err != nil {
		t.Fatalf("SaveDefinition failed: %v", err)
	}
	loaded, ok, err := repo.LoadDefinition("v1")
	if err != nil || !ok || !loaded.Equal(def) {
		t.Errorf("LoadDefinition = %+v, %v, %v", loaded.Lists(), ok, err)
	}

	searches := []ontology.Search{{Term: "elbow"}, {Code: "156659008"}}
	if err := repo.SaveSearches("v1", searches); err != nil {
		t.Fatalf("SaveSearches failed: %v", err)
	}
	gotSearches, err := repo.LoadSearches("v1")
	if err != nil || !reflect.DeepEqual(gotSearches, searches) {
		t.Errorf("LoadSearches = %v, %v", gotSearches, err)
	}

	statuses := map[string]status.Status{"128133004": status.Included, "35185008": status.IncludedInherited, "x": status.Conflict}
	if err := repo.SaveStatuses("v1", statuses); err != nil {
		t.Fatalf("SaveStatuses failed: %v", err)
	}
	gotStatuses, err := repo.LoadStatuses("v1")
	if err != nil || !reflect.DeepEqual(gotStatuses, statuses) {
		t.Errorf("LoadStatuses = %v, %v", gotStatuses, err)
	}
	counts, err := repo.CountStatuses("v1")
	if err != nil || counts[status.Included] != 1 || counts[status.Conflict] != 1 {
		t.Errorf("CountStatuses = %v, %v", counts, err)
	}

	// replacing rows drops the old ones
	if err := repo.SaveStatuses("v1", map[string]status.Status{"x": status.Undecided}); err != nil {
		t.Fatalf("SaveStatuses failed: %v", err)
	}
	gotStatuses, _ = repo.LoadStatuses("v1")
	if len(gotStatuses) != 1 {
		t.Errorf("LoadStatuses after replace = %v", gotStatuses)
	}
}

func TestWithTxRollsBack(t *testing.T) {
	db := setupTestDB(t)
	importFixtures(t, db, testutil.ElbowV1)

	sentinel := errors.New("abort")
	err := db.WithTx(func(tx *sql.Tx) error {
		createVersion(t, tx, "v1", "elbow", "", time.Now())
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("WithTx error = %v, want sentinel", err)
	}
	if v, _ := NewVersionRepository(db).Get("v1"); v != nil {
		t.Error("rolled back version is visible")
	}
}

func TestGraphCacheIsWriteOnce(t *testing.T) {
	db := setupTestDB(t)
	importFixtures(t, db, testutil.ElbowV1)
	createVersion(t, db, "v1", "elbow", "", time.Now())
	cache := NewGraphCache(db)

	if _, ok, err := cache.Get("v1"); err != nil || ok {
		t.Fatalf("Get before Put = %v, %v", ok, err)
	}
	if written, err := cache.Put("v1", []byte("first"), 3); err != nil || !written {
		t.Fatalf("Put = %v, %v", written, err)
	}
	if written, err := cache.Put("v1", []byte("second"), 4); err != nil || written {
		t.Errorf("second Put = %v, %v, want not written", written, err)
	}
	blob, ok, err := cache.Get("v1")
	if err != nil || !ok || string(blob) != "first" {
		t.Errorf("Get = %q, %v, %v", blob, ok, err)
	}

	stats, err := cache.Stats()
	if err != nil || stats.Entries != 1 || stats.TotalBytes != 5 || stats.TotalNodes != 3 {
		t.Errorf("Stats = %+v, %v", stats, err)
	}

	if err := cache.Invalidate("v1"); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if written, _ := cache.Put("v1", []byte("third"), 3); !written {
		t.Error("Put after Invalidate should write")
	}
}
