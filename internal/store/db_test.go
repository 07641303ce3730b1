package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/krywicki/discord-sounboard-bot/internal/domain"
	"github.com/krywicki/discord-sounboard-bot/internal/logger"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := NewSQLiteDB(path, Options{PoolSize: 4, Logger: logger.Discard()})
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	t.Cleanup(func() {
		if cErr := db.Close(); cErr != nil {
			t.Logf("db.Close error: %v", cErr)
		}
	})
	return db
}

func newRecord(name, tags, path string) *domain.AudioRecord {
	return domain.NewAudioRecord(name, tags, path, nil)
}

func mustInsert(t *testing.T, db *DB, rec *domain.AudioRecord) *domain.AudioRecord {
	t.Helper()
	if err := db.InsertAudio(context.Background(), rec); err != nil {
		t.Fatalf("InsertAudio(%s) failed: %v", rec.Name, err)
	}
	return rec
}

func TestNewSQLiteDB_SchemaIdempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mustInsert(t, db, newRecord("airhorn", "loud", "/clips/airhorn.mp3"))

	if err := db.CreateSchema(ctx); err != nil {
		t.Fatalf("second CreateSchema failed: %v", err)
	}

	n, err := db.CountAudio(ctx)
	if err != nil {
		t.Fatalf("CountAudio failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 record to survive schema re-creation, got %d", n)
	}
}

func TestDropSchema(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.DropSchema(ctx); err != nil {
		t.Fatalf("DropSchema failed: %v", err)
	}
	if _, err := db.CountAudio(ctx); err == nil {
		t.Error("Expected CountAudio to fail after DropSchema")
	}

	// dropping again fails but only reports
	err := db.DropSchema(ctx)
	var se *StorageError
	if !errors.As(err, &se) {
		t.Errorf("Expected StorageError from second DropSchema, got %v", err)
	}

	if err := db.CreateSchema(ctx); err != nil {
		t.Fatalf("CreateSchema after drop failed: %v", err)
	}
	mustInsert(t, db, newRecord("bruh", "", "/clips/bruh.mp3"))
}

func TestInsertAudio_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	created := domain.NewTimestamp(time.Date(2024, 5, 17, 20, 30, 45, 0, time.UTC))
	authorID := int64(123456789012345678)
	authorName := "krywicki"
	globalName := "Krywicki"

	rec := &domain.AudioRecord{
		Name:             "it's a trap",
		Tags:             "star wars, admiral ackbar",
		AudioFilePath:    "/clips/its-a-trap.mp3",
		CreatedAt:        created,
		AuthorID:         &authorID,
		AuthorName:       &authorName,
		AuthorGlobalName: &globalName,
	}
	mustInsert(t, db, rec)
	if rec.ID == 0 {
		t.Fatal("Expected record ID to be set")
	}

	got, err := db.FindAudio(ctx, domain.ByID(rec.ID))
	if err != nil {
		t.Fatalf("FindAudio failed: %v", err)
	}

	if got.ID != rec.ID {
		t.Errorf("Expected ID %d, got %d", rec.ID, got.ID)
	}
	if got.Name != rec.Name {
		t.Errorf("Expected name %q, got %q", rec.Name, got.Name)
	}
	if got.Tags != rec.Tags {
		t.Errorf("Expected tags %q, got %q", rec.Tags, got.Tags)
	}
	if got.AudioFilePath != rec.AudioFilePath {
		t.Errorf("Expected path %q, got %q", rec.AudioFilePath, got.AudioFilePath)
	}
	if !got.CreatedAt.Equal(created.Time) {
		t.Errorf("Expected created_at %v, got %v", created, got.CreatedAt)
	}
	if got.AuthorID == nil || *got.AuthorID != authorID {
		t.Errorf("Expected author_id %d, got %v", authorID, got.AuthorID)
	}
	if got.AuthorName == nil || *got.AuthorName != authorName {
		t.Errorf("Expected author_name %q, got %v", authorName, got.AuthorName)
	}
	if got.AuthorGlobalName == nil || *got.AuthorGlobalName != globalName {
		t.Errorf("Expected author_global_name %q, got %v", globalName, got.AuthorGlobalName)
	}

	var raw string
	if err := db.Get(&raw, `SELECT created_at FROM audio WHERE id = ?`, rec.ID); err != nil {
		t.Fatalf("raw select failed: %v", err)
	}
	if raw != "2024-05-17 20:30:45Z" {
		t.Errorf("Expected stored created_at '2024-05-17 20:30:45Z', got %q", raw)
	}
}

func TestInsertAudio_RoundTripLocalSubSecond(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	zone := time.FixedZone("CET", 60*60)
	rec := newRecord("bruh", "meme", "/clips/bruh.mp3")
	rec.CreatedAt = domain.Timestamp{Time: time.Date(2024, 1, 2, 3, 4, 5, 678, zone)}
	mustInsert(t, db, rec)

	got, err := db.FindAudio(ctx, domain.ByID(rec.ID))
	if err != nil {
		t.Fatalf("FindAudio failed: %v", err)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt.Time) {
		t.Errorf("Expected created_at %v, got %v", rec.CreatedAt.Time, got.CreatedAt.Time)
	}
	if rec.CreatedAt.Location() != time.UTC || rec.CreatedAt.Nanosecond() != 0 {
		t.Errorf("Expected inserted created_at in UTC without sub-seconds, got %v", rec.CreatedAt.Time)
	}
	want := time.Date(2024, 1, 2, 2, 4, 5, 0, time.UTC)
	if !got.CreatedAt.Equal(want) {
		t.Errorf("Expected created_at %v, got %v", want, got.CreatedAt.Time)
	}
}

func TestInsertAudio_NullAuthor(t *testing.T) {
	db := setupTestDB(t)
	rec := mustInsert(t, db, newRecord("anon", "", "/clips/anon.mp3"))

	got, err := db.FindAudio(context.Background(), domain.ByName("anon"))
	if err != nil {
		t.Fatalf("FindAudio failed: %v", err)
	}
	if got.ID != rec.ID {
		t.Errorf("Expected ID %d, got %d", rec.ID, got.ID)
	}
	if got.AuthorID != nil || got.AuthorName != nil || got.AuthorGlobalName != nil {
		t.Errorf("Expected NULL author columns, got %v %v %v", got.AuthorID, got.AuthorName, got.AuthorGlobalName)
	}
}

func TestInsertAudio_Duplicates(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mustInsert(t, db, newRecord("airhorn", "loud", "/clips/airhorn.mp3"))

	tests := []struct {
		name   string
		rec    *domain.AudioRecord
		column string
	}{
		{"same name", newRecord("airhorn", "other", "/clips/airhorn2.mp3"), "name"},
		{"same path", newRecord("airhorn2", "other", "/clips/airhorn.mp3"), "audio_file_path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := db.InsertAudio(ctx, tt.rec)
			if !errors.Is(err, ErrDuplicate) {
				t.Fatalf("Expected ErrDuplicate, got %v", err)
			}
			var ce *ConstraintError
			if !errors.As(err, &ce) {
				t.Fatalf("Expected ConstraintError, got %T", err)
			}
			if ce.Column != tt.column {
				t.Errorf("Expected column %q, got %q", tt.column, ce.Column)
			}
			if tt.rec.ID != 0 {
				t.Errorf("Expected ID to stay 0 on failure, got %d", tt.rec.ID)
			}
		})
	}

	report, err := db.CheckIndex(ctx)
	if err != nil {
		t.Fatalf("CheckIndex failed: %v", err)
	}
	if !report.Consistent() || report.Records != 1 {
		t.Errorf("Expected 1 consistent record after failed inserts, got %+v", report)
	}
}

func TestInsertAudio_Invalid(t *testing.T) {
	db := setupTestDB(t)

	err := db.InsertAudio(context.Background(), newRecord("", "", "/clips/x.mp3"))
	if !errors.Is(err, domain.ErrInvalidRecord) {
		t.Errorf("Expected ErrInvalidRecord, got %v", err)
	}
}

func TestFindAudio(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	rec := mustInsert(t, db, newRecord("bruh", "moment", "/clips/bruh.mp3"))

	keys := []domain.UniqueKey{
		domain.ByID(rec.ID),
		domain.ByName("bruh"),
		domain.ByPath("/clips/bruh.mp3"),
	}
	for _, key := range keys {
		got, err := db.FindAudio(ctx, key)
		if err != nil {
			t.Errorf("FindAudio(%v) failed: %v", key, err)
			continue
		}
		if got.ID != rec.ID {
			t.Errorf("FindAudio(%v) returned ID %d, want %d", key, got.ID, rec.ID)
		}
	}

	if _, err := db.FindAudio(ctx, domain.ByName("nope")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if _, err := db.FindAudio(ctx, nil); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("Expected ErrInvalidQuery for nil key, got %v", err)
	}
}

func TestFindAudio_NoInjection(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	mustInsert(t, db, newRecord("bruh", "", "/clips/bruh.mp3"))

	_, err := db.FindAudio(ctx, domain.ByName("x' OR '1'='1"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for quoted input, got %v", err)
	}

	if err := db.DeleteAudioByPath(ctx, "x' OR '1'='1"); err != nil {
		t.Fatalf("DeleteAudioByPath failed: %v", err)
	}
	n, _ := db.CountAudio(ctx)
	if n != 1 {
		t.Errorf("Expected record to survive quoted delete, got count %d", n)
	}

	quoted := mustInsert(t, db, newRecord("it's", "", "/clips/it's.mp3"))
	got, err := db.FindAudio(ctx, domain.ByPath("/clips/it's.mp3"))
	if err != nil {
		t.Fatalf("FindAudio with apostrophe failed: %v", err)
	}
	if got.ID != quoted.ID {
		t.Errorf("Expected ID %d, got %d", quoted.ID, got.ID)
	}
}

func TestFindAudio_StorageError(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	if err := db.DropSchema(ctx); err != nil {
		t.Fatalf("DropSchema failed: %v", err)
	}

	_, err := db.FindAudio(ctx, domain.ByID(1))
	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("Expected StorageError, got %v", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("Storage failure must not look like ErrNotFound")
	}

	if _, err := db.AudioExists(ctx, "/clips/a.mp3"); !errors.As(err, &se) {
		t.Errorf("Expected StorageError from AudioExists, got %v", err)
	}
}

func TestAudioExists(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	path := "/clips/airhorn.mp3"

	exists, err := db.AudioExists(ctx, path)
	if err != nil {
		t.Fatalf("AudioExists failed: %v", err)
	}
	if exists {
		t.Error("Expected path to be absent before insert")
	}

	mustInsert(t, db, newRecord("airhorn", "", path))
	exists, err = db.AudioExists(ctx, path)
	if err != nil {
		t.Fatalf("AudioExists failed: %v", err)
	}
	if !exists {
		t.Error("Expected path to exist after insert")
	}

	if err := db.DeleteAudioByPath(ctx, path); err != nil {
		t.Fatalf("DeleteAudioByPath failed: %v", err)
	}
	exists, err = db.AudioExists(ctx, path)
	if err != nil {
		t.Fatalf("AudioExists failed: %v", err)
	}
	if exists {
		t.Error("Expected path to be absent after delete")
	}
}

func TestDeleteAudioByPath_Missing(t *testing.T) {
	db := setupTestDB(t)
	if err := db.DeleteAudioByPath(context.Background(), "/clips/none.mp3"); err != nil {
		t.Errorf("Expected no error deleting a missing path, got %v", err)
	}
}

func TestSearchAudio(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	trap := mustInsert(t, db, newRecord("It's a trap!", "admiral ackbar", "/clips/a1b2.mp3"))
	mustInsert(t, db, newRecord("airhorn", "loud horn", "/clips/airhorn.mp3"))

	tests := []struct {
		query string
		want  int64
	}{
		{"its a trap", trap.ID},
		{"it's", trap.ID},
		{"TRAP", trap.ID},
		{"ackb", trap.ID},
		{"a1b2", trap.ID},
		{"clips a1b2.mp3", trap.ID},
	}
	for _, tt := range tests {
		recs, err := db.SearchAudio(ctx, tt.query, 5)
		if err != nil {
			t.Fatalf("SearchAudio(%q) failed: %v", tt.query, err)
		}
		if len(recs) != 1 || recs[0].ID != tt.want {
			t.Errorf("SearchAudio(%q) = %v, want record %d", tt.query, recs, tt.want)
		}
	}

	recs, err := db.SearchAudio(ctx, "horn", 5)
	if err != nil {
		t.Fatalf("SearchAudio failed: %v", err)
	}
	if len(recs) != 1 || recs[0].Name != "airhorn" {
		t.Errorf("Expected airhorn for 'horn', got %v", recs)
	}

	recs, err = db.SearchAudio(ctx, "?!?", 5)
	if err != nil {
		t.Fatalf("SearchAudio with empty normalized query failed: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("Expected no results for empty query, got %v", recs)
	}

	recs, err = db.SearchAudio(ctx, `NOT "OR AND`, 5)
	if err != nil {
		t.Fatalf("SearchAudio with FTS operators failed: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("Expected no results, got %v", recs)
	}

	if err := db.DeleteAudioByPath(ctx, trap.AudioFilePath); err != nil {
		t.Fatalf("DeleteAudioByPath failed: %v", err)
	}
	recs, err = db.SearchAudio(ctx, "its a trap", 5)
	if err != nil {
		t.Fatalf("SearchAudio failed: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("Expected no results after delete, got %v", recs)
	}
}

func TestSearchAudio_Limit(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	for i := 0; i < 8; i++ {
		mustInsert(t, db, newRecord(fmt.Sprintf("horn %d", i), "horn", fmt.Sprintf("/clips/horn%d.mp3", i)))
	}

	recs, err := db.SearchAudio(ctx, "horn", 5)
	if err != nil {
		t.Fatalf("SearchAudio failed: %v", err)
	}
	if len(recs) != 5 {
		t.Errorf("Expected 5 results, got %d", len(recs))
	}

	if _, err := db.SearchAudio(ctx, "horn", 0); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("Expected ErrInvalidQuery for zero limit, got %v", err)
	}
}

func TestRecentAudio(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 7; i++ {
		rec := newRecord(fmt.Sprintf("clip%d", i), "", fmt.Sprintf("/clips/%d.mp3", i))
		rec.CreatedAt = domain.NewTimestamp(base.Add(time.Duration(i) * time.Hour))
		mustInsert(t, db, rec)
	}

	recs, err := db.RecentAudio(ctx, 5)
	if err != nil {
		t.Fatalf("RecentAudio failed: %v", err)
	}
	if len(recs) != 5 {
		t.Fatalf("Expected 5 records, got %d", len(recs))
	}
	for i, rec := range recs {
		want := fmt.Sprintf("clip%d", 6-i)
		if rec.Name != want {
			t.Errorf("recs[%d] = %s, want %s", i, rec.Name, want)
		}
	}
}

func TestUpdateAudio_RefreshesIndex(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	rec := mustInsert(t, db, newRecord("old name", "ancient", "/clips/old.mp3"))
	created := rec.CreatedAt

	rec.Name = "new name"
	rec.Tags = "shiny"
	rec.CreatedAt = domain.NewTimestamp(time.Now().Add(48 * time.Hour))
	if err := db.UpdateAudio(ctx, rec); err != nil {
		t.Fatalf("UpdateAudio failed: %v", err)
	}

	got, err := db.FindAudio(ctx, domain.ByID(rec.ID))
	if err != nil {
		t.Fatalf("FindAudio failed: %v", err)
	}
	if got.Name != "new name" || got.Tags != "shiny" {
		t.Errorf("Expected updated columns, got %+v", got)
	}
	if !got.CreatedAt.Equal(created.Time) {
		t.Errorf("Expected created_at to stay %v, got %v", created, got.CreatedAt)
	}

	if recs, _ := db.SearchAudio(ctx, "ancient", 5); len(recs) != 0 {
		t.Errorf("Expected stale tags to be gone from index, got %v", recs)
	}
	if recs, _ := db.SearchAudio(ctx, "shiny", 5); len(recs) != 1 {
		t.Errorf("Expected new tags in index, got %v", recs)
	}

	report, err := db.CheckIndex(ctx)
	if err != nil {
		t.Fatalf("CheckIndex failed: %v", err)
	}
	if !report.Consistent() {
		t.Errorf("Expected consistent index, got %+v", report)
	}
}

func TestUpdateAudio_Errors(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mustInsert(t, db, newRecord("one", "", "/clips/one.mp3"))
	two := mustInsert(t, db, newRecord("two", "", "/clips/two.mp3"))

	two.Name = "one"
	if err := db.UpdateAudio(ctx, two); !errors.Is(err, ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate renaming onto existing name, got %v", err)
	}
	if recs, _ := db.SearchAudio(ctx, "two", 5); len(recs) != 1 {
		t.Errorf("Expected failed update to leave index untouched, got %v", recs)
	}

	missing := newRecord("ghost", "", "/clips/ghost.mp3")
	missing.ID = 999
	if err := db.UpdateAudio(ctx, missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if err := db.UpdateAudio(ctx, newRecord("noid", "", "/clips/noid.mp3")); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("Expected ErrInvalidQuery without id, got %v", err)
	}
}

func TestCheckIndexAndReindex(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	a := mustInsert(t, db, newRecord("alpha", "first", "/clips/alpha.mp3"))
	b := mustInsert(t, db, newRecord("beta", "second", "/clips/beta.mp3"))
	c := mustInsert(t, db, newRecord("gamma", "third", "/clips/gamma.mp3"))

	// writes made behind the store's back
	if _, err := db.Exec(`UPDATE audio SET tags = 'changed' WHERE id = ?`, a.ID); err != nil {
		t.Fatalf("direct update failed: %v", err)
	}
	if _, err := db.Exec(`DELETE FROM audio_fts WHERE rowid = ?`, b.ID); err != nil {
		t.Fatalf("direct index delete failed: %v", err)
	}
	if _, err := db.Exec(`DELETE FROM audio WHERE id = ?`, c.ID); err != nil {
		t.Fatalf("direct delete failed: %v", err)
	}

	report, err := db.CheckIndex(ctx)
	if err != nil {
		t.Fatalf("CheckIndex failed: %v", err)
	}
	if report.Consistent() {
		t.Fatal("Expected inconsistent index")
	}
	if len(report.Stale) != 1 || report.Stale[0] != a.ID {
		t.Errorf("Expected stale [%d], got %v", a.ID, report.Stale)
	}
	if len(report.Missing) != 1 || report.Missing[0] != b.ID {
		t.Errorf("Expected missing [%d], got %v", b.ID, report.Missing)
	}
	if len(report.Orphans) != 1 || report.Orphans[0] != c.ID {
		t.Errorf("Expected orphans [%d], got %v", c.ID, report.Orphans)
	}

	n, err := db.Reindex(ctx)
	if err != nil {
		t.Fatalf("Reindex failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 entries reindexed, got %d", n)
	}

	report, err = db.CheckIndex(ctx)
	if err != nil {
		t.Fatalf("CheckIndex failed: %v", err)
	}
	if !report.Consistent() {
		t.Errorf("Expected consistent index after reindex, got %+v", report)
	}
	if recs, _ := db.SearchAudio(ctx, "changed", 5); len(recs) != 1 || recs[0].ID != a.ID {
		t.Errorf("Expected reindexed tags to be searchable, got %v", recs)
	}
}

func TestConstraintColumn(t *testing.T) {
	tests := []struct {
		msg  string
		want string
	}{
		{"constraint failed: UNIQUE constraint failed: audio.name (2067)", "name"},
		{"UNIQUE constraint failed: audio.audio_file_path", "audio_file_path"},
		{"UNIQUE constraint failed: t.a, t.b", "a, b"},
		{"something else", "unknown"},
	}
	for _, tt := range tests {
		if got := constraintColumn(tt.msg); got != tt.want {
			t.Errorf("constraintColumn(%q) = %q, want %q", tt.msg, got, tt.want)
		}
	}
}

func TestSQLiteDSN(t *testing.T) {
	if got := sqliteDSN("a.db"); got != "a.db?_pragma=busy_timeout(30000)&_pragma=journal_mode(WAL)" {
		t.Errorf("Unexpected DSN %q", got)
	}
	if got := sqliteDSN("file:a.db?cache=shared"); got != "file:a.db?cache=shared&_pragma=busy_timeout(30000)&_pragma=journal_mode(WAL)" {
		t.Errorf("Unexpected DSN %q", got)
	}
}
