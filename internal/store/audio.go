package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/krywicki/discord-sounboard-bot/internal/domain"
	"github.com/krywicki/discord-sounboard-bot/internal/textnorm"
)

const (
	audioColumns = `id, name, tags, audio_file_path, created_at, author_id, author_name, author_global_name`

	selectAudio = `SELECT ` + audioColumns + ` FROM audio`
)

// InsertAudio stores rec and its index entry in one transaction and sets
// rec.ID on success. A duplicate name or path yields a *ConstraintError.
func (db *DB) InsertAudio(ctx context.Context, rec *domain.AudioRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = domain.NewTimestamp(time.Now())
	} else {
		// stored as UTC with second precision; keep rec equal to what Find returns
		rec.CreatedAt = domain.NewTimestamp(rec.CreatedAt.Time)
	}

	db.log.Info("Inserting audio row", "name", rec.Name, "file", rec.AudioFilePath)

	query := `INSERT INTO audio (
		name, tags, audio_file_path, created_at, author_id, author_name, author_global_name
	) VALUES (
		:name, :tags, :audio_file_path, :created_at, :author_id, :author_name, :author_global_name
	)`

	var id int64
	err := db.RunInTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.NamedExecContext(ctx, query, rec)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read inserted id: %w", err)
		}

		row := *rec
		row.ID = id
		return indexAdd(ctx, tx, &row)
	})
	if err != nil {
		db.log.Error("Failed to insert audio row", "name", rec.Name, "error", err)
		return classify("insert audio", err)
	}

	rec.ID = id
	return nil
}

// FindAudio resolves key to at most one record. It returns ErrNotFound when
// nothing matches and a *StorageError when the query itself failed.
func (db *DB) FindAudio(ctx context.Context, key domain.UniqueKey) (*domain.AudioRecord, error) {
	predicate, arg, err := keyPredicate(key)
	if err != nil {
		return nil, err
	}

	var rec domain.AudioRecord
	err = db.GetContext(ctx, &rec, selectAudio+` WHERE `+predicate, arg)
	if errors.Is(err, sql.ErrNoRows) {
		db.log.Debug("Audio row not found", "key", key.String())
		return nil, ErrNotFound
	}
	if err != nil {
		db.log.Error("Failed to find audio row", "key", key.String(), "error", err)
		return nil, &StorageError{Op: "find audio", Err: err}
	}
	return &rec, nil
}

// keyPredicate maps each UniqueKey variant to its fixed, parameterized
// predicate.
func keyPredicate(key domain.UniqueKey) (string, any, error) {
	switch k := key.(type) {
	case domain.ByID:
		return `id = ?`, int64(k), nil
	case domain.ByName:
		return `name = ?`, string(k), nil
	case domain.ByPath:
		return `audio_file_path = ?`, string(k), nil
	default:
		return "", nil, fmt.Errorf("%w: unsupported key %T", ErrInvalidQuery, key)
	}
}

// AudioExists reports whether a record with the given audio_file_path exists.
// Absence is not an error; only a failed query is.
func (db *DB) AudioExists(ctx context.Context, audioFilePath string) (bool, error) {
	db.log.Debug("Checking for existence of audio file", "file", audioFilePath)

	var exists bool
	err := db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM audio WHERE audio_file_path = ?)`, audioFilePath)
	if err != nil {
		db.log.Error("Failed existence query on audio table", "file", audioFilePath, "error", err)
		return false, &StorageError{Op: "audio exists", Err: err}
	}

	if exists {
		db.log.Debug("Audio table contains audio file", "file", audioFilePath)
	} else {
		db.log.Debug("Audio table does not contain audio file", "file", audioFilePath)
	}
	return exists, nil
}

// DeleteAudioByPath removes the record with audioFilePath and its index
// entry. A path with no record is not an error.
func (db *DB) DeleteAudioByPath(ctx context.Context, audioFilePath string) error {
	var deleted bool
	err := db.RunInTx(ctx, func(tx *sqlx.Tx) error {
		var id int64
		err := tx.QueryRowxContext(ctx, `DELETE FROM audio WHERE audio_file_path = ? RETURNING id`, audioFilePath).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		deleted = true
		return indexRemove(ctx, tx, id)
	})
	if err != nil {
		db.log.Error("Failed to delete audio row", "file", audioFilePath, "error", err)
		return &StorageError{Op: "delete audio", Err: err}
	}

	if deleted {
		db.log.Info("Deleted audio row", "file", audioFilePath)
	} else {
		db.log.Debug("No audio row to delete", "file", audioFilePath)
	}
	return nil
}

// UpdateAudio rewrites the mutable columns of the record with rec.ID and
// refreshes its index entry in the same transaction. created_at is never
// changed.
func (db *DB) UpdateAudio(ctx context.Context, rec *domain.AudioRecord) error {
	if rec.ID <= 0 {
		return fmt.Errorf("%w: update needs a record id", ErrInvalidQuery)
	}
	if err := rec.Validate(); err != nil {
		return err
	}

	query := `UPDATE audio SET
		name = :name, tags = :tags, audio_file_path = :audio_file_path,
		author_id = :author_id, author_name = :author_name, author_global_name = :author_global_name
	WHERE id = :id`

	err := db.RunInTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.NamedExecContext(ctx, query, rec)
		if err != nil {
			return err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrNotFound
		}
		return indexReplace(ctx, tx, rec)
	})
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		db.log.Error("Failed to update audio row", "id", rec.ID, "error", err)
		return classify("update audio", err)
	}
	return nil
}

// RecentAudio lists up to limit records, newest first.
func (db *DB) RecentAudio(ctx context.Context, limit int) ([]domain.AudioRecord, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrInvalidQuery)
	}
	recs, err := selectAudioRows(ctx, db, selectAudio+` ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, &StorageError{Op: "recent audio", Err: err}
	}
	return recs, nil
}

// SearchAudio normalizes text and matches it against the index, best match
// first. Text without searchable terms matches nothing.
func (db *DB) SearchAudio(ctx context.Context, text string, limit int) ([]domain.AudioRecord, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrInvalidQuery)
	}
	match := textnorm.MatchQuery(text)
	if match == "" {
		return nil, nil
	}

	query := `SELECT a.id, a.name, a.tags, a.audio_file_path, a.created_at,
		a.author_id, a.author_name, a.author_global_name
	FROM audio_fts
	JOIN audio a ON a.id = audio_fts.rowid
	WHERE audio_fts MATCH ?
	ORDER BY bm25(audio_fts), a.id
	LIMIT ?`

	recs, err := selectAudioRows(ctx, db, query, match, limit)
	if err != nil {
		db.log.Error("Audio search failed", "query", match, "error", err)
		return nil, &StorageError{Op: "search audio", Err: err}
	}
	return recs, nil
}

// CountAudio returns the number of records in the catalog.
func (db *DB) CountAudio(ctx context.Context) (int, error) {
	var n int
	if err := db.GetContext(ctx, &n, `SELECT COUNT(*) FROM audio`); err != nil {
		return 0, &StorageError{Op: "count audio", Err: err}
	}
	return n, nil
}

func selectAudioRows(ctx context.Context, q sqlx.QueryerContext, query string, args ...interface{}) ([]domain.AudioRecord, error) {
	var recs []domain.AudioRecord
	err := sqlx.SelectContext(ctx, q, &recs, query, args...)
	return recs, err
}
