package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/krywicki/discord-sounboard-bot/internal/constants"
)

// Schema is the primary audio table plus its FTS5 shadow index. The index is
// a regular (not external-content) FTS5 table keyed by rowid = audio.id and
// holding normalized text, so it is maintained by the write path in index.go
// rather than by triggers.
const Schema = `
CREATE TABLE IF NOT EXISTS audio (
	id INTEGER PRIMARY KEY,
	name VARCHAR(50) NOT NULL UNIQUE,
	tags VARCHAR(2048) NOT NULL,
	audio_file_path VARCHAR(500) NOT NULL UNIQUE,
	created_at VARCHAR(25) NOT NULL,
	author_id INTEGER,
	author_name VARCHAR(256),
	author_global_name VARCHAR(256)
);

CREATE INDEX IF NOT EXISTS idx_audio_created_at ON audio(created_at);

CREATE VIRTUAL TABLE IF NOT EXISTS audio_fts USING fts5(
	name, tags, audio_file_path,
	tokenize = 'unicode61',
	prefix = '2 3'
);
`

// CreateSchema creates the audio table and its search index in a single
// transaction. It is idempotent.
func (db *DB) CreateSchema(ctx context.Context) error {
	db.log.Info("Creating tables", "table", constants.AudioTable, "index", constants.AudioFTSTable)

	err := db.RunInTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, Schema)
		return err
	})
	if err != nil {
		db.log.Error("Failed creating tables", "error", err)
		return &StorageError{Op: "create schema", Err: err}
	}

	db.log.Info("Created tables", "table", constants.AudioTable, "index", constants.AudioFTSTable)
	return nil
}

// DropSchema drops the search index and the audio table. Failures are logged
// and returned; callers are free to ignore them.
func (db *DB) DropSchema(ctx context.Context) error {
	var errs []error
	for _, table := range []string{constants.AudioFTSTable, constants.AudioTable} {
		if _, err := db.ExecContext(ctx, "DROP TABLE "+table); err != nil {
			db.log.Error("Error dropping table", "table", table, "error", err)
			errs = append(errs, fmt.Errorf("drop %s: %w", table, err))
			continue
		}
		db.log.Info("Dropped table", "table", table)
	}
	if len(errs) > 0 {
		return &StorageError{Op: "drop schema", Err: errors.Join(errs...)}
	}
	return nil
}
