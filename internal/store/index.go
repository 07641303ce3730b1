package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/krywicki/discord-sounboard-bot/internal/domain"
	"github.com/krywicki/discord-sounboard-bot/internal/textnorm"
)

// The three index rules live here. Each runs on the caller's transaction so
// a primary-table write and its index effect commit or roll back together.

// indexAdd inserts the normalized index entry for rec (insert rule).
func indexAdd(ctx context.Context, tx *sqlx.Tx, rec *domain.AudioRecord) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO audio_fts (rowid, name, tags, audio_file_path) VALUES (?, ?, ?, ?)`,
		rec.ID,
		textnorm.Normalize(rec.Name),
		textnorm.Normalize(rec.Tags),
		textnorm.Normalize(rec.AudioFilePath),
	)
	return err
}

// indexRemove deletes the index entry for id (delete rule).
func indexRemove(ctx context.Context, tx *sqlx.Tx, id int64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM audio_fts WHERE rowid = ?`, id)
	return err
}

// indexReplace drops the stale entry and adds a fresh one (update rule).
func indexReplace(ctx context.Context, tx *sqlx.Tx, rec *domain.AudioRecord) error {
	if err := indexRemove(ctx, tx, rec.ID); err != nil {
		return err
	}
	return indexAdd(ctx, tx, rec)
}
