package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/krywicki/discord-sounboard-bot/internal/domain"
	"github.com/krywicki/discord-sounboard-bot/internal/textnorm"
)

// IndexReport describes how far the search index has drifted from the audio
// table.
type IndexReport struct {
	Records int     `json:"records"`
	Entries int     `json:"entries"`
	Missing []int64 `json:"missing,omitempty"` // records without an index entry
	Orphans []int64 `json:"orphans,omitempty"` // index entries without a record
	Stale   []int64 `json:"stale,omitempty"`   // entries whose text no longer matches
}

func (r IndexReport) Consistent() bool {
	return len(r.Missing) == 0 && len(r.Orphans) == 0 && len(r.Stale) == 0 && r.Records == r.Entries
}

// CheckIndex compares every record with its index entry.
func (db *DB) CheckIndex(ctx context.Context) (IndexReport, error) {
	var report IndexReport

	records, err := db.CountAudio(ctx)
	if err != nil {
		return report, err
	}
	report.Records = records
	if err := db.GetContext(ctx, &report.Entries, `SELECT COUNT(*) FROM audio_fts`); err != nil {
		return report, &StorageError{Op: "check index", Err: err}
	}

	err = db.SelectContext(ctx, &report.Missing, `
		SELECT a.id FROM audio a
		WHERE NOT EXISTS (SELECT 1 FROM audio_fts f WHERE f.rowid = a.id)
		ORDER BY a.id`)
	if err != nil {
		return report, &StorageError{Op: "check index", Err: err}
	}

	err = db.SelectContext(ctx, &report.Orphans, `
		SELECT f.rowid FROM audio_fts f
		WHERE NOT EXISTS (SELECT 1 FROM audio a WHERE a.id = f.rowid)
		ORDER BY f.rowid`)
	if err != nil {
		return report, &StorageError{Op: "check index", Err: err}
	}

	type pair struct {
		ID        int64  `db:"id"`
		Name      string `db:"name"`
		Tags      string `db:"tags"`
		Path      string `db:"audio_file_path"`
		IndexName string `db:"index_name"`
		IndexTags string `db:"index_tags"`
		IndexPath string `db:"index_path"`
	}
	var pairs []pair
	err = db.SelectContext(ctx, &pairs, `
		SELECT a.id, a.name, a.tags, a.audio_file_path,
			f.name AS index_name, f.tags AS index_tags, f.audio_file_path AS index_path
		FROM audio a JOIN audio_fts f ON f.rowid = a.id
		ORDER BY a.id`)
	if err != nil {
		return report, &StorageError{Op: "check index", Err: err}
	}
	for _, p := range pairs {
		if textnorm.Normalize(p.Name) != p.IndexName ||
			textnorm.Normalize(p.Tags) != p.IndexTags ||
			textnorm.Normalize(p.Path) != p.IndexPath {
			report.Stale = append(report.Stale, p.ID)
		}
	}

	return report, nil
}

// Reindex rebuilds the search index from the audio table in one
// transaction. It repairs drift caused by writes made outside this package
// and returns the number of entries written.
func (db *DB) Reindex(ctx context.Context) (int, error) {
	var n int
	err := db.RunInTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM audio_fts`); err != nil {
			return err
		}

		var recs []domain.AudioRecord
		if err := tx.SelectContext(ctx, &recs, selectAudio+` ORDER BY id`); err != nil {
			return err
		}
		for i := range recs {
			if err := indexAdd(ctx, tx, &recs[i]); err != nil {
				return err
			}
		}
		n = len(recs)
		return nil
	})
	if err != nil {
		db.log.Error("Reindex failed", "error", err)
		return 0, &StorageError{Op: "reindex", Err: err}
	}

	db.log.Info("Rebuilt search index", "entries", n)
	return n, nil
}
