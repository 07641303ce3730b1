package store

import (
	"context"
	"fmt"
	"iter"

	"github.com/krywicki/discord-sounboard-bot/internal/constants"
	"github.com/krywicki/discord-sounboard-bot/internal/domain"
)

// PaginatorBuilder configures a Paginator. Defaults are OrderByID and
// constants.DefaultPageSize.
type PaginatorBuilder struct {
	db       *DB
	orderBy  domain.OrderBy
	pageSize int
}

// Paginator walks the audio table one page at a time using LIMIT/OFFSET.
// It is forward-only and cannot be restarted. Each page reflects the table
// at the moment it is fetched, so concurrent writes may skip or repeat rows.
type Paginator struct {
	db       *DB
	orderBy  domain.OrderBy
	pageSize int
	offset   int
	err      error
}

func (db *DB) Paginator() *PaginatorBuilder {
	return &PaginatorBuilder{
		db:       db,
		orderBy:  domain.OrderByID,
		pageSize: constants.DefaultPageSize,
	}
}

func (b *PaginatorBuilder) OrderBy(o domain.OrderBy) *PaginatorBuilder {
	b.orderBy = o
	return b
}

func (b *PaginatorBuilder) PageSize(n int) *PaginatorBuilder {
	b.pageSize = n
	return b
}

func (b *PaginatorBuilder) Build() (*Paginator, error) {
	if b.pageSize < 1 {
		return nil, fmt.Errorf("%w: page size must be positive, got %d", ErrInvalidQuery, b.pageSize)
	}
	return &Paginator{
		db:       b.db,
		orderBy:  b.orderBy,
		pageSize: b.pageSize,
	}, nil
}

func (p *Paginator) query() string {
	order := p.orderBy.Column()
	if order != "id" {
		order += ", id"
	}
	return selectAudio + ` ORDER BY ` + order + ` LIMIT ? OFFSET ?`
}

// NextPage fetches up to the page size of records from the current offset,
// then advances the offset by the page size. An empty page means the walk
// is over.
func (p *Paginator) NextPage(ctx context.Context) ([]domain.AudioRecord, error) {
	page, err := selectAudioRows(ctx, p.db, p.query(), p.pageSize, p.offset)
	if err != nil {
		return nil, &StorageError{Op: "audio page", Err: err}
	}
	p.offset += p.pageSize
	return page, nil
}

// Pages yields non-empty pages until a page comes back empty or a query
// fails. A failure is logged and ends the sequence like end-of-data; Err
// reports it afterwards.
func (p *Paginator) Pages(ctx context.Context) iter.Seq[[]domain.AudioRecord] {
	return func(yield func([]domain.AudioRecord) bool) {
		for {
			page, err := p.NextPage(ctx)
			if err != nil {
				p.err = err
				p.db.log.Error("Audio table paginator error", "offset", p.offset, "error", err)
				return
			}
			if len(page) == 0 {
				return
			}
			if !yield(page) {
				return
			}
		}
	}
}

// Err returns the failure that ended Pages, if any.
func (p *Paginator) Err() error {
	return p.err
}

// Offset is the row offset of the next page.
func (p *Paginator) Offset() int {
	return p.offset
}
