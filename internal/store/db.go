package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/krywicki/discord-sounboard-bot/internal/constants"
	"github.com/krywicki/discord-sounboard-bot/internal/logger"
)

// DB is the catalog handle. The embedded sqlx.DB is the connection pool;
// every operation checks a connection out for its own duration only.
type DB struct {
	*sqlx.DB
	log *logger.Logger
}

// Options tunes the pool and logging of a DB.
type Options struct {
	PoolSize int
	Logger   *logger.Logger
}

// NewSQLiteDB opens the database at path and applies the schema. A schema
// failure is returned as an error and the handle is closed.
func NewSQLiteDB(path string, opts Options) (*DB, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Default()
	}
	log = log.WithComponent("store")

	db, err := sqlx.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	poolSize := opts.PoolSize
	if poolSize < 1 {
		poolSize = constants.DefaultPoolSize
	}
	if isMemory(path) {
		// every connection to :memory: is a separate database
		poolSize = 1
	}
	db.SetMaxOpenConns(poolSize)
	db.SetMaxIdleConns(poolSize)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	store := &DB{DB: db, log: log}
	if err := store.CreateSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}

// sqliteDSN attaches per-connection pragmas so every pooled connection gets
// WAL mode and the busy timeout, not just the first one.
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", path, sep, constants.DefaultBusyTimeout)
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file::memory:") || strings.Contains(path, "mode=memory")
}
