package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/krywicki/discord-sounboard-bot/internal/app"
	"github.com/krywicki/discord-sounboard-bot/internal/config"
	"github.com/krywicki/discord-sounboard-bot/internal/logger"
	"github.com/krywicki/discord-sounboard-bot/internal/store"
)

var (
	dbPath   string
	audioDir string
	jsonOut  bool
)

var rootCmd = &cobra.Command{
	Use:           "soundboard",
	Short:         "Manage the soundboard clip catalog",
	Long:          `Search, import and maintain the audio clip catalog backing the soundboard bot.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// env bundles what every command needs. close must be called when done.
type env struct {
	cfg     *config.Config
	log     *logger.Logger
	db      *store.DB
	catalog *app.CatalogService
}

func (e *env) close() {
	if err := e.db.Close(); err != nil {
		e.log.Warn("Failed to close db", "error", err)
	}
}

func setup(cmd *cobra.Command) (*env, error) {
	cfg := config.Load()
	if cmd.Flags().Changed("db") {
		cfg.DBPath = dbPath
	}
	if cmd.Flags().Changed("audio-dir") {
		cfg.AudioDir = audioDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: os.Stderr,
	})

	db, err := store.NewSQLiteDB(cfg.DBPath, store.Options{PoolSize: cfg.PoolSize, Logger: log})
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	catalog := app.NewCatalogService(db, cfg.AudioDir, log)
	catalog.SearchLimit = cfg.SearchLimit
	catalog.PageSize = cfg.PageSize

	return &env{cfg: cfg, log: log, db: db, catalog: catalog}, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the catalog database (overrides DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&audioDir, "audio-dir", "", "Directory clips are stored in (overrides AUDIO_DIR)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output as JSON")

	rootCmd.AddCommand(
		serveCmd,
		importCmd,
		addCmd,
		rmCmd,
		findCmd,
		searchCmd,
		completeCmd,
		retagCmd,
		exportCmd,
		reindexCmd,
		checkCmd,
		dropCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
