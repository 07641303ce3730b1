package importer

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/krywicki/discord-sounboard-bot/internal/app"
	"github.com/krywicki/discord-sounboard-bot/internal/constants"
	"github.com/krywicki/discord-sounboard-bot/internal/domain"
	"github.com/krywicki/discord-sounboard-bot/internal/logger"
	"github.com/krywicki/discord-sounboard-bot/internal/store"
)

// Result counts what an import did.
type Result struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type Importer struct {
	// Workers bounds how many files are imported at once.
	Workers int

	catalog *app.CatalogService
	log     *logger.Logger
}

func New(catalog *app.CatalogService, log *logger.Logger) *Importer {
	if log == nil {
		log = logger.Default()
	}
	return &Importer{
		Workers: constants.DefaultPoolSize,
		catalog: catalog,
		log:     log.WithComponent("importer"),
	}
}

// ImportFile registers a single audio file, naming and tagging it from its
// embedded metadata. Unreadable metadata falls back to the file name.
func (im *Importer) ImportFile(ctx context.Context, path string, author *domain.Author) (*domain.AudioRecord, error) {
	md, err := ReadMetadata(path)
	if err != nil {
		if errors.Is(err, errUnsupportedFormat) {
			return nil, err
		}
		im.log.Warn("Failed to read metadata, using file name", "file", path, "error", err)
		md = Metadata{}
	}

	return im.catalog.AddClip(ctx, app.AddClipRequest{
		SourcePath: path,
		Name:       clipName(md, path),
		Tags:       clipTags(md, path),
		Author:     author,
	})
}

// ImportDir walks dir and imports every MP3 and FLAC file in it, at most
// Workers at a time. Files that are already cataloged or whose name is taken
// are skipped; other failures are logged and counted. Only a walk error or
// cancellation aborts.
func (im *Importer) ImportDir(ctx context.Context, dir string, author *domain.Author) (Result, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !d.IsDir() && isAudio(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	workers := im.Workers
	if workers < 1 {
		workers = 1
	}

	var (
		res Result
		mu  sync.Mutex
		wg  sync.WaitGroup
	)
	sem := make(chan struct{}, workers)

	for _, path := range paths {
		select {
		case <-ctx.Done():
			wg.Wait()
			return res, ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			defer func() { <-sem }()

			rec, err := im.ImportFile(ctx, path, author)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				res.Added++
				im.log.Debug("Imported clip", "file", path, "name", rec.Name)
			case errors.Is(err, app.ErrClipExists), errors.Is(err, store.ErrDuplicate):
				res.Skipped++
				im.log.Info("Skipped clip", "file", path, "reason", err)
			default:
				res.Failed++
				im.log.Error("Failed to import clip", "file", path, "error", err)
			}
		}(path)
	}
	wg.Wait()

	im.log.Info("Import finished", "dir", dir, "added", res.Added, "skipped", res.Skipped, "failed", res.Failed)
	return res, nil
}

func isAudio(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case constants.ExtMP3, constants.ExtFLAC:
		return true
	}
	return false
}
