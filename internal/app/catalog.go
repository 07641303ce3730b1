package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/krywicki/discord-sounboard-bot/internal/constants"
	"github.com/krywicki/discord-sounboard-bot/internal/domain"
	"github.com/krywicki/discord-sounboard-bot/internal/logger"
	"github.com/krywicki/discord-sounboard-bot/internal/storage"
	"github.com/krywicki/discord-sounboard-bot/internal/store"
)

// ErrClipExists is returned by AddClip when the target audio file is
// already in the catalog.
var ErrClipExists = errors.New("audio file already in catalog")

// CatalogService is the entry point for bot commands, the HTTP API and the
// importer. It owns the audio directory and decides how storage failures are
// presented to users.
type CatalogService struct {
	Repo        *store.DB
	AudioDir    string
	SearchLimit int
	PageSize    int
	log         *logger.Logger
}

func NewCatalogService(repo *store.DB, audioDir string, log *logger.Logger) *CatalogService {
	if log == nil {
		log = logger.Default()
	}
	return &CatalogService{
		Repo:        repo,
		AudioDir:    audioDir,
		SearchLimit: constants.DefaultSearchLimit,
		PageSize:    constants.DefaultPageSize,
		log:         log.WithComponent("catalog"),
	}
}

// AddClipRequest describes a clip to register.
type AddClipRequest struct {
	SourcePath string
	Name       string
	Tags       string
	Author     *domain.Author
}

// AddClip registers an audio file. Files already inside AudioDir are
// registered in place; anything else is copied in under a uuid name. The
// existence check runs before any file is copied, and a copied file is
// removed again if the insert fails. Copies always get a fresh path, so a
// repeated upload of the same source is only rejected by the unique name.
func (s *CatalogService) AddClip(ctx context.Context, req AddClipRequest) (*domain.AudioRecord, error) {
	src, err := filepath.Abs(req.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", req.SourcePath, err)
	}
	ext := strings.ToLower(filepath.Ext(src))
	if ext != constants.ExtMP3 && ext != constants.ExtFLAC {
		return nil, fmt.Errorf("unsupported audio format: %q", ext)
	}

	inPlace := storage.Within(s.AudioDir, src)
	dest := src
	if !inPlace {
		audioDir, err := filepath.Abs(s.AudioDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve audio dir: %w", err)
		}
		dest = filepath.Join(audioDir, storage.UniqueFileName(ext))
	}

	exists, err := s.Repo.AudioExists(ctx, dest)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrClipExists, dest)
	}

	rec := domain.NewAudioRecord(req.Name, req.Tags, dest, req.Author)
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	if !inPlace {
		if err := storage.CopyFile(src, dest); err != nil {
			return nil, fmt.Errorf("failed to store audio file: %w", err)
		}
	}

	if err := s.Repo.InsertAudio(ctx, rec); err != nil {
		if !inPlace {
			if rmErr := storage.RemoveFile(dest); rmErr != nil {
				s.log.Warn("Failed to clean up audio file", "file", dest, "error", rmErr)
			}
		}
		return nil, err
	}

	s.log.WithClip(rec.ID, rec.Name).Info("Added clip", "file", rec.AudioFilePath)
	return rec, nil
}

// RemoveClip deletes the clip's record and then its audio file. A file that
// is already gone is not an error.
func (s *CatalogService) RemoveClip(ctx context.Context, key domain.UniqueKey) (*domain.AudioRecord, error) {
	rec, err := s.Repo.FindAudio(ctx, key)
	if err != nil {
		return nil, err
	}

	if err := s.Repo.DeleteAudioByPath(ctx, rec.AudioFilePath); err != nil {
		return nil, err
	}

	if err := storage.RemoveFile(rec.AudioFilePath); err != nil && !storage.IsNotExist(err) {
		s.log.Warn("Failed to delete audio file", "file", rec.AudioFilePath, "error", err)
	}

	s.log.WithClip(rec.ID, rec.Name).Info("Removed clip")
	return rec, nil
}

// Lookup returns the clip for key or nil. Users only ever see "not found":
// a missing row and a failed query both yield nil, but they are logged at
// different levels so operators can tell them apart.
func (s *CatalogService) Lookup(ctx context.Context, key domain.UniqueKey) *domain.AudioRecord {
	rec, err := s.Repo.FindAudio(ctx, key)
	switch {
	case err == nil:
		return rec
	case errors.Is(err, store.ErrNotFound):
		s.log.Info("Audio track not found", "key", key.String())
	default:
		s.log.Error("Audio track lookup failed", "key", key.String(), "error", err)
	}
	return nil
}

// Search runs a normalized full-text match. A limit below 1 uses SearchLimit.
func (s *CatalogService) Search(ctx context.Context, text string, limit int) ([]domain.AudioRecord, error) {
	if limit < 1 {
		limit = s.SearchLimit
	}
	return s.Repo.SearchAudio(ctx, text, limit)
}

// Autocomplete suggests clip names for a partially typed name. Short
// partials list the most recent clips; longer ones search the index.
// Failures are logged and produce no suggestions.
func (s *CatalogService) Autocomplete(ctx context.Context, partial string) []string {
	partial = strings.TrimSpace(partial)

	var (
		recs []domain.AudioRecord
		err  error
	)
	if utf8.RuneCountInString(partial) < constants.MinSearchChars {
		s.log.Debug("Low character autocomplete", "partial", partial)
		recs, err = s.Repo.RecentAudio(ctx, s.SearchLimit)
	} else {
		s.log.Debug("Autocomplete search", "partial", partial)
		recs, err = s.Repo.SearchAudio(ctx, partial, s.SearchLimit)
	}
	if err != nil {
		s.log.Error("Autocomplete query failed", "partial", partial, "error", err)
		return []string{}
	}

	names := make([]string, 0, len(recs))
	for _, rec := range recs {
		names = append(names, rec.Name)
	}
	return names
}

// AutocompleteOptional is Autocomplete with a leading NONE choice, for
// command arguments that may be left unset.
func (s *CatalogService) AutocompleteOptional(ctx context.Context, partial string) []string {
	return append([]string{constants.NoneChoice}, s.Autocomplete(ctx, partial)...)
}

// UpdateClip changes the name and/or tags of a clip in one write. Nil
// arguments keep the current value.
func (s *CatalogService) UpdateClip(ctx context.Context, key domain.UniqueKey, name, tags *string) (*domain.AudioRecord, error) {
	rec, err := s.Repo.FindAudio(ctx, key)
	if err != nil {
		return nil, err
	}
	if name != nil {
		rec.Name = strings.TrimSpace(*name)
	}
	if tags != nil {
		rec.Tags = *tags
	}
	if err := s.Repo.UpdateAudio(ctx, rec); err != nil {
		return nil, err
	}
	s.log.WithClip(rec.ID, rec.Name).Info("Updated clip")
	return rec, nil
}

// Retag replaces the tags of a clip and refreshes its index entry.
func (s *CatalogService) Retag(ctx context.Context, key domain.UniqueKey, tags string) (*domain.AudioRecord, error) {
	return s.UpdateClip(ctx, key, nil, &tags)
}

// Rename changes the display name of a clip.
func (s *CatalogService) Rename(ctx context.Context, key domain.UniqueKey, name string) (*domain.AudioRecord, error) {
	return s.UpdateClip(ctx, key, &name, nil)
}

// Export walks the whole catalog in order, handing each page to fn. It
// returns the number of records visited. Unlike the bare cursor, a failed
// page is reported to the caller.
func (s *CatalogService) Export(ctx context.Context, order domain.OrderBy, fn func(page []domain.AudioRecord) error) (int, error) {
	p, err := s.Repo.Paginator().OrderBy(order).PageSize(s.PageSize).Build()
	if err != nil {
		return 0, err
	}

	var total int
	for page := range p.Pages(ctx) {
		if err := fn(page); err != nil {
			return total, err
		}
		total += len(page)
	}
	if err := p.Err(); err != nil {
		return total, err
	}
	return total, nil
}

// Count returns the number of clips in the catalog.
func (s *CatalogService) Count(ctx context.Context) (int, error) {
	return s.Repo.CountAudio(ctx)
}

// CheckIndex reports drift between the catalog and its search index.
func (s *CatalogService) CheckIndex(ctx context.Context) (store.IndexReport, error) {
	return s.Repo.CheckIndex(ctx)
}

// Reindex rebuilds the search index from the catalog.
func (s *CatalogService) Reindex(ctx context.Context) (int, error) {
	return s.Repo.Reindex(ctx)
}
