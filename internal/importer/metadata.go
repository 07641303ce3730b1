package importer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"

	"github.com/krywicki/discord-sounboard-bot/internal/constants"
	"github.com/krywicki/discord-sounboard-bot/internal/storage"
)

// Metadata is the subset of embedded tags used to name and tag a clip.
type Metadata struct {
	Title  string
	Artist string
	Album  string
	Genre  string
}

var errUnsupportedFormat = errors.New("unsupported audio format")

// ReadMetadata reads embedded tags from an MP3 or FLAC file. A file without
// tags yields an empty Metadata.
func ReadMetadata(path string) (Metadata, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case constants.ExtMP3:
		return readMP3(path)
	case constants.ExtFLAC:
		return readFLAC(path)
	default:
		return Metadata{}, fmt.Errorf("%w: %s", errUnsupportedFormat, path)
	}
}

func readMP3(path string) (Metadata, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to open MP3 file: %w", err)
	}
	defer tag.Close()

	return Metadata{
		Title:  strings.TrimSpace(tag.Title()),
		Artist: strings.TrimSpace(tag.Artist()),
		Album:  strings.TrimSpace(tag.Album()),
		Genre:  strings.TrimSpace(tag.Genre()),
	}, nil
}

func readFLAC(path string) (Metadata, error) {
	file, err := os.Open(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to open FLAC file: %w", err)
	}
	defer file.Close()

	// metadata blocks only; the audio frames are never read
	f, err := flac.ParseMetadata(file)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to parse FLAC file: %w", err)
	}

	var md Metadata
	for _, block := range f.Meta {
		if block.Type != flac.VorbisComment {
			continue
		}
		cmt, err := flacvorbis.ParseFromMetaDataBlock(*block)
		if err != nil {
			return Metadata{}, fmt.Errorf("failed to parse vorbis comment: %w", err)
		}
		md.Title = firstField(cmt, flacvorbis.FIELD_TITLE)
		md.Artist = firstField(cmt, flacvorbis.FIELD_ARTIST)
		md.Album = firstField(cmt, flacvorbis.FIELD_ALBUM)
		md.Genre = firstField(cmt, flacvorbis.FIELD_GENRE)
		break
	}
	return md, nil
}

func firstField(cmt *flacvorbis.MetaDataBlockVorbisComment, field string) string {
	values, err := cmt.Get(field)
	if err != nil || len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

// clipName picks the display name: the title tag when present, otherwise the
// file name without its extension.
func clipName(md Metadata, path string) string {
	name := md.Title
	if name == "" {
		name = fileStem(path)
	}
	return truncate(strings.TrimSpace(name), constants.MaxNameLen)
}

// clipTags joins every non-empty tag with the file stem so a clip is
// searchable by any of them.
func clipTags(md Metadata, path string) string {
	stem := fileStem(path)
	var parts []string
	for _, v := range []string{md.Title, md.Artist, md.Album, md.Genre, stem} {
		if v != "" && !containsFold(parts, v) {
			parts = append(parts, v)
		}
	}
	return truncate(strings.Join(parts, ", "), constants.MaxTagsLen)
}

// fileStem is the base name without extension, stripped of characters that
// are not allowed in file names.
func fileStem(path string) string {
	return storage.Sanitize(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max]))
}
