package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/krywicki/discord-sounboard-bot/internal/constants"
)

// ErrInvalidRecord is returned when a record breaks a column constraint that
// SQLite itself does not enforce (lengths, blank values).
var ErrInvalidRecord = errors.New("invalid audio record")

// AudioRecord is one clip in the catalog. ID is assigned by the store on
// insert and never changes afterwards.
type AudioRecord struct {
	ID               int64     `json:"id" db:"id"`
	Name             string    `json:"name" db:"name"`
	Tags             string    `json:"tags" db:"tags"`
	AudioFilePath    string    `json:"audio_file_path" db:"audio_file_path"`
	CreatedAt        Timestamp `json:"created_at" db:"created_at"`
	AuthorID         *int64    `json:"author_id,omitempty" db:"author_id"`
	AuthorName       *string   `json:"author_name,omitempty" db:"author_name"`
	AuthorGlobalName *string   `json:"author_global_name,omitempty" db:"author_global_name"`
}

// Author identifies the user who uploaded a clip.
type Author struct {
	ID         int64
	Name       string
	GlobalName string
}

// NewAudioRecord builds a record stamped with the current UTC time.
func NewAudioRecord(name, tags, audioFilePath string, author *Author) *AudioRecord {
	rec := &AudioRecord{
		Name:          strings.TrimSpace(name),
		Tags:          tags,
		AudioFilePath: audioFilePath,
		CreatedAt:     NewTimestamp(time.Now()),
	}
	if author != nil {
		rec.SetAuthor(*author)
	}
	return rec
}

// SetAuthor fills the optional uploader columns. Empty names stay NULL.
func (r *AudioRecord) SetAuthor(a Author) {
	id := a.ID
	r.AuthorID = &id
	if a.Name != "" {
		name := a.Name
		r.AuthorName = &name
	}
	if a.GlobalName != "" {
		global := a.GlobalName
		r.AuthorGlobalName = &global
	}
}

// Validate checks the column limits of the audio table.
func (r *AudioRecord) Validate() error {
	var problems []string

	if strings.TrimSpace(r.Name) == "" {
		problems = append(problems, "name cannot be empty")
	} else if n := utf8.RuneCountInString(r.Name); n > constants.MaxNameLen {
		problems = append(problems, fmt.Sprintf("name exceeds %d chars (%d)", constants.MaxNameLen, n))
	}

	if n := utf8.RuneCountInString(r.Tags); n > constants.MaxTagsLen {
		problems = append(problems, fmt.Sprintf("tags exceed %d chars (%d)", constants.MaxTagsLen, n))
	}

	if strings.TrimSpace(r.AudioFilePath) == "" {
		problems = append(problems, "audio_file_path cannot be empty")
	} else if n := utf8.RuneCountInString(r.AudioFilePath); n > constants.MaxPathLen {
		problems = append(problems, fmt.Sprintf("audio_file_path exceeds %d chars (%d)", constants.MaxPathLen, n))
	}

	if r.AuthorName != nil && utf8.RuneCountInString(*r.AuthorName) > constants.MaxAuthorNameLen {
		problems = append(problems, fmt.Sprintf("author_name exceeds %d chars", constants.MaxAuthorNameLen))
	}
	if r.AuthorGlobalName != nil && utf8.RuneCountInString(*r.AuthorGlobalName) > constants.MaxAuthorNameLen {
		problems = append(problems, fmt.Sprintf("author_global_name exceeds %d chars", constants.MaxAuthorNameLen))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRecord, strings.Join(problems, "; "))
	}
	return nil
}

// OrderBy selects the column a catalog walk is sorted by.
type OrderBy int

const (
	OrderByID OrderBy = iota
	OrderByCreatedAt
	OrderByName
)

// Column returns the audio table column for o. Unknown values fall back to id.
func (o OrderBy) Column() string {
	switch o {
	case OrderByCreatedAt:
		return "created_at"
	case OrderByName:
		return "name"
	default:
		return "id"
	}
}

func (o OrderBy) String() string {
	return o.Column()
}

// ParseOrderBy accepts "id", "name", "created_at" (or "created"). Empty
// input means OrderByID.
func ParseOrderBy(s string) (OrderBy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "id":
		return OrderByID, nil
	case "created_at", "created":
		return OrderByCreatedAt, nil
	case "name":
		return OrderByName, nil
	default:
		return OrderByID, fmt.Errorf("unknown order %q: want id, name or created_at", s)
	}
}
