// Package constants contains application-wide constants to avoid magic numbers and strings.
package constants

// Application defaults
const (
	DefaultPort        = "8080"
	DefaultDBPath      = "soundboard.db"
	DefaultAudioDir    = "audio"
	DefaultPoolSize    = 4
	DefaultPageSize    = 500
	DefaultSearchLimit = 5
	DefaultBusyTimeout = 30000 // milliseconds
)

// Database
const (
	AudioTable    = "audio"
	AudioFTSTable = "audio_fts"

	// TimestampLayout is the on-disk format of audio.created_at (%Y-%m-%d %H:%M:%SZ).
	TimestampLayout = "2006-01-02 15:04:05Z"
)

// Column limits of the audio table
const (
	MaxNameLen       = 50
	MaxTagsLen       = 2048
	MaxPathLen       = 500
	MaxAuthorNameLen = 256
)

// Autocomplete
const (
	// Partials shorter than this list the most recent clips instead of searching.
	MinSearchChars = 3
	// NoneChoice is offered first by optional-clip autocompletion.
	NoneChoice = "NONE"
)

// File Extensions
const (
	ExtFLAC = ".flac"
	ExtMP3  = ".mp3"
)

// File Permissions
const (
	DirPermissions  = 0755
	FilePermissions = 0644
)

// Characters to sanitize from filesystem paths
const InvalidPathChars = "<>:\"/\\|?*"
