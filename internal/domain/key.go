package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// UniqueKey is one of ByID, ByName or ByPath. Each identifies at most one
// AudioRecord. The set is closed: only this package can add variants.
type UniqueKey interface {
	fmt.Stringer
	uniqueKey()
}

// ByID looks a record up by its surrogate id.
type ByID int64

// ByName looks a record up by its display name.
type ByName string

// ByPath looks a record up by its audio file path.
type ByPath string

func (ByID) uniqueKey()   {}
func (ByName) uniqueKey() {}
func (ByPath) uniqueKey() {}

func (k ByID) String() string   { return "id:" + strconv.FormatInt(int64(k), 10) }
func (k ByName) String() string { return "name:" + string(k) }
func (k ByPath) String() string { return "path:" + string(k) }

// ParseUniqueKey reads "id:<n>", "name:<s>" or "path:<s>". A bare integer is
// an id and any other bare string is a name.
func ParseUniqueKey(s string) (UniqueKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty key")
	}

	kind, value, found := strings.Cut(s, ":")
	if found {
		switch kind {
		case "id":
			id, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid id %q: %w", value, err)
			}
			return ByID(id), nil
		case "name":
			return ByName(value), nil
		case "path":
			return ByPath(value), nil
		}
	}

	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ByID(id), nil
	}
	return ByName(s), nil
}
