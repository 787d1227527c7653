// Package pagination pages through result lists ordered newest first.
package pagination

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200

	cursorPrefix = "ts:"
)

// Cursor marks the sort key of the last item a client has seen.
type Cursor struct {
	Timestamp int64
}

// Page is one slice of a result set.
type Page[T any] struct {
	Items   []T    `json:"items"`
	Cursor  string `json:"cursor,omitempty"`
	HasMore bool   `json:"has_more"`
}

var (
	ErrInvalidCursor = errors.New("invalid cursor format")
	ErrInvalidLimit  = errors.New("limit must be a positive integer")
)

// EncodeCursor creates an opaque cursor from a sort key.
func EncodeCursor(timestamp int64) string {
	raw := cursorPrefix + strconv.FormatInt(timestamp, 10)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor decodes a cursor. An empty string means "from the start" and
// yields a nil Cursor.
func DecodeCursor(cursor string) (*Cursor, error) {
	if cursor == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	raw, ok := strings.CutPrefix(string(decoded), cursorPrefix)
	if !ok {
		return nil, ErrInvalidCursor
	}
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &Cursor{Timestamp: ts}, nil
}

// ParseLimit reads a limit query value, applying DefaultLimit when empty
// and capping at MaxLimit.
func ParseLimit(raw string) (int, error) {
	if raw == "" {
		return DefaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, ErrInvalidLimit
	}
	return min(n, MaxLimit), nil
}

// Paginate returns the page after cursor from items sorted by descending
// key. Keys must be unique.
func Paginate[T any](items []T, limit int, after *Cursor, key func(T) int64) Page[T] {
	if limit <= 0 {
		limit = DefaultLimit
	}

	start := 0
	if after != nil {
		for start < len(items) && key(items[start]) >= after.Timestamp {
			start++
		}
	}

	rest := items[start:]
	page := Page[T]{Items: rest}
	if len(rest) > limit {
		page.Items = rest[:limit]
		page.HasMore = true
		page.Cursor = EncodeCursor(key(page.Items[limit-1]))
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	return page
}
