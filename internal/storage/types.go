package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (jsonl + snapshot)
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// JournalEntry records one outbound notification.
// Keep it compact and schema-stable.
type JournalEntry struct {
	At       time.Time
	Feed     string // feed or plugin identity ("goldratio", "fuelprice", ...)
	ChatID   int64
	Decision string // "first_run", "significant", ...
	Text     string // sent text (may be truncated by the caller)
	OK       bool
	Error    string
	TookMS   int64
}
