package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "pricebot/pkg/logx"
)

// Store persists what the bot sent and when. The journal is an audit
// trail of outgoing notifications; the dedup keys suppress repeats
// within a configurable window.
type Store interface {
	AppendJournal(ctx context.Context, e JournalEntry) error
	PutDedup(ctx context.Context, key string, until time.Time) error
	GetDedup(ctx context.Context, key string) (until time.Time, ok bool, err error)
	// Compact rewrites durable state into its most compact form.
	// Drivers for which this is a no-op return nil.
	Compact(ctx context.Context) error
	Close() error
}

// Open builds the store named by cfg.Driver. A missing or "none"
// driver means storage is off, reported as (nil, nil) so callers can
// branch on the store being present.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	switch driver := normalizeDriver(cfg.Driver); driver {
	case "", "none":
		return nil, nil
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}

func normalizeDriver(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
