package app

import (
	"fmt"
	"strings"
	"time"

	"pricebot/internal/storage"
)

// mapStorageConfig translates the user-facing storage section into the
// storage package's config. The bool reports whether storage is enabled
// at all; an absent section or driver "none" runs the bot without a
// journal and with in-memory dedup only.
func mapStorageConfig(cfg *Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	raw := cfg.Storage

	driver := strings.ToLower(strings.TrimSpace(raw.Driver))
	path := strings.TrimSpace(raw.Path)

	switch driver {
	case "", "none":
		return storage.Config{}, false, nil
	case "file":
		return storage.Config{Driver: "file", Path: path}, true, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=%s", driver)
		}
		busy, err := parseDurationOrDefault("storage.busy_timeout", raw.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, true, nil
	}
	return storage.Config{}, false, fmt.Errorf("storage.driver: unknown driver %q (file, sqlite, none)", raw.Driver)
}
