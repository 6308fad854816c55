// Package baseline persists per-feed notification baselines.
//
// Each feed owns one small JSON document in a shared state directory.
// Documents are independent; there are no cross-document transactions.
// A missing or corrupt document degrades to the caller's default value
// instead of failing: losing a baseline only costs one spurious
// first-run notification, while failing here would stall a monitor.
package baseline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	logx "pricebot/pkg/logx"
)

var ErrNotExist = errors.New("baseline document does not exist")

// Store reads and writes per-feed baseline documents.
//
// Keys are feed identities ("goldratio", "fuelprice", ...) and map to
// <dir>/<key>.json. Saves go through a temp file + rename so a crash
// mid-write never leaves a partial document behind.
type Store struct {
	dir string
	log logx.Logger

	mu sync.Mutex
}

func NewStore(dir string, log logx.Logger) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("baseline dir is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("baseline dir: %w", err)
	}
	return &Store{dir: dir, log: log}, nil
}

func (s *Store) path(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("invalid baseline key %q", key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}

// Load reads the document for key into v. A missing document returns
// ErrNotExist; malformed content is logged, moved aside, and also
// reported as ErrNotExist so callers fall back to their defaults.
func (s *Store) Load(key string, v any) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotExist
	}
	if err != nil {
		s.log.Warn("baseline read failed", logx.String("key", key), logx.Err(err))
		return ErrNotExist
	}
	if err := json.Unmarshal(b, v); err != nil {
		s.log.Warn("baseline corrupt; starting fresh", logx.String("key", key), logx.Err(err))
		// Keep the bad document for postmortem instead of overwriting it.
		_ = os.Rename(p, p+".corrupt")
		return ErrNotExist
	}
	return nil
}

// Save atomically replaces the document for key.
func (s *Store) Save(key string, v any) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("baseline marshal %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("baseline write %s: %w", key, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("baseline rename %s: %w", key, err)
	}
	return nil
}
