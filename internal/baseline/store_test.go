package baseline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	logx "pricebot/pkg/logx"
)

type ratioDoc struct {
	LastSentAvgRatio *float64 `json:"last_sent_avg_ratio"`
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), logx.Nop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)

	v := 6.5
	if err := s.Save("goldratio", ratioDoc{LastSentAvgRatio: &v}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var got ratioDoc
	if err := s.Load("goldratio", &got); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.LastSentAvgRatio == nil || *got.LastSentAvgRatio != 6.5 {
		t.Fatalf("got %+v, want last_sent_avg_ratio=6.5", got)
	}
}

func TestStoreMissingDocument(t *testing.T) {
	s := newTestStore(t)

	var got ratioDoc
	if err := s.Load("goldratio", &got); !errors.Is(err, ErrNotExist) {
		t.Fatalf("Load missing = %v, want ErrNotExist", err)
	}
}

func TestStoreCorruptDocumentDegrades(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, logx.Nop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	p := filepath.Join(dir, "eggprice.json")
	if err := os.WriteFile(p, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var got map[string]any
	if err := s.Load("eggprice", &got); !errors.Is(err, ErrNotExist) {
		t.Fatalf("Load corrupt = %v, want ErrNotExist", err)
	}
	if _, err := os.Stat(p + ".corrupt"); err != nil {
		t.Fatalf("corrupt document not preserved: %v", err)
	}
	// A fresh save must succeed after degradation.
	if err := s.Save("eggprice", map[string]any{"last_egg_sent_date": "20260830"}); err != nil {
		t.Fatalf("Save after corrupt: %v", err)
	}
}

func TestStoreSaveOverwrites(t *testing.T) {
	s := newTestStore(t)

	a, b := 6.0, 8.2
	if err := s.Save("goldratio", ratioDoc{LastSentAvgRatio: &a}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save("goldratio", ratioDoc{LastSentAvgRatio: &b}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	var got ratioDoc
	if err := s.Load("goldratio", &got); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.LastSentAvgRatio == nil || *got.LastSentAvgRatio != 8.2 {
		t.Fatalf("got %+v, want 8.2", got)
	}
}

func TestStoreRejectsBadKeys(t *testing.T) {
	s := newTestStore(t)
	for _, key := range []string{"", "  ", "a/b", `a\b`} {
		if err := s.Save(key, struct{}{}); err == nil {
			t.Fatalf("Save(%q) accepted, want error", key)
		}
	}
}
