package system

import (
	"testing"
	"time"
)

func TestDurRel(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{90 * time.Second, "1m30s"},
		{3*time.Hour + 5*time.Minute, "3h5m"},
		{-45 * time.Second, "45s"},
	}
	for _, c := range cases {
		if got := durRel(c.d); got != c.want {
			t.Errorf("durRel(%v) = %q, want %q", c.d, got, c.want)
		}
	}
}

func TestFmtBytes(t *testing.T) {
	if got := fmtBytes(512); got != "512B" {
		t.Errorf("got %q", got)
	}
	if got := fmtBytes(2 * 1024 * 1024); got != "2.0MB" {
		t.Errorf("got %q", got)
	}
}

func TestShorten(t *testing.T) {
	if got := shorten("abcdefgh", 5); got != "ab..." {
		t.Errorf("got %q", got)
	}
	if got := shorten("abc", 5); got != "abc" {
		t.Errorf("got %q", got)
	}
}
