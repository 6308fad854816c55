package adapter

import (
	"strings"
	"testing"
)

func TestSplitTelegramTextShort(t *testing.T) {
	got := splitTelegramText("hello", 4000, "")
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("got %v", got)
	}
}

func TestSplitTelegramTextPrefersNewlines(t *testing.T) {
	lines := make([]string, 0, 40)
	for i := 0; i < 40; i++ {
		lines = append(lines, strings.Repeat("x", 10))
	}
	s := strings.Join(lines, "\n")

	chunks := splitTelegramText(s, 100, "")
	if len(chunks) < 2 {
		t.Fatalf("expected split, got %d chunks", len(chunks))
	}
	for i, c := range chunks {
		if len([]rune(c)) > 100 {
			t.Fatalf("chunk %d exceeds limit: %d runes", i, len([]rune(c)))
		}
		if strings.HasPrefix(c, "\n") || strings.HasSuffix(c, "\n") {
			t.Fatalf("chunk %d has dangling newline: %q", i, c)
		}
		// Newline-aligned splits keep lines whole.
		for _, ln := range strings.Split(c, "\n") {
			if ln != strings.Repeat("x", 10) {
				t.Fatalf("chunk %d broke a line: %q", i, ln)
			}
		}
	}
}

func TestSplitTelegramTextAvoidsHTMLTagSplit(t *testing.T) {
	s := strings.Repeat("a", 95) + "<b>bold</b>"
	chunks := splitTelegramText(s, 100, "HTML")
	for i, c := range chunks {
		if strings.Count(c, "<") != strings.Count(c, ">") {
			t.Fatalf("chunk %d splits inside a tag: %q", i, c)
		}
	}
}

func TestSplitTelegramTextNoEmptyChunks(t *testing.T) {
	s := strings.Repeat("line\n", 200)
	for _, c := range splitTelegramText(s, 50, "") {
		if c == "" {
			t.Fatal("empty chunk produced")
		}
	}
}
