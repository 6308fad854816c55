// Package textwidth measures and pads strings by terminal display
// width. CJK characters occupy two cells, so byte or rune counts
// misalign mixed Chinese/ASCII table output.
package textwidth

import (
	"strings"

	"golang.org/x/text/width"
)

// Width returns the display width of s in terminal cells.
func Width(s string) int {
	w := 0
	for _, r := range s {
		w += runeWidth(r)
	}
	return w
}

func runeWidth(r rune) int {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	default:
		return 1
	}
}

// PadRight pads s with spaces on the right to the given display width.
// Strings already at or past the width are returned unchanged.
func PadRight(s string, w int) string {
	gap := w - Width(s)
	if gap <= 0 {
		return s
	}
	return s + strings.Repeat(" ", gap)
}

// PadLeft pads s with spaces on the left to the given display width.
func PadLeft(s string, w int) string {
	gap := w - Width(s)
	if gap <= 0 {
		return s
	}
	return strings.Repeat(" ", gap) + s
}

// Truncate cuts s so its display width does not exceed w, appending
// ellipsis when anything was removed. Widths below 2 return "".
func Truncate(s string, w int) string {
	if Width(s) <= w {
		return s
	}
	if w < 2 {
		return ""
	}
	var b strings.Builder
	used := 0
	for _, r := range s {
		rw := runeWidth(r)
		if used+rw > w-1 {
			break
		}
		b.WriteRune(r)
		used += rw
	}
	return b.String() + "…"
}
