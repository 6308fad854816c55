package textwidth

import "testing"

func TestWidth(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"abc", 3},
		{"金币比例", 8},
		{"1元=50.1234万金币", 17},
		{"广东 92#", 8},
	}
	for _, c := range cases {
		if got := Width(c.in); got != c.want {
			t.Errorf("Width(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestPadRight(t *testing.T) {
	if got := PadRight("ab", 5); got != "ab   " {
		t.Fatalf("got %q", got)
	}
	// Two CJK runes are 4 cells wide already.
	if got := PadRight("油价", 4); got != "油价" {
		t.Fatalf("got %q", got)
	}
	if got := PadRight("油价", 6); got != "油价  " {
		t.Fatalf("got %q", got)
	}
}

func TestPadLeft(t *testing.T) {
	if got := PadLeft("7.50", 6); got != "  7.50" {
		t.Fatalf("got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("短", 4); got != "短" {
		t.Fatalf("unchanged short string, got %q", got)
	}
	got := Truncate("跨区账号金币直发", 8)
	if Width(got) > 8 {
		t.Fatalf("truncated %q is wider than 8", got)
	}
	if got == "跨区账号金币直发" {
		t.Fatal("expected truncation")
	}
}
