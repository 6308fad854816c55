package fuelprice

import (
	"errors"
	"strings"
	"testing"
	"time"

	"pricebot/internal/baseline"
	"pricebot/internal/monitor"
	core "pricebot/internal/plugin"
	logx "pricebot/pkg/logx"
)

func newTestPlugin(t *testing.T) *Plugin {
	t.Helper()
	store, err := baseline.NewStore(t.TempDir(), logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	p := New()
	p.InitBase(core.PluginDeps{Baseline: store}, p.Name())
	p.cfg = withDefaults(Config{})
	p.base = baselineDoc{}
	return p
}

func gd(prices ...string) map[string]string {
	m := map[string]string{}
	for i, k := range gradeKeys {
		if i < len(prices) {
			m[k] = prices[i]
		}
	}
	return m
}

func TestEvaluateStartupAlwaysNotifies(t *testing.T) {
	p := newTestPlugin(t)
	p.base["广东"] = regionSnapshot{Grades: gd("7.05", "7.50", "8.10", "9.20")}

	rec := record{Regions: []regionPrices{{Region: "广东", Grades: gd("7.05", "7.50", "8.10", "9.20")}}}
	if d := p.Evaluate(rec); d != monitor.DecisionFirstRun {
		t.Fatalf("startup cycle: got %v, want first_run even with matching snapshot", d)
	}
}

func TestEvaluatePerRegionSnapshot(t *testing.T) {
	p := newTestPlugin(t)
	p.startupSent = true
	p.base["广东"] = regionSnapshot{Grades: gd("7.05", "7.50", "8.10", "9.20")}

	same := record{Regions: []regionPrices{{Region: "广东", Grades: gd("7.05", "7.50", "8.10", "9.20")}}}
	if d := p.Evaluate(same); d != monitor.DecisionInsignificant {
		t.Fatalf("unchanged grades: got %v", d)
	}

	bumped := record{Regions: []regionPrices{{Region: "广东", Grades: gd("7.05", "7.65", "8.10", "9.20")}}}
	if d := p.Evaluate(bumped); d != monitor.DecisionSignificant {
		t.Fatalf("changed 92#: got %v", d)
	}

	// A region without a cached snapshot is a per-region first run.
	newRegion := record{Regions: []regionPrices{{Region: "湖南", Grades: gd("7.00", "7.40", "8.00", "9.10")}}}
	if d := p.Evaluate(newRegion); d != monitor.DecisionFirstRun {
		t.Fatalf("uncached region: got %v", d)
	}
}

func TestGradesCompareAsOpaqueStrings(t *testing.T) {
	// "-" and absent must compare equal; "7.50" vs "7.5" must differ.
	if gradesDiffer(gd("-", "7.50"), map[string]string{"92#": "7.50"}) {
		t.Fatal("dash and missing should be equivalent")
	}
	if !gradesDiffer(gd("-", "7.50"), gd("-", "7.5")) {
		t.Fatal("string comparison must not normalize numbers")
	}
}

func TestCommitGatesOnSend(t *testing.T) {
	p := newTestPlugin(t)
	rec := record{Regions: []regionPrices{{Region: "广东", Grades: gd("7.05", "7.50", "8.10", "9.20"), NextUpdate: "2026-09-10"}}}

	p.Commit(rec, monitor.DecisionFirstRun, errors.New("telegram down"))
	if p.startupSent {
		t.Fatal("failed send must not mark startup as done")
	}
	if _, ok := p.base["广东"]; ok {
		t.Fatal("failed send must not cache the snapshot")
	}

	p.Commit(rec, monitor.DecisionFirstRun, nil)
	if !p.startupSent {
		t.Fatal("confirmed send should mark startup as done")
	}
	snap, ok := p.base["广东"]
	if !ok || snap.Grades["92#"] != "7.50" || snap.NextUpdate != "2026-09-10" {
		t.Fatalf("snapshot not cached: %+v", snap)
	}

	var doc baselineDoc
	if err := p.Deps.Baseline.Load(baselineKey, &doc); err != nil {
		t.Fatalf("load baseline: %v", err)
	}
	if doc["广东"].Grades["95#"] != "8.10" {
		t.Fatal("baseline not persisted")
	}
}

func TestNormalizeGrade(t *testing.T) {
	cases := map[string]string{
		"92":  "92#",
		"92#": "92#",
		"95号": "95#",
		"0":   "0#",
		"89":  "",
		"":    "",
	}
	for in, want := range cases {
		if got := normalizeGrade(in); got != want {
			t.Errorf("normalizeGrade(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseHHMM(t *testing.T) {
	if hh, mm, err := parseHHMM("08:00"); err != nil || hh != 8 || mm != 0 {
		t.Fatalf("08:00 -> %d:%d, %v", hh, mm, err)
	}
	for _, bad := range []string{"8", "24:00", "08:60", "ab:cd", ""} {
		if _, _, err := parseHHMM(bad); err == nil {
			t.Errorf("parseHHMM(%q) should fail", bad)
		}
	}
}

func TestFormatCost(t *testing.T) {
	rp := regionPrices{Region: "广东", Grades: gd("7.05", "7.50", "8.10", "9.20"), NextUpdate: "2026-09-10"}
	got := formatCost(rp, "92#", 7.50, 8.0, 300)
	for _, want := range []string{
		"每公里油费：0.600 元",
		"行程 300 公里油费：180.00 元",
		"下次调价：2026-09-10",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("cost block missing %q:\n%s", want, got)
		}
	}

	// Without distance the trip line is omitted.
	got = formatCost(rp, "92#", 7.50, 8.0, 0)
	if strings.Contains(got, "行程") {
		t.Errorf("unexpected trip line:\n%s", got)
	}
}

func TestDefaultBackoffIsHourly(t *testing.T) {
	c := withDefaults(Config{})
	if c.faultBackoff != time.Hour {
		t.Fatalf("faultBackoff = %v, want %v", c.faultBackoff, time.Hour)
	}
}
