package eggprice

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
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
	return p
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestEvaluateDailyGate(t *testing.T) {
	p := newTestPlugin(t)
	day1 := time.Date(2026, 8, 30, 9, 0, 0, 0, time.Local)
	p.now = fixedClock(day1)

	rec := record{Items: []item{{Title: "河北石家庄", Price: "4.20"}}}

	if d := p.Evaluate(rec); d != monitor.DecisionFirstRun {
		t.Fatalf("no prior send: got %v", d)
	}

	p.Commit(rec, monitor.DecisionFirstRun, nil)

	// Same day, later hour: suppressed.
	p.now = fixedClock(day1.Add(5 * time.Hour))
	if d := p.Evaluate(rec); d != monitor.DecisionSuppressed {
		t.Fatalf("same day: got %v", d)
	}

	// Next day: allowed again.
	p.now = fixedClock(day1.Add(24 * time.Hour))
	if d := p.Evaluate(rec); d != monitor.DecisionSignificant {
		t.Fatalf("next day: got %v", d)
	}
}

func TestGateSurvivesRestart(t *testing.T) {
	p := newTestPlugin(t)
	day := time.Date(2026, 8, 30, 8, 0, 0, 0, time.Local)
	p.now = fixedClock(day)
	p.Commit(record{}, monitor.DecisionFirstRun, nil)

	// A fresh plugin instance over the same store sees the stamp.
	p2 := New()
	if err := p2.Init(context.Background(), p.Deps); err != nil {
		t.Fatalf("init: %v", err)
	}
	p2.now = fixedClock(day.Add(3 * time.Hour))
	if d := p2.Evaluate(record{}); d != monitor.DecisionSuppressed {
		t.Fatalf("restart mid-day: got %v, want suppressed", d)
	}
}

func TestCommitFailedSendLeavesGateOpen(t *testing.T) {
	p := newTestPlugin(t)
	p.now = fixedClock(time.Date(2026, 8, 30, 8, 0, 0, 0, time.Local))

	p.Commit(record{}, monitor.DecisionFirstRun, errors.New("telegram down"))
	if p.base.LastEggSentDate != nil {
		t.Fatal("failed send must not stamp the date")
	}
	if d := p.Evaluate(record{}); d != monitor.DecisionFirstRun {
		t.Fatalf("gate should stay open, got %v", d)
	}
}

func TestFetchDedupAndCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var b strings.Builder
		b.WriteString(`{"code":200,"data":{"list":[`)
		// A duplicate of the first entry plus 12 distinct rows.
		b.WriteString(`{"title":"河北","price":"4.20","update_time":"08:00"},`)
		b.WriteString(`{"title":"河北","price":"4.20","update_time":"08:00"},`)
		for i := 0; i < 12; i++ {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString(`{"title":"产区` + string(rune('A'+i)) + `","price":"4.10","update_time":"08:00"}`)
		}
		b.WriteString(`]}}`)
		w.Write([]byte(b.String()))
	}))
	defer srv.Close()

	f := newFetcher(srv.URL, 2*time.Second)
	rec, err := f.fetch(context.Background(), "", "")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rec.Items) != maxItems {
		t.Fatalf("got %d items, want cap of %d", len(rec.Items), maxItems)
	}
	if rec.Items[0].Title != "河北" || rec.Items[1].Title == "河北" {
		t.Fatal("duplicate row should be dropped, order preserved")
	}
}

func TestParseQueryArgs(t *testing.T) {
	cases := []struct {
		args   []string
		region string
		date   string
		ok     bool
	}{
		{nil, "", "", true},
		{[]string{"河北"}, "河北", "", true},
		{[]string{"20260830"}, "", "20260830", true},
		{[]string{"河北", "20260830"}, "河北", "20260830", true},
		{[]string{"20260830", "河北"}, "河北", "20260830", true},
		{[]string{"20261301"}, "", "", false}, // month 13
		{[]string{"河北", "山东"}, "", "", false},
	}
	for _, c := range cases {
		region, date, ok := parseQueryArgs(c.args)
		if region != c.region || date != c.date || ok != c.ok {
			t.Errorf("parseQueryArgs(%v) = (%q, %q, %v), want (%q, %q, %v)",
				c.args, region, date, ok, c.region, c.date, c.ok)
		}
	}
}

func TestChangeMarker(t *testing.T) {
	if m := changeMarker("4.20", "4.10"); m != "📈" {
		t.Errorf("up: %s", m)
	}
	if m := changeMarker("4.00", "4.10"); m != "📉" {
		t.Errorf("down: %s", m)
	}
	if m := changeMarker("4.10", "4.10"); m != "➖" {
		t.Errorf("flat: %s", m)
	}
	if m := changeMarker("4.10", ""); m != "➖" {
		t.Errorf("missing prev: %s", m)
	}
}

func TestFormatQuotes(t *testing.T) {
	rec := record{Items: []item{
		{Title: "河北石家庄", Price: "4.20", Unit: "元/斤", UpdateTime: "08:00", PrevPrice: "4.10"},
	}}
	got := formatQuotes(rec, "河北")
	for _, want := range []string{"河北 鸡蛋价格", "河北石家庄", "4.20元/斤", "📈"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q:\n%s", want, got)
		}
	}
}

func TestDefaultBackoffMatchesHourlyCadence(t *testing.T) {
	c := withDefaults(Config{})
	if c.faultBackoff != time.Hour {
		t.Fatalf("faultBackoff = %v, want %v", c.faultBackoff, time.Hour)
	}
	if c := withDefaults(Config{FaultBackoffSeconds: 120}); c.faultBackoff != 2*time.Minute {
		t.Fatalf("explicit backoff = %v, want 2m", c.faultBackoff)
	}
}
