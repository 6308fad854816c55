package goldratio

import (
	"errors"
	"strings"
	"testing"

	"pricebot/internal/baseline"
	"pricebot/internal/monitor"
	core "pricebot/internal/plugin"
	logx "pricebot/pkg/logx"
)

const sampleHTML = `
<div class="good-list-box">
  <div class="goods-list-item">
    <span class="game-account-flag">【跨5A】100级金币直发</span>
    <p>1元=52.3810万金币</p>
  </div>
  <div class="goods-list-item">
    <span class="game-account-flag">安全金币秒发</span>
    <p>1元=51.9000万金币</p>
  </div>
  <div class="goods-list-item">
    <span class="game-account-flag">无比例商品</span>
    <p>面议</p>
  </div>
  <div class="goods-list-item">
    <span class="game-account-flag">库存充足</span>
    <p>1元=52.0000万金币</p>
  </div>
</div>`

func TestParseListings(t *testing.T) {
	rec, err := parseListings(sampleHTML, 5)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rec.Listings) != 3 {
		t.Fatalf("got %d listings, want 3", len(rec.Listings))
	}
	if rec.Listings[0].Title != "100级金币直发" {
		t.Errorf("brand tag not stripped: %q", rec.Listings[0].Title)
	}
	if rec.Listings[0].RatioText != "1元=52.3810万金币" {
		t.Errorf("ratio text %q", rec.Listings[0].RatioText)
	}
	want := (52.381 + 51.9 + 52.0) / 3
	if diff := rec.Average - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("average %v, want %v", rec.Average, want)
	}
}

func TestParseListingsCap(t *testing.T) {
	rec, err := parseListings(sampleHTML, 2)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rec.Listings) != 2 {
		t.Fatalf("got %d listings, want cap of 2", len(rec.Listings))
	}
}

func TestParseListingsNoData(t *testing.T) {
	if _, err := parseListings(`<div class="good-list-box"></div>`, 5); err == nil {
		t.Fatal("expected error for empty page")
	}
	// A page with items but no derivable ratios is also "no data".
	if _, err := parseListings(`<div class="goods-list-item">面议</div>`, 5); err == nil {
		t.Fatal("expected error when no ratio is derivable")
	}
}

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

func TestEvaluateThreshold(t *testing.T) {
	p := newTestPlugin(t)

	// No prior send: first run.
	if d := p.Evaluate(record{Average: 52.0}); d != monitor.DecisionFirstRun {
		t.Fatalf("got %v, want first_run", d)
	}

	last := 52.0
	p.base.LastSentAvgRatio = &last

	cases := []struct {
		avg  float64
		want monitor.Decision
	}{
		{52.0, monitor.DecisionInsignificant},
		{53.9, monitor.DecisionInsignificant},
		{54.0, monitor.DecisionSignificant}, // inclusive threshold
		{50.0, monitor.DecisionSignificant},
		{50.1, monitor.DecisionInsignificant},
	}
	for _, c := range cases {
		if d := p.Evaluate(record{Average: c.avg}); d != c.want {
			t.Errorf("avg %.2f: got %v, want %v", c.avg, d, c.want)
		}
	}
}

func TestCommitAdvancesBaseline(t *testing.T) {
	p := newTestPlugin(t)

	p.Commit(record{Average: 52.0}, monitor.DecisionFirstRun, nil)
	if p.base.LastSentAvgRatio == nil || *p.base.LastSentAvgRatio != 52.0 {
		t.Fatal("confirmed send should set last_sent_avg_ratio")
	}
	if p.base.LastAvgRatio != 52.0 {
		t.Fatal("observed average not recorded")
	}

	// Persisted round-trip.
	var doc baselineDoc
	if err := p.Deps.Baseline.Load(baselineKey, &doc); err != nil {
		t.Fatalf("load baseline: %v", err)
	}
	if doc.LastSentAvgRatio == nil || *doc.LastSentAvgRatio != 52.0 {
		t.Fatal("baseline not persisted")
	}
}

func TestCommitFailedSendKeepsNotifiedBaseline(t *testing.T) {
	p := newTestPlugin(t)
	last := 52.0
	p.base.LastSentAvgRatio = &last

	p.Commit(record{Average: 55.0}, monitor.DecisionSignificant, errors.New("telegram down"))

	if *p.base.LastSentAvgRatio != 52.0 {
		t.Fatal("failed send must not advance last_sent_avg_ratio")
	}
	if p.base.LastAvgRatio != 55.0 {
		t.Fatal("observed average must still update on failed send")
	}
}

func TestFormatReport(t *testing.T) {
	rec, err := parseListings(sampleHTML, 5)
	if err != nil {
		t.Fatal(err)
	}
	got := formatReport(rec)
	for _, want := range []string{
		"DNF金币比例",
		"100级金币直发",
		"均价：1元=52.0937万金币",
		"数据来源：DD373",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("report missing %q:\n%s", want, got)
		}
	}
}

func TestFormatAlertDelta(t *testing.T) {
	last := 50.0
	got := formatAlert(record{Average: 52.5, Listings: []listing{{Title: "x", RatioText: "1元=52.5000万金币", Ratio: 52.5}}}, &last)
	if !strings.Contains(got, "50.0000 → 52.5000") {
		t.Errorf("alert missing movement line:\n%s", got)
	}
	if !strings.Contains(got, "+2.5000") {
		t.Errorf("alert missing signed delta:\n%s", got)
	}
}

func TestRuntimeSettingsChanged(t *testing.T) {
	base := withDefaults(Config{})

	if runtimeSettingsChanged(base, base) {
		t.Fatal("identical configs must not flag a restart")
	}

	live := base
	live.Threshold = 5.0
	if runtimeSettingsChanged(base, live) {
		t.Fatal("threshold applies live and must not flag a restart")
	}

	stale := base
	stale.IntervalSeconds = 120
	stale = withDefaults(stale)
	if !runtimeSettingsChanged(base, stale) {
		t.Fatal("interval change must flag a restart")
	}
}
