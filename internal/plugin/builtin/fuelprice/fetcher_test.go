package fuelprice

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchRegion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("prov"); got != "广东" {
			t.Errorf("prov = %q", got)
		}
		w.Write([]byte(`{"code":200,"msg":"success","data":{"region":"广东","p0":"7.05","p92":"7.50","p95":"8.10","p98":"","next_update":"2026-09-10"}}`))
	}))
	defer srv.Close()

	f := newFetcher(srv.URL, 2*time.Second)
	rp, err := f.fetchRegion(context.Background(), "广东")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if rp.Region != "广东" || rp.Grades["92#"] != "7.50" {
		t.Fatalf("unexpected record: %+v", rp)
	}
	if rp.Grades["98#"] != "-" {
		t.Fatalf("empty grade should become dash, got %q", rp.Grades["98#"])
	}
	if rp.NextUpdate != "2026-09-10" {
		t.Fatalf("next_update %q", rp.NextUpdate)
	}
}

func TestFetchRegionUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":250,"msg":"未知的地区名称"}`))
	}))
	defer srv.Close()

	f := newFetcher(srv.URL, 2*time.Second)
	if _, err := f.fetchRegion(context.Background(), "不存在"); err == nil {
		t.Fatal("expected upstream-reported error")
	}
}
