package fuelprice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type fetcher struct {
	client *http.Client
	apiURL string
}

func newFetcher(apiURL string, timeout time.Duration) *fetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &fetcher{
		client: &http.Client{Timeout: timeout},
		apiURL: apiURL,
	}
}

// apiResponse mirrors the upstream schema. Missing grade fields come
// back as "-" so downstream comparison stays uniform.
type apiResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Region     string `json:"region"`
		P0         string `json:"p0"`
		P92        string `json:"p92"`
		P95        string `json:"p95"`
		P98        string `json:"p98"`
		NextUpdate string `json:"next_update"`
	} `json:"data"`
}

// fetchRegion queries one region. An unknown region is an
// upstream-reported error, not a local validation failure.
func (f *fetcher) fetchRegion(ctx context.Context, region string) (regionPrices, error) {
	region = strings.TrimSpace(region)
	if region == "" {
		return regionPrices{}, fmt.Errorf("region is required")
	}

	u, err := url.Parse(f.apiURL)
	if err != nil {
		return regionPrices{}, fmt.Errorf("bad api url: %w", err)
	}
	q := u.Query()
	q.Set("prov", region)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return regionPrices{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return regionPrices{}, fmt.Errorf("request 油价 %s: %w", region, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return regionPrices{}, fmt.Errorf("油价 %s: status %d", region, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return regionPrices{}, fmt.Errorf("read response: %w", err)
	}

	var ar apiResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		return regionPrices{}, fmt.Errorf("decode response: %w", err)
	}
	if ar.Code != 200 && ar.Code != 0 {
		return regionPrices{}, fmt.Errorf("油价 %s: %s", region, ar.Msg)
	}

	rp := regionPrices{
		Region: region,
		Grades: map[string]string{
			"0#":  orDash(ar.Data.P0),
			"92#": orDash(ar.Data.P92),
			"95#": orDash(ar.Data.P95),
			"98#": orDash(ar.Data.P98),
		},
		NextUpdate: ar.Data.NextUpdate,
	}
	if ar.Data.Region != "" {
		rp.Region = ar.Data.Region
	}
	return rp, nil
}

func (f *fetcher) fetchAll(ctx context.Context, regions []string) (record, error) {
	rec := record{FetchedAt: time.Now()}
	for _, r := range regions {
		rp, err := f.fetchRegion(ctx, r)
		if err != nil {
			return record{}, err
		}
		rec.Regions = append(rec.Regions, rp)
	}
	if len(rec.Regions) == 0 {
		return record{}, fmt.Errorf("no regions configured")
	}
	return rec, nil
}

func orDash(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "-"
	}
	return s
}
