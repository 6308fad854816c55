package eggprice

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

type apiResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		List []struct {
			Title      string `json:"title"`
			Price      string `json:"price"`
			Unit       string `json:"unit"`
			UpdateTime string `json:"update_time"`
			PrevPrice  string `json:"prev_price"`
		} `json:"list"`
	} `json:"data"`
}

// fetch queries quotes for a location filter and a YYYYMMDD date.
// Either parameter may be empty.
func (f *fetcher) fetch(ctx context.Context, region, date string) (record, error) {
	u, err := url.Parse(f.apiURL)
	if err != nil {
		return record{}, fmt.Errorf("bad api url: %w", err)
	}
	q := u.Query()
	if region = strings.TrimSpace(region); region != "" {
		q.Set("area", region)
	}
	if date = strings.TrimSpace(date); date != "" {
		q.Set("date", date)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return record{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return record{}, fmt.Errorf("request 蛋价: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return record{}, fmt.Errorf("蛋价: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return record{}, fmt.Errorf("read response: %w", err)
	}

	var ar apiResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		return record{}, fmt.Errorf("decode response: %w", err)
	}
	if ar.Code != 200 && ar.Code != 0 {
		return record{}, fmt.Errorf("蛋价: %s", ar.Msg)
	}

	items := make([]item, 0, len(ar.Data.List))
	seen := map[string]bool{}
	for _, e := range ar.Data.List {
		if len(items) >= maxItems {
			break
		}
		key := e.Title + "|" + e.Price + "|" + e.UpdateTime
		if seen[key] {
			continue
		}
		seen[key] = true
		items = append(items, item{
			Title:      strings.TrimSpace(e.Title),
			Price:      strings.TrimSpace(e.Price),
			Unit:       strings.TrimSpace(e.Unit),
			UpdateTime: strings.TrimSpace(e.UpdateTime),
			PrevPrice:  strings.TrimSpace(e.PrevPrice),
		})
	}
	if len(items) == 0 {
		return record{}, fmt.Errorf("no quotes returned")
	}
	return record{Items: items, FetchedAt: time.Now()}, nil
}
