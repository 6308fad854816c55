package goldratio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DD373 serves plain server-rendered HTML; per-listing fields are
// extracted with anchored patterns instead of a DOM walk.
var (
	reRatio = regexp.MustCompile(`1元=([\d.]+)万金币`)
	reTitle = regexp.MustCompile(`game-account-flag[^>]*>\s*([^<]+?)\s*<`)
	reBrand = regexp.MustCompile(`【.*?】`)
)

const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

type fetcher struct {
	client *http.Client
	url    string
	max    int
}

func newFetcher(url string, timeout time.Duration, max int) *fetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if max <= 0 {
		max = defaultMaxListings
	}
	return &fetcher{
		client: &http.Client{Timeout: timeout},
		url:    url,
		max:    max,
	}
}

func (f *fetcher) fetch(ctx context.Context) (record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return record{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", browserUA)

	resp, err := f.client.Do(req)
	if err != nil {
		return record{}, fmt.Errorf("request listing page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return record{}, fmt.Errorf("listing page returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return record{}, fmt.Errorf("read listing page: %w", err)
	}

	rec, err := parseListings(string(body), f.max)
	if err != nil {
		return record{}, err
	}
	rec.FetchedAt = time.Now()
	return rec, nil
}

// parseListings extracts up to max offers and their average ratio.
// Offers whose ratio cannot be derived are skipped; zero usable offers
// is reported as an error, never as a real zero average.
func parseListings(html string, max int) (record, error) {
	var rec record
	var sum float64

	for _, chunk := range splitItems(html) {
		if len(rec.Listings) >= max {
			break
		}
		rm := reRatio.FindStringSubmatch(chunk)
		if rm == nil {
			continue
		}
		ratio, err := strconv.ParseFloat(rm[1], 64)
		if err != nil || ratio <= 0 {
			continue
		}

		title := ""
		if tm := reTitle.FindStringSubmatch(chunk); tm != nil {
			title = strings.TrimSpace(reBrand.ReplaceAllString(tm[1], ""))
		}
		if title == "" {
			title = "未知商品"
		}

		rec.Listings = append(rec.Listings, listing{
			Title:     title,
			RatioText: fmt.Sprintf("1元=%s万金币", rm[1]),
			Ratio:     ratio,
		})
		sum += ratio
	}

	if len(rec.Listings) == 0 {
		return record{}, fmt.Errorf("no usable listings on page")
	}
	rec.Average = sum / float64(len(rec.Listings))
	return rec, nil
}

// splitItems cuts the page into per-listing chunks so a title is never
// matched against a neighboring offer's ratio.
func splitItems(html string) []string {
	idxs := []int{}
	search := html
	off := 0
	for {
		i := strings.Index(search, "goods-list-item")
		if i < 0 {
			break
		}
		idxs = append(idxs, off+i)
		search = search[i+len("goods-list-item"):]
		off += i + len("goods-list-item")
	}
	if len(idxs) == 0 {
		return nil
	}
	chunks := make([]string, 0, len(idxs))
	for n, start := range idxs {
		end := len(html)
		if n+1 < len(idxs) {
			end = idxs[n+1]
		}
		chunks = append(chunks, html[start:end])
	}
	return chunks
}
