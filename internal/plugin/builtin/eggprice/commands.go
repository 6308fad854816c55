package eggprice

import (
	"context"
	"time"

	core "pricebot/internal/plugin"
)

func (p *Plugin) Commands() []core.Command {
	return []core.Command{
		{
			Route:       "egg",
			Aliases:     []string{"蛋价"},
			Description: "查询鸡蛋价格",
			Usage:       "/egg [<地区>] [<日期YYYYMMDD>]",
			Access:      core.AccessEveryone,
			Handle:      p.handleQuery,
		},
	}
}

func (p *Plugin) handleQuery(ctx context.Context, req *core.Request) error {
	region, date, ok := parseQueryArgs(req.Args)
	if !ok {
		_, _ = req.Adapter.SendText(ctx, req.Chat, usageText, nil)
		return nil
	}

	f := p.fetcher
	if f == nil {
		cfg := p.getConfig()
		f = newFetcher(cfg.APIURL, cfg.fetchTimeout)
	}

	rec, err := f.fetch(ctx, region, date)
	if err != nil {
		_, _ = req.Adapter.SendText(ctx, req.Chat, formatFetchError(err), nil)
		return nil
	}
	_, _ = req.Adapter.SendText(ctx, req.Chat, formatQuotes(rec, region), nil)
	return nil
}

// parseQueryArgs accepts [<region>] [<YYYYMMDD>] in either order-free
// form: a token of 8 digits is the date, anything else the region.
func parseQueryArgs(args []string) (region, date string, ok bool) {
	for _, a := range args {
		if isDateToken(a) {
			if _, err := time.Parse("20060102", a); err != nil {
				return "", "", false
			}
			if date != "" {
				return "", "", false
			}
			date = a
			continue
		}
		if region != "" {
			return "", "", false
		}
		region = a
	}
	return region, date, true
}

func isDateToken(s string) bool {
	if len(s) != 8 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
