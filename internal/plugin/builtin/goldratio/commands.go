package goldratio

import (
	"context"

	core "pricebot/internal/plugin"
)

func (p *Plugin) Commands() []core.Command {
	return []core.Command{
		{
			Route:       "gold",
			Aliases:     []string{"金币比例", "gr"},
			Description: "查询 DNF 金币比例",
			Usage:       "/gold",
			Access:      core.AccessEveryone,
			Handle:      p.handleQuery,
		},
	}
}

func (p *Plugin) handleQuery(ctx context.Context, req *core.Request) error {
	cfg := p.getConfig()
	f := p.fetcher
	if f == nil {
		f = newFetcher(cfg.URL, cfg.fetchTimeout, cfg.MaxListings)
	}

	rec, err := f.fetch(ctx)
	if err != nil {
		_, _ = req.Adapter.SendText(ctx, req.Chat, formatFetchError(err), nil)
		return nil
	}
	_, _ = req.Adapter.SendText(ctx, req.Chat, formatReport(rec), nil)
	return nil
}
