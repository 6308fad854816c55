package fuelprice

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	core "pricebot/internal/plugin"
)

func (p *Plugin) Commands() []core.Command {
	return []core.Command{
		{
			Route:       "fuel",
			Aliases:     []string{"油价", "oil"},
			Description: "查询地区油价 / 油费试算",
			Usage:       "/fuel <地区> [<油号> <油耗> [<里程>]]",
			Access:      core.AccessEveryone,
			Handle:      p.handleQuery,
		},
	}
}

func (p *Plugin) handleQuery(ctx context.Context, req *core.Request) error {
	args := req.Args
	if len(args) == 0 {
		_, _ = req.Adapter.SendText(ctx, req.Chat, usageText, nil)
		return nil
	}

	region := args[0]
	rp, err := p.lookup(ctx, region)
	if err != nil {
		_, _ = req.Adapter.SendText(ctx, req.Chat, formatFetchError(err), nil)
		return nil
	}

	if len(args) == 1 {
		_, _ = req.Adapter.SendText(ctx, req.Chat, formatRegion(rp), nil)
		return nil
	}

	// Cost calculator: <grade> <consumption L/100km> [<distance km>]
	if len(args) < 3 {
		_, _ = req.Adapter.SendText(ctx, req.Chat, usageText, nil)
		return nil
	}

	grade := normalizeGrade(args[1])
	if grade == "" {
		_, _ = req.Adapter.SendText(ctx, req.Chat, "未知油号："+args[1]+"（支持 0# 92# 95# 98#）", nil)
		return nil
	}

	priceStr := gradeOf(rp.Grades, grade)
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		_, _ = req.Adapter.SendText(ctx, req.Chat, fmt.Sprintf("%s 暂无 %s 价格数据", rp.Region, grade), nil)
		return nil
	}

	consumption, err := strconv.ParseFloat(args[2], 64)
	if err != nil || consumption <= 0 {
		_, _ = req.Adapter.SendText(ctx, req.Chat, usageText, nil)
		return nil
	}

	distance := 0.0
	if len(args) >= 4 {
		distance, err = strconv.ParseFloat(args[3], 64)
		if err != nil || distance < 0 {
			_, _ = req.Adapter.SendText(ctx, req.Chat, usageText, nil)
			return nil
		}
	}

	_, _ = req.Adapter.SendText(ctx, req.Chat, formatCost(rp, grade, price, consumption, distance), nil)
	return nil
}

func (p *Plugin) lookup(ctx context.Context, region string) (regionPrices, error) {
	f := p.fetcher
	if f == nil {
		cfg := p.getConfig()
		f = newFetcher(cfg.APIURL, cfg.fetchTimeout)
	}
	return f.fetchRegion(ctx, region)
}

// normalizeGrade accepts "92", "92#", "92号" and returns the canonical
// grade key, or "" for anything unknown.
func normalizeGrade(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "号")
	s = strings.TrimSuffix(s, "#")
	for _, k := range gradeKeys {
		if s == strings.TrimSuffix(k, "#") {
			return k
		}
	}
	return ""
}
