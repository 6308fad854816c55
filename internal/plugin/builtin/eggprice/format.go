package eggprice

import (
	"fmt"
	"strconv"
	"strings"

	"pricebot/pkg/textwidth"
)

// changeMarker compares today's price against the prior-day price.
// Unparseable values fall back to the neutral marker.
func changeMarker(price, prev string) string {
	p, err1 := strconv.ParseFloat(price, 64)
	q, err2 := strconv.ParseFloat(prev, 64)
	if err1 != nil || err2 != nil {
		return "➖"
	}
	switch {
	case p > q:
		return "📈"
	case p < q:
		return "📉"
	default:
		return "➖"
	}
}

func formatQuotes(rec record, region string) string {
	var b strings.Builder
	if region != "" {
		fmt.Fprintf(&b, "🥚 %s 鸡蛋价格\n", region)
	} else {
		b.WriteString("🥚 今日鸡蛋价格\n")
	}
	b.WriteString("--------------------------------------\n")
	for i, it := range rec.Items {
		b.WriteString(textwidth.PadRight(strconv.Itoa(i+1), 2))
		b.WriteByte(' ')
		b.WriteString(changeMarker(it.Price, it.PrevPrice))
		b.WriteByte(' ')
		b.WriteString(textwidth.PadRight(textwidth.Truncate(it.Title, 20), 20))
		b.WriteByte(' ')
		b.WriteString(it.Price)
		if it.Unit != "" {
			b.WriteString(it.Unit)
		}
		if it.UpdateTime != "" {
			b.WriteString("（" + it.UpdateTime + "）")
		}
		b.WriteByte('\n')
	}
	b.WriteString("--------------------------------------")
	return b.String()
}

func formatFetchError(err error) string {
	return fmt.Sprintf("查询蛋价失败：%v", err)
}

const usageText = "用法：/egg [<地区>] [<YYYYMMDD>]\n例：蛋价 河北 20260830"
