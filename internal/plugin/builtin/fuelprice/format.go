package fuelprice

import (
	"fmt"
	"strings"

	"pricebot/pkg/textwidth"
)

func formatRegion(rp regionPrices) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⛽ %s 今日油价（元/升）\n", rp.Region)
	b.WriteString("--------------------------\n")
	for _, k := range gradeKeys {
		b.WriteString(textwidth.PadRight(k, 5))
		b.WriteString(gradeOf(rp.Grades, k))
		b.WriteByte('\n')
	}
	if rp.NextUpdate != "" {
		fmt.Fprintf(&b, "下次调价：%s", rp.NextUpdate)
	} else {
		b.WriteString("下次调价：-")
	}
	return b.String()
}

func formatDaily(rec record) string {
	blocks := make([]string, 0, len(rec.Regions))
	for _, rp := range rec.Regions {
		blocks = append(blocks, formatRegion(rp))
	}
	return strings.Join(blocks, "\n\n")
}

// formatCost renders the trip cost block. distanceKm <= 0 means the
// caller asked only for the per-km figure.
func formatCost(rp regionPrices, grade string, price, consumption, distanceKm float64) string {
	perKm := price * consumption / 100

	var b strings.Builder
	fmt.Fprintf(&b, "🧮 %s %s 油费试算\n", rp.Region, grade)
	b.WriteString("--------------------------\n")
	fmt.Fprintf(&b, "油价：%.2f 元/升\n", price)
	fmt.Fprintf(&b, "油耗：%.1f 升/百公里\n", consumption)
	fmt.Fprintf(&b, "每公里油费：%.3f 元\n", perKm)
	if distanceKm > 0 {
		fmt.Fprintf(&b, "行程 %.0f 公里油费：%.2f 元\n", distanceKm, perKm*distanceKm)
	}
	if rp.NextUpdate != "" {
		fmt.Fprintf(&b, "下次调价：%s", rp.NextUpdate)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatFetchError(err error) string {
	return fmt.Sprintf("查询油价失败：%v", err)
}

const usageText = "用法：\n/fuel <地区>\n/fuel <地区> <油号> <油耗L/100km> [<里程km>]\n例：油价 广东 92# 8.5 300"
