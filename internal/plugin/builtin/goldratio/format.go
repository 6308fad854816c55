package goldratio

import (
	"fmt"
	"strings"

	"pricebot/pkg/textwidth"
)

const reportSeparator = "--------------------------------------"

// formatReport renders the ranked listing block used by both the query
// command and change notifications.
func formatReport(rec record) string {
	var b strings.Builder
	b.WriteString("📢 DNF金币比例（跨5A）\n")
	b.WriteString(reportSeparator)
	b.WriteByte('\n')
	for i, l := range rec.Listings {
		b.WriteString(textwidth.PadRight(fmt.Sprintf("%d", i+1), 2))
		b.WriteByte(' ')
		b.WriteString(textwidth.PadRight(textwidth.Truncate(l.Title, 18), 18))
		b.WriteByte(' ')
		b.WriteString(textwidth.PadRight(l.RatioText, 16))
		b.WriteByte('\n')
	}
	b.WriteString(reportSeparator)
	b.WriteByte('\n')
	b.WriteString(fmt.Sprintf("均价：1元=%.4f万金币\n", rec.Average))
	b.WriteString("数据来源：DD373")
	return b.String()
}

// formatAlert prefixes the report with the movement that triggered it.
func formatAlert(rec record, lastSent *float64) string {
	head := "📈 金币比例变动提醒\n"
	if lastSent != nil {
		delta := rec.Average - *lastSent
		arrow := "⬆️"
		if delta < 0 {
			arrow = "⬇️"
		}
		head += fmt.Sprintf("%s %.4f → %.4f（%+.4f）\n\n", arrow, *lastSent, rec.Average, delta)
	} else {
		head += "首次采样\n\n"
	}
	return head + formatReport(rec)
}

func formatFetchError(err error) string {
	return fmt.Sprintf("查询金币比例失败：%v", err)
}
