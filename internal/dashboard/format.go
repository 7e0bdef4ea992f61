package dashboard

import (
	"fmt"
	"strings"

	"galaxy/internal/domain"
)

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	if n < 0 {
		return "-" + FormatInt(-n)
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	start := len(s) % 3
	if start > 0 {
		b.WriteString(s[:start])
	}
	for i := start; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatEnergy formats an energy value, using a K suffix above 10,000.
func FormatEnergy(e float64) string {
	if e >= 10_000 {
		return fmt.Sprintf("%.1fK", e/1e3)
	}
	return fmt.Sprintf("%.1f", e)
}

// FormatSentiment formats a sentiment score with an explicit sign.
func FormatSentiment(s float64) string {
	return fmt.Sprintf("%+.2f", s)
}

// SentimentGlyph is a one-character marker for a sentiment class.
func SentimentGlyph(s float64) string {
	switch domain.Classify(s) {
	case domain.SentimentPositive:
		return "▲"
	case domain.SentimentNegative:
		return "▼"
	default:
		return "•"
	}
}

// FormatPosition describes where a display frame sits in the timeline,
// e.g. "2024-01-03  12/40".
func FormatPosition(df domain.DisplayFrame, total int) string {
	if total == 0 {
		return df.DateLabel
	}
	return fmt.Sprintf("%s  %d/%d", df.DateLabel, df.Index+1, total)
}

// ProgressBar renders progress in [0, total-1] as a bar of the given width.
func ProgressBar(progress float64, total, width int) string {
	if width <= 0 {
		return ""
	}
	filled := 0
	if total > 1 {
		filled = int(progress / float64(total-1) * float64(width))
	}
	filled = max(0, min(filled, width))
	return strings.Repeat("━", filled) + strings.Repeat("─", width-filled)
}
