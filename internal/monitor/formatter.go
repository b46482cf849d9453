package monitor

import (
	"fmt"
	"time"
)

// FormatElapsed formats d as "Xh Ym", "Xm Ys" or "X.Xs".
func FormatElapsed(d time.Duration) string {
	switch {
	case d >= time.Hour:
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	case d >= time.Minute:
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
}

// FormatPercentage formats a ratio (0-1) as percentage
func FormatPercentage(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}

// TruncatePath keeps the tail of p within width runes.
func TruncatePath(p string, width int) string {
	r := []rune(p)
	if width <= 1 || len(r) <= width {
		return p
	}
	return "…" + string(r[len(r)-width+1:])
}
