package ui

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/tgeclaim/engine/internal/dashboard"
)

// formatAmount renders a token amount with thousands separators and two
// decimals.
func formatAmount(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}

// formatDuration formats a duration in human-readable form.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// formatTimeAgo formats a time as "X ago".
func formatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

// formatRemaining renders the time left on a lock.
func formatRemaining(r dashboard.Remaining) string {
	if r.IsUnlocked {
		return "unlocked"
	}
	if r.Days > 0 {
		return fmt.Sprintf("%dd %dh", r.Days, r.Hours)
	}
	return fmt.Sprintf("%dh %dm", r.Hours, r.Minutes)
}

// truncateAddress truncates a wallet address for display.
func truncateAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
