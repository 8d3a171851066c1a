package cmd

import (
	"fmt"
	"time"
)

// formatNumber formats a number with K/M suffixes for readability
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	} else if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%.1fM", float64(n)/1000000)
}

// formatRelative formats a time relative to now or as an absolute date
func formatRelative(t, now time.Time) string {
	diff := now.Sub(t)

	if diff < 24*time.Hour {
		if diff < time.Hour {
			minutes := int(diff.Minutes())
			if minutes < 1 {
				return "just now"
			}
			return fmt.Sprintf("%d minutes ago", minutes)
		}
		return fmt.Sprintf("%d hours ago", int(diff.Hours()))
	}

	if diff < 7*24*time.Hour {
		return fmt.Sprintf("%d days ago", int(diff.Hours()/24))
	}

	if t.Year() == now.Year() {
		return t.Format("Jan 2, 15:04")
	}
	return t.Format("Jan 2, 2006")
}

// formatDuration formats a duration in human-readable form
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Hour:
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%.1f hours", d.Hours())
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%.1f days", d.Hours()/24)
	case d < 365*24*time.Hour:
		return fmt.Sprintf("%.1f months", d.Hours()/(24*30))
	}
	return fmt.Sprintf("%.1f years", d.Hours()/(24*365))
}
