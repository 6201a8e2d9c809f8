package helpers

import (
	"fmt"
	"time"
)

// RelativeTime describes t relative to now.
func RelativeTime(t, now time.Time) string {
	elapsed := now.Sub(t)
	if elapsed < 0 {
		return formatDuration(-elapsed) + " from now"
	}
	return formatDuration(elapsed) + " ago"
}

// FormatElapsed renders a run duration with second precision, e.g. "1m12s".
func FormatElapsed(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		seconds := int(d.Seconds())
		if seconds <= 1 {
			return "1 second"
		}
		return fmt.Sprintf("%d seconds", seconds)
	}

	if d < time.Hour {
		return plural(int(d.Minutes()), "minute")
	}

	if d < 24*time.Hour {
		return plural(int(d.Hours()), "hour")
	}

	if d < 30*24*time.Hour {
		return plural(int(d.Hours()/24), "day")
	}

	if d < 365*24*time.Hour {
		return plural(int(d.Hours()/(24*30)), "month")
	}

	return plural(int(d.Hours()/(24*365)), "year")
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
