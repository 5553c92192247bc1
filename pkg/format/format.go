package format

import (
	"fmt"
	"time"
)

// Bytes renders a byte count with binary units.
func Bytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	units := []string{"KB", "MB", "GB", "TB", "PB"}
	return fmt.Sprintf("%.2f %s", float64(bytes)/float64(div), units[exp])
}

// Duration formats a duration in a readable way.
func Duration(d time.Duration) string {
	if d < time.Second {
		return d.String()
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

// Percentage renders a 0..100 value without noise at the bounds.
func Percentage(value float64) string {
	if value == 0 {
		return "0%"
	}
	if value == 100.0 {
		return "100%"
	}
	return fmt.Sprintf("%.1f%%", value)
}

// Rate renders an events-per-second figure.
func Rate(perSecond float64) string {
	if perSecond >= 1000 {
		return fmt.Sprintf("%.1fk/s", perSecond/1000)
	}
	return fmt.Sprintf("%.1f/s", perSecond)
}
