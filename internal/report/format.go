package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

var byteSuffixes = []string{"KiB", "MiB", "GiB", "TiB", "PiB", "EiB", "ZiB", "YiB"}

// FormatCount formats an integer with thousands separators. Deltas get an
// explicit plus sign when strictly positive.
func FormatCount(n int64, isDelta bool) string {
	if isDelta && n > 0 {
		return "+" + humanize.Comma(n)
	}
	return humanize.Comma(n)
}

// FormatBytes formats a byte count with binary (1024-based) magnitude
// suffixes and one decimal place. Deltas carry an explicit sign. Values under
// one KiB stay plain integers ("300 Bytes", "1 Byte").
func FormatBytes(n int64, isDelta bool) string {
	abs := n
	if abs < 0 {
		abs = -abs
	}
	if abs == 1 {
		return fmt.Sprintf("%d Byte", n)
	}
	if abs < 1024 {
		return fmt.Sprintf("%d Bytes", n)
	}

	format := "%.1f %s"
	if isDelta {
		format = "%+.1f %s"
	}
	value := float64(n)
	unit := float64(1024)
	for _, suffix := range byteSuffixes {
		unit *= 1024
		if float64(abs) < unit {
			return fmt.Sprintf(format, 1024*value/unit, suffix)
		}
	}
	return fmt.Sprintf(format, 1024*value/unit, byteSuffixes[len(byteSuffixes)-1])
}

// FormatDuration humanizes a duration as days, hours, minutes and seconds,
// e.g. "3 days, 2 hours and 5 minutes". Zero-valued units are dropped;
// a zero duration reads "0 seconds".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	d = d.Truncate(time.Second)

	units := []struct {
		name string
		size time.Duration
	}{
		{"day", 24 * time.Hour},
		{"hour", time.Hour},
		{"minute", time.Minute},
		{"second", time.Second},
	}

	var parts []string
	for _, unit := range units {
		n := d / unit.size
		d -= n * unit.size
		if n == 0 {
			continue
		}
		label := unit.name
		if n != 1 {
			label += "s"
		}
		parts = append(parts, fmt.Sprintf("%d %s", n, label))
	}

	switch len(parts) {
	case 0:
		return "0 seconds"
	case 1:
		return parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
	}
}
