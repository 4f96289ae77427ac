package projection

import (
	"strings"
	"time"
)

// WallClockLayout is the datetime format shown to users and submitted to the
// backend. It carries no zone: values are local wall-clock time.
const WallClockLayout = "2006-01-02 15:04:05"

// DateLayout is the format of date-only fields.
const DateLayout = "2006-01-02"

var zonedLayouts = []string{time.RFC3339Nano, time.RFC3339}

var localLayouts = []string{
	WallClockLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	DateLayout,
}

// ParseDateTime accepts backend ISO timestamps (converted into loc) and
// zone-less wall-clock strings (interpreted in loc).
func ParseDateTime(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.In(loc), true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatWallClock renders t as YYYY-MM-DD HH:mm:ss.
func FormatWallClock(t time.Time) string {
	return t.Format(WallClockLayout)
}
