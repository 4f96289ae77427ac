package projection

import (
	"math"
	"strconv"
	"time"

	"github.com/jionychiow/cmss/internal/domain"
)

// backendDateTimeKeys maps form datetime keys to the keys the backend uses.
var backendDateTimeKeys = map[string]string{
	domain.KeyStartDateTime: "start_datetime",
	domain.KeyEndDateTime:   "end_datetime",
}

// ComputeDuration returns the hours between start and end rounded to one
// decimal place. It returns "" when either side is unparsable or the range
// is not positive. Both values are compared as wall-clock times.
func ComputeDuration(start, end string) string {
	s, ok := ParseDateTime(start, time.UTC)
	if !ok {
		return ""
	}
	e, ok := ParseDateTime(end, time.UTC)
	if !ok {
		return ""
	}
	hours := e.Sub(s).Hours()
	if hours <= 0 {
		return ""
	}
	return strconv.FormatFloat(math.Round(hours*10)/10, 'f', 1, 64)
}

// ApplyDerived recomputes the derived duration of a record that carries a
// start or end time. Records without either are left alone.
func ApplyDerived(r domain.Record) {
	start, hasStart := lookupDateTime(r, domain.KeyStartDateTime)
	end, hasEnd := lookupDateTime(r, domain.KeyEndDateTime)
	if !hasStart && !hasEnd {
		return
	}
	r.Set(domain.KeyDuration, ComputeDuration(start, end))
}

// lookupDateTime reads a datetime under its form key, falling back to the
// backend alias.
func lookupDateTime(r domain.Record, key string) (string, bool) {
	if v, ok := r[key]; ok && v != "" {
		return v, true
	}
	if alias, ok := backendDateTimeKeys[key]; ok {
		if v, ok := r[alias]; ok {
			return v, true
		}
	}
	_, ok := r[key]
	return r[key], ok
}
