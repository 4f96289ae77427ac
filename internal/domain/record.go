package domain

import (
	"sort"
	"strings"
)

// Keys shared by every record kind, plus the server-assigned keys that are
// shown read-only and never submitted on create.
const (
	KeyID             = "id"
	KeyUUID           = "uuid"
	KeyPhase          = "phase"
	KeyShiftType      = "shift_type"
	KeyProductionLine = "production_line"
	KeyProcess        = "process"
	KeySerialNumber   = "serial_number"
	KeyMonth          = "month"
	KeyImplementer    = "implementer"
	KeyStartDateTime  = "start_date_time"
	KeyEndDateTime    = "end_date_time"
	KeyDuration       = "duration"
)

// ServerAssignedKeys are generated by the backend.
var ServerAssignedKeys = map[string]bool{
	KeySerialNumber: true,
	KeyMonth:        true,
}

// Record is a flat key/value view of a domain record (shift maintenance
// record, asset, task plan, manual). Its shape is governed by a schema variant.
type Record map[string]string

// Get returns the value for key, or "" when absent.
func (r Record) Get(key string) string {
	if r == nil {
		return ""
	}
	return r[key]
}

// Set stores value under key.
func (r Record) Set(key, value string) {
	r[key] = value
}

// Blank reports whether key is absent or only whitespace.
func (r Record) Blank(key string) bool {
	return strings.TrimSpace(r.Get(key)) == ""
}

// Clone returns an independent copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Identifier returns the record's id, falling back to its uuid.
func (r Record) Identifier() string {
	return CoalesceStr(r.Get(KeyID), r.Get(KeyUUID))
}

// Keys returns the record keys in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CoalesceStr returns the first non-empty string from vals.
func CoalesceStr(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
