package projection

import (
	"strconv"
	"strings"
	"time"

	"github.com/jionychiow/cmss/internal/domain"
	"github.com/jionychiow/cmss/internal/registry"
	"github.com/jionychiow/cmss/internal/schema"
)

// EnumLabeler maps enum codes to labels. *schema.Catalog implements it.
type EnumLabeler interface {
	EnumLabel(enum, code string) string
}

// NameResolver maps reference codes to display names. *registry.Registry
// implements it.
type NameResolver interface {
	Resolve(c registry.Collection, code string) (string, error)
}

// View renders record values for display. Names and Location may be nil;
// reference codes are then shown raw and times in the local zone.
type View struct {
	Enums    EnumLabeler
	Names    NameResolver
	Location *time.Location
}

// DisplayValue returns the display string of one field.
func (v View) DisplayValue(r domain.Record, f schema.FieldDescriptor) string {
	switch f.Kind {
	case schema.KindEnum:
		code := r.Get(f.Key)
		if v.Enums == nil || code == "" {
			return code
		}
		return v.Enums.EnumLabel(f.Enum, code)

	case schema.KindDateTime:
		raw, _ := lookupDateTime(r, f.Key)
		if t, ok := ParseDateTime(raw, v.Location); ok {
			return FormatWallClock(t)
		}
		return raw

	case schema.KindDate:
		raw := r.Get(f.Key)
		if t, ok := ParseDateTime(raw, v.Location); ok {
			return t.Format(DateLayout)
		}
		return raw

	case schema.KindDuration:
		raw := strings.TrimSpace(r.Get(f.Key))
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return strconv.FormatFloat(n, 'f', 1, 64)
		}
		return raw

	case schema.KindReference:
		code := r.Get(f.Key)
		c, ok := registry.CollectionForKey(f.Key)
		if v.Names == nil || code == "" || !ok {
			return code
		}
		if name, err := v.Names.Resolve(c, code); err == nil {
			return name
		}
		return code
	}
	return r.Get(f.Key)
}

// Headers returns the column labels of fields.
func Headers(fields []schema.FieldDescriptor) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Label
	}
	return out
}

// Rows projects records onto fields, one display row per record.
func (v View) Rows(records []domain.Record, fields []schema.FieldDescriptor) [][]string {
	rows := make([][]string, len(records))
	for i, r := range records {
		row := make([]string, len(fields))
		for j, f := range fields {
			row[j] = v.DisplayValue(r, f)
		}
		rows[i] = row
	}
	return rows
}
