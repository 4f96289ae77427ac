package projection

import (
	"fmt"
	"time"

	"github.com/jionychiow/cmss/internal/domain"
	"github.com/jionychiow/cmss/internal/implementer"
	"github.com/jionychiow/cmss/internal/registry"
	"github.com/jionychiow/cmss/internal/schema"
)

// Mode distinguishes create from update submissions.
type Mode int

const (
	ModeCreate Mode = iota
	ModeUpdate
)

// IDResolver maps reference codes to backend ids. *registry.Registry
// implements it.
type IDResolver interface {
	IDByCode(c registry.Collection, code string) (int64, error)
}

// SubmitPayload builds the request body for a record. Datetime keys are
// renamed to their backend aliases and normalised to wall-clock strings,
// implementers are joined, and the variant's id keys are translated to
// numeric ids. Read-only keys are dropped on create and echoed back on
// update. Empty dates and numbers are omitted so the backend keeps its
// defaults.
func SubmitPayload(r domain.Record, v *schema.Variant, mode Mode, ids IDResolver) (map[string]any, error) {
	out := make(map[string]any, len(v.Fields)+len(v.Context))

	for _, f := range v.Fields {
		if f.ReadOnly && (mode == ModeCreate || r.Blank(f.Key)) {
			continue
		}
		if v.SubmitsID(f.Key) {
			continue
		}
		value := r.Get(f.Key)

		switch f.Kind {
		case schema.KindDateTime:
			raw, _ := lookupDateTime(r, f.Key)
			if raw == "" {
				continue
			}
			if t, ok := ParseDateTime(raw, time.Local); ok {
				raw = FormatWallClock(t)
			}
			key := f.Key
			if alias, ok := backendDateTimeKeys[f.Key]; ok {
				key = alias
			}
			out[key] = raw
		case schema.KindDate, schema.KindNumber, schema.KindDuration:
			if value != "" {
				out[f.Key] = value
			}
		case schema.KindImplementer:
			out[f.Key] = implementer.Join(implementer.Split(value))
		default:
			out[f.Key] = value
		}
	}

	for _, key := range v.Context {
		if !v.SubmitsID(key) {
			out[key] = r.Get(key)
		}
	}
	for _, key := range v.IDKeys {
		code := r.Get(key)
		if code == "" {
			continue
		}
		c, ok := registry.CollectionForKey(key)
		if !ok {
			return nil, fmt.Errorf("building payload: no collection for %q", key)
		}
		if ids == nil {
			return nil, fmt.Errorf("building payload: %s %q needs an id resolver", c.Label(), code)
		}
		id, err := ids.IDByCode(c, code)
		if err != nil {
			return nil, fmt.Errorf("building payload: %w", err)
		}
		out[key] = id
	}
	return out, nil
}
