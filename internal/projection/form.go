package projection

import (
	"errors"
	"fmt"
	"time"

	"github.com/jionychiow/cmss/internal/domain"
	"github.com/jionychiow/cmss/internal/implementer"
	"github.com/jionychiow/cmss/internal/schema"
)

// ErrMissingField is returned when a required field is blank.
var ErrMissingField = errors.New("missing required field")

// Defaults seed a new form from the active context.
type Defaults struct {
	Phase       string
	ShiftType   string
	Implementer string
	Now         time.Time
}

// InitialValues returns a record with every field key present and empty,
// then seeded from d.
func InitialValues(fields []schema.FieldDescriptor, d Defaults) domain.Record {
	r := make(domain.Record, len(fields)+2)
	for _, f := range fields {
		r[f.Key] = ""
	}
	r.Set(domain.KeyPhase, d.Phase)
	r.Set(domain.KeyShiftType, d.ShiftType)

	for _, f := range fields {
		switch f.Kind {
		case schema.KindImplementer:
			if d.Implementer != "" {
				r.Set(f.Key, d.Implementer)
			}
		case schema.KindDateTime:
			if !d.Now.IsZero() {
				r.Set(f.Key, FormatWallClock(d.Now))
			}
		}
	}
	ApplyDerived(r)
	return r
}

// Result is the outcome of Validate.
type Result struct {
	OK      bool
	Missing []schema.FieldDescriptor
}

// Err reports the first missing field, or nil.
func (r Result) Err() error {
	if r.OK || len(r.Missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrMissingField, r.Missing[0].Label)
}

// Validate checks every required field. Implementer fields are checked
// against implementers, the current multi-select list; when that is nil the
// record value is split instead.
func Validate(r domain.Record, fields []schema.FieldDescriptor, implementers []string) Result {
	var missing []schema.FieldDescriptor
	for _, f := range fields {
		if !f.Required || f.ReadOnly {
			continue
		}
		if f.Kind == schema.KindImplementer {
			names := implementers
			if names == nil {
				names = implementer.Split(r.Get(f.Key))
			}
			if len(implementer.Apply(names, "")) == 0 {
				missing = append(missing, f)
			}
			continue
		}
		if r.Blank(f.Key) {
			missing = append(missing, f)
		}
	}
	return Result{OK: len(missing) == 0, Missing: missing}
}
