package projection

import (
	"strconv"

	"github.com/jionychiow/cmss/internal/domain"
	"github.com/jionychiow/cmss/internal/registry"
	"github.com/jionychiow/cmss/internal/schema"
)

// CodeResolver maps backend ids to codes. *registry.Registry implements it.
type CodeResolver interface {
	CodeByID(c registry.Collection, id int64) (string, error)
}

// FromResponse turns a record as returned by the backend into the form
// shape: id keys become codes again and the backend datetime keys are
// copied to the form keys. Values that are not ids, or ids the registry does
// not know, are kept as they are.
func FromResponse(r domain.Record, v *schema.Variant, codes CodeResolver) domain.Record {
	out := r.Clone()
	for form, backend := range backendDateTimeKeys {
		if out.Blank(form) && !out.Blank(backend) {
			out.Set(form, out.Get(backend))
		}
	}
	if codes == nil {
		return out
	}
	for _, key := range v.IDKeys {
		id, err := strconv.ParseInt(out.Get(key), 10, 64)
		if err != nil {
			continue
		}
		c, ok := registry.CollectionForKey(key)
		if !ok {
			continue
		}
		if code, err := codes.CodeByID(c, id); err == nil {
			out.Set(key, code)
		}
	}
	return out
}
