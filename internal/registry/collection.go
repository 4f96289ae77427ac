package registry

import "github.com/jionychiow/cmss/internal/domain"

// Collection names one of the four reference collections.
type Collection string

const (
	CollectionPhase          Collection = "phase"
	CollectionProductionLine Collection = "production_line"
	CollectionProcess        Collection = "process"
	CollectionShiftType      Collection = "shift_type"
)

// Label is the human-readable collection name used in error messages.
func (c Collection) Label() string {
	switch c {
	case CollectionProductionLine:
		return "production line"
	case CollectionShiftType:
		return "shift type"
	default:
		return string(c)
	}
}

// CollectionForKey maps a record key to the collection holding its values.
func CollectionForKey(key string) (Collection, bool) {
	switch key {
	case domain.KeyPhase:
		return CollectionPhase, true
	case domain.KeyProductionLine:
		return CollectionProductionLine, true
	case domain.KeyProcess:
		return CollectionProcess, true
	case domain.KeyShiftType:
		return CollectionShiftType, true
	}
	return "", false
}

// entry is the common shape of every reference entity.
type entry struct {
	id   int64
	code string
	name string
}

func entries(data *domain.ReferenceData, c Collection) []entry {
	var out []entry
	switch c {
	case CollectionPhase:
		for _, p := range data.Phases {
			out = append(out, entry{p.ID, p.Code, p.Name})
		}
	case CollectionProductionLine:
		for _, l := range data.ProductionLines {
			out = append(out, entry{l.ID, l.Code, l.Name})
		}
	case CollectionProcess:
		for _, p := range data.Processes {
			out = append(out, entry{p.ID, p.Code, p.Name})
		}
	case CollectionShiftType:
		for _, s := range data.ShiftTypes {
			out = append(out, entry{s.ID, s.Code, s.Name})
		}
	}
	return out
}
