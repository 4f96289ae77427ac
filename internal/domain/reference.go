package domain

// Phase is a top-level plant partition ("一期", "二期") that scopes production lines.
type Phase struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ProductionLine belongs to exactly one Phase, referenced by PhaseCode.
type ProductionLine struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	PhaseCode   string `json:"phase_code"`
	Description string `json:"description,omitempty"`
}

// Process is a manufacturing step. Processes are not scoped to a phase.
type Process struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ShiftType selects the record schema variant used for shift maintenance records.
type ShiftType struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ReferenceData is the payload of the configuration endpoint. The camelCase
// keys match what the backend sends.
type ReferenceData struct {
	Phases          []Phase          `json:"phases"`
	ProductionLines []ProductionLine `json:"productionLines"`
	Processes       []Process        `json:"processes"`
	ShiftTypes      []ShiftType      `json:"shiftTypes"`
}

// Clone returns a deep copy so callers can never mutate a cached snapshot.
func (d *ReferenceData) Clone() *ReferenceData {
	if d == nil {
		return nil
	}
	return &ReferenceData{
		Phases:          append([]Phase(nil), d.Phases...),
		ProductionLines: append([]ProductionLine(nil), d.ProductionLines...),
		Processes:       append([]Process(nil), d.Processes...),
		ShiftTypes:      append([]ShiftType(nil), d.ShiftTypes...),
	}
}

// Complete reports whether every collection was present in the payload.
// An absent collection decodes as nil, an empty one as a zero-length slice.
func (d *ReferenceData) Complete() bool {
	return d != nil && d.Phases != nil && d.ProductionLines != nil &&
		d.Processes != nil && d.ShiftTypes != nil
}
