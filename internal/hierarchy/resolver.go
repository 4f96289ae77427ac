// Package hierarchy keeps Phase -> Production Line -> Process selections
// consistent. Every form and list filter goes through these functions so the
// cascade rules exist in one place.
package hierarchy

import (
	"errors"
	"fmt"

	"github.com/jionychiow/cmss/internal/domain"
)

// ErrLineOutsidePhase indicates a production line that belongs to another phase.
var ErrLineOutsidePhase = errors.New("production line does not belong to phase")

// Field is one level of the cascade.
type Field string

const (
	FieldPhase          Field = domain.KeyPhase
	FieldProductionLine Field = domain.KeyProductionLine
	FieldProcess        Field = domain.KeyProcess
)

// Level names the parent side of a ChildrenOf lookup.
type Level string

const (
	LevelPhase          Level = "phase"
	LevelProductionLine Level = "production_line"
)

// Option is a selectable child value.
type Option struct {
	Code string
	Name string
}

// ChildrenOf returns the valid children of parentCode at the given parent
// level. An empty parentCode yields the full unfiltered list so a cleared
// filter never locks the form. Processes are phase independent, so the
// children of a production line are always every process.
func ChildrenOf(parent Level, parentCode string, data *domain.ReferenceData) []Option {
	if data == nil {
		return nil
	}
	switch parent {
	case LevelPhase:
		out := make([]Option, 0, len(data.ProductionLines))
		for _, l := range data.ProductionLines {
			if parentCode == "" || l.PhaseCode == parentCode {
				out = append(out, Option{Code: l.Code, Name: l.Name})
			}
		}
		return out
	case LevelProductionLine:
		out := make([]Option, 0, len(data.Processes))
		for _, p := range data.Processes {
			out = append(out, Option{Code: p.Code, Name: p.Name})
		}
		return out
	}
	return nil
}

// PhaseOptions lists every phase.
func PhaseOptions(data *domain.ReferenceData) []Option {
	if data == nil {
		return nil
	}
	out := make([]Option, 0, len(data.Phases))
	for _, p := range data.Phases {
		out = append(out, Option{Code: p.Code, Name: p.Name})
	}
	return out
}

// OnParentChange returns the fields to clear when changed is edited.
func OnParentChange(changed Field) []Field {
	switch changed {
	case FieldPhase:
		return []Field{FieldProductionLine, FieldProcess}
	case FieldProductionLine:
		return []Field{FieldProcess}
	}
	return nil
}

// Selection is the current Phase/Line/Process choice of a form or filter.
type Selection struct {
	Phase          string
	ProductionLine string
	Process        string
}

// SelectionFrom reads the three cascade keys out of a record.
func SelectionFrom(r domain.Record) Selection {
	return Selection{
		Phase:          r.Get(domain.KeyPhase),
		ProductionLine: r.Get(domain.KeyProductionLine),
		Process:        r.Get(domain.KeyProcess),
	}
}

// Set assigns code to field and clears every dependent field. Setting a
// field to its current value is not a change and resets nothing.
func (s Selection) Set(field Field, code string) Selection {
	if s.get(field) == code {
		return s
	}
	s.put(field, code)
	for _, f := range OnParentChange(field) {
		s.put(f, "")
	}
	return s
}

// Apply writes the selection into r.
func (s Selection) Apply(r domain.Record) {
	r.Set(domain.KeyPhase, s.Phase)
	r.Set(domain.KeyProductionLine, s.ProductionLine)
	r.Set(domain.KeyProcess, s.Process)
}

// ProductionLineOptions returns the lines selectable under the current phase.
func (s Selection) ProductionLineOptions(data *domain.ReferenceData) []Option {
	return ChildrenOf(LevelPhase, s.Phase, data)
}

// ProcessOptions returns the processes selectable under the current line.
func (s Selection) ProcessOptions(data *domain.ReferenceData) []Option {
	return ChildrenOf(LevelProductionLine, s.ProductionLine, data)
}

// Validate checks that the selected production line lives in the selected
// phase. Empty values are not checked; required-ness belongs to the schema.
func (s Selection) Validate(data *domain.ReferenceData) error {
	if s.Phase == "" || s.ProductionLine == "" || data == nil {
		return nil
	}
	for _, l := range data.ProductionLines {
		if l.Code == s.ProductionLine {
			if l.PhaseCode != s.Phase {
				return fmt.Errorf("%w: %s is in %s, not %s", ErrLineOutsidePhase, l.Code, l.PhaseCode, s.Phase)
			}
			return nil
		}
	}
	return nil
}

func (s Selection) get(f Field) string {
	switch f {
	case FieldPhase:
		return s.Phase
	case FieldProductionLine:
		return s.ProductionLine
	case FieldProcess:
		return s.Process
	}
	return ""
}

func (s *Selection) put(f Field, v string) {
	switch f {
	case FieldPhase:
		s.Phase = v
	case FieldProductionLine:
		s.ProductionLine = v
	case FieldProcess:
		s.Process = v
	}
}

// Codes extracts the codes of opts.
func Codes(opts []Option) []string {
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = o.Code
	}
	return out
}
