package cli

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/jionychiow/cmss/internal/cli/formatter"
	"github.com/jionychiow/cmss/internal/domain"
	"github.com/jionychiow/cmss/internal/hierarchy"
	"github.com/jionychiow/cmss/internal/implementer"
	"github.com/jionychiow/cmss/internal/projection"
	"github.com/jionychiow/cmss/internal/schema"
)

// cmssHuhTheme returns a huh theme using the formatter palette.
func cmssHuhTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(formatter.ColorHeader).Bold(true)
	t.Focused.SelectSelector = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(formatter.ColorGreen)
	t.Focused.UnselectedOption = lipgloss.NewStyle().Foreground(formatter.ColorFg)
	t.Focused.MultiSelectSelector = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.FocusedButton = lipgloss.NewStyle().Foreground(formatter.ColorFg).Background(formatter.ColorHeader).Padding(0, 1)
	t.Focused.BlurredButton = lipgloss.NewStyle().Foreground(formatter.ColorDim).Padding(0, 1)
	t.Focused.TextInput.Cursor = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.TextInput.Prompt = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.TextInput.Text = lipgloss.NewStyle().Foreground(formatter.ColorFg)
	t.Focused.TextInput.Placeholder = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Focused.Description = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Focused.ErrorMessage = lipgloss.NewStyle().Foreground(formatter.ColorRed)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.SelectSelector = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.SelectedOption = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.UnselectedOption = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.TextInput.Prompt = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.TextInput.Text = lipgloss.NewStyle().Foreground(formatter.ColorDim)

	return t
}

// cascadeKeys are rendered first, in this order, so each select can narrow
// the next one.
var cascadeKeys = []string{domain.KeyPhase, domain.KeyProductionLine, domain.KeyProcess}

// recordForm holds the bound values of a schema-driven huh form.
type recordForm struct {
	fields      []schema.FieldDescriptor
	values      map[string]*string
	selected    map[string]*[]string
	currentUser string
	base        domain.Record

	// phaseChanges and lineChanges count cascade edits. The dependent
	// selects are bound to them, so a cleared select reloads its options
	// instead of reusing a cached cursor.
	phaseChanges int
	lineChanges  int
}

// formInput is what a record form is built from.
type formInput struct {
	catalog     *schema.Catalog
	variant     *schema.Variant
	seed        domain.Record
	data        *domain.ReferenceData
	users       []string
	currentUser string
}

// newRecordForm builds the form for in.variant. Context keys (the active
// phase and shift type) are not asked for; they stay as seeded and narrow
// the production line select.
func newRecordForm(in formInput) (*huh.Form, *recordForm, error) {
	fields, err := in.catalog.FormFieldsFor(in.variant.Code)
	if err != nil {
		return nil, nil, err
	}
	fields = slices.DeleteFunc(fields, func(f schema.FieldDescriptor) bool {
		return slices.Contains(in.variant.Context, f.Key) || f.Kind == schema.KindDuration || f.ReadOnly
	})

	rf := &recordForm{
		fields:      fields,
		values:      make(map[string]*string, len(fields)),
		selected:    make(map[string]*[]string),
		currentUser: in.currentUser,
		base:        in.seed.Clone(),
	}
	for _, key := range in.variant.Context {
		v := in.seed.Get(key)
		rf.values[key] = &v
	}

	var levels []schema.FieldDescriptor
	for _, key := range cascadeKeys {
		if f, ok := fieldByKey(fields, key); ok && f.Kind == schema.KindReference {
			rf.bind(key, in.seed.Get(key))
			levels = append(levels, f)
		}
	}
	var cascade, rest []huh.Field
	for _, f := range levels {
		cascade = append(cascade, rf.referenceSelect(f, in.data))
	}
	for _, f := range fields {
		if slices.Contains(cascadeKeys, f.Key) && f.Kind == schema.KindReference {
			continue
		}
		field, err := rf.field(in, f)
		if err != nil {
			return nil, nil, err
		}
		rest = append(rest, field)
	}

	var groups []*huh.Group
	if len(cascade) > 0 {
		groups = append(groups, huh.NewGroup(cascade...).Title(in.variant.Name))
	}
	if len(rest) > 0 {
		groups = append(groups, huh.NewGroup(rest...))
	}
	form := huh.NewForm(groups...).WithTheme(cmssHuhTheme()).WithShowHelp(false)
	return form, rf, nil
}

func fieldByKey(fields []schema.FieldDescriptor, key string) (schema.FieldDescriptor, bool) {
	for _, f := range fields {
		if f.Key == key {
			return f, true
		}
	}
	return schema.FieldDescriptor{}, false
}

func (rf *recordForm) bind(key, initial string) *string {
	v := initial
	rf.values[key] = &v
	return &v
}

// referenceSelect returns the select for one cascade level. Its value is
// read and written through cascadeAccessor, and the option list is rebuilt
// whenever the parent level changes.
func (rf *recordForm) referenceSelect(f schema.FieldDescriptor, data *domain.ReferenceData) huh.Field {
	sel := huh.NewSelect[string]().
		Title(f.Label).
		Accessor(cascadeAccessor{rf: rf, field: hierarchy.Field(f.Key)}).
		Validate(required(f))

	switch f.Key {
	case domain.KeyPhase:
		return sel.Options(hierarchyOptions(hierarchy.PhaseOptions(data), !f.Required)...)
	case domain.KeyProductionLine:
		return sel.OptionsFunc(func() []huh.Option[string] {
			return hierarchyOptions(rf.selection().ProductionLineOptions(data), true)
		}, &rf.phaseChanges)
	default:
		return sel.OptionsFunc(func() []huh.Option[string] {
			return hierarchyOptions(rf.selection().ProcessOptions(data), true)
		}, &rf.lineChanges)
	}
}

// cascadeAccessor binds one cascade select to the form. Writes go through
// hierarchy.Selection.Set, so changing a phase clears the line and process
// and changing a line clears the process.
type cascadeAccessor struct {
	rf    *recordForm
	field hierarchy.Field
}

func (a cascadeAccessor) Get() string {
	return deref(a.rf.values[string(a.field)])
}

func (a cascadeAccessor) Set(code string) {
	a.rf.setCascade(a.field, code)
}

// selection reads the cascade values of the form.
func (rf *recordForm) selection() hierarchy.Selection {
	return hierarchy.Selection{
		Phase:          deref(rf.values[domain.KeyPhase]),
		ProductionLine: deref(rf.values[domain.KeyProductionLine]),
		Process:        deref(rf.values[domain.KeyProcess]),
	}
}

func (rf *recordForm) setCascade(field hierarchy.Field, code string) {
	before := rf.selection()
	after := before.Set(field, code)
	if after == before {
		return
	}
	for key, v := range map[string]string{
		domain.KeyPhase:          after.Phase,
		domain.KeyProductionLine: after.ProductionLine,
		domain.KeyProcess:        after.Process,
	} {
		if p := rf.values[key]; p != nil {
			*p = v
		}
	}
	switch field {
	case hierarchy.FieldPhase:
		rf.phaseChanges++
		rf.lineChanges++
	case hierarchy.FieldProductionLine:
		rf.lineChanges++
	}
}

func (rf *recordForm) field(in formInput, f schema.FieldDescriptor) (huh.Field, error) {
	switch f.Kind {
	case schema.KindEnum:
		opts, err := in.catalog.Enum(f.Enum)
		if err != nil {
			return nil, err
		}
		choices := make([]huh.Option[string], 0, len(opts)+1)
		if !f.Required {
			choices = append(choices, huh.NewOption("--", ""))
		}
		for _, o := range opts {
			choices = append(choices, huh.NewOption(o.Label, o.Code))
		}
		return huh.NewSelect[string]().Title(f.Label).Options(choices...).
			Value(rf.bind(f.Key, in.seed.Get(f.Key))).Validate(required(f)), nil

	case schema.KindImplementer:
		picked := implementer.Apply(implementer.Split(in.seed.Get(f.Key)), in.currentUser)
		rf.selected[f.Key] = &picked
		return huh.NewMultiSelect[string]().
			Title(f.Label).
			Description(in.currentUser + " is always listed first").
			Options(implementerOptions(in.users, picked)...).
			Value(&picked), nil

	case schema.KindTextarea:
		return huh.NewText().Title(f.Label).Lines(3).
			Value(rf.bind(f.Key, in.seed.Get(f.Key))).Validate(required(f)), nil

	case schema.KindReference:
		return huh.NewInput().Title(f.Label).
			Value(rf.bind(f.Key, in.seed.Get(f.Key))).Validate(required(f)), nil
	}

	return huh.NewInput().
		Title(f.Label).
		Placeholder(placeholder(f.Kind)).
		Value(rf.bind(f.Key, in.seed.Get(f.Key))).
		Validate(validateInput(f)), nil
}

// record returns the seed merged with the form values. Implementer
// selections always lead with the current user.
func (rf *recordForm) record() domain.Record {
	out := rf.base.Clone()
	for key, v := range rf.values {
		out.Set(key, strings.TrimSpace(deref(v)))
	}
	for key, picked := range rf.selected {
		out.Set(key, implementer.Join(implementer.Apply(*picked, rf.currentUser)))
	}
	projection.ApplyDerived(out)
	return out
}

func hierarchyOptions(opts []hierarchy.Option, allowEmpty bool) []huh.Option[string] {
	out := make([]huh.Option[string], 0, len(opts)+1)
	if allowEmpty {
		out = append(out, huh.NewOption("--", ""))
	}
	for _, o := range opts {
		out = append(out, huh.NewOption(fmt.Sprintf("%s (%s)", o.Name, o.Code), o.Code))
	}
	return out
}

// implementerOptions lists picked names first, then every other user.
func implementerOptions(users, picked []string) []huh.Option[string] {
	names := implementer.Apply(append(slices.Clone(picked), users...), "")
	out := make([]huh.Option[string], 0, len(names))
	for _, n := range names {
		out = append(out, huh.NewOption(n, n).Selected(slices.Contains(picked, n)))
	}
	return out
}

func required(f schema.FieldDescriptor) func(string) error {
	return func(s string) error {
		if f.Required && strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", f.Label)
		}
		return nil
	}
}

func validateInput(f schema.FieldDescriptor) func(string) error {
	return func(s string) error {
		if err := required(f)(s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		switch f.Kind {
		case schema.KindNumber:
			if _, err := strconv.ParseFloat(s, 64); err != nil {
				return fmt.Errorf("%s must be a number", f.Label)
			}
		case schema.KindDateTime, schema.KindDate:
			if _, ok := projection.ParseDateTime(s, nil); !ok {
				return fmt.Errorf("%s is not a valid date", f.Label)
			}
		}
		return nil
	}
}

func placeholder(k schema.Kind) string {
	switch k {
	case schema.KindDateTime:
		return projection.WallClockLayout
	case schema.KindDate:
		return projection.DateLayout
	case schema.KindNumber:
		return "0"
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// confirmDelete asks before deleting ids.
func confirmDelete(variant string, ids []string, ok *bool) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %d %s record(s)?", len(ids), variant)).
				Description(strings.Join(ids, ", ")).
				Affirmative("Delete").
				Negative("Cancel").
				Value(ok),
		),
	).WithTheme(cmssHuhTheme()).WithShowHelp(false)
}
