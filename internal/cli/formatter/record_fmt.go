package formatter

import (
	"fmt"
	"strings"

	"github.com/jionychiow/cmss/internal/domain"
	"github.com/jionychiow/cmss/internal/hierarchy"
	"github.com/jionychiow/cmss/internal/projection"
	"github.com/jionychiow/cmss/internal/schema"
)

// maxCellWidth caps free-text columns so a long remark does not push the
// table off screen.
const maxCellWidth = 40

// FormatRecordTable renders records the way the list view shows them: an ID
// column followed by one column per field, values through the view, column
// widths from the layout.
func FormatRecordTable(title string, view projection.View, records []domain.Record, fields []schema.FieldDescriptor, layout projection.Layout) string {
	if len(records) == 0 {
		return RenderBox(title, Dim("No records."))
	}

	headers := append([]string{"ID"}, projection.Headers(fields)...)
	minWidths := make([]int, 0, len(headers))
	minWidths = append(minWidths, 0)
	for _, f := range fields {
		minWidths = append(minWidths, min(layout.CharWidth(f.Key), maxCellWidth))
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		row := make([]string, 0, len(headers))
		row = append(row, Dim(r.Identifier()))
		for _, f := range fields {
			value := Truncate(view.DisplayValue(r, f), maxCellWidth)
			if f.Kind == schema.KindEnum {
				row = append(row, EnumPill(r.Get(f.Key), value))
				continue
			}
			row = append(row, OrDash(value))
		}
		rows = append(rows, row)
	}

	footer := Dim(fmt.Sprintf("%d records", len(records)))
	return RenderBox(title, RenderTableMin(headers, rows, minWidths)+"\n"+footer)
}

// FormatVariantList renders the catalog's record variants.
func FormatVariantList(catalog *schema.Catalog) string {
	headers := []string{"CODE", "NAME", "RESOURCE", "FIELDS"}
	var rows [][]string
	for _, code := range catalog.Codes() {
		v, err := catalog.Variant(code)
		if err != nil {
			continue
		}
		rows = append(rows, []string{Bold(v.Code), v.Name, Dim(v.Resource), fmt.Sprint(len(v.Fields))})
	}
	return RenderBox("Record Variants", RenderTable(headers, rows))
}

// FormatSchema renders the field list of a variant with required markers.
func FormatSchema(v *schema.Variant) string {
	headers := []string{"KEY", "LABEL", "KIND", "REQUIRED", "READ-ONLY"}
	rows := make([][]string, 0, len(v.Fields))
	for _, f := range v.Fields {
		kind := string(f.Kind)
		if f.Enum != "" {
			kind += ":" + f.Enum
		}
		rows = append(rows, []string{f.Key, Bold(f.Label), Dim(kind), Check(f.Required), Check(f.ReadOnly)})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", StyleBold.Render(v.Name), Dim(v.Code))
	if len(v.Context) > 0 {
		fmt.Fprintf(&b, "  %s  %s\n", StyleDim.Render("CONTEXT"), strings.Join(v.Context, ", "))
	}
	if len(v.IDKeys) > 0 {
		fmt.Fprintf(&b, "  %s  %s\n", StyleDim.Render("ID KEYS"), strings.Join(v.IDKeys, ", "))
	}
	b.WriteString("\n")
	b.WriteString(RenderTable(headers, rows))
	return RenderBox("Schema", b.String())
}

// FormatReferenceData renders the four reference collections. Lines are the
// production lines to show, already narrowed by the hierarchy resolver.
func FormatReferenceData(data *domain.ReferenceData, lines []hierarchy.Option) string {
	var b strings.Builder

	b.WriteString(Header("Phases") + "\n")
	rows := make([][]string, 0, len(data.Phases))
	for _, p := range data.Phases {
		rows = append(rows, []string{p.Code, Bold(p.Name), Dim(p.Description)})
	}
	b.WriteString(RenderTable([]string{"CODE", "NAME", "DESCRIPTION"}, rows) + "\n")

	b.WriteString(Header("Production Lines") + "\n")
	phaseOf := make(map[string]string, len(data.ProductionLines))
	for _, l := range data.ProductionLines {
		phaseOf[l.Code] = l.PhaseCode
	}
	rows = rows[:0]
	for _, l := range lines {
		rows = append(rows, []string{l.Code, Bold(l.Name), Dim(phaseOf[l.Code])})
	}
	if len(rows) == 0 {
		b.WriteString(Dim("No production lines.") + "\n\n")
	} else {
		b.WriteString(RenderTable([]string{"CODE", "NAME", "PHASE"}, rows) + "\n")
	}

	b.WriteString(Header("Processes") + "\n")
	rows = rows[:0]
	for _, p := range data.Processes {
		rows = append(rows, []string{p.Code, Bold(p.Name), Dim(p.Description)})
	}
	b.WriteString(RenderTable([]string{"CODE", "NAME", "DESCRIPTION"}, rows) + "\n")

	b.WriteString(Header("Shift Types") + "\n")
	rows = rows[:0]
	for _, s := range data.ShiftTypes {
		rows = append(rows, []string{s.Code, Bold(s.Name), Dim(s.Description)})
	}
	b.WriteString(RenderTable([]string{"CODE", "NAME", "DESCRIPTION"}, rows))

	return RenderBox("Configuration", b.String())
}
