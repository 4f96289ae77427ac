package formatter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jionychiow/cmss/internal/domain"
	"github.com/jionychiow/cmss/internal/projection"
	"github.com/jionychiow/cmss/internal/schema"
	"github.com/jionychiow/cmss/internal/service"
	"github.com/jionychiow/cmss/internal/spreadsheet"
)

// FormatImportResult renders the accepted/rejected summary of an import and
// the reason for every rejected row.
func FormatImportResult(r *service.ImportResult) string {
	var b strings.Builder

	summary := spreadsheet.Summary{Accepted: r.Accepted, Rejected: r.Rejected}
	switch {
	case r.Rejected == 0:
		b.WriteString(StyleGreen.Render(summary.String()))
	case r.Accepted == 0:
		b.WriteString(StyleRed.Render(summary.String()))
	default:
		b.WriteString(StyleYellow.Render(summary.String()))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s  %s\n", StyleDim.Render("BATCH"), Dim(r.BatchID))

	if r.Uploaded {
		fmt.Fprintf(&b, "  %s  %s\n", StyleDim.Render("SERVER"), OrDash(r.ServerMessage))
	} else {
		fmt.Fprintf(&b, "  %s  %s\n", StyleDim.Render("SERVER"), Dim("nothing uploaded"))
	}

	if len(r.RowErrors) > 0 {
		b.WriteString("\n" + Header("Rejected Rows") + "\n")
		rows := make([][]string, 0, len(r.RowErrors))
		for _, e := range r.RowErrors {
			rows = append(rows, []string{strconv.Itoa(e.Row), StyleRed.Render(e.Reason)})
		}
		b.WriteString(RenderTable([]string{"ROW", "REASON"}, rows))
	}
	if len(r.ServerErrors) > 0 {
		b.WriteString("\n" + Header("Server Errors") + "\n")
		for _, e := range r.ServerErrors {
			b.WriteString("  " + StyleRed.Render("✖") + " " + e + "\n")
		}
	}
	return RenderBox("Import", strings.TrimRight(b.String(), "\n"))
}

// FormatBatchResult renders the outcome of a batch delete.
func FormatBatchResult(r *service.BatchResult) string {
	var b strings.Builder
	total := len(r.Succeeded) + len(r.Failed)
	line := fmt.Sprintf("Deleted %d of %d", len(r.Succeeded), total)
	if len(r.Failed) == 0 {
		b.WriteString(StyleGreen.Render(line))
	} else {
		b.WriteString(StyleYellow.Render(line))
	}
	b.WriteString("\n")

	if len(r.Failed) > 0 {
		ids := make([]string, 0, len(r.Failed))
		for id := range r.Failed {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		rows := make([][]string, 0, len(ids))
		for _, id := range ids {
			rows = append(rows, []string{id, StyleRed.Render(r.Failed[id].Error())})
		}
		b.WriteString("\n" + RenderTable([]string{"ID", "ERROR"}, rows))
	}
	if r.RefreshErr != nil {
		b.WriteString("\n" + StyleRed.Render("refresh failed: "+r.RefreshErr.Error()) + "\n")
	} else {
		b.WriteString(Dim(fmt.Sprintf("%d records remain", len(r.Records))) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatRecord renders one record as a label/value card.
func FormatRecord(title string, view projection.View, r domain.Record, fields []schema.FieldDescriptor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %s  %s\n", StyleDim.Render("ID"), Bold(OrDash(r.Identifier())))
	for _, f := range fields {
		fmt.Fprintf(&b, "  %s  %s\n", StyleDim.Render(f.Label), OrDash(view.DisplayValue(r, f)))
	}
	return RenderBox(title, strings.TrimRight(b.String(), "\n"))
}
