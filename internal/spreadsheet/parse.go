package spreadsheet

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jionychiow/cmss/internal/domain"
	"github.com/jionychiow/cmss/internal/hierarchy"
	"github.com/jionychiow/cmss/internal/implementer"
	"github.com/jionychiow/cmss/internal/projection"
	"github.com/jionychiow/cmss/internal/registry"
	"github.com/jionychiow/cmss/internal/schema"
	"github.com/xuri/excelize/v2"
)

// Scope is the upload context. Its values fill the variant's context keys
// (phase and shift type for shift records).
type Scope struct {
	Phase     string
	ShiftType string
}

func (s Scope) value(key string) string {
	switch key {
	case domain.KeyPhase:
		return s.Phase
	case domain.KeyShiftType:
		return s.ShiftType
	}
	return ""
}

// RowError explains why a spreadsheet row was rejected. Row is the 1-based
// row number as shown in the spreadsheet.
type RowError struct {
	Row    int
	Reason string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// ParseResult holds the accepted rows and the rejected ones.
type ParseResult struct {
	ValidRows []domain.Record
	RowErrors []RowError
}

// Summary counts accepted and rejected rows.
type Summary struct {
	Accepted int
	Rejected int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d accepted, %d rejected", s.Accepted, s.Rejected)
}

// Summary returns the accepted and rejected counts.
func (r *ParseResult) Summary() Summary {
	return Summary{Accepted: len(r.ValidRows), Rejected: len(r.RowErrors)}
}

// ParseUpload reads the first sheet of an uploaded workbook. Columns are
// matched by label, so their order is free and unknown columns are ignored.
// A missing required column fails the whole file; a bad row is reported and
// the rest of the batch continues.
func (c *Codec) ParseUpload(r io.Reader, v *schema.Variant, scope Scope) (*ParseResult, error) {
	fields, err := c.Catalog.TemplateFieldsFor(v.Code)
	if err != nil {
		return nil, err
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("reading workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyWorkbook
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyWorkbook
	}

	columns, err := matchColumns(rows[0], fields)
	if err != nil {
		return nil, err
	}

	var data *domain.ReferenceData
	if c.Refs != nil {
		if data, err = c.Refs.Snapshot(); err != nil {
			return nil, fmt.Errorf("reference data unavailable: %w", err)
		}
	}

	result := &ParseResult{}
	for i, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		rowNum := i + 2
		rec, reasons := c.parseRow(row, fields, columns, v, scope, data)
		if len(reasons) > 0 {
			result.RowErrors = append(result.RowErrors, RowError{Row: rowNum, Reason: strings.Join(reasons, "; ")})
			continue
		}
		result.ValidRows = append(result.ValidRows, rec)
	}
	return result, nil
}

// matchColumns maps field keys to column indexes. Headers may carry either
// the label or the key.
func matchColumns(header []string, fields []schema.FieldDescriptor) (map[string]int, error) {
	byHeader := make(map[string]int, len(header))
	for i, h := range header {
		if h = strings.TrimSpace(h); h != "" {
			byHeader[h] = i
		}
	}

	columns := make(map[string]int, len(fields))
	var missing []string
	for _, fd := range fields {
		if i, ok := byHeader[fd.Label]; ok {
			columns[fd.Key] = i
		} else if i, ok := byHeader[fd.Key]; ok {
			columns[fd.Key] = i
		} else if fd.Required {
			missing = append(missing, fd.Label)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return columns, nil
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func (c *Codec) parseRow(row []string, fields []schema.FieldDescriptor, columns map[string]int, v *schema.Variant, scope Scope, data *domain.ReferenceData) (domain.Record, []string) {
	rec := make(domain.Record, len(fields)+len(v.Context))
	var reasons []string

	for _, fd := range fields {
		idx, ok := columns[fd.Key]
		if !ok {
			rec[fd.Key] = ""
			continue
		}
		var raw string
		if idx < len(row) {
			raw = strings.TrimSpace(row[idx])
		}
		value, reason := c.cellValue(fd, raw)
		if reason != "" {
			reasons = append(reasons, reason)
		}
		rec[fd.Key] = value
	}
	for _, key := range v.Context {
		rec[key] = scope.value(key)
	}

	if res := projection.Validate(rec, fields, nil); !res.OK {
		for _, m := range res.Missing {
			reasons = append(reasons, "missing "+m.Label)
		}
	}
	if data != nil {
		if err := hierarchy.SelectionFrom(rec).Validate(data); err != nil {
			reasons = append(reasons, err.Error())
		}
	}
	if _, ok := v.Field(domain.KeyDuration); ok {
		projection.ApplyDerived(rec)
	}
	return rec, reasons
}

// cellValue converts one cell into its record value. A non-empty reason
// rejects the row.
func (c *Codec) cellValue(fd schema.FieldDescriptor, raw string) (string, string) {
	if raw == "" {
		return "", ""
	}
	switch fd.Kind {
	case schema.KindReference:
		coll, ok := registry.CollectionForKey(fd.Key)
		if !ok || c.Refs == nil {
			return raw, ""
		}
		code, err := c.Refs.ResolveCodeByName(coll, raw)
		if err == nil {
			return code, ""
		}
		if _, codeErr := c.Refs.Resolve(coll, raw); codeErr == nil {
			return raw, ""
		}
		return raw, err.Error()

	case schema.KindEnum:
		if code, ok := c.Catalog.EnumCode(fd.Enum, raw); ok {
			return code, ""
		}
		return raw, fmt.Sprintf("invalid %s %q", fd.Label, raw)

	case schema.KindDateTime, schema.KindDate:
		t, ok := parseCellTime(raw)
		if !ok {
			return raw, fmt.Sprintf("invalid %s %q", fd.Label, raw)
		}
		if fd.Kind == schema.KindDate {
			return t.Format(projection.DateLayout), ""
		}
		return projection.FormatWallClock(t), ""

	case schema.KindNumber, schema.KindDuration:
		if _, err := strconv.ParseFloat(raw, 64); err != nil {
			return raw, fmt.Sprintf("invalid %s %q", fd.Label, raw)
		}
		return raw, ""

	case schema.KindImplementer:
		return implementer.Join(implementer.Split(raw)), ""
	}
	return raw, ""
}

// parseCellTime accepts typed strings and Excel date serials.
func parseCellTime(raw string) (time.Time, bool) {
	if t, ok := projection.ParseDateTime(raw, time.Local); ok {
		return t, true
	}
	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil || serial <= 0 {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, false
	}
	return t.Round(time.Second), true
}
