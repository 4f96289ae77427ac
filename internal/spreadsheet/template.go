package spreadsheet

import (
	"bytes"
	"fmt"

	"github.com/jionychiow/cmss/internal/domain"
	"github.com/jionychiow/cmss/internal/projection"
	"github.com/jionychiow/cmss/internal/schema"
	"github.com/xuri/excelize/v2"
)

const headerFill = "#DDEBF7"

// sheetName is the name of the single worksheet of a template.
func sheetName(v *schema.Variant) string {
	name := domain.CoalesceStr(v.Name, v.Code)
	if len([]rune(name)) > 31 {
		name = string([]rune(name)[:31])
	}
	return name
}

// BuildTemplate returns a workbook whose first row holds the template
// column labels in schema order.
func (c *Codec) BuildTemplate(v *schema.Variant) (*excelize.File, error) {
	fields, err := c.Catalog.TemplateFieldsFor(v.Code)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := sheetName(v)
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	header := make([]any, len(fields))
	for i, fd := range fields {
		header[i] = fd.Label
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing header: %w", err)
	}

	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFill}},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating header style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(fields), 1)
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		f.Close()
		return nil, fmt.Errorf("styling header: %w", err)
	}

	layout := c.Layout
	if layout == nil {
		layout = projection.DefaultLayout()
	}
	for i, fd := range fields {
		col, _ := excelize.ColumnNumberToName(i + 1)
		width := float64(max(layout.CharWidth(fd.Key), len([]rune(fd.Label))*2) + 2)
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			f.Close()
			return nil, fmt.Errorf("sizing column %s: %w", col, err)
		}
	}
	return f, nil
}

// WriteRows fills a template built by BuildTemplate, one row per record.
// Reference and enum values are written as display names.
func (c *Codec) WriteRows(f *excelize.File, v *schema.Variant, records []domain.Record) error {
	fields, err := c.Catalog.TemplateFieldsFor(v.Code)
	if err != nil {
		return err
	}
	sheet := f.GetSheetName(0)
	view := c.view()

	for i, r := range records {
		row := make([]any, len(fields))
		for j, fd := range fields {
			row[j] = view.DisplayValue(r, fd)
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return nil
}

// Encode serialises a workbook.
func Encode(f *excelize.File) ([]byte, error) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encoding workbook: %w", err)
	}
	return bytes.Clone(buf.Bytes()), nil
}

// Records builds a complete workbook holding records.
func (c *Codec) Records(v *schema.Variant, records []domain.Record) ([]byte, error) {
	f, err := c.BuildTemplate(v)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := c.WriteRows(f, v, records); err != nil {
		return nil, err
	}
	return Encode(f)
}
