// Package spreadsheet converts between schema-shaped records and xlsx
// workbooks: blank templates, filled exports and validated uploads.
package spreadsheet

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/jionychiow/cmss/internal/domain"
	"github.com/jionychiow/cmss/internal/projection"
	"github.com/jionychiow/cmss/internal/registry"
	"github.com/jionychiow/cmss/internal/schema"
)

// ContentType is the MIME type of xlsx documents.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var (
	ErrUnsupportedFile = errors.New("unsupported file type, expected .xlsx or .xls")
	ErrEmptyWorkbook   = errors.New("workbook has no header row")
	ErrMissingColumn   = errors.New("missing required column")
	ErrInvalidMonth    = errors.New("month must be YYYY-MM or all")
)

// References translates between reference codes and display names.
// *registry.Registry implements it.
type References interface {
	Resolve(c registry.Collection, code string) (string, error)
	ResolveCodeByName(c registry.Collection, name string) (string, error)
	Snapshot() (*domain.ReferenceData, error)
}

// Codec carries what every workbook conversion needs.
type Codec struct {
	Catalog *schema.Catalog
	Refs    References
	Layout  projection.Layout
}

// NewCodec returns a Codec using the default column layout.
func NewCodec(catalog *schema.Catalog, refs References) *Codec {
	return &Codec{Catalog: catalog, Refs: refs, Layout: projection.DefaultLayout()}
}

func (c *Codec) view() projection.View {
	v := projection.View{Location: time.Local}
	if c.Catalog != nil {
		v.Enums = c.Catalog
	}
	if c.Refs != nil {
		v.Names = c.Refs
	}
	return v
}

// CheckExtension rejects files that are not spreadsheets.
func CheckExtension(filename string) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xls":
		return nil
	}
	return ErrUnsupportedFile
}

// ExportFilter narrows a download.
type ExportFilter struct {
	PhaseCode string
	// Month is YYYY-MM, or empty / "all" for every month.
	Month string
}

// Validate checks the month format.
func (f ExportFilter) Validate() error {
	if f.Month == "" || f.Month == "all" {
		return nil
	}
	if _, err := time.Parse("2006-01", f.Month); err != nil {
		return ErrInvalidMonth
	}
	return nil
}

// MonthParam returns the month as the backend expects it.
func (f ExportFilter) MonthParam() string {
	if f.Month == "" {
		return "all"
	}
	return f.Month
}
