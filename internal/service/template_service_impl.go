package service

import (
	"fmt"

	"github.com/jionychiow/cmss/internal/schema"
	"github.com/jionychiow/cmss/internal/spreadsheet"
)

type templateService struct {
	catalog *schema.Catalog
	codec   *spreadsheet.Codec
}

// NewTemplateService builds blank import workbooks from the schema catalog,
// so a template always matches what the importer expects.
func NewTemplateService(catalog *schema.Catalog) TemplateService {
	return &templateService{
		catalog: catalog,
		codec:   spreadsheet.NewCodec(catalog, nil),
	}
}

func (s *templateService) Template(variant string) ([]byte, error) {
	v, err := s.catalog.Variant(variant)
	if err != nil {
		return nil, err
	}
	f, err := s.codec.BuildTemplate(v)
	if err != nil {
		return nil, fmt.Errorf("building template for %s: %w", variant, err)
	}
	defer f.Close()
	return spreadsheet.Encode(f)
}
