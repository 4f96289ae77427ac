// Package schema holds the record schema catalog: for every record variant
// the ordered list of fields that drives form fields, table columns and
// spreadsheet columns.
package schema

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/jionychiow/cmss/internal/domain"
)

// SchemaFileEnv names a YAML document that replaces the built-in catalog.
const SchemaFileEnv = "CMSS_SCHEMA_FILE"

var (
	ErrUnknownVariant = errors.New("unknown record variant")
	ErrUnknownEnum    = errors.New("unknown enum")
)

//go:embed catalog.yaml
var builtinCatalog []byte

// Kind tells projection and spreadsheet code how to treat a field value.
type Kind string

const (
	KindText        Kind = "text"
	KindTextarea    Kind = "textarea"
	KindDateTime    Kind = "datetime"
	KindDate        Kind = "date"
	KindNumber      Kind = "number"
	KindDuration    Kind = "duration"
	KindEnum        Kind = "enum"
	KindImplementer Kind = "implementer"
	KindReference   Kind = "reference"
)

var validKinds = map[Kind]bool{
	KindText: true, KindTextarea: true, KindDateTime: true, KindDate: true, KindNumber: true,
	KindDuration: true, KindEnum: true, KindImplementer: true, KindReference: true,
}

// FieldDescriptor describes one field of a record variant.
type FieldDescriptor struct {
	Key      string `yaml:"key"`
	Label    string `yaml:"label"`
	Required bool   `yaml:"required"`
	Kind     Kind   `yaml:"kind"`
	// Enum names the option list for KindEnum fields.
	Enum string `yaml:"enum,omitempty"`
	// ReadOnly fields are assigned by the backend and never edited.
	ReadOnly bool `yaml:"read_only"`
}

// EnumOption is one code/label pair of an enum.
type EnumOption struct {
	Code  string `yaml:"code"`
	Label string `yaml:"label"`
}

// Variant is a record kind with its ordered field list.
type Variant struct {
	Code     string            `yaml:"code"`
	Name     string            `yaml:"name"`
	Resource string            `yaml:"resource"`
	Fields   []FieldDescriptor `yaml:"fields"`
	// Context keys come from the active phase/shift, not from the form.
	Context []string `yaml:"context,omitempty"`
	// IDKeys are submitted as numeric ids rather than codes.
	IDKeys []string `yaml:"id_keys,omitempty"`
}

// SubmitsID reports whether key is sent to the backend as an id.
func (v *Variant) SubmitsID(key string) bool {
	return slices.Contains(v.IDKeys, key)
}

// Field returns the descriptor for key.
func (v *Variant) Field(key string) (FieldDescriptor, bool) {
	for _, f := range v.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}

// Catalog is a validated set of variants and enums.
type Catalog struct {
	Enums    map[string][]EnumOption `yaml:"enums"`
	Variants []Variant               `yaml:"variants"`

	byCode map[string]*Variant
}

// LoadCatalog parses and validates a catalog document.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading schema catalog: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing schema catalog: %w", err)
	}
	c.markServerAssigned()
	if errs := c.validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid schema catalog: %w", errors.Join(errs...))
	}
	c.byCode = make(map[string]*Variant, len(c.Variants))
	for i := range c.Variants {
		c.byCode[c.Variants[i].Code] = &c.Variants[i]
	}
	return &c, nil
}

// LoadCatalogFile reads a catalog from path.
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening schema catalog: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f)
}

var builtin = sync.OnceValue(func() *Catalog {
	c, err := LoadCatalog(bytes.NewReader(builtinCatalog))
	if err != nil {
		panic(err)
	}
	return c
})

// Builtin returns the catalog compiled into the binary.
func Builtin() *Catalog {
	return builtin()
}

// FromEnv returns the catalog named by CMSS_SCHEMA_FILE, or the built-in one.
func FromEnv() (*Catalog, error) {
	if path := os.Getenv(SchemaFileEnv); path != "" {
		return LoadCatalogFile(path)
	}
	return Builtin(), nil
}

func (c *Catalog) validate() []error {
	var errs []error
	if len(c.Variants) == 0 {
		errs = append(errs, fmt.Errorf("variants is required"))
	}
	seen := make(map[string]bool)
	for i, v := range c.Variants {
		prefix := fmt.Sprintf("variants[%d]", i)
		if v.Code == "" {
			errs = append(errs, fmt.Errorf("%s.code is required", prefix))
		} else if seen[v.Code] {
			errs = append(errs, fmt.Errorf("%s.code: duplicate variant %q", prefix, v.Code))
		} else {
			seen[v.Code] = true
		}
		if v.Resource == "" {
			errs = append(errs, fmt.Errorf("%s.resource is required", prefix))
		}
		if len(v.Fields) == 0 {
			errs = append(errs, fmt.Errorf("%s.fields is required", prefix))
		}
		keys := make(map[string]bool)
		for j, f := range v.Fields {
			fp := fmt.Sprintf("%s.fields[%d]", prefix, j)
			if f.Key == "" {
				errs = append(errs, fmt.Errorf("%s.key is required", fp))
			} else if keys[f.Key] {
				errs = append(errs, fmt.Errorf("%s.key: duplicate key %q", fp, f.Key))
			} else {
				keys[f.Key] = true
			}
			if f.Label == "" {
				errs = append(errs, fmt.Errorf("%s.label is required", fp))
			}
			if !validKinds[f.Kind] {
				errs = append(errs, fmt.Errorf("%s.kind: invalid value %q", fp, f.Kind))
			}
			if f.Kind == KindEnum {
				if _, ok := c.Enums[f.Enum]; !ok {
					errs = append(errs, fmt.Errorf("%s.enum: unknown enum %q", fp, f.Enum))
				}
			}
		}
	}
	return errs
}

// markServerAssigned makes serial_number and month read-only whatever the
// document says.
func (c *Catalog) markServerAssigned() {
	for i := range c.Variants {
		for j := range c.Variants[i].Fields {
			if domain.ServerAssignedKeys[c.Variants[i].Fields[j].Key] {
				c.Variants[i].Fields[j].ReadOnly = true
			}
		}
	}
}

// Variant returns the variant registered under code.
func (c *Catalog) Variant(code string) (*Variant, error) {
	v, ok := c.byCode[code]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, code)
	}
	return v, nil
}

// Codes lists variant codes in catalog order.
func (c *Catalog) Codes() []string {
	out := make([]string, len(c.Variants))
	for i, v := range c.Variants {
		out[i] = v.Code
	}
	return out
}

// SchemaFor returns the full ordered field list of a variant.
func (c *Catalog) SchemaFor(code string) ([]FieldDescriptor, error) {
	v, err := c.Variant(code)
	if err != nil {
		return nil, err
	}
	return append([]FieldDescriptor(nil), v.Fields...), nil
}

// FormFieldsFor returns the schema minus the server-assigned keys
// (serial_number and month). Other read-only fields stay so the form can
// show them.
func (c *Catalog) FormFieldsFor(code string) ([]FieldDescriptor, error) {
	all, err := c.SchemaFor(code)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(all, func(f FieldDescriptor) bool {
		return domain.ServerAssignedKeys[f.Key]
	}), nil
}

// TemplateFieldsFor returns the spreadsheet template columns: the form
// fields a user can fill in. Values the backend computes, such as a task
// plan's planned_people_count, are never uploaded.
func (c *Catalog) TemplateFieldsFor(code string) ([]FieldDescriptor, error) {
	form, err := c.FormFieldsFor(code)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(form, func(f FieldDescriptor) bool { return f.ReadOnly }), nil
}

// Enum returns the options of a named enum.
func (c *Catalog) Enum(name string) ([]EnumOption, error) {
	opts, ok := c.Enums[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEnum, name)
	}
	return append([]EnumOption(nil), opts...), nil
}

// EnumLabel maps an enum code to its label. Unknown codes pass through.
func (c *Catalog) EnumLabel(name, code string) string {
	for _, o := range c.Enums[name] {
		if o.Code == code {
			return o.Label
		}
	}
	return code
}

// EnumCode maps a label (or a code) back to its code. The second result is
// false when neither matches.
func (c *Catalog) EnumCode(name, value string) (string, bool) {
	for _, o := range c.Enums[name] {
		if o.Label == value || o.Code == value {
			return o.Code, true
		}
	}
	return "", false
}
