package schema

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltin_ShiftVariants(t *testing.T) {
	c := Builtin()

	long, err := c.SchemaFor("long_day_shift")
	require.NoError(t, err)
	rot, err := c.SchemaFor("rotating_shift")
	require.NoError(t, err)

	assert.Len(t, long, 17)
	assert.Equal(t, long, rot)
	assert.Equal(t, "serial_number", long[0].Key)
	assert.Equal(t, "remarks", long[16].Key)

	var optional []string
	for _, f := range long {
		if !f.Required && !f.ReadOnly {
			optional = append(optional, f.Key)
		}
	}
	assert.Equal(t, []string{"duration", "acceptor", "remarks"}, optional)
}

func TestFormFieldsFor_DropsServerAssigned(t *testing.T) {
	fields, err := Builtin().FormFieldsFor("long_day_shift")
	require.NoError(t, err)

	assert.Len(t, fields, 15)
	for _, f := range fields {
		assert.NotEqual(t, "serial_number", f.Key)
		assert.NotEqual(t, "month", f.Key)
	}

	tmpl, err := Builtin().TemplateFieldsFor("long_day_shift")
	require.NoError(t, err)
	assert.Equal(t, fields, tmpl)
}

func keysOf(fields []FieldDescriptor) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Key
	}
	return out
}

func withoutServerAssigned(keys []string) []string {
	var out []string
	for _, k := range keys {
		if k != "serial_number" && k != "month" {
			out = append(out, k)
		}
	}
	return out
}

func TestFormFieldsFor_RemovesExactlyServerAssigned(t *testing.T) {
	custom, err := LoadCatalog(strings.NewReader(`variants:
  - code: night
    resource: shift_records
    fields:
      - {key: serial_number, label: 序号, kind: text}
      - {key: month, label: 月份, kind: text}
      - {key: equipment_name, label: 设备名称, kind: text, required: true}
      - {key: remarks, label: 备注, kind: textarea}
`))
	require.NoError(t, err)

	for _, c := range []*Catalog{Builtin(), custom} {
		for _, code := range c.Codes() {
			t.Run(code, func(t *testing.T) {
				schema, err := c.SchemaFor(code)
				require.NoError(t, err)
				form, err := c.FormFieldsFor(code)
				require.NoError(t, err)
				assert.Equal(t, withoutServerAssigned(keysOf(schema)), keysOf(form))
			})
		}
	}

	v, err := custom.Variant("night")
	require.NoError(t, err)
	assert.True(t, v.Fields[0].ReadOnly, "serial_number is read-only without saying so")
	assert.True(t, v.Fields[1].ReadOnly, "month is read-only without saying so")
	assert.False(t, v.Fields[2].ReadOnly)
}

func TestTemplateFieldsFor_SkipsComputedColumns(t *testing.T) {
	form, err := Builtin().FormFieldsFor("task_plan")
	require.NoError(t, err)
	assert.Contains(t, keysOf(form), "planned_people_count")

	tmpl, err := Builtin().TemplateFieldsFor("task_plan")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"date", "task_description", "assigned_users", "status", "progress",
		"phase", "process", "production_line",
	}, keysOf(tmpl))
}

func TestSchemaFor_ReturnsCopy(t *testing.T) {
	c := Builtin()
	fields, err := c.FormFieldsFor("asset")
	require.NoError(t, err)
	fields[0].Label = "changed"

	again, err := c.SchemaFor("asset")
	require.NoError(t, err)
	assert.Equal(t, "设备名称", again[0].Label)
}

func TestSchemaFor_UnknownVariant(t *testing.T) {
	_, err := Builtin().SchemaFor("night_shift")
	assert.ErrorIs(t, err, ErrUnknownVariant)

	_, err = Builtin().FormFieldsFor("")
	assert.ErrorIs(t, err, ErrUnknownVariant)
}

func TestBuiltin_AllVariantsPresent(t *testing.T) {
	assert.Equal(t,
		[]string{"long_day_shift", "rotating_shift", "asset", "task_plan", "manual"},
		Builtin().Codes())
}

func TestEnum(t *testing.T) {
	c := Builtin()

	opts, err := c.Enum("change_reason")
	require.NoError(t, err)
	assert.Equal(t, []EnumOption{
		{Code: "maintenance", Label: "维保"},
		{Code: "repair", Label: "维修"},
		{Code: "technical_modification", Label: "技改"},
	}, opts)

	assert.Equal(t, "技改", c.EnumLabel("change_reason", "technical_modification"))
	assert.Equal(t, "overhaul", c.EnumLabel("change_reason", "overhaul"))
	assert.Equal(t, "进行中", c.EnumLabel("task_status", "in_progress"))

	code, ok := c.EnumCode("change_reason", "维修")
	assert.True(t, ok)
	assert.Equal(t, "repair", code)
	code, ok = c.EnumCode("change_reason", "repair")
	assert.True(t, ok)
	assert.Equal(t, "repair", code)
	_, ok = c.EnumCode("change_reason", "大修")
	assert.False(t, ok)

	_, err = c.Enum("colour")
	assert.ErrorIs(t, err, ErrUnknownEnum)
}

func TestVariant_Field(t *testing.T) {
	v, err := Builtin().Variant("task_plan")
	require.NoError(t, err)

	f, ok := v.Field("status")
	require.True(t, ok)
	assert.Equal(t, KindEnum, f.Kind)
	assert.Equal(t, "task_status", f.Enum)

	_, ok = v.Field("missing")
	assert.False(t, ok)
}

func TestVariant_IDKeys(t *testing.T) {
	c := Builtin()

	shift, err := c.Variant("rotating_shift")
	require.NoError(t, err)
	assert.Equal(t, []string{"phase", "shift_type"}, shift.Context)
	assert.True(t, shift.SubmitsID("shift_type"))
	assert.False(t, shift.SubmitsID("production_line"))

	asset, err := c.Variant("asset")
	require.NoError(t, err)
	assert.Empty(t, asset.Context)
	assert.True(t, asset.SubmitsID("production_line"))

	manual, err := c.Variant("manual")
	require.NoError(t, err)
	assert.False(t, manual.SubmitsID("phase"))
}

func TestLoadCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "no variants",
			doc:  "enums: {}\n",
			want: "variants is required",
		},
		{
			name: "duplicate variant",
			doc: `variants:
  - {code: a, resource: r, fields: [{key: x, label: X, kind: text}]}
  - {code: a, resource: r, fields: [{key: x, label: X, kind: text}]}
`,
			want: `duplicate variant "a"`,
		},
		{
			name: "duplicate key",
			doc: `variants:
  - {code: a, resource: r, fields: [{key: x, label: X, kind: text}, {key: x, label: Y, kind: text}]}
`,
			want: `duplicate key "x"`,
		},
		{
			name: "missing label",
			doc: `variants:
  - {code: a, resource: r, fields: [{key: x, kind: text}]}
`,
			want: "variants[0].fields[0].label is required",
		},
		{
			name: "bad kind",
			doc: `variants:
  - {code: a, resource: r, fields: [{key: x, label: X, kind: colour}]}
`,
			want: `kind: invalid value "colour"`,
		},
		{
			name: "unknown enum",
			doc: `variants:
  - {code: a, resource: r, fields: [{key: x, label: X, kind: enum, enum: nope}]}
`,
			want: `unknown enum "nope"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCatalog(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadCatalog_MalformedYAML(t *testing.T) {
	_, err := LoadCatalog(strings.NewReader("variants: [\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing schema catalog")
}

func TestFromEnv_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	doc := `variants:
  - code: night_shift
    resource: shift_records
    fields:
      - {key: equipment_name, label: 设备名称, kind: text, required: true}
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	t.Setenv(SchemaFileEnv, path)

	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"night_shift"}, c.Codes())
}

func TestFromEnv_Default(t *testing.T) {
	t.Setenv(SchemaFileEnv, "")
	c, err := FromEnv()
	require.NoError(t, err)
	assert.Same(t, Builtin(), c)
}
