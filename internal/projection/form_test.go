package projection

import (
	"testing"
	"time"

	"github.com/jionychiow/cmss/internal/domain"
	"github.com/jionychiow/cmss/internal/schema"
	"github.com/jionychiow/cmss/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func formFields(t *testing.T, variant string) []schema.FieldDescriptor {
	t.Helper()
	fields, err := schema.Builtin().FormFieldsFor(variant)
	require.NoError(t, err)
	return fields
}

func TestInitialValues_SeedsContext(t *testing.T) {
	fields := formFields(t, domain.RotatingShift)
	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.Local)

	r := InitialValues(fields, Defaults{
		Phase:       domain.PhaseTwo,
		ShiftType:   domain.RotatingShift,
		Implementer: "alice",
		Now:         now,
	})

	for _, f := range fields {
		_, ok := r[f.Key]
		assert.True(t, ok, "missing key %s", f.Key)
	}
	assert.Equal(t, domain.PhaseTwo, r.Get(domain.KeyPhase))
	assert.Equal(t, domain.RotatingShift, r.Get(domain.KeyShiftType))
	assert.Equal(t, "alice", r.Get(domain.KeyImplementer))
	assert.Equal(t, "2024-05-06 07:08:09", r.Get(domain.KeyStartDateTime))
	assert.Equal(t, "2024-05-06 07:08:09", r.Get(domain.KeyEndDateTime))
	assert.Equal(t, "", r.Get(domain.KeyDuration))
	assert.Equal(t, "", r.Get("equipment_name"))
}

func TestInitialValues_NoDefaults(t *testing.T) {
	r := InitialValues(formFields(t, "asset"), Defaults{})
	assert.Equal(t, "", r.Get("name"))
	assert.Equal(t, "", r.Get(domain.KeyPhase))
}

func TestValidate_CompleteRecord(t *testing.T) {
	res := Validate(testutil.NewShiftRecord(), formFields(t, domain.LongDayShift), nil)
	assert.True(t, res.OK)
	assert.Empty(t, res.Missing)
	assert.NoError(t, res.Err())
}

func TestValidate_OptionalFieldsMayBeBlank(t *testing.T) {
	r := testutil.NewShiftRecord(
		testutil.WithField(domain.KeyDuration, ""),
		testutil.WithoutField("acceptor"),
		testutil.WithField("remarks", "  "),
	)
	assert.True(t, Validate(r, formFields(t, domain.LongDayShift), nil).OK)
}

func TestValidate_ReportsMissingByLabel(t *testing.T) {
	r := testutil.NewShiftRecord(
		testutil.WithField("equipment_name", " "),
		testutil.WithoutField("after_change"),
	)
	res := Validate(r, formFields(t, domain.LongDayShift), nil)

	require.False(t, res.OK)
	require.Len(t, res.Missing, 2)
	assert.Equal(t, "equipment_name", res.Missing[0].Key)
	assert.Equal(t, "after_change", res.Missing[1].Key)
	assert.ErrorIs(t, res.Err(), ErrMissingField)
	assert.EqualError(t, res.Err(), "missing required field: 设备或工装名称")
}

func TestValidate_ImplementerUsesSelection(t *testing.T) {
	fields := formFields(t, domain.LongDayShift)
	r := testutil.NewShiftRecord(testutil.WithField(domain.KeyImplementer, ""))

	assert.False(t, Validate(r, fields, nil).OK)
	assert.False(t, Validate(r, fields, []string{" "}).OK)
	assert.True(t, Validate(r, fields, []string{"bob"}).OK)

	r.Set(domain.KeyImplementer, "alice, bob")
	assert.True(t, Validate(r, fields, nil).OK)
}
