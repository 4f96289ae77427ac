package cli

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/jionychiow/cmss/internal/api"
	"github.com/jionychiow/cmss/internal/domain"
	"github.com/jionychiow/cmss/internal/hierarchy"
	"github.com/jionychiow/cmss/internal/registry"
	"github.com/jionychiow/cmss/internal/schema"
	"github.com/jionychiow/cmss/internal/service"
	"github.com/jionychiow/cmss/internal/spreadsheet"
	"github.com/jionychiow/cmss/internal/testutil"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

// testApp wires a full App against a fake backend.
func testApp(t *testing.T) (*App, *testutil.FakeBackend) {
	t.Helper()
	fake := testutil.NewFakeBackend(t)
	client := api.NewClient(fake.Config(), api.NoopObserver{})
	refs := registry.New(client)
	catalog := schema.Builtin()

	return &App{
		Catalog:   catalog,
		Registry:  refs,
		Records:   service.NewRecordService(client, refs, catalog),
		Import:    service.NewImportService(client, refs, catalog),
		Export:    service.NewExportService(client, refs, catalog),
		Templates: service.NewTemplateService(catalog),
		Profile:   client.CurrentProfile,
		Users:     client.ListUsers,
		Location:  time.UTC,
		Now:       func() time.Time { return testNow },
	}, fake
}

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// executeCmd runs a cobra command and captures stdout/stderr without styling.
func executeCmd(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(app)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return ansi.ReplaceAllString(buf.String(), ""), err
}

func seedShiftRecords(fake *testutil.FakeBackend) []string {
	return fake.Seed(api.ResourceShiftRecords,
		map[string]any{"phase": 1, "shift_type": 1, "production_line": "line_1_1", "process": "coating", "equipment_name": "涂布机 A", "change_reason": "repair"},
		map[string]any{"phase": 1, "shift_type": 1, "production_line": "line_1_2", "process": "winding", "equipment_name": "卷绕机 B", "change_reason": "maintenance"},
		map[string]any{"phase": 2, "shift_type": 1, "production_line": "line_2_1", "process": "coating", "equipment_name": "涂布机 C"},
	)
}

// --- schema ---

func TestSchemaList(t *testing.T) {
	app, _ := testApp(t)
	out, err := executeCmd(t, app, "schema", "list")
	require.NoError(t, err)
	for _, code := range []string{"long_day_shift", "rotating_shift", "asset", "task_plan", "manual"} {
		assert.Contains(t, out, code)
	}
}

func TestSchemaShow(t *testing.T) {
	app, _ := testApp(t)
	out, err := executeCmd(t, app, "schema", "show", "asset")
	require.NoError(t, err)
	assert.Contains(t, out, "设备名称")
	assert.Contains(t, out, "enum:asset_status")
	assert.Contains(t, out, "ID KEYS")
}

func TestSchemaShow_UnknownVariant(t *testing.T) {
	app, _ := testApp(t)
	_, err := executeCmd(t, app, "schema", "show", "nope")
	assert.ErrorIs(t, err, schema.ErrUnknownVariant)
}

// --- config ---

func TestConfigShow_FiltersLinesByPhase(t *testing.T) {
	app, _ := testApp(t)
	out, err := executeCmd(t, app, "config", "show", "--phase", domain.PhaseTwo)
	require.NoError(t, err)
	assert.Contains(t, out, "ready")
	assert.Contains(t, out, "line_2_1")
	assert.Contains(t, out, "line_2_2")
	assert.NotContains(t, out, "line_1_1")
	assert.Contains(t, out, "coating", "processes are not filtered")
}

func TestConfigShow_LineOutsidePhase(t *testing.T) {
	app, _ := testApp(t)
	_, err := executeCmd(t, app, "config", "show", "--phase", domain.PhaseOne, "--line", "line_2_1")
	assert.ErrorIs(t, err, hierarchy.ErrLineOutsidePhase)
}

func TestConfigShow_LoadFailureIsReported(t *testing.T) {
	app, fake := testApp(t)
	fake.Fail(testutil.Failure{Path: "/api/maintenance/config/", Status: http.StatusServiceUnavailable})

	_, err := executeCmd(t, app, "config", "show")
	require.Error(t, err)
	var loadErr *registry.LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, registry.StateFailed, app.Registry.State())
}

// --- record ---

func TestRecordList_DefaultsToProfileScope(t *testing.T) {
	app, fake := testApp(t)
	seedShiftRecords(fake)

	out, err := executeCmd(t, app, "record", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "涂布机 A")
	assert.Contains(t, out, "卷绕机 B")
	assert.NotContains(t, out, "涂布机 C")
	assert.Contains(t, out, "维保", "enum codes are shown as labels")
	assert.Contains(t, out, "2 records")
	assert.Equal(t, domain.PhaseOne, fake.LastQuery().Get("phase"))
	assert.Equal(t, domain.LongDayShift, fake.LastQuery().Get("shift_type"))
}

func TestRecordList_Search(t *testing.T) {
	app, fake := testApp(t)
	seedShiftRecords(fake)

	out, err := executeCmd(t, app, "record", "list", "--search", "卷绕")
	require.NoError(t, err)
	assert.Contains(t, out, "卷绕机 B")
	assert.NotContains(t, out, "涂布机 A")
	assert.Contains(t, out, "1 records")
}

func TestRecordList_ByLineAndProcess(t *testing.T) {
	app, fake := testApp(t)
	seedShiftRecords(fake)

	out, err := executeCmd(t, app, "record", "list", "--line", "line_1_2")
	require.NoError(t, err)
	assert.Contains(t, out, "卷绕机 B")
	assert.NotContains(t, out, "涂布机 A")
	assert.Contains(t, out, "1 records")

	out, err = executeCmd(t, app, "record", "list", "--line", "line_1_1", "--process", "winding")
	require.NoError(t, err)
	assert.NotContains(t, out, "涂布机 A")
	assert.Contains(t, out, "No records.")
}

func TestRecordList_LineOutsidePhase(t *testing.T) {
	app, fake := testApp(t)
	seedShiftRecords(fake)

	_, err := executeCmd(t, app, "record", "list", "--phase", domain.PhaseOne, "--line", "line_2_1")
	assert.ErrorIs(t, err, hierarchy.ErrLineOutsidePhase)
}

func TestRecordList_WorkerPinnedToOwnPhase(t *testing.T) {
	app, fake := testApp(t)
	seedShiftRecords(fake)
	fake.SetProfile(testutil.WorkerProfile("bob", domain.PhaseTwo, domain.LongDayShift))

	out, err := executeCmd(t, app, "record", "list", "--phase", domain.PhaseOne)
	require.NoError(t, err)
	assert.Contains(t, out, "涂布机 C")
	assert.NotContains(t, out, "涂布机 A")
	assert.Equal(t, domain.PhaseTwo, fake.LastQuery().Get("phase"))
}

func shiftRecordArgs() []string {
	return []string{
		"record", "add",
		"--set", "production_line=line_1_1",
		"--set", "process=coating",
		"--set", "equipment_name=涂布机 1",
		"--set", "equipment_number=EQ0001",
		"--set", "equipment_part=主轴",
		"--set", "change_reason=repair",
		"--set", "before_change=异响",
		"--set", "after_change=更换轴承",
		"--set", "end_date_time=2024-03-01 10:30:00",
		"--set", "parts_consumables=轴承 x1",
	}
}

func TestRecordAdd_FromFlags(t *testing.T) {
	app, fake := testApp(t)

	out, err := executeCmd(t, app, append(shiftRecordArgs(), "--implementer", "alice")...)
	require.NoError(t, err)
	assert.Contains(t, out, "CREATED")

	stored := fake.Records(api.ResourceShiftRecords)
	require.Len(t, stored, 1)
	assert.Equal(t, "admin, alice", stored[0]["implementer"])
	assert.Equal(t, "2024-03-01 08:00:00", stored[0]["start_datetime"], "start seeded from now")
	assert.EqualValues(t, 1, stored[0]["phase"])
	assert.Equal(t, "2.5", stored[0]["duration"])
}

func TestRecordAdd_ValidationStopsBeforeBackend(t *testing.T) {
	app, fake := testApp(t)

	_, err := executeCmd(t, app, "record", "add", "--set", "production_line=line_1_1")
	require.Error(t, err)
	assert.ErrorContains(t, err, "设备编号")
	assert.Empty(t, fake.Records(api.ResourceShiftRecords))
}

func TestRecordAdd_PermissionDenied(t *testing.T) {
	app, fake := testApp(t)
	fake.SetProfile(&domain.UserProfile{Username: "viewer", Type: domain.UserWorker})

	_, err := executeCmd(t, app, shiftRecordArgs()...)
	assert.ErrorIs(t, err, service.ErrPermissionDenied)
	assert.Empty(t, fake.Records(api.ResourceShiftRecords))
}

func TestRecordAdd_BadSetFlag(t *testing.T) {
	app, _ := testApp(t)
	_, err := executeCmd(t, app, "record", "add", "--set", "novalue")
	assert.ErrorContains(t, err, "expected key=value")
}

func TestRecordEdit_MergesSetValues(t *testing.T) {
	app, fake := testApp(t)
	ids := seedShiftRecords(fake)

	out, err := executeCmd(t, app, "record", "edit", ids[0],
		"--set", "equipment_number=EQ9", "--set", "equipment_part=轴", "--set", "before_change=a",
		"--set", "after_change=b", "--set", "parts_consumables=c",
		"--set", "start_date_time=2024-03-01 08:00:00", "--set", "end_date_time=2024-03-01 09:00:00",
		"--implementer", "bob")
	require.NoError(t, err)
	assert.Contains(t, out, "UPDATED")

	stored := fake.Records(api.ResourceShiftRecords)
	assert.Equal(t, "EQ9", stored[0]["equipment_number"])
	assert.Equal(t, "涂布机 A", stored[0]["equipment_name"], "untouched fields are kept")
	assert.Equal(t, "admin, bob", stored[0]["implementer"])
}

func editArgs(id string, extra ...string) []string {
	args := []string{"record", "edit", id,
		"--set", "equipment_number=EQ9", "--set", "equipment_part=轴", "--set", "before_change=a",
		"--set", "after_change=b", "--set", "parts_consumables=c",
		"--set", "start_date_time=2024-03-01 08:00:00", "--set", "end_date_time=2024-03-01 09:00:00",
	}
	return append(args, extra...)
}

func TestRecordEdit_PhaseChangeClearsLineAndProcess(t *testing.T) {
	app, fake := testApp(t)
	ids := seedShiftRecords(fake)

	_, err := executeCmd(t, app, editArgs(ids[0], "--set", "phase="+domain.PhaseTwo)...)
	require.Error(t, err)
	assert.ErrorContains(t, err, "产线")
	assert.ErrorContains(t, err, "工序")
	assert.NotErrorIs(t, err, hierarchy.ErrLineOutsidePhase, "the old line is cleared, not carried into phase 2")

	stored := fake.Records(api.ResourceShiftRecords)
	assert.Equal(t, "line_1_1", stored[0]["production_line"])
	assert.EqualValues(t, 1, stored[0]["phase"])
}

func TestRecordEdit_PhaseChangeWithNewLine(t *testing.T) {
	app, fake := testApp(t)
	ids := seedShiftRecords(fake)

	_, err := executeCmd(t, app, editArgs(ids[0],
		"--set", "process=winding", "--set", "production_line=line_2_1", "--set", "phase="+domain.PhaseTwo)...)
	require.NoError(t, err)

	stored := fake.Records(api.ResourceShiftRecords)
	assert.EqualValues(t, 2, stored[0]["phase"])
	assert.Equal(t, "line_2_1", stored[0]["production_line"])
	assert.Equal(t, "winding", stored[0]["process"])
}

func TestMerge_CascadeKeysApplyInOrder(t *testing.T) {
	dst := domain.Record{"phase": domain.PhaseOne, "production_line": "line_1_1", "process": "coating", "remarks": "x"}

	merge(dst, domain.Record{"process": "winding", "phase": domain.PhaseTwo, "remarks": "y"})
	assert.Equal(t, domain.PhaseTwo, dst.Get("phase"))
	assert.Empty(t, dst.Get("production_line"))
	assert.Equal(t, "winding", dst.Get("process"), "a process named alongside the phase survives")
	assert.Equal(t, "y", dst.Get("remarks"))

	merge(dst, domain.Record{"production_line": "line_2_2"})
	assert.Equal(t, "line_2_2", dst.Get("production_line"))
	assert.Empty(t, dst.Get("process"))
}

func TestUsers_FailureIsNoted(t *testing.T) {
	app, _ := testApp(t)
	app.Users = func(context.Context) ([]string, error) {
		return nil, api.ErrUnavailable
	}
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	var stderr bytes.Buffer
	cmd.SetErr(&stderr)

	assert.Nil(t, app.users(cmd))
	assert.Contains(t, stderr.String(), "User list unavailable")
}

func TestRecordEdit_UnknownID(t *testing.T) {
	app, fake := testApp(t)
	seedShiftRecords(fake)

	_, err := executeCmd(t, app, "record", "edit", "424242", "--set", "remarks=x")
	assert.ErrorContains(t, err, "not found")
}

func TestRecordDelete_RequiresYesOutsideTerminal(t *testing.T) {
	app, fake := testApp(t)
	ids := seedShiftRecords(fake)

	_, err := executeCmd(t, app, "record", "delete", ids[0])
	assert.ErrorContains(t, err, "--yes")
	assert.Len(t, fake.Records(api.ResourceShiftRecords), 3)
}

func TestRecordDelete_Batch(t *testing.T) {
	app, fake := testApp(t)
	ids := seedShiftRecords(fake)

	out, err := executeCmd(t, app, "record", "delete", ids[0], ids[1], "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 2 of 2")
	assert.Contains(t, out, "0 records remain")
	assert.Len(t, fake.Records(api.ResourceShiftRecords), 1)
	assert.Equal(t, 1, fake.ListCalls(api.ResourceShiftRecords), "the list is refreshed once")
}

func TestRecordDelete_PartialFailure(t *testing.T) {
	app, fake := testApp(t)
	ids := seedShiftRecords(fake)
	res, err := api.ResourceFor(api.ResourceShiftRecords)
	require.NoError(t, err)
	fake.FailDelete(res.ItemPath(ids[1]), http.StatusForbidden)

	out, err := executeCmd(t, app, "record", "delete", ids[0], ids[1], "-y")
	assert.ErrorContains(t, err, "1 of 2 deletes failed")
	assert.Contains(t, out, "Deleted 1 of 2")
	assert.Contains(t, out, ids[1])
	assert.Contains(t, out, "1 records remain")
}

func TestRecordDelete_WorkerWithoutPermission(t *testing.T) {
	app, fake := testApp(t)
	ids := seedShiftRecords(fake)
	fake.SetProfile(testutil.WorkerProfile("bob", domain.PhaseOne, domain.LongDayShift))

	_, err := executeCmd(t, app, "record", "delete", ids[0], "--yes")
	assert.ErrorIs(t, err, service.ErrPermissionDenied)
}

// --- sheet ---

func TestSheetTemplate_WritesFile(t *testing.T) {
	app, _ := testApp(t)
	path := filepath.Join(t.TempDir(), "t.xlsx")

	out, err := executeCmd(t, app, "sheet", "template", "asset", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "PK", string(data[:2]), "xlsx is a zip archive")
}

func TestSheetImport_UploadsAcceptedRows(t *testing.T) {
	app, fake := testApp(t)
	v, err := schema.Builtin().Variant(domain.LongDayShift)
	require.NoError(t, err)
	codec := spreadsheet.NewCodec(schema.Builtin(), registry.NewStatic(testutil.ReferenceData()))
	data, err := codec.Records(v, []domain.Record{testutil.NewShiftRecord(), testutil.NewShiftRecord()})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "records.xlsx")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	out, err := executeCmd(t, app, "sheet", "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "2 accepted, 0 rejected")
	assert.Contains(t, out, "upload accepted")

	uploads := fake.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "records.xlsx", uploads[0].Filename)
	assert.Equal(t, domain.PhaseOne, uploads[0].Fields["phase"])
	assert.Equal(t, domain.LongDayShift, uploads[0].Fields["shift_type"])
}

func TestSheetImport_RejectsNonWorkbook(t *testing.T) {
	app, fake := testApp(t)
	_, err := executeCmd(t, app, "sheet", "import", "records.csv")
	assert.ErrorIs(t, err, spreadsheet.ErrUnsupportedFile)
	assert.Empty(t, fake.Uploads())
}

func TestSheetExport(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantPhase string
		wantMonth string
	}{
		{"shift records by code", []string{"--month", "2024-03"}, domain.PhaseOne, "2024-03"},
		{"assets by name", []string{"--variant", "asset", "--phase", domain.PhaseTwo}, "二期", "all"},
		{"task plans ignore phase", []string{"--variant", "task_plan", "--phase", domain.PhaseTwo, "--month", "all"}, "", "all"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app, fake := testApp(t)
			path := filepath.Join(t.TempDir(), "out.xlsx")

			_, err := executeCmd(t, app, append([]string{"sheet", "export", "-o", path}, tc.args...)...)
			require.NoError(t, err)

			exports := fake.Exports()
			require.Len(t, exports, 1)
			assert.Equal(t, tc.wantPhase, exports[0]["phase"])
			assert.Equal(t, tc.wantMonth, exports[0]["month"])
			_, err = os.Stat(path)
			assert.NoError(t, err)
		})
	}
}

func TestSheetExport_InvalidMonthFlag(t *testing.T) {
	app, fake := testApp(t)
	_, err := executeCmd(t, app, "sheet", "export", "--month", "2024-13")
	assert.ErrorContains(t, err, "month must be YYYY-MM or all")
	assert.Empty(t, fake.Exports())
}
