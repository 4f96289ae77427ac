package api

import "fmt"

// PhaseStyle says how an export endpoint expects its phase filter.
type PhaseStyle int

const (
	// PhaseIgnored endpoints take no phase filter.
	PhaseIgnored PhaseStyle = iota
	// PhaseByCode endpoints take the phase code, e.g. "phase_1".
	PhaseByCode
	// PhaseByName endpoints take the display name, e.g. "一期".
	PhaseByName
)

// Resource is the endpoint table of one record kind.
type Resource struct {
	Name string
	Path string

	TemplatePath string
	ExportPath   string
	UploadPath   string
	ExportPhase  PhaseStyle
	// ExportShift is true when the export body carries the shift type.
	ExportShift bool
}

// HasSpreadsheet reports whether the backend offers spreadsheet endpoints.
func (r Resource) HasSpreadsheet() bool {
	return r.UploadPath != "" && r.ExportPath != ""
}

// ItemPath is the detail endpoint of one record.
func (r Resource) ItemPath(id string) string {
	return r.Path + id + "/"
}

const (
	ResourceShiftRecords = "shift_records"
	ResourceAssets       = "assets"
	ResourceTaskPlans    = "task_plans"
	ResourceManuals      = "maintenance_manuals"
)

var resources = map[string]Resource{
	ResourceShiftRecords: {
		Name:         ResourceShiftRecords,
		Path:         "/api/db/shift-maintenance-records/",
		TemplatePath: "/api/db/excel/download-template/",
		ExportPath:   "/api/db/excel/download-records/",
		UploadPath:   "/api/db/excel/upload-records/",
		ExportPhase:  PhaseByCode,
		ExportShift:  true,
	},
	ResourceAssets: {
		Name:         ResourceAssets,
		Path:         "/api/db/assets/",
		TemplatePath: "/api/db/asset-excel/download-template/",
		ExportPath:   "/api/db/asset-excel/download-assets/",
		UploadPath:   "/api/db/asset-excel/upload-assets/",
		ExportPhase:  PhaseByName,
	},
	ResourceTaskPlans: {
		Name:         ResourceTaskPlans,
		Path:         "/api/db/task-plans/",
		TemplatePath: "/api/db/task-plan-excel/download-template/",
		ExportPath:   "/api/db/task-plan-excel/download-task-plans/",
		UploadPath:   "/api/db/task-plan-excel/upload-task-plans/",
		ExportPhase:  PhaseIgnored,
	},
	ResourceManuals: {
		Name: ResourceManuals,
		Path: "/api/db/maintenance-manuals/",
	},
}

// ResourceFor returns the endpoint table registered under name.
func ResourceFor(name string) (Resource, error) {
	r, ok := resources[name]
	if !ok {
		return Resource{}, fmt.Errorf("%w: %q", ErrUnknownResource, name)
	}
	return r, nil
}
