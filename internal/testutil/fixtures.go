package testutil

import (
	"fmt"
	"sync/atomic"

	"github.com/jionychiow/cmss/internal/domain"
)

var testRecordCounter atomic.Int64

// ReferenceData returns a small plant: two phases with two lines each,
// three phase-independent processes and both shift types.
func ReferenceData() *domain.ReferenceData {
	return &domain.ReferenceData{
		Phases: []domain.Phase{
			{ID: 1, Code: domain.PhaseOne, Name: "一期"},
			{ID: 2, Code: domain.PhaseTwo, Name: "二期"},
		},
		ProductionLines: []domain.ProductionLine{
			{ID: 11, Code: "line_1_1", Name: "1#", PhaseCode: domain.PhaseOne},
			{ID: 12, Code: "line_1_2", Name: "2#", PhaseCode: domain.PhaseOne},
			{ID: 21, Code: "line_2_1", Name: "2-1#", PhaseCode: domain.PhaseTwo},
			{ID: 22, Code: "line_2_2", Name: "N1", PhaseCode: domain.PhaseTwo},
		},
		Processes: []domain.Process{
			{ID: 101, Code: "coating", Name: "涂布"},
			{ID: 102, Code: "winding", Name: "卷绕"},
			{ID: 103, Code: "assembly", Name: "装配"},
		},
		ShiftTypes: []domain.ShiftType{
			{ID: 1, Code: domain.LongDayShift, Name: "长白班"},
			{ID: 2, Code: domain.RotatingShift, Name: "倒班"},
		},
	}
}

// Record options
type RecordOption func(domain.Record)

// WithField overrides a single key.
func WithField(key, value string) RecordOption {
	return func(r domain.Record) {
		r[key] = value
	}
}

// WithoutField removes a key entirely.
func WithoutField(key string) RecordOption {
	return func(r domain.Record) {
		delete(r, key)
	}
}

// WithLine sets phase and production line together so the pair stays consistent.
func WithLine(phaseCode, lineCode string) RecordOption {
	return func(r domain.Record) {
		r[domain.KeyPhase] = phaseCode
		r[domain.KeyProductionLine] = lineCode
	}
}

// NewShiftRecord returns a shift maintenance record with every required
// field of the long day shift variant filled in.
func NewShiftRecord(opts ...RecordOption) domain.Record {
	n := testRecordCounter.Add(1)
	r := domain.Record{
		domain.KeyPhase:          domain.PhaseOne,
		domain.KeyShiftType:      domain.LongDayShift,
		domain.KeyProductionLine: "line_1_1",
		domain.KeyProcess:        "coating",
		"equipment_name":         fmt.Sprintf("涂布机 %d", n),
		"equipment_number":       fmt.Sprintf("EQ%04d", n),
		"equipment_part":         "主轴",
		"change_reason":          string(domain.ReasonRepair),
		"before_change":          "异响",
		"after_change":           "更换轴承",
		domain.KeyStartDateTime:  "2024-01-01 08:00:00",
		domain.KeyEndDateTime:    "2024-01-01 10:30:00",
		domain.KeyDuration:       "2.5",
		"parts_consumables":      "轴承 x1",
		domain.KeyImplementer:    "alice",
		"acceptor":               "",
		"remarks":                "",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewAsset returns an asset record with its required fields filled in.
func NewAsset(opts ...RecordOption) domain.Record {
	n := testRecordCounter.Add(1)
	r := domain.Record{
		"name":                   fmt.Sprintf("卷绕机 %d", n),
		"ref":                    fmt.Sprintf("EQP%03d", n),
		domain.KeyPhase:          domain.PhaseTwo,
		domain.KeyProcess:        "winding",
		domain.KeyProductionLine: "line_2_1",
		"asset_type":             "Equipment",
		"status":                 "Active",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AdminProfile returns an admin user profile.
func AdminProfile(username string) *domain.UserProfile {
	return &domain.UserProfile{
		Username: username,
		Type:     domain.UserAdmin,
		CanAdd:   true, CanEdit: true, CanDelete: true,
	}
}

// WorkerProfile returns a non-admin profile pinned to phase and shift type.
func WorkerProfile(username, phase, shiftType string) *domain.UserProfile {
	return &domain.UserProfile{
		Username:   username,
		Type:       domain.UserWorker,
		PlantPhase: phase,
		ShiftType:  shiftType,
		CanAdd:     true,
		CanEdit:    true,
	}
}
