package domain

// UserProfile is the acting user as reported by the backend. Non-admin users
// are pinned to their own plant phase and shift type.
type UserProfile struct {
	Username   string   `json:"username"`
	Type       UserType `json:"type"`
	PlantPhase string   `json:"plant_phase"`
	ShiftType  string   `json:"shift_type"`

	CanAdd    bool `json:"can_add_maintenance_records"`
	CanEdit   bool `json:"can_edit_maintenance_records"`
	CanDelete bool `json:"can_delete_maintenance_records"`
}

// IsAdmin reports whether the profile may act on any phase and shift type.
func (p *UserProfile) IsAdmin() bool {
	return p != nil && p.Type == UserAdmin
}

// EffectivePhase returns the phase a request should be scoped to. Admins get
// the requested phase; everyone else gets their profile phase.
func (p *UserProfile) EffectivePhase(requested string) string {
	if p == nil {
		return CoalesceStr(requested, DefaultPhase)
	}
	if p.IsAdmin() || p.PlantPhase == "" {
		return CoalesceStr(requested, p.PlantPhase, DefaultPhase)
	}
	return p.PlantPhase
}

// EffectiveShiftType mirrors EffectivePhase for the shift type.
func (p *UserProfile) EffectiveShiftType(requested string) string {
	if p == nil {
		return CoalesceStr(requested, DefaultShiftType)
	}
	if p.IsAdmin() || p.ShiftType == "" {
		return CoalesceStr(requested, p.ShiftType, DefaultShiftType)
	}
	return p.ShiftType
}

// CanDeleteRecords reports whether the user may delete maintenance records.
func (p *UserProfile) CanDeleteRecords() bool {
	return p.IsAdmin() || (p != nil && p.CanDelete)
}

// CanAddRecords reports whether the user may create records.
func (p *UserProfile) CanAddRecords() bool {
	return p.IsAdmin() || (p != nil && p.CanAdd)
}

// CanEditRecords reports whether the user may edit records.
func (p *UserProfile) CanEditRecords() bool {
	return p.IsAdmin() || (p != nil && p.CanEdit)
}
