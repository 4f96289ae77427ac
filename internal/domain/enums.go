package domain

// Well-known reference codes. The backend owns the full lists; these are the
// fallbacks used when neither a flag nor the user profile picks one.
const (
	PhaseOne      = "phase_1"
	PhaseTwo      = "phase_2"
	LongDayShift  = "long_day_shift"
	RotatingShift = "rotating_shift"

	DefaultPhase     = PhaseOne
	DefaultShiftType = LongDayShift
)

type ChangeReason string

const (
	ReasonMaintenance ChangeReason = "maintenance"
	ReasonRepair      ChangeReason = "repair"
	ReasonTechMod     ChangeReason = "technical_modification"
)

type UserType string

const (
	UserAdmin  UserType = "Admin"
	UserWorker UserType = "Worker"
)
