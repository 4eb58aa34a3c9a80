package orchestrator

import "fmt"

// Phase is the orchestrator's position in Idle → Submitting → Reporting → Idle.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseSubmitting
	PhaseReporting
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSubmitting:
		return "submitting"
	case PhaseReporting:
		return "reporting"
	default:
		return fmt.Sprintf("phase(%d)", int32(p))
	}
}

// Role identifies one of the three image slots.
type Role int

const (
	RoleClassification Role = iota
	RoleTilt
	RoleBackup

	roleCount = 3
)

// Roles lists the slots in submission order.
var Roles = [roleCount]Role{RoleClassification, RoleTilt, RoleBackup}

// String returns the form field name used for the slot.
func (r Role) String() string {
	switch r {
	case RoleClassification:
		return "classification"
	case RoleTilt:
		return "tilt"
	case RoleBackup:
		return "backup"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

func (r Role) valid() bool {
	return r >= RoleClassification && r <= RoleBackup
}

// Outcome labels how a submission ended.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeFailure   Outcome = "failure"
	OutcomeTimeout   Outcome = "timeout"
	OutcomeCancelled Outcome = "cancelled"
)
