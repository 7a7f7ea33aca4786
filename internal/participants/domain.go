// Package participants manages trip membership: the role assignment rows and
// the participant-facing operations that mutate them.
package participants

import "time"

// Participant is a trip member with their resolved role. RoleLabel is the
// presentation form of the role name, derived, never stored.
type Participant struct {
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	RoleLabel string `json:"role_label"`
}

// Assignment is one trip_roles row. At most one exists per (TripID, UserID);
// the table enforces this with a unique constraint.
type Assignment struct {
	TripID    string
	UserID    string
	RoleID    string
	RoleName  string
	CreatedAt time.Time
}

// AddParticipantInput carries an invite/role-change request.
type AddParticipantInput struct {
	UserID string `json:"user_id" validate:"required"`
	RoleID string `json:"role_id" validate:"required,uuid"`
}

// UpdateRoleInput carries a role change for an existing participant.
type UpdateRoleInput struct {
	RoleID string `json:"role_id" validate:"required,uuid"`
}
