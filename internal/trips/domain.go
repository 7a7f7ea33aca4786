// Package trips implements trip CRUD on top of the authorization subsystem.
package trips

import "time"

// Trip represents a planned trip.
type Trip struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Destination string    `json:"destination"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserTrip is a trip joined with the viewing user's role on it. RoleLabel is
// the presentation form of the role name, derived, never stored.
type UserTrip struct {
	Trip
	RoleID    string `json:"role_id"`
	RoleName  string `json:"role_name"`
	RoleLabel string `json:"role_label"`
}

// CreateTripInput carries a trip creation request.
type CreateTripInput struct {
	Name        string    `json:"name" validate:"required"`
	Destination string    `json:"destination" validate:"required"`
	StartDate   time.Time `json:"start_date" validate:"required"`
	EndDate     time.Time `json:"end_date" validate:"required,gtefield=StartDate"`
}

// UpdateTripInput carries a partial trip update. Nil fields are unchanged.
type UpdateTripInput struct {
	Name        *string    `json:"name" validate:"omitempty,min=1"`
	Destination *string    `json:"destination" validate:"omitempty,min=1"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}
