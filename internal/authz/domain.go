// Package authz implements the authorization decision point and the
// machinery that keeps role assignments and remote policy facts consistent.
package authz

import (
	"github.com/wayfarer-app/wayfarer/internal/policy"
	"github.com/wayfarer-app/wayfarer/internal/roles"
)

// ResourceType tags the kind of entity an action targets.
type ResourceType string

// Resource types known to the policy schema.
const (
	ResourceTrip         ResourceType = "Trip"
	ResourceExpense      ResourceType = "Expense"
	ResourceOrganization ResourceType = "Organization"
	ResourceUser         ResourceType = "User"
)

// Actions in the per-resource permission vocabulary.
const (
	ActionView               = "view"
	ActionManage             = "manage"
	ActionParticipantsList   = "participants.list"
	ActionParticipantsManage = "participants.manage"
	ActionExpenseCreate      = "expense.create"
	ActionExpenseList        = "expense.list"
	ActionTripCreate         = "trip.create"
	ActionTripList           = "trip.list"
)

// Decision is the outcome of a permission evaluation. Deny is the zero value
// so that an unset or failed evaluation never reads as Allow.
type Decision int

const (
	// Deny refuses the action.
	Deny Decision = iota
	// Allow permits the action.
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// permissions is the fixed action vocabulary per resource type. Requests for
// actions outside this table are invalid, not denials.
var permissions = map[ResourceType][]string{
	ResourceTrip: {
		ActionExpenseCreate,
		ActionExpenseList,
		ActionManage,
		ActionParticipantsList,
		ActionParticipantsManage,
		ActionView,
	},
	ResourceExpense:      {ActionManage, ActionView},
	ResourceOrganization: {ActionTripCreate, ActionTripList},
	ResourceUser:         {},
}

// ValidAction reports whether the action belongs to the resource type's
// permission vocabulary.
func ValidAction(resource ResourceType, action string) bool {
	for _, a := range permissions[resource] {
		if a == action {
			return true
		}
	}
	return false
}

// KnownResource reports whether the resource type is part of the schema.
func KnownResource(resource ResourceType) bool {
	_, ok := permissions[resource]
	return ok
}

// tripRolesFor maps every trip action to the trip roles that grant it. The
// local evaluation strategy consults this table; the remote strategy derives
// the same outcomes from the policy service's rule set.
var tripRolesFor = map[string][]string{
	ActionView:               {roles.Organizer, roles.Participant, roles.Viewer},
	ActionExpenseList:        {roles.Organizer, roles.Participant, roles.Viewer},
	ActionParticipantsList:   {roles.Organizer, roles.Participant, roles.Viewer},
	ActionExpenseCreate:      {roles.Organizer, roles.Participant},
	ActionManage:             {roles.Organizer},
	ActionParticipantsManage: {roles.Organizer},
}

// expenseTripRolesFor maps expense actions to the roles on the parent trip
// that grant them.
var expenseTripRolesFor = map[string][]string{
	ActionView:   {roles.Organizer, roles.Participant, roles.Viewer},
	ActionManage: {roles.Organizer, roles.Participant},
}

// RoleAssignment is the local record binding one user to one role on a trip.
type RoleAssignment struct {
	TripID   string
	UserID   string
	RoleID   string
	RoleName string
}

// Actor converts a user id into a policy actor reference.
func Actor(userID string) policy.Value {
	return policy.NewValue(string(ResourceUser), userID)
}

// Resource converts a resource type and id into a policy resource reference.
func Resource(resource ResourceType, id string) policy.Value {
	return policy.NewValue(string(resource), id)
}
