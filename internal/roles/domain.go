// Package roles provides access to the near-static trip role catalog.
package roles

import (
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Role names known to the policy schema.
const (
	Organizer   = "organizer"
	Participant = "participant"
	Viewer      = "viewer"
)

// DefaultNames lists the roles seeded at install time.
var DefaultNames = []string{Organizer, Participant, Viewer}

// Role represents a named membership category on a trip.
type Role struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

var titleCaser = cases.Title(language.English)

// DisplayName returns the role name formatted for presentation.
func (r Role) DisplayName() string {
	return titleCaser.String(r.Name)
}
