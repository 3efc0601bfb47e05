package domain

import "time"

// Contact is a person, optionally attached to an organisation.
type Contact struct {
	ID             string    `json:"id"`
	TeamID         string    `json:"team_id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	Role           string    `json:"role"`
	CurrentStatus  string    `json:"current_status"`
	OrganisationID *string   `json:"organisation_id"`
	Organisation   *Ref      `json:"organisation,omitempty"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (c Contact) EntityID() string { return c.ID }

// OrganisationName returns the expanded organisation name, or "".
func (c Contact) OrganisationName() string {
	if c.Organisation == nil {
		return ""
	}
	return c.Organisation.Name
}
