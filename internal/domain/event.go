package domain

import "time"

// CalendarEvent is a scheduled meeting or occurrence.
type CalendarEvent struct {
	ID             string    `json:"id"`
	TeamID         string    `json:"team_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	OrganisationID *string   `json:"organisation_id"`
	ContactID      *string   `json:"contact_id"`
	TaskID         *string   `json:"task_id"`
	Organisation   *Ref      `json:"organisation,omitempty"`
	Contact        *Ref      `json:"contact,omitempty"`
	Task           *Ref      `json:"task,omitempty"`
	CreatorName    string    `json:"creator_name,omitempty"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (e CalendarEvent) EntityID() string { return e.ID }
