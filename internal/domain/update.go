package domain

import (
	"slices"
	"time"
)

// UpdateType tags a timeline entry.
type UpdateType string

const (
	UpdateEmail   UpdateType = "email"
	UpdatePhone   UpdateType = "phone"
	UpdateMeeting UpdateType = "meeting"
	UpdateEvent   UpdateType = "event"
	UpdateStatus  UpdateType = "status"
	UpdateOther   UpdateType = "other"
)

// Label is the display form of the type.
func (t UpdateType) Label() string {
	switch t {
	case UpdateEmail:
		return "Email"
	case UpdatePhone:
		return "Phone"
	case UpdateMeeting:
		return "Meeting"
	case UpdateEvent:
		return "Event"
	case UpdateStatus:
		return "Status"
	default:
		return "Other"
	}
}

// UpdateTypesFor lists the types a parent kind accepts. UpdateOther is the default for both.
func UpdateTypesFor(parent Kind) []UpdateType {
	switch parent {
	case KindContact:
		return []UpdateType{UpdateEmail, UpdatePhone, UpdateMeeting, UpdateEvent, UpdateOther}
	case KindOrganisation:
		return []UpdateType{UpdateMeeting, UpdateEvent, UpdateStatus, UpdateOther}
	}
	return nil
}

// AcceptsUpdateType reports whether parent allows t.
func AcceptsUpdateType(parent Kind, t UpdateType) bool {
	return slices.Contains(UpdateTypesFor(parent), t)
}

// UpdateDeletable reports whether individual timeline entries of parent may be deleted.
// Organisation entries can be; contact entries cannot.
func UpdateDeletable(parent Kind) bool {
	return parent == KindOrganisation
}

// Update is an append-only timeline entry on a contact or organisation.
type Update struct {
	ID          string     `json:"id"`
	TeamID      string     `json:"team_id"`
	ParentKind  Kind       `json:"parent_kind"`
	ParentID    string     `json:"parent_id"`
	Type        UpdateType `json:"type"`
	Content     string     `json:"content"`
	CreatedBy   string     `json:"created_by"`
	CreatorName string     `json:"creator_name,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
