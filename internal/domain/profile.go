package domain

import "time"

// Profile holds editable display details for a user.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	AvatarURL string    `json:"avatar_url"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName falls back to the email when no full name is set.
func (p Profile) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	return p.Email
}

// RecentView records that a user opened an entity. Keyed by user, type and item.
type RecentView struct {
	UserID   string    `json:"user_id"`
	TeamID   string    `json:"team_id"`
	ItemType Kind      `json:"item_type"`
	ItemID   string    `json:"item_id"`
	ViewedAt time.Time `json:"viewed_at"`
}
