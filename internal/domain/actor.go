package domain

// Actor is the authenticated caller a service acts for: the user and the team they work in.
type Actor struct {
	UserID string
	TeamID string
}
