package tui

import (
	"github.com/splax/cornerstone/internal/domain"
	"github.com/splax/cornerstone/internal/search"
)

// OpenAddFormMsg asks the app to show the add form for an entity kind.
type OpenAddFormMsg struct {
	Kind domain.Kind
}

// navigateMsg switches to the owning screen of an entity and opens its panel.
type navigateMsg struct {
	Kind domain.Kind
	ID   string
}

// deleteConfirmedMsg is sent synchronously when the user confirms a delete, so the
// panel showing the target closes whatever the server says.
type deleteConfirmedMsg struct {
	Key string
}

// flashMsg shows a one-line notice in the footer.
type flashMsg struct {
	text  string
	isErr bool
}

type loadedMsg[T any] struct {
	items []T
	err   error
}

type savedMsg[T any] struct {
	item    T
	editing string
	err     error
}

type replacedMsg[T any] struct {
	item T
	err  error
}

type teamResolvedMsg struct {
	team domain.Team
	err  error
}

type searchTickMsg struct {
	seq int
}

type searchResultMsg struct {
	seq     int
	results []search.Result
	err     error
}

type authDoneMsg struct {
	err error
}

type signedOutMsg struct{}

// viewRecordedMsg follows a successful recent-view write.
type viewRecordedMsg struct{}
