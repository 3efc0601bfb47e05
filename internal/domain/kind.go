package domain

// Kind names a primary entity type. Used for recent views, search results and navigation.
type Kind string

const (
	KindOrganisation Kind = "organisation"
	KindContact      Kind = "contact"
	KindTask         Kind = "task"
	KindEvent        Kind = "event"
)

// Valid reports whether k is a known entity kind.
func (k Kind) Valid() bool {
	switch k {
	case KindOrganisation, KindContact, KindTask, KindEvent:
		return true
	}
	return false
}

// Ref is an expanded to-one relation: the related record's id and display name.
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
