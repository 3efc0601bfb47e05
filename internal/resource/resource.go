// Package resource is the generic list, create, edit and delete cycle shared by the
// organisation, contact, task and calendar screens.
package resource

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/splax/cornerstone/internal/domain"
	"github.com/splax/cornerstone/internal/repository"
)

// ErrMissingField is returned when a required form field is blank.
var ErrMissingField = errors.New("required field missing")

// FieldKind tells the form how to edit and parse a field.
type FieldKind int

const (
	FieldText FieldKind = iota
	FieldMultiline
	FieldDate
	FieldDateTime
	FieldRef
)

// Field is one editable input of a form.
type Field struct {
	Key      string
	Label    string
	Required bool
	Kind     FieldKind
	// Ref names the entity a FieldRef points at.
	Ref domain.Kind
}

// Values holds raw form input keyed by Field.Key. Ref fields hold the related id.
type Values map[string]string

// RefNameKey is the hidden value holding the display name of the row a FieldRef
// currently points at. Forms use it when that row is not among the choices.
func RefNameKey(key string) string { return key + ".name" }

// Get returns the trimmed value for key.
func (v Values) Get(key string) string {
	return strings.TrimSpace(v[key])
}

// Optional returns nil for a blank value and a pointer to it otherwise.
func (v Values) Optional(key string) *string {
	s := v.Get(key)
	if s == "" {
		return nil
	}
	return &s
}

// Clone copies v so a form can edit without touching the source.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Schema describes one entity type: its form, ordering, labels and conversions.
type Schema[T any, In any] struct {
	Kind     domain.Kind
	Title    string
	Singular string
	Fields   []Field
	// Query is the listing issued on load; it carries the stable sort key.
	Query repository.Query

	ID    func(T) string
	Label func(T) string
	// Values pre-fills the edit form from a stored row.
	Values func(T) Values
	// Input converts validated form values into the API payload.
	Input func(Values) (In, error)
	// DeleteMessage is the confirmation text for deleting the named entity.
	DeleteMessage func(label string) string
}

// Validate checks required-field presence only.
func (s Schema[T, In]) Validate(v Values) error {
	var missing []string
	for _, f := range s.Fields {
		if f.Required && v.Get(f.Key) == "" {
			missing = append(missing, f.Label)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}
	return nil
}

// Blank returns empty values for every field.
func (s Schema[T, In]) Blank() Values {
	v := make(Values, len(s.Fields))
	for _, f := range s.Fields {
		v[f.Key] = ""
	}
	return v
}

// Remote is the API side of a collection. client.Resource satisfies it.
type Remote[T any, In any] interface {
	List(ctx context.Context, q repository.Query) ([]T, error)
	Create(ctx context.Context, in In) (T, error)
	Update(ctx context.Context, id string, in In) (T, error)
	Delete(ctx context.Context, id string) error
}

// Store runs the schema's operations against a remote.
type Store[T any, In any] struct {
	Schema Schema[T, In]
	Remote Remote[T, In]
}

// NewStore pairs a schema with its remote.
func NewStore[T any, In any](schema Schema[T, In], remote Remote[T, In]) Store[T, In] {
	return Store[T, In]{Schema: schema, Remote: remote}
}

// Load fetches every row in the schema's order.
func (s Store[T, In]) Load(ctx context.Context) ([]T, error) {
	items, err := s.Remote.List(ctx, s.Schema.Query)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", strings.ToLower(s.Schema.Title), err)
	}
	return items, nil
}

// Create validates and posts a new row.
func (s Store[T, In]) Create(ctx context.Context, v Values) (T, error) {
	var zero T
	in, err := s.input(v)
	if err != nil {
		return zero, err
	}
	return s.Remote.Create(ctx, in)
}

// Update validates and replaces the editable fields of id.
func (s Store[T, In]) Update(ctx context.Context, id string, v Values) (T, error) {
	var zero T
	in, err := s.input(v)
	if err != nil {
		return zero, err
	}
	return s.Remote.Update(ctx, id, in)
}

// Delete removes id.
func (s Store[T, In]) Delete(ctx context.Context, id string) error {
	return s.Remote.Delete(ctx, id)
}

func (s Store[T, In]) input(v Values) (In, error) {
	var zero In
	if err := s.Schema.Validate(v); err != nil {
		return zero, err
	}
	return s.Schema.Input(v)
}

// Collection is the local, ordered copy of a loaded listing.
type Collection[T any] struct {
	id     func(T) string
	items  []T
	loaded bool
	// Err is the last load failure, shown as a page banner.
	Err error
}

// NewCollection keys rows by id.
func NewCollection[T any](id func(T) string) *Collection[T] {
	return &Collection[T]{id: id}
}

// Items returns the rows in order.
func (c *Collection[T]) Items() []T { return c.items }

// Len is the row count.
func (c *Collection[T]) Len() int { return len(c.items) }

// Loaded reports whether a load has completed, successfully or not.
func (c *Collection[T]) Loaded() bool { return c.loaded }

// Reset stores the outcome of a load.
func (c *Collection[T]) Reset(items []T, err error) {
	c.loaded = true
	c.Err = err
	if err != nil {
		return
	}
	c.items = append([]T(nil), items...)
}

// Append adds a freshly created row at the end.
func (c *Collection[T]) Append(item T) {
	c.items = append(c.items, item)
}

// ReplaceByID swaps the row with the same id for item, keeping its position.
func (c *Collection[T]) ReplaceByID(item T) bool {
	id := c.id(item)
	for i := range c.items {
		if c.id(c.items[i]) == id {
			c.items[i] = item
			return true
		}
	}
	return false
}

// Remove drops the row with id.
func (c *Collection[T]) Remove(id string) bool {
	for i := range c.items {
		if c.id(c.items[i]) == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

// Find returns the row with id.
func (c *Collection[T]) Find(id string) (T, bool) {
	for _, item := range c.items {
		if c.id(item) == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Index returns the position of id, or -1.
func (c *Collection[T]) Index(id string) int {
	for i, item := range c.items {
		if c.id(item) == id {
			return i
		}
	}
	return -1
}
