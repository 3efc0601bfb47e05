package repository

import "errors"

var (
	// ErrNotFound indicates an entity was not located, or a referenced entity does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrInvalidArgument indicates input rejected by a constraint or an unusable filter.
	ErrInvalidArgument = errors.New("repository: invalid argument")
)
