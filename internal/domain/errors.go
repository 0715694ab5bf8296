// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates the write collided with existing state, such as a
// duplicate project name.
var ErrConflict = errors.New("conflict: resource already exists or was modified")

// ErrUnknownAgent indicates the agent name is absent from the dependency graph.
var ErrUnknownAgent = errors.New("unknown agent")

// ErrInvalidState indicates the entity is in a status incompatible with the
// requested operation, such as skipping an already-completed feature.
var ErrInvalidState = errors.New("invalid state for operation")

// ErrValidation indicates a request failed input validation.
var ErrValidation = errors.New("validation failed")
