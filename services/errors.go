package services

import "errors"

// Validation failures. Each is detected before any mutation is applied, so a
// caller receiving one of these can rely on prior state being untouched.
var (
	ErrInvalidLineItem        = errors.New("invalid line item")
	ErrInvalidConfiguration   = errors.New("invalid configuration")
	ErrDuplicateLevelCode     = errors.New("duplicate level code")
	ErrMissingParent          = errors.New("missing parent")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrEmptyQuotation         = errors.New("quotation has no line items")
	ErrInvalidProject         = errors.New("invalid project")
)

// ErrNotFound is returned by lookups of records that do not exist.
var ErrNotFound = errors.New("not found")
