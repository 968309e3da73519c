package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// guest or visit does not exist.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing department, malformed or future visit date).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrGuestArchived is returned when a check-in targets a soft-deleted guest.
// The guest must be restored first; the service never restores implicitly.
// Handlers should map this to HTTP 409 Conflict.
var ErrGuestArchived = errors.New("guest is archived")

// ErrVisitExists is returned when a second visit is created for a guest and
// date that already has one.
// Handlers should map this to HTTP 409 Conflict.
var ErrVisitExists = errors.New("visit already recorded for this date")

// ErrDuplicateLicense is returned when a guest would take a license
// (state, number) already held by another guest.
// Handlers should map this to HTTP 409 Conflict.
var ErrDuplicateLicense = errors.New("license already belongs to another guest")
