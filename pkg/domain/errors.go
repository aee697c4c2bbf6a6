package domain

import "errors"

// ErrEntryNotFound is returned when no derived objects exist for an entry ID.
var ErrEntryNotFound = errors.New("entry not found")

// ErrCalloutNotFound is returned when an entry has no callout at the requested index.
var ErrCalloutNotFound = errors.New("callout not found")

// ErrInvalidEntryPath is returned when an object path does not end in a numeric entry ID.
var ErrInvalidEntryPath = errors.New("invalid log entry path")

// ErrMalformedEntry is returned when some of an entry's properties could not
// be decoded.
var ErrMalformedEntry = errors.New("malformed log entry")

// ErrLoopStopped is returned when a request is submitted to a manager whose
// dispatch loop is no longer running.
var ErrLoopStopped = errors.New("dispatch loop stopped")
