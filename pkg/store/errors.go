package store

import "errors"

// ErrNotFound is matched by lookups of unregistered keys.
var ErrNotFound = errors.New("store not found")

// ErrTypeMismatch is matched by lookups with the wrong value type.
var ErrTypeMismatch = errors.New("store value type mismatch")
