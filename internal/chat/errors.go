package chat

import "errors"

// ErrMissingInput is returned when a required request field is absent
// or empty; checked before any capability call.
var ErrMissingInput = errors.New("missing input: text cannot be empty")
