package models

import "errors"

// ErrValidation marks client errors caused by malformed input. Wrapping
// errors add the field-level detail.
var ErrValidation = errors.New("validation error")
