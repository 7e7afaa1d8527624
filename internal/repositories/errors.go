package repositories

import "errors"

// ErrNotFound is returned when a record has not been indexed (or does not exist).
var ErrNotFound = errors.New("record not found")
