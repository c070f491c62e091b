package repository

import "errors"

// ErrNotFound is returned by every task store when no row matches the id.
var ErrNotFound = errors.New("task not found")
