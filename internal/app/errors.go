package app

import "errors"

// ErrNotFound reports a missing project or task.
var ErrNotFound = errors.New("not found")
