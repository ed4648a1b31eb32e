package handoff

import "errors"

var (
	ErrNotFound       = errors.New("snapshot not found")
	ErrMissingSession = errors.New("session id is required")
	ErrMissingKey     = errors.New("snapshot key is required")
)
