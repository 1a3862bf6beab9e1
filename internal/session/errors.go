package session

import "errors"

var (
	// ErrAlreadyStarted is returned when OnStartup is called more than once.
	ErrAlreadyStarted = errors.New("session already started")
	// ErrNotStarted is returned for edits and snapshots attempted before OnStartup.
	ErrNotStarted = errors.New("session not started")
)
