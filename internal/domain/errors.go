package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrDuplicateUser = errors.New("username already taken")
	// ErrJobFinished is returned by job mutators when the record already
	// reached a terminal state. Executors treat it as a signal to abort
	// rather than continue writing slots.
	ErrJobFinished = errors.New("job already finished")
)
