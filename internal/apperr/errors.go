package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")

	// ErrSyncInProgress is returned when a trigger arrives while a run is active.
	ErrSyncInProgress = errors.New("sync already in progress")
	// ErrNoCredentials means no access token could be read from any known location.
	ErrNoCredentials = errors.New("no granola credentials found")
	// ErrNoContent marks a document that has nothing to write yet.
	ErrNoContent = errors.New("document has no content")
	// ErrCollision marks a document abandoned because its target path is taken.
	ErrCollision = errors.New("target path collision")
)
