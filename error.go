package listpreload

import "errors"

//goland:noinspection GoUnusedGlobalVariable
var (
	ErrInvalidMaxPreload = errors.New("max preload must be at least 1")
	ErrNilCollaborator   = errors.New("loader, model provider and size provider are required")

	// ErrUnpreparedRequest is raised when a ModelProvider hands back a request
	// that names no source to load. It is a programming error in the provider.
	ErrUnpreparedRequest = errors.New("model provider returned a request with no source")

	ErrDuplicateFingerprint = errors.New("fingerprint already recorded for another item")
	ErrQueueFull            = errors.New("work queue is full")
	ErrClosed               = errors.New("closed")
)
