package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrAuthFailed indicates the auth token is missing or rejected
	ErrAuthFailed = errors.New("authentication token is invalid")

	// ErrServerOffline indicates the remote library is unreachable
	ErrServerOffline = errors.New("music library is unreachable")

	// ErrPlaylistNotFound indicates the requested playlist does not exist
	ErrPlaylistNotFound = errors.New("playlist not found")
)
