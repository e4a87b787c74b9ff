package model

import "github.com/rotisserie/eris"

// Sentinel errors shared by resolvers, the update pipeline and the API.
// Match them with errors.Is; callers wrap them with eris for context.
var (
	// ErrNotFound means the entity or field has no resolvable value.
	ErrNotFound = eris.New("not found")

	// ErrInsufficientData means fewer than three usable market comparables.
	ErrInsufficientData = eris.New("insufficient data")

	// ErrPermissionDenied means the actor may not edit the field.
	ErrPermissionDenied = eris.New("permission denied")

	// ErrStoreUnavailable means the evidence store could not serve a read or write.
	ErrStoreUnavailable = eris.New("evidence store unavailable")
)
