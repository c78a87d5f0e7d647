package service

import "errors"

// Error kinds surfaced to the transport layer. Services wrap these with
// fmt.Errorf("...: %w", Err...) so handlers can map them with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
)
