package client

import "errors"

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("rejected by server")
	ErrNotFound     = errors.New("not found on server")
	ErrConflict     = errors.New("conflict")
)
