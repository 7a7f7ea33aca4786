package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated indicates the request carries no authenticated actor.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates the actor is authenticated but not permitted.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidRequest indicates a malformed or unsupported request parameter.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrStoreUnavailable indicates the relational store could not serve a read.
	ErrStoreUnavailable = errors.New("store unavailable")
)
