package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrForbidden indicates the actor lacks the required role.
	ErrForbidden = errors.New("forbidden")
	// ErrAuditFailed marks a mutation whose audit entry could not be written.
	// The record change itself may already be durable; callers must surface
	// this instead of treating the operation as a clean success.
	ErrAuditFailed = errors.New("audit write failed")
)
