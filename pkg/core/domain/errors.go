package domain

import "errors"

var (
	// ErrInvalidDestination is returned when a target URL does not parse as
	// an absolute http(s) URL. Targets are validated on write, never at
	// resolution time.
	ErrInvalidDestination = errors.New("invalid destination URL")

	// ErrInvalidCode is returned when a custom short code fails character,
	// length, or reserved-prefix validation.
	ErrInvalidCode = errors.New("invalid short code")

	// ErrCodeTaken is returned when a custom short code already exists
	// anywhere in the routing namespace.
	ErrCodeTaken = errors.New("short code already in use")

	// ErrCodeSpaceExhausted is returned when the code generator runs out of
	// collision retries. Hitting it in practice signals a configuration
	// problem, not a user error.
	ErrCodeSpaceExhausted = errors.New("short code space exhausted")

	// ErrNotFound covers unknown, disabled, and soft-deleted resources.
	// The cases are deliberately indistinguishable so public resolution
	// cannot leak resource existence.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when a stored link has no target URL,
	// which creation-time validation should make unreachable.
	ErrInvalidState = errors.New("link has no target URL")

	// ErrPlanLimitReached is returned when the workspace's plan does not
	// allow another active link.
	ErrPlanLimitReached = errors.New("plan limit reached")

	// ErrRecorderUnavailable is returned by the event store when an append
	// fails. It is absorbed by the recorder and never reaches a requester.
	ErrRecorderUnavailable = errors.New("event recorder unavailable")
)
