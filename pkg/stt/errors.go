package stt

import "errors"

// Sentinel errors for common error conditions.
var (
	// ErrUnavailable is returned when no recognition engine is reachable.
	ErrUnavailable = errors.New("stt: recognition unavailable")

	// ErrAlreadyStarted is returned when Start is called during a session.
	ErrAlreadyStarted = errors.New("stt: recognition already started")

	// ErrNotStarted is returned when Stop is called without a session.
	ErrNotStarted = errors.New("stt: recognition not started")
)
