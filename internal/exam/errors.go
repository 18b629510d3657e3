// Package exam implements the test-session lifecycle: starting a timed test
// from freshly generated questions, lazy expiry, submission scoring with the
// NEET marking scheme, and analytics over completed sessions.
package exam

import "errors"

var (
	// ErrNotFound signals an unknown subject, topic or test session.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest signals an out-of-range count or a topic that does
	// not belong to the requested subject.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrGenerationFailed signals the question source produced zero or
	// insufficient valid questions. Never retried here.
	ErrGenerationFailed = errors.New("question generation failed")
	// ErrAlreadyCompleted signals a second submission to a completed session.
	ErrAlreadyCompleted = errors.New("test already completed")
)
