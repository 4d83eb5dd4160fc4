// Package faceid talks to the face encoder sidecar and applies the
// verification decision rule. It never writes ledger rows; logging an
// attempt is the dispatcher's call.
package faceid

import "errors"

// Business errors are deterministic for a given input and are never retried.
var (
	// ErrNoFaceDetected is returned when the encoder finds zero faces.
	ErrNoFaceDetected = errors.New("no face detected")
	// ErrMultipleFacesDetected is returned when the encoder finds more than
	// one face. Enrollment and verification both need exactly one.
	ErrMultipleFacesDetected = errors.New("multiple faces detected")
	// ErrUserNotRegistered is returned when the search scope holds no
	// enrolled candidates.
	ErrUserNotRegistered = errors.New("user not registered")
)
