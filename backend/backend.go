package backend

import (
	"errors"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// Backend name constants.
const (
	// BackendPM4 is the name of the command packet backend for tilers
	// consuming type-3 packets.
	BackendPM4 = "pm4"
	// BackendNull is the name of the backend that records nothing.
	BackendNull = "null"
)
