package tbdr

import "errors"

// Batch and dispatch errors.
var (
	// ErrStreamAlloc is returned when a batch cannot allocate its command
	// streams.
	ErrStreamAlloc = errors.New("tbdr: command stream allocation failed")

	// ErrBatchFlushed is returned when a flushed batch is used for new work.
	ErrBatchFlushed = errors.New("tbdr: batch already flushed")

	// ErrNilBatch is returned when an operation references a nil batch.
	ErrNilBatch = errors.New("tbdr: batch is nil")

	// ErrNilDrawInfo is returned by Draw without draw parameters.
	ErrNilDrawInfo = errors.New("tbdr: draw info is nil")

	// ErrNilBackend is returned when a context is created without a backend.
	ErrNilBackend = errors.New("tbdr: backend is nil")

	// ErrUnsupportedTopology is returned when a topology is neither drawn by
	// the backend nor handled by a primitive converter.
	ErrUnsupportedTopology = errors.New("tbdr: unsupported primitive topology")

	// ErrContextClosed is returned when a closed context is used.
	ErrContextClosed = errors.New("tbdr: context closed")
)

// Resource and state errors.
var (
	// ErrUnsupportedFormat is returned when a format has no hardware
	// encoding for a requested usage.
	ErrUnsupportedFormat = errors.New("tbdr: unsupported format")

	// ErrInvalidDescriptor is returned for malformed resource descriptors.
	ErrInvalidDescriptor = errors.New("tbdr: invalid resource descriptor")

	// ErrResourceDestroyed is returned when a destroyed resource is bound.
	ErrResourceDestroyed = errors.New("tbdr: resource destroyed")

	// ErrSampleMismatch is returned when framebuffer attachments disagree on
	// their sample count.
	ErrSampleMismatch = errors.New("tbdr: attachment sample count mismatch")

	// ErrTooManyTargets is returned when a framebuffer has more color
	// targets than the hardware supports.
	ErrTooManyTargets = errors.New("tbdr: too many color targets")

	// ErrTooManyAttributes is returned when a vertex state has more than
	// MaxVertexElements attributes.
	ErrTooManyAttributes = errors.New("tbdr: too many vertex attributes")

	// ErrEmptyFramebuffer is returned when a framebuffer has zero area.
	ErrEmptyFramebuffer = errors.New("tbdr: framebuffer has zero area")
)

// Configuration errors.
var (
	// ErrConfigFormat is returned for configuration files of an unknown type.
	ErrConfigFormat = errors.New("tbdr: unknown configuration file format")

	// ErrInvalidConfig is returned for out-of-range configuration values.
	ErrInvalidConfig = errors.New("tbdr: invalid configuration")

	// ErrUnknownDebugFlag is returned by ParseDebug for an unknown flag.
	ErrUnknownDebugFlag = errors.New("tbdr: unknown debug flag")
)
