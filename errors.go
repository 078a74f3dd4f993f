package encmat

import "errors"

// errors returned by the transform layer, always wrapped with context
var (
	// ErrShape reports a matrix or vector that does not fit the packing.
	ErrShape = errors.New("shape mismatch")

	// ErrInvalidParameter reports a malformed argument, e.g. numCols <= 0.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrMissingRotationKey reports a rotation with no generated key.
	ErrMissingRotationKey = errors.New("missing rotation key")

	// ErrUnsupportedDimension reports a dimension the algorithm cannot handle.
	ErrUnsupportedDimension = errors.New("unsupported dimension")
)
