// Package status declares error constants returned by chunk containers.
package status

import "github.com/oneconcern/chunkstore/pkg/errors"

var (
	// ErrInvalidPosition indicates a position outside of the container, or not on a chunk boundary
	ErrInvalidPosition = errors.New("invalid position")

	// ErrLengthMismatch indicates a removal whose length differs from the chunk found at its position
	ErrLengthMismatch = errors.New("data length mismatch")

	// ErrCorruption indicates a stored node or chunk which does not match its pointer
	ErrCorruption = errors.New("container corrupted")

	// ErrNoAccessor indicates a container created without chunk accessor
	ErrNoAccessor = errors.New("a chunk accessor is required")
)
