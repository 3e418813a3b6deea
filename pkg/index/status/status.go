// Package status declares error constants returned by the implementations of
// the ChunkIndex interface.
//
// NOTE: such constants are located in a separate package so that callers can
// check errors without depending on a given index backend.
package status

import "github.com/oneconcern/chunkstore/pkg/errors"

var (
	// ErrDuplicateKey indicates an insertion of a key which is already indexed. Replacing is not supported.
	ErrDuplicateKey = errors.New("duplicate key: replacing not supported")

	// ErrInvalidKey indicates a key of the wrong size, or a reserved key
	ErrInvalidKey = errors.New("invalid key")

	// ErrInvalidValue indicates a reserved value
	ErrInvalidValue = errors.New("invalid value")

	// ErrInvalidPointer indicates that a zero or out of range tile pointer was dereferenced
	ErrInvalidPointer = errors.New("invalid tile pointer")

	// ErrEmptyNode indicates an empty node below the root
	ErrEmptyNode = errors.New("unexpected empty node")

	// ErrTileSize indicates a tile size too small to hold a node
	ErrTileSize = errors.New("invalid tile size")

	// ErrCorruption indicates unreadable or inconsistent index data
	ErrCorruption = errors.New("index corrupted")

	// ErrVersion indicates an index written in an unsupported format
	ErrVersion = errors.New("unsupported index version")

	// ErrClosed indicates an operation on a closed index
	ErrClosed = errors.New("index is closed")
)
