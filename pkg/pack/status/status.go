// Package status declares error constants returned by pack files.
package status

import "github.com/oneconcern/chunkstore/pkg/errors"

var (
	// ErrCorruption indicates that a record does not match what was expected at its offset
	ErrCorruption = errors.New("pack file corrupted or misaligned record")

	// ErrHashSize indicates a hash which does not match the size configured for the pack file
	ErrHashSize = errors.New("hash size mismatch")

	// ErrVersion indicates a pack file written in an unsupported format
	ErrVersion = errors.New("unsupported pack file version")

	// ErrTooLarge indicates a record exceeding the maximum record length
	ErrTooLarge = errors.New("record too large")
)
