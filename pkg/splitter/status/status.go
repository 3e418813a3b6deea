// Package status declares error constants returned by chunk splitters.
package status

import "github.com/oneconcern/chunkstore/pkg/errors"

var (
	// ErrInvalidParams indicates splitter parameters out of range
	ErrInvalidParams = errors.New("invalid splitter parameters")

	// ErrUnsupported indicates a splitter which cannot be described by parameters
	ErrUnsupported = errors.New("splitter cannot be described")
)
