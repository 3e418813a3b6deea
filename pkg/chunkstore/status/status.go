// Package status declares error constants returned by chunk stores.
package status

import "github.com/oneconcern/chunkstore/pkg/errors"

var (
	// ErrTransactionOpen indicates that another transaction is still open on the store
	ErrTransactionOpen = errors.New("only one transaction at a time is supported")

	// ErrTransactionDone indicates a transaction which was already committed or discarded
	ErrTransactionDone = errors.New("transaction is done")

	// ErrNotFound indicates a chunk missing from the store
	ErrNotFound = errors.New("chunk not found")

	// ErrClosed indicates an operation on a closed store
	ErrClosed = errors.New("store is closed")
)
