package chunkstore

import (
	"github.com/oneconcern/chunkstore/pkg/chunkstore/status"
	"github.com/oneconcern/chunkstore/pkg/key"
	"go.uber.org/zap"
)

// Transaction groups chunk writes until Commit. Only one transaction may be
// open on a store at a time.
type Transaction struct {
	s    *Store
	done bool
	puts int
}

// Begin opens a transaction
func (s *Store) Begin() (*Transaction, error) {
	if s.closed {
		return nil, status.ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx != nil {
		return nil, status.ErrTransactionOpen
	}
	s.tx = &Transaction{s: s}
	return s.tx, nil
}

func (tx *Transaction) end() {
	tx.done = true
	tx.s.mu.Lock()
	if tx.s.tx == tx {
		tx.s.tx = nil
	}
	tx.s.mu.Unlock()
}

// Put stores data under its hash, unless already present. It returns the
// hash and whether the chunk was already stored.
func (tx *Transaction) Put(data []byte) (key.Hash, bool, error) {
	if tx.done {
		return key.Zero, false, status.ErrTransactionDone
	}
	hash := tx.s.algo.Sum(data)
	present, err := tx.s.Has(hash)
	if err != nil {
		return key.Zero, false, err
	}
	if present {
		tx.s.metrics.dedup.Inc()
		return hash, true, nil
	}
	if err = tx.s.Put(hash, data); err != nil {
		return key.Zero, false, err
	}
	tx.puts++
	return hash, false, nil
}

// Get a chunk, nil if missing
func (tx *Transaction) Get(hash key.Hash) ([]byte, error) {
	if tx.done {
		return nil, status.ErrTransactionDone
	}
	return tx.s.Get(hash)
}

// Commit makes the chunks written so far durable and ends the transaction
func (tx *Transaction) Commit() error {
	if tx.done {
		return status.ErrTransactionDone
	}
	defer tx.end()
	if err := tx.s.Commit(); err != nil {
		return err
	}
	tx.s.l.Debug("transaction committed", zap.Int("puts", tx.puts))
	return nil
}

// Discard ends the transaction without committing. Chunks already put stay
// visible to the store until it is closed, but are not durable.
func (tx *Transaction) Discard() {
	if tx.done {
		return
	}
	tx.end()
}
