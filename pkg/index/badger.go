package index

import (
	"os"

	"github.com/dgraph-io/badger"
	"github.com/oneconcern/chunkstore/pkg/codec"
	"github.com/oneconcern/chunkstore/pkg/index/status"
	"go.uber.org/zap"
)

// Badger stores the index in a badger key-value store.
//
// Every operation runs in its own badger transaction, hence changes are
// durable as soon as the operation returns and Commit is a no-op.
type Badger struct {
	db       *badger.DB
	hashSize int
	ptr      codec.Codec
	l        *zap.Logger
}

// OpenBadger opens or creates a badger index in dir
func OpenBadger(dir string, hashSize int, opts ...Option) (*Badger, error) {
	o := defaultOptions(opts)
	if hashSize <= 0 {
		return nil, status.ErrInvalidKey.WrapMessage("invalid hash size %d", hashSize)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	bopts := badger.DefaultOptions
	bopts.Dir = dir
	bopts.ValueDir = dir

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, err
	}
	o.l.Debug("badger index opened", zap.String("dir", dir))
	return &Badger{db: db, hashSize: hashSize, ptr: o.ptr, l: o.l}, nil
}

func (b *Badger) checkKey(key []byte) error {
	if b.db == nil {
		return status.ErrClosed
	}
	if len(key) != b.hashSize {
		return status.ErrInvalidKey.WrapMessage("got %d bytes, expected %d", len(key), b.hashSize)
	}
	if isZero(key) {
		return status.ErrInvalidKey.WrapMessage("the zero key is reserved")
	}
	return nil
}

// Put inserts a new key
func (b *Badger) Put(key []byte, value int64) error {
	if err := b.checkKey(key); err != nil {
		return err
	}
	if value <= 0 || uint64(value) > b.ptr.Max() {
		return status.ErrInvalidValue.WrapMessage("%d", value)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		switch err {
		case nil:
			return status.ErrDuplicateKey.WrapMessage("%x", key)
		case badger.ErrKeyNotFound:
		default:
			return err
		}
		v := make([]byte, b.ptr.Size())
		b.ptr.Put(v, uint64(value))
		return txn.Set(clone(key), v)
	})
}

// Get the value stored for key
func (b *Badger) Get(key []byte) (int64, bool, error) {
	if err := b.checkKey(key); err != nil {
		return 0, false, err
	}
	var (
		value int64
		found bool
	)
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		v, err := item.Value()
		if err != nil {
			return err
		}
		if len(v) != b.ptr.Size() {
			return status.ErrCorruption.WrapMessage("value of %d bytes for key %x", len(v), key)
		}
		value, found = int64(b.ptr.Get(v)), true
		return nil
	})
	return value, found, err
}

// Remove a key, reporting whether it was present
func (b *Badger) Remove(key []byte) (bool, error) {
	if err := b.checkKey(key); err != nil {
		return false, err
	}
	var found bool
	err := b.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return txn.Delete(clone(key))
	})
	return found, err
}

// Walk visits all keys in ascending order
func (b *Badger) Walk(fn func(key []byte, value int64) error) error {
	if b.db == nil {
		return status.ErrClosed
	}
	return b.db.View(func(txn *badger.Txn) error {
		iter := txn.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			v, err := item.Value()
			if err != nil {
				return err
			}
			if err := fn(clone(item.Key()), int64(b.ptr.Get(v))); err != nil {
				return err
			}
		}
		return nil
	})
}

// Commit is a no-op: every Put and Remove is already durable when it
// returns, unlike with the BTree backend.
func (b *Badger) Commit() error {
	if b.db == nil {
		return status.ErrClosed
	}
	return nil
}

// Close the badger store
func (b *Badger) Close() error {
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}
