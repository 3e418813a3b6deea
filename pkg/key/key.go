// Package key defines the content identifiers used by the chunk store: fixed
// size hashes and the pointers combining a logical and a physical hash.
package key

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const (
	// Size of a hash, in bytes
	Size = sha256.Size

	// SizeHex for the hex representation of a hash
	SizeHex = 2 * Size
)

// Hash is a fixed size content digest
type Hash [Size]byte

// Zero is the empty hash, used for pointers not yet persisted
var Zero Hash

// New creates a hash from raw bytes, which must be exactly Size long
func New(data []byte) (Hash, error) {
	var h Hash
	if len(data) != Size {
		return Hash{}, &BadKeySize{Key: data}
	}
	copy(h[:], data)
	return h, nil
}

// MustNew creates a hash from raw bytes but panics if there is an error
func MustNew(data []byte) Hash {
	h, err := New(data)
	if err != nil {
		panic(err.Error())
	}
	return h
}

// FromString parses the hex representation of a hash
func FromString(s string) (Hash, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, err
	}
	return New(data)
}

// Sum computes the SHA-256 hash of data
func Sum(data []byte) Hash {
	return Hash(sha256.Sum256(data))
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Bytes returns a copy of the raw hash
func (h Hash) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, h[:])
	return b
}

// IsZero tells if this is the empty hash
func (h Hash) IsZero() bool {
	return h == Zero
}

// Compare hashes as unsigned big endian integers
func (h Hash) Compare(other Hash) int {
	return bytes.Compare(h[:], other[:])
}

// BadKeySize is an error that's returned when the key to create has an invalid size.
type BadKeySize struct {
	Key []byte
}

func (b *BadKeySize) Error() string {
	return fmt.Sprintf("%x has invalid size of %d, expected %d", b.Key, len(b.Key), Size)
}
