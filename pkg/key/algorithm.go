package key

import (
	"crypto/sha256"
	"fmt"
	"hash"

	blake2b "github.com/minio/blake2b-simd"
)

// Algorithm names a hash function producing Size bytes digests
type Algorithm string

const (
	// SHA256 is the default algorithm, used for all data hashes
	SHA256 Algorithm = "sha256"

	// Blake2b is blake2b-256, available for box hashes
	Blake2b Algorithm = "blake2b"
)

// ParseAlgorithm validates an algorithm name. An empty name selects SHA256.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(name) {
	case "", SHA256:
		return SHA256, nil
	case Blake2b:
		return Blake2b, nil
	default:
		return "", fmt.Errorf("unsupported hash algorithm %q", name)
	}
}

// New returns a fresh hash.Hash for this algorithm
func (a Algorithm) New() hash.Hash {
	if a == Blake2b {
		return blake2b.New256()
	}
	return sha256.New()
}

// Sum hashes data with this algorithm
func (a Algorithm) Sum(data []byte) Hash {
	if a == Blake2b {
		return Hash(blake2b.Sum256(data))
	}
	return Sum(data)
}

func (a Algorithm) String() string {
	if a == "" {
		return string(SHA256)
	}
	return string(a)
}
