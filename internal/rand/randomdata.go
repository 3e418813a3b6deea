// Package rand produces random test data
package rand

import (
	"bytes"
	"math/rand"
	"sync"
	"time"
)

// Bytes returns a random slice of bytes
func Bytes(n int) []byte {
	onceSource.Do(seed)
	randMutex.Lock()
	defer randMutex.Unlock()
	return shared.Bytes(n)
}

// LetterBytes returns a random slice of bytes picked in the [0-9]|[a-z] range
func LetterBytes(n int) []byte {
	return toLetters(Bytes(n))
}

// LetterString returns a random string picked in the [0-9]|[a-z] range
func LetterString(n int) string {
	return string(LetterBytes(n))
}

var (
	onceSource  sync.Once
	shared      *Generator
	onceLetters sync.Once
	randMutex   sync.Mutex
	letters     []byte
)

func seed() {
	shared = Seeded(time.Now().UnixNano())
}

// Generator is a reproducible source of test data. It is not safe for concurrent use.
type Generator struct {
	r *rand.Rand
}

// Seeded returns a generator which always yields the same data for the same seed
func Seeded(seed int64) *Generator {
	return &Generator{r: rand.New(rand.NewSource(seed))} // #nosec
}

// Bytes returns n random bytes
func (g *Generator) Bytes(n int) []byte {
	buf := make([]byte, n)
	_, _ = g.r.Read(buf)
	return buf
}

// LetterBytes returns n random bytes picked in the [0-9]|[a-z] range
func (g *Generator) LetterBytes(n int) []byte {
	return toLetters(g.Bytes(n))
}

// Intn returns a random int in [0, n)
func (g *Generator) Intn(n int) int {
	return g.r.Intn(n)
}

// Perm returns a random permutation of [0, n)
func (g *Generator) Perm(n int) []int {
	return g.r.Perm(n)
}

func toLetters(buf []byte) []byte {
	onceLetters.Do(func() {
		// 0-9 U a-z repeated 7 times covers 252 values, "a" pads to the whole uint8 range
		letters = bytes.Repeat([]byte("abcdefghijklmnopqrstuvwxyz0123456789a"), 7)
	})
	for i, b := range buf {
		buf[i] = letters[b]
	}
	return buf
}
