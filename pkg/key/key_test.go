package key

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/oneconcern/chunkstore/internal/rand"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sha256("Hello")
const testKey = "185f8db32271fe25f561a6fc938b2e264306ec304eda518007d1764826381969"

func TestKey_FailsOnIncorrectSize(t *testing.T) {
	_, err := New(rand.Bytes(31))
	require.Error(t, err)
	_, err = New(rand.Bytes(33))
	require.Error(t, err)

	k, err := New(rand.Bytes(32))
	require.NoError(t, err)
	assert.Len(t, k, Size)

	assert.Panics(t, func() { MustNew(rand.Bytes(31)) })
	assert.NotPanics(t, func() { MustNew(rand.Bytes(32)) })
}

func TestKey_Succeeds(t *testing.T) {
	data, err := hex.DecodeString(testKey)
	require.NoError(t, err)

	k, err := New(data)
	require.NoError(t, err)
	assert.Equal(t, testKey, k.String())
	assert.Equal(t, k, Sum([]byte("Hello")))

	parsed, err := FromString(testKey)
	require.NoError(t, err)
	assert.Equal(t, k, parsed)
	assert.Equal(t, data, parsed.Bytes())

	_, err = FromString("zz")
	require.Error(t, err)
}

func TestKey_Compare(t *testing.T) {
	low := MustNew(append([]byte{0x01}, make([]byte, Size-1)...))
	high := MustNew(append([]byte{0xff}, make([]byte, Size-1)...))

	assert.Equal(t, -1, low.Compare(high), "keys compare as unsigned integers")
	assert.Equal(t, 1, high.Compare(low))
	assert.Equal(t, 0, high.Compare(high))
	assert.True(t, Zero.IsZero())
	assert.False(t, low.IsZero())
}

func TestPointer_RoundTrip(t *testing.T) {
	p := Pointer{Data: Sum([]byte("data")), Box: Blake2b.Sum([]byte("box"))}

	decoded, err := PointerFromBytes(p.Bytes())
	require.NoError(t, err)
	assert.Equal(t, p, decoded)

	parsed, err := ParsePointer(p.String())
	require.NoError(t, err)
	assert.Equal(t, p, parsed)

	single, err := ParsePointer(testKey)
	require.NoError(t, err)
	assert.Equal(t, single.Data, single.Box)

	_, err = ParsePointer("a:b:c")
	require.Error(t, err)
	_, err = PointerFromBytes(rand.Bytes(Size))
	require.Error(t, err)

	assert.True(t, Pointer{}.IsZero())
	assert.False(t, p.IsZero())
}

func TestAlgorithm(t *testing.T) {
	a, err := ParseAlgorithm("")
	require.NoError(t, err)
	assert.Equal(t, SHA256, a)

	a, err = ParseAlgorithm("blake2b")
	require.NoError(t, err)
	assert.Equal(t, Blake2b, a)

	_, err = ParseAlgorithm("md5")
	require.Error(t, err)

	data := rand.Bytes(100)
	assert.Equal(t, Hash(sha256.Sum256(data)), SHA256.Sum(data))

	h := Blake2b.New()
	_, _ = h.Write(data)
	assert.Equal(t, Blake2b.Sum(data), MustNew(h.Sum(nil)))
	assert.NotEqual(t, SHA256.Sum(data), Blake2b.Sum(data))
}
