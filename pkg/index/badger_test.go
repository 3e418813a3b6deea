package index

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/oneconcern/chunkstore/pkg/errors"
	"github.com/oneconcern/chunkstore/pkg/index/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadger_Contract(t *testing.T) {
	dir, err := ioutil.TempDir("", "badger-index")
	require.NoError(t, err)
	defer func() { _ = os.RemoveAll(dir) }()

	db, err := OpenBadger(dir, smallHash)
	require.NoError(t, err)

	for i := 1; i <= 50; i++ {
		require.NoError(t, db.Put(k(i), int64(i)))
	}
	assert.True(t, errors.Is(db.Put(k(7), 70), status.ErrDuplicateKey))
	assert.True(t, errors.Is(db.Put(k(0), 1), status.ErrInvalidKey))
	assert.True(t, errors.Is(db.Put(k(51), 0), status.ErrInvalidValue))

	v, ok, err := db.Get(k(7))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(7), v)

	_, ok, err = db.Get(k(100))
	require.NoError(t, err)
	assert.False(t, ok)

	found, err := db.Remove(k(7))
	require.NoError(t, err)
	assert.True(t, found)
	found, err = db.Remove(k(7))
	require.NoError(t, err)
	assert.False(t, found)

	var count int
	var last []byte
	require.NoError(t, db.Walk(func(key []byte, value int64) error {
		if last != nil {
			assert.True(t, string(last) < string(key))
		}
		last = key
		count++
		return nil
	}))
	assert.Equal(t, 49, count)

	require.NoError(t, db.Commit())
	require.NoError(t, db.Close())
	assert.True(t, errors.Is(db.Commit(), status.ErrClosed))

	reopened, err := OpenBadger(dir, smallHash)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	v, ok, err = reopened.Get(k(50))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(50), v)
	_, ok, err = reopened.Get(k(7))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBadger_DurableWithoutCommit(t *testing.T) {
	dir, err := ioutil.TempDir("", "badger-index")
	require.NoError(t, err)
	defer func() { _ = os.RemoveAll(dir) }()

	db, err := OpenBadger(dir, smallHash)
	require.NoError(t, err)
	require.NoError(t, db.Put(k(3), 30))
	require.NoError(t, db.Close())

	reopened, err := OpenBadger(dir, smallHash)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	v, ok, err := reopened.Get(k(3))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(30), v)
}
