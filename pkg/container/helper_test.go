package container

import (
	"io/ioutil"
	"testing"

	"github.com/oneconcern/chunkstore/pkg/chunkhash"
	"github.com/oneconcern/chunkstore/pkg/key"
	"github.com/oneconcern/chunkstore/pkg/splitter"
	"github.com/stretchr/testify/require"
)

// memAccessor keeps chunks in memory, boxed by their sha256
type memAccessor struct {
	chunks   map[key.Hash][]byte
	released []key.Hash
}

func newMemAccessor() *memAccessor {
	return &memAccessor{chunks: make(map[key.Hash][]byte)}
}

func (m *memAccessor) GetChunk(p key.Pointer) ([]byte, error) {
	data, ok := m.chunks[p.Box]
	if !ok {
		return nil, errNotFound
	}
	return data, nil
}

func (m *memAccessor) PutChunk(data []byte) (key.Hash, bool, error) {
	box := key.Sum(data)
	_, present := m.chunks[box]
	if !present {
		m.chunks[box] = append([]byte(nil), data...)
	}
	return box, present, nil
}

func (m *memAccessor) ReleaseChunk(box key.Hash) error {
	m.released = append(m.released, box)
	return nil
}

type notFound string

func (e notFound) Error() string { return string(e) }

const errNotFound = notFound("chunk not found")

func readAll(t testing.TB, c *Container) string {
	data, err := ioutil.ReadAll(c.NewReader())
	require.NoError(t, err)
	return string(data)
}

func appendAll(t testing.TB, c *Container, chunks ...string) {
	for _, chunk := range chunks {
		require.NoError(t, c.Append([]byte(chunk)))
	}
}

func digestOf(chunks ...string) key.Hash {
	hashes := make([]key.Hash, 0, len(chunks))
	for _, chunk := range chunks {
		hashes = append(hashes, key.Sum([]byte(chunk)))
	}
	return chunkhash.Digest(hashes...)
}

func mustRabin(t testing.TB, target, min int) *splitter.Rabin {
	r, err := splitter.NewRabin(target, min, 0)
	require.NoError(t, err)
	return r
}

// checkTree verifies the structure of the nodes in memory: lengths match
// their slots, levels decrease by one and only the root may be empty.
func checkTree(t testing.TB, c *Container) {
	var walk func(h handle, level int, root bool) int64
	walk = func(h handle, level int, root bool) int64 {
		n := c.nodes[h]
		require.NotNil(t, n, "dropped node still referenced")
		require.Equal(t, level, n.level)
		if !root {
			require.NotEmpty(t, n.slots, "empty node at level %d", level)
		}
		var total int64
		for _, s := range n.slots {
			if level > leafLevel && s.child != 0 {
				require.Equal(t, s.length, walk(s.child, level-1, false))
			}
			total += s.length
		}
		require.Equal(t, total, n.length)
		return total
	}
	root := c.nodes[c.root]
	walk(c.root, root.level, true)
	if root.level > leafLevel {
		require.True(t, len(root.slots) > 1, "root with a single child")
	}
}
