package container

import (
	"bytes"
	"io"
	"io/ioutil"
	"strings"
	"testing"

	"github.com/oneconcern/chunkstore/internal/rand"
	"github.com/oneconcern/chunkstore/pkg/chunkhash"
	"github.com/oneconcern/chunkstore/pkg/container/status"
	"github.com/oneconcern/chunkstore/pkg/errors"
	"github.com/oneconcern/chunkstore/pkg/key"
	"github.com/oneconcern/chunkstore/pkg/splitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainer_New(t *testing.T) {
	_, err := New(nil, splitter.NewFixed(64))
	assert.True(t, errors.Is(err, status.ErrNoAccessor))

	_, err = New(newMemAccessor(), splitter.NewSeparator('|'))
	require.Error(t, err, "node splitters must be persisted with the root")

	_, err = New(newMemAccessor(), splitter.NewFixed(32))
	assert.True(t, errors.Is(err, chunkhash.ErrNodeSplitter))

	c, err := New(newMemAccessor(), splitter.NewFixed(64))
	require.NoError(t, err)
	assert.Equal(t, 1, c.Levels())
	assert.Equal(t, int64(0), c.Len())
	assert.True(t, c.Pointer().IsZero())
	h, err := c.Hash()
	require.NoError(t, err)
	assert.Equal(t, key.Zero, h)
	assert.Equal(t, "", readAll(t, c))
}

func TestContainer_Append(t *testing.T) {
	acc := newMemAccessor()
	// two data hashes per node
	c, err := New(acc, splitter.NewFixed(64))
	require.NoError(t, err)

	appendAll(t, c, "Hello", " World!")
	assert.Equal(t, 1, c.Levels())

	appendAll(t, c, " Split!")
	assert.Equal(t, 2, c.Levels())
	require.NoError(t, c.Flush(false))
	assert.Equal(t, 2, c.Levels())

	appendAll(t, c, " more!")
	assert.Equal(t, 2, c.Levels())
	appendAll(t, c, " another Split!")
	assert.Equal(t, 3, c.Levels())
	require.NoError(t, c.Flush(false))
	assert.Equal(t, 3, c.Levels())

	appendAll(t, c, " and more!")
	require.NoError(t, c.Flush(false))
	checkTree(t, c)

	const expected = "Hello World! Split! more! another Split! and more!"
	assert.Equal(t, int64(len(expected)), c.Len())
	assert.Equal(t, expected, readAll(t, c))

	hash, err := c.Hash()
	require.NoError(t, err)
	assert.Equal(t, digestOf("Hello", " World!", " Split!", " more!", " another Split!", " and more!"), hash)
	assert.Equal(t, hash, c.Pointer().Data)

	// load
	loaded, err := Open(acc, c.Pointer())
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Levels())
	assert.Equal(t, c.Len(), loaded.Len())
	assert.Equal(t, expected, readAll(t, loaded))
	loadedHash, err := loaded.Hash()
	require.NoError(t, err)
	assert.Equal(t, hash, loadedHash)

	r := loaded.NewReader()
	_, err = r.Seek(2, io.SeekStart)
	require.NoError(t, err)
	rest, err := ioutil.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, expected[2:], string(rest))
}

func TestContainer_Editing(t *testing.T) {
	acc := newMemAccessor()
	c, err := New(acc, splitter.NewFixed(64))
	require.NoError(t, err)

	appendAll(t, c, "Hello", " World!", "more")
	require.NoError(t, c.Insert([]byte("22"), 5))
	assert.Equal(t, "Hello22 World!more", readAll(t, c))
	checkTree(t, c)
	require.NoError(t, c.Flush(false))

	assert.True(t, errors.Is(c.Insert([]byte("x"), 2), status.ErrInvalidPosition))
	assert.True(t, errors.Is(c.Insert([]byte("x"), 100), status.ErrInvalidPosition))
	assert.True(t, errors.Is(c.Insert([]byte("x"), -1), status.ErrInvalidPosition))
	assert.True(t, errors.Is(c.Remove(6, 1), status.ErrInvalidPosition))
	assert.True(t, errors.Is(c.Remove(18, 1), status.ErrInvalidPosition))
	assert.True(t, errors.Is(c.Remove(5, 3), status.ErrLengthMismatch))

	require.NoError(t, c.Remove(5, 2))
	assert.Equal(t, "Hello World!more", readAll(t, c))
	checkTree(t, c)

	require.NoError(t, c.Remove(5, 7))
	assert.Equal(t, "Hellomore", readAll(t, c))
	assert.Equal(t, 1, c.Levels())
	checkTree(t, c)

	require.NoError(t, c.Flush(false))
	loaded, err := Open(acc, c.Pointer())
	require.NoError(t, err)
	assert.Equal(t, "Hellomore", readAll(t, loaded))

	require.NoError(t, loaded.Remove(0, 5))
	require.NoError(t, loaded.Remove(0, 4))
	assert.Equal(t, int64(0), loaded.Len())
	assert.Equal(t, 1, loaded.Levels())
	h, err := loaded.Hash()
	require.NoError(t, err)
	assert.Equal(t, key.Zero, h)
}

func TestContainer_Hash(t *testing.T) {
	dataSplitter := splitter.NewFixed(2)
	nodeSplitter := splitter.NewFixed(64)
	c, err := New(newMemAccessor(), nodeSplitter)
	require.NoError(t, err)

	appendAll(t, c, "11", "22", "33")
	require.NoError(t, c.Insert([]byte("44"), 2))
	require.NoError(t, c.Flush(false))
	checkTree(t, c)

	ch, err := chunkhash.New(dataSplitter, nodeSplitter)
	require.NoError(t, err)
	for _, chunk := range []string{"11", "44", "22", "33"} {
		_, _ = ch.Write([]byte(chunk))
	}

	hash, err := c.Hash()
	require.NoError(t, err)
	assert.Equal(t, ch.Digest(), hash)
	assert.Equal(t, digestOf("11", "44", "22", "33"), hash)
	assert.Equal(t, "11442233", readAll(t, c))
}

func TestContainer_HashIndependentOfNodeSplitter(t *testing.T) {
	data := rand.Seeded(11).Bytes(200 * 1024)
	dataSplitter := mustRabin(t, splitter.Chunk1KB, 128)

	ch, err := chunkhash.New(dataSplitter, splitter.NewFixed(64))
	require.NoError(t, err)
	_, _ = ch.Write(data)
	expected := ch.Digest()

	for _, nodeSplitter := range []splitter.Splitter{
		splitter.NewFixed(64),
		splitter.NewFixed(320),
		mustRabin(t, 256, 64),
	} {
		c, err := New(newMemAccessor(), nodeSplitter)
		require.NoError(t, err)
		w := NewWriter(c, dataSplitter)
		_, err = w.Write(data)
		require.NoError(t, err)
		require.NoError(t, w.Close())
		checkTree(t, c)

		hash, err := c.Hash()
		require.NoError(t, err)
		assert.Equal(t, expected, hash)
		assert.Equal(t, expected, c.Pointer().Data)
		assert.True(t, c.Levels() > 1)
	}
}

func TestContainer_HashResumesAfterAppend(t *testing.T) {
	c, err := New(newMemAccessor(), splitter.NewFixed(64))
	require.NoError(t, err)

	chunks := []string{"chunk-0"}
	appendAll(t, c, chunks...)
	_, err = c.Hash()
	require.NoError(t, err)
	sum := c.nodes[c.root].sum
	require.NotNil(t, sum)

	for i := 1; i < 40; i++ {
		chunk := "chunk-" + string(rune('a'+i%26)) + strings.Repeat("x", i)
		chunks = append(chunks, chunk)
		appendAll(t, c, chunk)
		if i%10 == 0 {
			require.NoError(t, c.Flush(false))
		}
		hash, err := c.Hash()
		require.NoError(t, err)
		require.Equal(t, digestOf(chunks...), hash)
		require.True(t, sum == c.nodes[c.root].sum, "appends extend the root digest")
		require.Equal(t, len(chunks), sum.Count())
	}
	assert.True(t, c.Levels() > 2)

	require.NoError(t, c.Insert([]byte("first"), 0))
	hash, err := c.Hash()
	require.NoError(t, err)
	assert.Equal(t, digestOf(append([]string{"first"}, chunks...)...), hash)
	assert.False(t, sum == c.nodes[c.root].sum, "an insert before the end restarts the digest")
	checkTree(t, c)
}

// entry of a container being edited: idx is the position of the chunk in the
// expected content, or -1 for a chunk removed later on
type entry struct {
	idx  int
	data []byte
}

func TestContainer_IndependentOfEditHistory(t *testing.T) {
	data := rand.Seeded(23).Bytes(128 * 1024)

	acc := newMemAccessor()
	expected, err := New(acc, mustRabin(t, 256, 64))
	require.NoError(t, err)
	w := NewWriter(expected, mustRabin(t, splitter.Chunk1KB, 128))
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.True(t, expected.Levels() > 2)

	var chunks [][]byte
	it := expected.Chunks(0)
	for it.Next() {
		chunk, err := expected.ReadChunk(it.Chunk())
		require.NoError(t, err)
		chunks = append(chunks, chunk)
	}
	require.NoError(t, it.Err())

	gen := rand.Seeded(29)
	edited, err := New(acc, mustRabin(t, 256, 64))
	require.NoError(t, err)

	var entries []entry
	offset := func(k int) int64 {
		var pos int64
		for _, e := range entries[:k] {
			pos += int64(len(e.data))
		}
		return pos
	}
	insert := func(k int, e entry) {
		require.NoError(t, edited.Insert(e.data, offset(k)))
		entries = append(entries[:k], append([]entry{e}, entries[k:]...)...)
	}
	removeJunk := func() {
		for k, e := range entries {
			if e.idx < 0 {
				require.NoError(t, edited.Remove(offset(k), int64(len(e.data))))
				entries = append(entries[:k], entries[k+1:]...)
				return
			}
		}
	}

	for op, idx := range gen.Perm(len(chunks)) {
		k := 0
		for k < len(entries) && (entries[k].idx < 0 || entries[k].idx < idx) {
			k++
		}
		insert(k, entry{idx: idx, data: chunks[idx]})

		switch gen.Intn(4) {
		case 0:
			insert(gen.Intn(len(entries)+1), entry{idx: -1, data: gen.LetterBytes(1 + gen.Intn(300))})
		case 1:
			removeJunk()
		}
		checkTree(t, edited)

		if op%20 == 19 {
			require.NoError(t, edited.Flush(false))
			edited, err = Open(acc, edited.Pointer())
			require.NoError(t, err)
		}
	}
	for len(entries) > len(chunks) {
		removeJunk()
	}
	require.NoError(t, edited.Flush(false))
	checkTree(t, edited)

	assert.Equal(t, string(data), readAll(t, edited))
	assert.Equal(t, expected.Levels(), edited.Levels())
	assert.Equal(t, expected.Pointer(), edited.Pointer())
}

func TestContainer_RandomEdits(t *testing.T) {
	for _, nodeSplitter := range []splitter.Splitter{
		splitter.NewFixed(64),
		splitter.NewFixed(96),
		mustRabin(t, 128, 48),
	} {
		gen := rand.Seeded(5)
		acc := newMemAccessor()
		c, err := New(acc, nodeSplitter)
		require.NoError(t, err)

		var chunks []string
		offset := func(k int) int64 {
			var pos int64
			for _, chunk := range chunks[:k] {
				pos += int64(len(chunk))
			}
			return pos
		}

		for op := 0; op < 400; op++ {
			k := gen.Intn(len(chunks) + 1)
			if len(chunks) > 0 && gen.Intn(3) == 0 {
				if k == len(chunks) {
					k--
				}
				require.NoError(t, c.Remove(offset(k), int64(len(chunks[k]))))
				chunks = append(chunks[:k], chunks[k+1:]...)
			} else {
				chunk := string(gen.LetterBytes(1 + gen.Intn(20)))
				require.NoError(t, c.Insert([]byte(chunk), offset(k)))
				chunks = append(chunks[:k], append([]string{chunk}, chunks[k:]...)...)
			}
			checkTree(t, c)

			if op%50 == 49 {
				require.NoError(t, c.Flush(false))
				loaded, err := Open(acc, c.Pointer())
				require.NoError(t, err)
				require.Equal(t, strings.Join(chunks, ""), readAll(t, loaded))
				c = loaded
			}
		}
		require.Equal(t, strings.Join(chunks, ""), readAll(t, c))
		hash, err := c.Hash()
		require.NoError(t, err)
		require.Equal(t, digestOf(chunks...), hash)

		var seen []string
		it := c.Chunks(0)
		for it.Next() {
			data, err := c.ReadChunk(it.Chunk())
			require.NoError(t, err)
			seen = append(seen, string(data))
		}
		require.NoError(t, it.Err())
		assert.Equal(t, chunks, seen)
	}
}

func TestContainer_ReleasesReplacedNodes(t *testing.T) {
	acc := newMemAccessor()
	c, err := New(acc, splitter.NewFixed(64))
	require.NoError(t, err)

	appendAll(t, c, "Hello")
	require.NoError(t, c.Flush(false))
	first := c.Pointer()

	// nothing changed
	require.NoError(t, c.Flush(false))
	assert.Equal(t, first, c.Pointer())
	assert.Empty(t, acc.released)

	appendAll(t, c, " World!")
	require.NoError(t, c.Flush(true))
	assert.Equal(t, first, c.Pointer(), "childOnly keeps the root pointer")

	require.NoError(t, c.Flush(false))
	assert.NotEqual(t, first.Box, c.Pointer().Box)
	assert.Equal(t, []key.Hash{first.Box}, acc.released)
}

func TestContainer_Corruption(t *testing.T) {
	acc := newMemAccessor()
	c, err := New(acc, splitter.NewFixed(64))
	require.NoError(t, err)
	appendAll(t, c, "Hello", " World!", " Split!")
	require.NoError(t, c.Flush(false))

	root := c.Pointer()
	stored := acc.chunks[root.Box]
	acc.chunks[root.Box] = stored[:len(stored)-1]
	_, err = Open(acc, root)
	assert.True(t, errors.Is(err, status.ErrCorruption))

	acc.chunks[root.Box] = stored
	dc, err := c.ChunkAt(0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), dc.Position)
	assert.Equal(t, int64(5), dc.Length)
	acc.chunks[dc.Pointer.Box] = []byte("Hallo")
	_, err = c.ReadChunk(dc)
	assert.True(t, errors.Is(err, status.ErrCorruption))

	_, err = Open(acc, key.Pointer{Box: key.Sum([]byte("missing"))})
	assert.Equal(t, errNotFound, err)
}

func TestReader(t *testing.T) {
	c, err := New(newMemAccessor(), splitter.NewFixed(64))
	require.NoError(t, err)
	appendAll(t, c, "0123", "45", "6789")

	r := c.NewReader()
	buf := make([]byte, 3)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "012", string(buf[:n]))
	n, err = r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "345", string(buf[:n]))

	pos, err := r.Seek(-3, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(7), pos)
	n, err = r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "789", string(buf[:n]))
	_, err = r.Read(buf)
	assert.Equal(t, io.EOF, err)

	pos, err = r.Seek(-5, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(5), pos)

	_, err = r.Seek(-1, io.SeekStart)
	assert.True(t, errors.Is(err, status.ErrInvalidPosition))

	n, err = r.ReadAt(buf, 8)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, "89", string(buf[:n]))
	n, err = r.ReadAt(buf, 3)
	require.NoError(t, err)
	assert.Equal(t, "345", string(buf[:n]))

	var out bytes.Buffer
	_, err = r.Seek(0, io.SeekStart)
	require.NoError(t, err)
	_, err = io.Copy(&out, r)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", out.String())

	_, err = c.ChunkAt(10)
	assert.True(t, errors.Is(err, status.ErrInvalidPosition))
}
