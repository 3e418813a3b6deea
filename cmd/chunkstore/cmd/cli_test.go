package cmd

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/oneconcern/chunkstore/internal/rand"
	"github.com/oneconcern/chunkstore/pkg/chunkstore"
	"github.com/oneconcern/chunkstore/pkg/key"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDir(t *testing.T) string {
	dir, err := ioutil.TempDir("", "chunkstore-cli")
	require.NoError(t, err)
	return dir
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	path := filepath.Join(dir, name)
	require.NoError(t, ioutil.WriteFile(path, data, 0600))
	return path
}

// execute runs the CLI with flags back to their defaults
func execute(args ...string) (string, error) {
	params = paramsT{}
	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	var out bytes.Buffer
	rootCmd.SetOutput(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func run(t *testing.T, args ...string) string {
	out, err := execute(args...)
	require.NoError(t, err, "chunkstore %s", strings.Join(args, " "))
	return strings.TrimSpace(out)
}

func storeStats(t *testing.T, flags ...string) chunkstore.Stats {
	var st chunkstore.Stats
	require.NoError(t, json.Unmarshal([]byte(run(t, append([]string{"stats", "--json"}, flags...)...)), &st))
	return st
}

func TestCLI_PutGet(t *testing.T) {
	dir := testDir(t)
	defer func() { _ = os.RemoveAll(dir) }()
	store := filepath.Join(dir, "store")
	flags := []string{"--dir", store, "--chunk-size", "1KB"}

	data := rand.Seeded(3).Bytes(100 * 1024)
	in := writeFile(t, dir, "data", data)

	out := run(t, append([]string{"put", in}, flags...)...)
	root, err := key.ParsePointer(out)
	require.NoError(t, err)

	read := filepath.Join(dir, "read")
	run(t, append([]string{"get", root.String(), "-o", read}, flags...)...)
	got, err := ioutil.ReadFile(read)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, got))

	hash := run(t, append([]string{"hash", in}, flags...)...)
	assert.Equal(t, root.Data.String(), hash)

	st := storeStats(t, flags...)
	assert.Equal(t, "chunks", st.Name)
	assert.True(t, st.Chunks > 50, "expected about 100 chunks of 1KB, got %d", st.Chunks)
	require.NotNil(t, st.Index)
	assert.Equal(t, st.Chunks, st.Index.Keys)

	hashes := strings.Split(run(t, append([]string{"list"}, flags...)...), "\n")
	assert.Len(t, hashes, int(st.Chunks))
	assert.Contains(t, hashes, root.Box.String())

	// same content, same chunks
	again := run(t, append([]string{"put", in}, flags...)...)
	assert.Equal(t, out, again)
	assert.Equal(t, st.Chunks, storeStats(t, flags...).Chunks)

	human := run(t, append([]string{"stats"}, flags...)...)
	assert.Contains(t, human, "index depth:")
}

func TestCLI_Append(t *testing.T) {
	dir := testDir(t)
	defer func() { _ = os.RemoveAll(dir) }()
	flags := []string{"--dir", dir, "--name", "appended", "--chunk-size", "2KB"}

	g := rand.Seeded(5)
	first, second := g.Bytes(20000), g.Bytes(30000)
	root := run(t, append([]string{"put", writeFile(t, dir, "first", first)}, flags...)...)
	prof := filepath.Join(dir, "prof")
	root = run(t, append([]string{"put", "--append", root, "--memprof", prof, writeFile(t, dir, "second", second)}, flags...)...)
	_, err := os.Stat(filepath.Join(prof, "put.mem.prof"))
	require.NoError(t, err)

	read := filepath.Join(dir, "read")
	run(t, append([]string{"get", root, "--output", read}, flags...)...)
	got, err := ioutil.ReadFile(read)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(append(first, second...), got))
}

func TestCLI_Badger(t *testing.T) {
	dir := testDir(t)
	defer func() { _ = os.RemoveAll(dir) }()
	flags := []string{"--dir", dir, "--index", "badger", "--hash", "blake2b"}

	data := rand.Seeded(7).Bytes(64 * 1024)
	root := run(t, append([]string{"put", writeFile(t, dir, "data", data)}, flags...)...)
	_, err := os.Stat(filepath.Join(dir, "chunks.badger"))
	require.NoError(t, err)

	out, err := execute(append([]string{"get", root}, flags...)...)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, []byte(out)))

	st := storeStats(t, flags...)
	assert.True(t, st.Chunks > 0)
	assert.Nil(t, st.Index)

	_, err = execute(append([]string{"put", "--create", writeFile(t, dir, "small", []byte("hello"))}, flags...)...)
	require.NoError(t, err)
	assert.Equal(t, int64(2), storeStats(t, flags...).Chunks, "one data chunk and one leaf node")
}

func TestCLI_Errors(t *testing.T) {
	dir := testDir(t)
	defer func() { _ = os.RemoveAll(dir) }()

	_, err := execute("get", strings.Repeat("0", key.SizeHex), "--dir", dir)
	assert.Equal(t, errNoStore, err)

	_, err = execute("stats", "--dir", dir)
	assert.Equal(t, errNoStore, err)

	_, err = execute("get", "not-a-pointer", "--dir", dir)
	assert.Error(t, err)

	_, err = execute("put", writeFile(t, dir, "data", []byte("x")), "--dir", dir, "--index", "sqlite")
	assert.Equal(t, errUnknownIndex("sqlite"), err)

	_, err = execute("hash", writeFile(t, dir, "data", []byte("x")), "--dir", dir, "--chunk-size", "lots")
	assert.Error(t, err)
}
