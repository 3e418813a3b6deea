package container

import (
	"bytes"
	"io"

	"github.com/oneconcern/chunkstore/pkg/splitter"
)

// Writer appends a byte stream to a container, cut into chunks by a data
// splitter.
type Writer struct {
	c     *Container
	split splitter.Splitter
	buf   bytes.Buffer
}

var _ io.WriteCloser = &Writer{}

// NewWriter appends to c. Chunk boundaries are found with a fresh instance of dataSplitter.
func NewWriter(c *Container, dataSplitter splitter.Splitter) *Writer {
	return &Writer{c: c, split: dataSplitter.NewInstance()}
}

func (w *Writer) Write(p []byte) (int, error) {
	start := 0
	for i, b := range p {
		if !w.split.Update(b) {
			continue
		}
		_, _ = w.buf.Write(p[start : i+1])
		start = i + 1
		if err := w.Flush(); err != nil {
			return start, err
		}
	}
	_, _ = w.buf.Write(p[start:])
	return len(p), nil
}

// Flush appends the buffered bytes as a chunk, even if the splitter did not trigger
func (w *Writer) Flush() error {
	w.split.Reset()
	if w.buf.Len() == 0 {
		return nil
	}
	chunk := make([]byte, w.buf.Len())
	copy(chunk, w.buf.Bytes())
	w.buf.Reset()
	return w.c.Append(chunk)
}

// Close flushes the writer, then the container
func (w *Writer) Close() error {
	err := w.Flush()
	if r, ok := w.split.(splitter.Releaser); ok {
		r.Release()
	}
	if err != nil {
		return err
	}
	return w.c.Flush(false)
}
