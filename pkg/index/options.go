package index

import (
	"github.com/oneconcern/chunkstore/pkg/codec"
	"go.uber.org/zap"
)

type options struct {
	l   *zap.Logger
	ptr codec.Codec
}

// Option configures an index backend
type Option func(*options)

// WithLogger sets a logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.l = l
		}
	}
}

// WithPointerCodec sets the encoding of tile pointers and values (codec.Int64 by default).
// The same codec must be used to create and open an index.
func WithPointerCodec(c codec.Codec) Option {
	return func(o *options) {
		if c != nil {
			o.ptr = c
		}
	}
}

func defaultOptions(opts []Option) options {
	o := options{
		l:   zap.NewNop(),
		ptr: codec.Int64,
	}
	for _, apply := range opts {
		apply(&o)
	}
	return o
}
