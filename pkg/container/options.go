package container

import (
	"github.com/oneconcern/chunkstore/pkg/splitter"
	"go.uber.org/zap"
)

// Option configures a container
type Option func(*Container)

// WithLogger sets a logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Container) {
		if l != nil {
			c.l = l
		}
	}
}

// WithPool shares rolling hash windows with the rabin node splitter restored by Open
func WithPool(pool *splitter.WindowPool) Option {
	return func(c *Container) {
		c.pool = pool
	}
}
