package chunkstore

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "chunkstore"

	resultHit  = "hit"
	resultMiss = "miss"
)

type metrics struct {
	puts  prometheus.Counter
	gets  *prometheus.CounterVec
	bytes prometheus.Counter
	dedup prometheus.Counter
}

func newMetrics(store string, reg prometheus.Registerer) (*metrics, error) {
	labels := prometheus.Labels{"store": store}
	m := &metrics{
		puts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "puts_total",
			Help:        "Chunks written to the store.",
			ConstLabels: labels,
		}),
		gets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "gets_total",
			Help:        "Chunk lookups, by result.",
			ConstLabels: labels,
		}, []string{"result"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "bytes_written_total",
			Help:        "Chunk bytes appended to the pack file.",
			ConstLabels: labels,
		}),
		dedup: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "dedup_total",
			Help:        "Chunks already present when put in a transaction.",
			ConstLabels: labels,
		}),
	}
	if reg == nil {
		return m, nil
	}

	var err error
	if m.puts, err = registerCounter(reg, m.puts); err != nil {
		return nil, err
	}
	if m.bytes, err = registerCounter(reg, m.bytes); err != nil {
		return nil, err
	}
	if m.dedup, err = registerCounter(reg, m.dedup); err != nil {
		return nil, err
	}
	if err = reg.Register(m.gets); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		m.gets = are.ExistingCollector.(*prometheus.CounterVec)
	}
	return m, nil
}

// registerCounter registers c, or returns the counter already registered in its place
func registerCounter(reg prometheus.Registerer, c prometheus.Counter) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		return are.ExistingCollector.(prometheus.Counter), nil
	}
	return c, nil
}
