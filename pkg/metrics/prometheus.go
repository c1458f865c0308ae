// Package metrics exports cache events as Prometheus counters.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-table-cache/cache"
)

// Collector counts cache events per table and event kind. It implements
// cache.Observer.
type Collector struct {
	events *prometheus.CounterVec
}

var _ cache.Observer = (*Collector)(nil)

// NewCollector registers the table cache counters with reg. A nil reg uses
// prometheus.DefaultRegisterer. Registering twice with the same registerer
// reuses the existing counters.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "table_cache",
		Name:      "events_total",
		Help:      "The total number of cache events by table and kind.",
	},
		[]string{"table", "event"},
	)

	if err := reg.Register(events); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		events = existing
	}

	return &Collector{events: events}, nil
}

// Observe adds n to the counter of table and kind. Non-positive n is ignored.
func (c *Collector) Observe(table string, kind cache.EventKind, n int) {
	if n <= 0 {
		return
	}
	c.events.WithLabelValues(table, string(kind)).Add(float64(n))
}

// Counter returns the counter for table and kind.
func (c *Collector) Counter(table string, kind cache.EventKind) prometheus.Counter {
	return c.events.WithLabelValues(table, string(kind))
}
