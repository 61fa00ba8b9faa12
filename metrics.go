package dynadoc

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeSuccess = "success"
	outcomeError   = "error"
)

// metrics records per-operation counters and latencies. A nil *metrics is
// valid and records nothing.
type metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	if reg == nil {
		return nil, nil //nolint:nilnil
	}

	operations, err := register(reg, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dynadoc",
			Name:      "operations_total",
			Help:      "Total document operations by table, operation and outcome.",
		},
		[]string{"table", "operation", "outcome"},
	))
	if err != nil {
		return nil, err
	}

	duration, err := register(reg, prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dynadoc",
			Name:      "operation_duration_seconds",
			Help:      "Document operation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"table", "operation"},
	))
	if err != nil {
		return nil, err
	}

	return &metrics{operations: operations, duration: duration}, nil
}

// register adds c to reg, reusing an identical collector that an earlier
// client already registered.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}

		return c, err
	}

	return c, nil
}

func (m *metrics) observe(table, operation string, started time.Time, err error) {
	if m == nil {
		return
	}

	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeError
	}

	m.operations.WithLabelValues(table, operation, outcome).Inc()
	m.duration.WithLabelValues(table, operation).Observe(time.Since(started).Seconds())
}
