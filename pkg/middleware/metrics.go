package middleware

import (
	"context"

	"github.com/picloud/picloud/pkg/domain"
	"github.com/picloud/picloud/pkg/store"
	"github.com/prometheus/client_golang/prometheus"
)

// Collectors holds the Prometheus metrics updated by Metrics.
type Collectors struct {
	InProgress prometheus.Gauge
	Signals    *prometheus.CounterVec
	Unmatched  prometheus.Counter
}

// NewCollectors creates the collectors and registers them with reg.
func NewCollectors(reg prometheus.Registerer) (*Collectors, error) {
	c := &Collectors{
		InProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "picloud_calls_in_progress",
			Help: "Number of asynchronous calls currently in flight",
		}),
		Signals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "picloud_signals_total",
				Help: "Total number of dispatched signals by phase",
			},
			[]string{"phase"},
		),
		Unmatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "picloud_calls_unmatched_total",
			Help: "End signals received while no call was in flight",
		}),
	}
	for _, col := range []prometheus.Collector{c.InProgress, c.Signals, c.Unmatched} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Metrics records every transition in c. The gauge follows the delivered
// state, so it always ends on the latest applied value.
func Metrics(c *Collectors) store.Observer {
	return func(_ context.Context, e *domain.DispatchEvent) {
		if !e.Replaced {
			c.Signals.WithLabelValues(e.Phase.String()).Inc()
			if e.Phase.Ends() && e.Before <= 0 {
				c.Unmatched.Inc()
			}
		}
		c.InProgress.Set(float64(e.After))
	}
}
