package observability

import (
	"context"
	"fmt"

	"github.com/openbmc/ibm-logging/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	Signals     *prometheus.CounterVec
	Resolutions *prometheus.CounterVec
	Callouts    *prometheus.CounterVec
	Entries     prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Signals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ibmlog_signals_total",
				Help: "Lifecycle signals received from the log store, by kind.",
			},
			[]string{"kind"},
		),
		Resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ibmlog_policy_resolutions_total",
				Help: "Policy resolutions, by the search tier that produced the result.",
			},
			[]string{"outcome"},
		),
		Callouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ibmlog_callouts_total",
				Help: "Callout operations, by operation.",
			},
			[]string{"op"},
		),
		Entries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ibmlog_entries",
				Help: "Log entries currently tracked.",
			},
		),
	}

	for _, c := range []prometheus.Collector{m.Signals, m.Resolutions, m.Callouts, m.Entries} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSignal: func(ctx context.Context, e *domain.SignalEvent) {
			m.Signals.WithLabelValues(string(e.Kind)).Inc()
		},
		OnPolicyResolved: func(ctx context.Context, e *domain.PolicyEvent) {
			m.Resolutions.WithLabelValues(e.Outcome).Inc()
		},
		OnCallout: func(ctx context.Context, e *domain.CalloutEvent) {
			m.Callouts.WithLabelValues(string(e.Op)).Inc()
		},
		OnEntryAdded: func(ctx context.Context, e *domain.EntryEvent) {
			m.Entries.Set(float64(e.Tracked))
		},
		OnEntryRemoved: func(ctx context.Context, e *domain.EntryEvent) {
			m.Entries.Set(float64(e.Tracked))
		},
	}
}
