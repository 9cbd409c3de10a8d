// Package metrics exports Prometheus collectors for ingest activity and the
// live-observer channel.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics owns every collector the service registers. It satisfies
// track.Metrics for the board and feeds the hub's subscriber gauge.
type Metrics struct {
	eventsIngested   *prometheus.CounterVec
	roundsStarted    *prometheus.CounterVec
	roundsClosed     *prometheus.CounterVec
	recordsCompleted *prometheus.GaugeVec
	recordsTotal     *prometheus.GaugeVec
	subscribers      prometheus.Gauge
}

// New registers the collectors against the provided registry.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		eventsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "floormon_events_ingested_total",
			Help: "Completion events received, partitioned by domain.",
		}, []string{"domain"}),
		roundsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "floormon_rounds_started_total",
			Help: "Rounds opened, partitioned by domain.",
		}, []string{"domain"}),
		roundsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "floormon_rounds_closed_total",
			Help: "Rounds closed (end marker or force-close), partitioned by domain.",
		}, []string{"domain"}),
		recordsCompleted: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "floormon_records_completed",
			Help: "Records done in the current round, partitioned by domain.",
		}, []string{"domain"}),
		recordsTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "floormon_records_total",
			Help: "Records known, partitioned by domain.",
		}, []string{"domain"}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "floormon_live_subscribers",
			Help: "Currently connected WebSocket observers.",
		}),
	}
	for _, collector := range []prometheus.Collector{
		m.eventsIngested,
		m.roundsStarted,
		m.roundsClosed,
		m.recordsCompleted,
		m.recordsTotal,
		m.subscribers,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return m, nil
}

// EventIngested counts one received completion event.
func (m *Metrics) EventIngested(domain string) {
	m.eventsIngested.WithLabelValues(domain).Inc()
}

// RoundStarted counts one opened round.
func (m *Metrics) RoundStarted(domain string) {
	m.roundsStarted.WithLabelValues(domain).Inc()
}

// RoundClosed counts one closed round.
func (m *Metrics) RoundClosed(domain string) {
	m.roundsClosed.WithLabelValues(domain).Inc()
}

// Completion updates the per-domain completion gauges.
func (m *Metrics) Completion(domain string, completed, total int) {
	m.recordsCompleted.WithLabelValues(domain).Set(float64(completed))
	m.recordsTotal.WithLabelValues(domain).Set(float64(total))
}

// SetSubscribers records the current observer count.
func (m *Metrics) SetSubscribers(n int) {
	m.subscribers.Set(float64(n))
}
