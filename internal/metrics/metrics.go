package metrics

import (
	"fmt"

	"autobook/internal/events"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "autobook"

// Metrics holds the run counters on a private registry. A one-shot process
// has nothing to scrape, so the registry is written to a textfile for the
// node_exporter textfile collector.
type Metrics struct {
	registry *prometheus.Registry

	Listings     *prometheus.CounterVec
	Refreshes    prometheus.Counter
	Runs         *prometheus.CounterVec
	RunDuration  prometheus.Histogram
	LastRunStamp *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Listings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_total",
			Help:      "Listings processed by category and outcome.",
		}, []string{"category", "outcome"}),
		Refreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refreshes_total",
			Help:      "Successful bearer token refreshes.",
		}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished runs by status.",
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a run.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		LastRunStamp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished, by status.",
		}, []string{"status"}),
	}

	m.registry.MustRegister(m.Listings, m.Refreshes, m.Runs, m.RunDuration, m.LastRunStamp)
	return m
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Subscribe feeds the counters from the event bus.
func (m *Metrics) Subscribe(bus *events.EventBus) {
	onListing := func(e *events.Event) error {
		var p events.ListingEventPayload
		if err := e.Decode(&p); err != nil {
			return fmt.Errorf("decode %s: %w", e.Type, err)
		}
		m.Listings.WithLabelValues(p.Category, string(p.Outcome)).Inc()
		return nil
	}
	for _, t := range events.ListingEventTypes {
		bus.Subscribe(t, onListing)
	}

	bus.Subscribe(events.EventAuthRefreshed, func(*events.Event) error {
		m.Refreshes.Inc()
		return nil
	})

	bus.Subscribe(events.EventRunFinished, func(e *events.Event) error {
		var p events.RunEventPayload
		if err := e.Decode(&p); err != nil {
			return fmt.Errorf("decode %s: %w", e.Type, err)
		}
		m.Runs.WithLabelValues(p.Status).Inc()
		m.RunDuration.Observe(p.Duration.Seconds())
		m.LastRunStamp.WithLabelValues(p.Status).Set(float64(e.CreatedAt.Unix()))
		return nil
	})
}

// WriteTextfile atomically writes the registry in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
