package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hollydata/filmcrawl/internal/progress"
)

// PrometheusSink exports crawl progress metrics. It owns all collectors for
// runs started/completed and per-source title outcomes.
type PrometheusSink struct {
	runsStarted   prometheus.Counter
	runsCompleted prometheus.Counter
	titleOutcomes *prometheus.CounterVec
	titleDuration *prometheus.HistogramVec
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filmcrawl_runs_started_total",
			Help: "Total crawl runs that have started.",
		}),
		runsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filmcrawl_runs_completed_total",
			Help: "Total crawl runs that have completed.",
		}),
		titleOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filmcrawl_titles_total",
			Help: "Title attempts partitioned by source and outcome.",
		}, []string{"source", "outcome"}),
		titleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "filmcrawl_title_duration_seconds",
			Help:    "Wall time per title attempt partitioned by source.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"source"}),
	}
	for _, collector := range []prometheus.Collector{
		s.runsStarted,
		s.runsCompleted,
		s.titleOutcomes,
		s.titleDuration,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors using the provided batch. It is safe for
// concurrent use by multiple goroutines.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageRunStart:
			s.runsStarted.Inc()
		case progress.StageRunDone:
			s.runsCompleted.Inc()
		case progress.StageTitleDone:
			s.titleOutcomes.WithLabelValues(evt.Source, string(evt.Outcome)).Inc()
			if evt.Dur > 0 {
				s.titleDuration.WithLabelValues(evt.Source).Observe(evt.Dur.Seconds())
			}
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
