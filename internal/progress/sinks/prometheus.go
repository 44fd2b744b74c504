package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/qnote/auto-import/internal/progress"
)

// PrometheusSink exports crawl progress metrics. It owns the collectors
// for job lifecycle counts and per-book completions.
type PrometheusSink struct {
	jobsStarted   prometheus.Counter
	jobsCompleted *prometheus.CounterVec
	jobsRunning   prometheus.Gauge
	booksCrawled  prometheus.Counter
}

// NewPrometheusSink registers the collectors against the provided
// registry (the default registerer when nil).
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		jobsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autoimport_jobs_started_total",
			Help: "Total crawl jobs that have started.",
		}),
		jobsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autoimport_jobs_completed_total",
			Help: "Total crawl jobs completed partitioned by result.",
		}, []string{"result"}),
		jobsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "autoimport_jobs_running",
			Help: "Current number of running crawl jobs.",
		}),
		booksCrawled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autoimport_books_crawled_total",
			Help: "Total books successfully crawled.",
		}),
	}
	for _, collector := range []prometheus.Collector{
		s.jobsStarted,
		s.jobsCompleted,
		s.jobsRunning,
		s.booksCrawled,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors for a single event.
func (s *PrometheusSink) Consume(_ context.Context, evt progress.Event) error {
	switch evt.Stage {
	case progress.StageJobStart:
		s.jobsStarted.Inc()
		s.jobsRunning.Inc()
	case progress.StageJobDone:
		s.jobsRunning.Dec()
		s.jobsCompleted.WithLabelValues("done").Inc()
	case progress.StageJobError:
		s.jobsRunning.Dec()
		s.jobsCompleted.WithLabelValues("error").Inc()
	case progress.StageBookDone:
		s.booksCrawled.Inc()
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
