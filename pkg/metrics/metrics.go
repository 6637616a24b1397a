// Package metrics collects Prometheus instrumentation for a running
// coordinator: gate health, commit throughput, scheduler call latency, and
// trace event volume. Collectors are constructed against an explicit
// *prometheus.Registry rather than the global DefaultRegisterer, so a
// process embedding more than one coordinator can run independent metric
// sets side by side.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/daviddao/actorkv/pkg/trace"
)

// Set bundles every collector a coordinator reports against. Construct one
// with New and pass it to pkg/actor.WithMetrics (or read its fields
// directly for ad hoc instrumentation).
type Set struct {
	GateBroken          prometheus.Gauge
	CommitsTotal        prometheus.Counter
	CommitFailuresTotal prometheus.Counter
	SchedulerCallsTotal *prometheus.CounterVec
	SchedulerCallSeconds prometheus.Histogram
	TraceEventsTotal    *prometheus.CounterVec
}

// New constructs a Set and registers its collectors against reg. Passing a
// fresh prometheus.NewRegistry() isolates the metrics of one coordinator
// from any other collectors sharing the process.
func New(reg prometheus.Registerer) *Set {
	s := &Set{
		GateBroken: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "actorkv_gate_broken",
			Help: "1 if the output gate is latched broken, 0 otherwise.",
		}),
		CommitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "actorkv_commits_total",
			Help: "Total number of commit generations that reached a durable state.",
		}),
		CommitFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "actorkv_commit_failures_total",
			Help: "Total number of commit generations that aborted and broke the gate.",
		}),
		SchedulerCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actorkv_scheduler_calls_total",
			Help: "Total number of ScheduleRun calls, partitioned by outcome.",
		}, []string{"outcome"}),
		SchedulerCallSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "actorkv_scheduler_call_seconds",
			Help:    "Latency of individual ScheduleRun calls.",
			Buckets: prometheus.DefBuckets,
		}),
		TraceEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actorkv_trace_events_total",
			Help: "Total number of streaming trace events emitted, partitioned by kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(
		s.GateBroken,
		s.CommitsTotal,
		s.CommitFailuresTotal,
		s.SchedulerCallsTotal,
		s.SchedulerCallSeconds,
		s.TraceEventsTotal,
	)
	return s
}

// ObserveSchedulerCall records one ScheduleRun call's outcome and latency.
func (s *Set) ObserveSchedulerCall(outcome string, d time.Duration) {
	s.SchedulerCallsTotal.WithLabelValues(outcome).Inc()
	s.SchedulerCallSeconds.Observe(d.Seconds())
}

// SetGateBroken reports the gate's current broken/healthy state.
func (s *Set) SetGateBroken(broken bool) {
	if broken {
		s.GateBroken.Set(1)
		return
	}
	s.GateBroken.Set(0)
}

// ObserveTraceEvent counts one emitted StreamEvent by its Kind.
func (s *Set) ObserveTraceEvent(kind string) {
	s.TraceEventsTotal.WithLabelValues(kind).Inc()
}

// WrapTraceSink wraps a StreamEvent delegate so every event that reaches it
// is also counted in TraceEventsTotal before being forwarded. trace.Session
// never imports pkg/metrics itself; callers that want trace volume counted
// wrap their sink with this at construction time.
func (s *Set) WrapTraceSink(delegate func(trace.StreamEvent)) func(trace.StreamEvent) {
	return func(e trace.StreamEvent) {
		s.ObserveTraceEvent(e.Event.Kind)
		delegate(e)
	}
}
