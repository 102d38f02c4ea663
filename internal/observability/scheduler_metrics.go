package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SchedulerCollector exposes metrics for deferred events such as the
// post-repair reset. It satisfies schedule.Observer.
type SchedulerCollector struct {
	gatherer prometheus.Gatherer

	Scheduled prometheus.Counter
	Cancelled prometheus.Counter
	Fired     prometheus.Counter
	Pending   prometheus.Gauge
	Lateness  prometheus.Histogram
}

// NewSchedulerCollector registers scheduler metrics against the provided registerer.
func NewSchedulerCollector(reg prometheus.Registerer) (*SchedulerCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	scheduled, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dnarepair_scheduler_events_scheduled_total",
		Help: "Deferred events placed on the scheduler.",
	}), "dnarepair_scheduler_events_scheduled_total")
	if err != nil {
		return nil, err
	}

	cancelled, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dnarepair_scheduler_events_cancelled_total",
		Help: "Deferred events cancelled before they ran.",
	}), "dnarepair_scheduler_events_cancelled_total")
	if err != nil {
		return nil, err
	}

	fired, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dnarepair_scheduler_events_fired_total",
		Help: "Deferred events that ran.",
	}), "dnarepair_scheduler_events_fired_total")
	if err != nil {
		return nil, err
	}

	pending, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dnarepair_scheduler_events_pending",
		Help: "Deferred events waiting to run.",
	}), "dnarepair_scheduler_events_pending")
	if err != nil {
		return nil, err
	}

	lateness, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dnarepair_scheduler_event_lateness_seconds",
		Help:    "Simulated time between an event's due time and when it ran.",
		Buckets: []float64{0, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
	}), "dnarepair_scheduler_event_lateness_seconds")
	if err != nil {
		return nil, err
	}

	return &SchedulerCollector{
		gatherer:  gatherer,
		Scheduled: scheduled,
		Cancelled: cancelled,
		Fired:     fired,
		Pending:   pending,
		Lateness:  lateness,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SchedulerCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// EventScheduled counts a newly scheduled event.
func (c *SchedulerCollector) EventScheduled(pending int) {
	if c == nil {
		return
	}
	c.Scheduled.Inc()
	c.Pending.Set(float64(pending))
}

// EventCancelled counts an event dropped before running.
func (c *SchedulerCollector) EventCancelled(pending int) {
	if c == nil {
		return
	}
	c.Cancelled.Inc()
	c.Pending.Set(float64(pending))
}

// EventFired counts an event that ran lateness after its due time.
func (c *SchedulerCollector) EventFired(lateness time.Duration, pending int) {
	if c == nil {
		return
	}
	if lateness < 0 {
		lateness = 0
	}
	c.Fired.Inc()
	c.Lateness.Observe(lateness.Seconds())
	c.Pending.Set(float64(pending))
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
