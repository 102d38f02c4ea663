package observability

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// Phases lists the session phase label values, in lifecycle order.
var Phases = []string{"clean", "mutated", "revealing", "repaired"}

// SessionCollector bundles Prometheus metrics for repair sessions and the
// gRPC surface that drives them.
type SessionCollector struct {
	gatherer prometheus.Gatherer

	Transitions    *prometheus.CounterVec
	Mutations      *prometheus.CounterVec
	RepairAttempts *prometheus.CounterVec
	Phase          *prometheus.GaugeVec

	RPCRequests  *prometheus.CounterVec
	RPCDurations *prometheus.HistogramVec
}

// NewSessionCollector registers session metrics against reg, defaulting to
// the global Prometheus registry when nil. Registering twice against the same
// registry reuses the existing collectors.
func NewSessionCollector(reg prometheus.Registerer) (*SessionCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	transitions, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dnarepair_session_transitions_total",
		Help: "Session phase transitions, labeled by source and target phase.",
	}, []string{"from", "to"}), "dnarepair_session_transitions_total")
	if err != nil {
		return nil, err
	}

	mutations, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dnarepair_mutations_total",
		Help: "Introduced point mutations, labeled by original and replacement base.",
	}, []string{"original", "replacement"}), "dnarepair_mutations_total")
	if err != nil {
		return nil, err
	}

	attempts, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dnarepair_repair_attempts_total",
		Help: "Submitted repair bases, labeled by outcome (correct or incorrect).",
	}, []string{"outcome"}), "dnarepair_repair_attempts_total")
	if err != nil {
		return nil, err
	}

	phase, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dnarepair_session_phase",
		Help: "1 for the phase the session is currently in, 0 otherwise.",
	}, []string{"phase"}), "dnarepair_session_phase")
	if err != nil {
		return nil, err
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dnarepair_rpc_requests_total",
		Help: "Handled session RPCs, labeled by service, method, and gRPC status code.",
	}, []string{"service", "method", "code"}), "dnarepair_rpc_requests_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dnarepair_rpc_duration_seconds",
		Help:    "Session RPC latency in seconds.",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"service", "method"}), "dnarepair_rpc_duration_seconds")
	if err != nil {
		return nil, err
	}

	c := &SessionCollector{
		gatherer:       gatherer,
		Transitions:    transitions,
		Mutations:      mutations,
		RepairAttempts: attempts,
		Phase:          phase,
		RPCRequests:    requests,
		RPCDurations:   durations,
	}
	c.setPhase("clean")
	return c, nil
}

// RecordTransition counts a phase change and moves the phase gauge.
func (c *SessionCollector) RecordTransition(from, to string) {
	if c == nil {
		return
	}
	c.Transitions.WithLabelValues(from, to).Inc()
	c.setPhase(to)
}

// RecordMutation counts an introduced substitution.
func (c *SessionCollector) RecordMutation(original, replacement string) {
	if c == nil {
		return
	}
	c.Mutations.WithLabelValues(original, replacement).Inc()
}

// RecordRepairAttempt counts a submitted repair base.
func (c *SessionCollector) RecordRepairAttempt(correct bool) {
	if c == nil {
		return
	}
	outcome := "incorrect"
	if correct {
		outcome = "correct"
	}
	c.RepairAttempts.WithLabelValues(outcome).Inc()
}

func (c *SessionCollector) setPhase(current string) {
	for _, p := range Phases {
		v := 0.0
		if p == current {
			v = 1
		}
		c.Phase.WithLabelValues(p).Set(v)
	}
}

// UnaryServerInterceptor records request counts and durations for unary RPCs.
func (c *SessionCollector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		if c == nil {
			return resp, err
		}

		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		service, method := SplitMethod(fullMethod)
		code := status.Code(err).String()

		c.RPCRequests.WithLabelValues(service, method, code).Inc()
		c.RPCDurations.WithLabelValues(service, method).Observe(time.Since(start).Seconds())
		return resp, err
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SessionCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SplitMethod parses a fully-qualified gRPC method name into service and method
// components, returning "unknown"/"unknown" when parsing fails.
func SplitMethod(fullMethod string) (string, string) {
	if fullMethod == "" {
		return "unknown", "unknown"
	}
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 2 {
		return "unknown", "unknown"
	}
	service := parts[len(parts)-2]
	method := parts[len(parts)-1]
	if dot := strings.LastIndex(service, "."); dot >= 0 && dot+1 < len(service) {
		service = service[dot+1:]
	}
	if service == "" {
		service = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	return service, method
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
