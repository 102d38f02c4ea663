package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestSessionCollectorRecordsEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewSessionCollector(reg)
	if err != nil {
		t.Fatalf("NewSessionCollector: %v", err)
	}

	c.RecordMutation("A", "G")
	c.RecordTransition("clean", "mutated")
	c.RecordRepairAttempt(false)
	c.RecordRepairAttempt(false)
	c.RecordRepairAttempt(true)
	c.RecordTransition("mutated", "repaired")

	if got := testutil.ToFloat64(c.Mutations.WithLabelValues("A", "G")); got != 1 {
		t.Fatalf("mutations{A,G} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.RepairAttempts.WithLabelValues("incorrect")); got != 2 {
		t.Fatalf("repair_attempts{incorrect} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.RepairAttempts.WithLabelValues("correct")); got != 1 {
		t.Fatalf("repair_attempts{correct} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.Transitions.WithLabelValues("clean", "mutated")); got != 1 {
		t.Fatalf("transitions{clean,mutated} = %v, want 1", got)
	}
	for _, p := range Phases {
		want := 0.0
		if p == "repaired" {
			want = 1
		}
		if got := testutil.ToFloat64(c.Phase.WithLabelValues(p)); got != want {
			t.Fatalf("phase{%s} = %v, want %v", p, got, want)
		}
	}
}

func TestSessionCollectorReusesRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewSessionCollector(reg)
	if err != nil {
		t.Fatalf("first NewSessionCollector: %v", err)
	}
	second, err := NewSessionCollector(reg)
	if err != nil {
		t.Fatalf("second NewSessionCollector: %v", err)
	}
	second.RecordRepairAttempt(true)
	if got := testutil.ToFloat64(first.RepairAttempts.WithLabelValues("correct")); got != 1 {
		t.Fatalf("collectors not shared: %v", got)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *SessionCollector
	c.RecordTransition("clean", "mutated")
	c.RecordMutation("A", "T")
	c.RecordRepairAttempt(true)
}

func TestUnaryInterceptorRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewSessionCollector(reg)
	if err != nil {
		t.Fatalf("NewSessionCollector: %v", err)
	}

	interceptor := c.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/dnarepair.v1.SessionService/SubmitRepair"}

	if _, err := interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return "ok", nil
	}); err != nil {
		t.Fatalf("interceptor handler returned error: %v", err)
	}
	_, _ = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.FailedPrecondition, "no active mutation")
	})

	if got := testutil.ToFloat64(c.RPCRequests.WithLabelValues("SessionService", "SubmitRepair", "OK")); got != 1 {
		t.Fatalf("rpc_requests_total{OK} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.RPCRequests.WithLabelValues("SessionService", "SubmitRepair", "FailedPrecondition")); got != 1 {
		t.Fatalf("rpc_requests_total{FailedPrecondition} = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "dnarepair_rpc_duration_seconds", map[string]string{
		"service": "SessionService",
		"method":  "SubmitRepair",
	}); count != 2 {
		t.Fatalf("rpc_duration_seconds sample_count = %d, want 2", count)
	}
}

func TestMetricsHandlerExposesSessionMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewSessionCollector(reg)
	if err != nil {
		t.Fatalf("NewSessionCollector: %v", err)
	}
	c.RecordMutation("C", "T")
	c.RecordTransition("clean", "mutated")
	c.RecordRepairAttempt(true)
	c.RPCRequests.WithLabelValues("svc", "method", "OK").Inc()
	c.RPCDurations.WithLabelValues("svc", "method").Observe(0.01)

	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"dnarepair_session_transitions_total",
		"dnarepair_mutations_total",
		"dnarepair_repair_attempts_total",
		"dnarepair_session_phase",
		"dnarepair_rpc_requests_total",
		"dnarepair_rpc_duration_seconds",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output", metric)
		}
	}
}

func TestSplitMethod(t *testing.T) {
	tests := []struct {
		in, service, method string
	}{
		{"/dnarepair.v1.SessionService/Reset", "SessionService", "Reset"},
		{"SessionService/GetSession", "SessionService", "GetSession"},
		{"", "unknown", "unknown"},
		{"/nomethod", "unknown", "unknown"},
	}
	for _, tt := range tests {
		s, m := SplitMethod(tt.in)
		if s != tt.service || m != tt.method {
			t.Errorf("SplitMethod(%q) = %q, %q; want %q, %q", tt.in, s, m, tt.service, tt.method)
		}
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}

func TestSchedulerCollectorTracksEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewSchedulerCollector(reg)
	if err != nil {
		t.Fatalf("NewSchedulerCollector: %v", err)
	}

	c.EventScheduled(1)
	c.EventScheduled(2)
	c.EventCancelled(1)
	c.EventFired(-time.Second, 0)

	if got := testutil.ToFloat64(c.Scheduled); got != 2 {
		t.Fatalf("scheduled = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.Cancelled); got != 1 {
		t.Fatalf("cancelled = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.Fired); got != 1 {
		t.Fatalf("fired = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.Pending); got != 0 {
		t.Fatalf("pending = %v, want 0", got)
	}
	if n, err := testutil.GatherAndCount(reg, "dnarepair_scheduler_event_lateness_seconds"); err != nil || n != 1 {
		t.Fatalf("lateness series = %d, %v", n, err)
	}

	again, err := NewSchedulerCollector(reg)
	if err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if again.Scheduled != c.Scheduled {
		t.Fatalf("re-registration did not reuse the existing counter")
	}

	var nilCollector *SchedulerCollector
	nilCollector.EventFired(time.Second, 0)
	if nilCollector.Gatherer() != nil {
		t.Fatalf("nil collector gatherer should be nil")
	}
}
