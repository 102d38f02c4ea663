package main

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/signalsfoundry/dna-repair-sim/internal/config"
	"github.com/signalsfoundry/dna-repair-sim/internal/logging"
	"github.com/signalsfoundry/dna-repair-sim/internal/rpc"
	"github.com/signalsfoundry/dna-repair-sim/internal/sim/state"
	"github.com/signalsfoundry/dna-repair-sim/model"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func TestSessionServerStartupSmoke(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}

	cfg := config.Default()
	cfg.MetricsAddr = ""
	cfg.Tick = 20 * time.Millisecond
	cfg.Seed = 7

	reg := prometheus.NewRegistry()
	log := logging.New(logging.Config{Level: "warn", Format: "text"})

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, cfg, log, lis, reg)
	}()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	defer conn.Close()
	client := rpc.NewClient(conn)

	v, err := client.View(ctx)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if v.Phase != state.PhaseClean || v.Reference.String() != state.DefaultReference {
		t.Fatalf("initial view = %+v", v)
	}

	v, err = client.IntroduceMutation(ctx, 4)
	if err != nil {
		t.Fatalf("IntroduceMutation: %v", err)
	}
	if v.Mutation == nil || v.Mutation.Original != model.T {
		t.Fatalf("mutation = %+v", v.Mutation)
	}
	if _, err := client.IntroduceMutation(ctx, 5); !errors.Is(err, state.ErrMutationActive) {
		t.Fatalf("second mutation err = %v, want ErrMutationActive", err)
	}

	if n, err := testutil.GatherAndCount(reg, "dnarepair_mutations_total"); err != nil || n != 1 {
		t.Fatalf("mutation series = %d, %v; want 1", n, err)
	}
	if n, err := testutil.GatherAndCount(reg, "dnarepair_rpc_requests_total"); err != nil || n == 0 {
		t.Fatalf("rpc request series = %d, %v", n, err)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not shut down")
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	defer lis.Close()

	cfg := config.Default()
	cfg.MetricsAddr = ""
	cfg.ResetDelay = time.Millisecond
	cfg.Tick = time.Second

	if err := run(context.Background(), cfg, logging.Noop(), lis, prometheus.NewRegistry()); err == nil {
		t.Fatalf("expected error for tick longer than reset delay")
	}
}

var errAcceptBroken = errors.New("accept broken")

// brokenListener fails every Accept, like a listener whose socket died.
type brokenListener struct {
	net.Listener
}

func (brokenListener) Accept() (net.Conn, error) { return nil, errAcceptBroken }

func TestRunReturnsServeError(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	defer lis.Close()

	cfg := config.Default()
	cfg.MetricsAddr = ""

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(context.Background(), cfg, logging.Noop(), brokenListener{lis}, prometheus.NewRegistry())
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, errAcceptBroken) {
			t.Fatalf("run err = %v, want %v", err, errAcceptBroken)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not return after Serve failed")
	}
}
