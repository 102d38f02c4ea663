package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/signalsfoundry/dna-repair-sim/internal/config"
	"github.com/signalsfoundry/dna-repair-sim/internal/logging"
	"github.com/signalsfoundry/dna-repair-sim/internal/observability"
	"github.com/signalsfoundry/dna-repair-sim/internal/rpc"
	"github.com/signalsfoundry/dna-repair-sim/internal/sim/runner"
	"github.com/signalsfoundry/dna-repair-sim/internal/sim/state"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
)

func main() {
	cfg, envErr := config.FromEnv()
	cfg.BindFlags(flag.CommandLine)
	flag.Parse()

	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if envErr != nil {
		log.Warn(ctx, "ignoring invalid environment settings", logging.Err(envErr))
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Error(ctx, "failed to listen for gRPC", logging.String("addr", cfg.GRPCAddr), logging.Err(err))
		os.Exit(1)
	}

	if err := run(ctx, cfg, log, lis, prometheus.DefaultRegisterer); err != nil {
		log.Error(ctx, "session server exited", logging.Err(err))
		os.Exit(1)
	}
}

// run serves one session on lis until ctx is done, then shuts down the gRPC
// server, the metrics endpoint, tracing and the session in that order.
func run(ctx context.Context, cfg config.Config, log logging.Logger, lis net.Listener, reg prometheus.Registerer) error {
	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		return err
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	collector, err := observability.NewSessionCollector(reg)
	if err != nil {
		return err
	}

	schedCollector, err := observability.NewSchedulerCollector(reg)
	if err != nil {
		return err
	}

	r, err := runner.New(cfg, log,
		runner.WithSessionOptions(state.WithMetricsRecorder(collector)),
		runner.WithSchedulerObserver(schedCollector),
	)
	if err != nil {
		return err
	}
	r.Start(ctx)
	defer r.Stop()

	metricsSrv := serveMetrics(cfg.MetricsAddr, collector, log)

	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			rpc.RequestIDUnaryServerInterceptor(log),
			rpc.TracingUnaryServerInterceptor(),
			collector.UnaryServerInterceptor(),
		),
	)
	rpc.RegisterSessionServiceServer(server, rpc.NewSessionService(r.Session, log))

	log.Info(ctx, "starting session gRPC server",
		logging.String("addr", lis.Addr().String()),
		logging.String("session_id", r.Session.ID()),
		logging.String("reference", r.Session.View().Reference.String()),
	)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(lis)
	}()

	var exitErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Error(ctx, "gRPC server exited", logging.Err(err))
			exitErr = fmt.Errorf("serve gRPC: %w", err)
		}
	}

	log.Info(context.Background(), "shutting down session server")
	server.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return exitErr
}

func serveMetrics(addr string, collector *observability.SessionCollector, log logging.Logger) *http.Server {
	if collector == nil || addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
