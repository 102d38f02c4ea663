package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/signalsfoundry/dna-repair-sim/internal/config"
	"github.com/signalsfoundry/dna-repair-sim/internal/console"
	"github.com/signalsfoundry/dna-repair-sim/internal/logging"
	"github.com/signalsfoundry/dna-repair-sim/internal/observability"
	"github.com/signalsfoundry/dna-repair-sim/internal/rpc"
	"github.com/signalsfoundry/dna-repair-sim/internal/sim/runner"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func main() {
	cfg, envErr := config.FromEnv()
	if os.Getenv("DNAREPAIR_LOG_LEVEL") == "" {
		// keep the prompt readable unless asked otherwise
		cfg.LogLevel = "warn"
	}
	cfg.BindFlags(flag.CommandLine)
	remote := flag.String("remote", "", "address of a session-server to drive instead of a local session")
	flag.Parse()

	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if envErr != nil {
		log.Warn(ctx, "ignoring invalid environment settings", logging.Err(envErr))
	}

	if err := run(ctx, cfg, *remote, os.Stdin, os.Stdout, log); err != nil {
		fmt.Fprintf(os.Stderr, "simulator: %v\n", err)
		os.Exit(1)
	}
}

// run drives a console over a local session, or over a remote one when
// remote is set, until the user quits or ctx is done.
func run(ctx context.Context, cfg config.Config, remote string, in io.Reader, out io.Writer, log logging.Logger) error {
	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	if remote != "" {
		conn, err := grpc.NewClient(remote,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
			grpc.WithUnaryInterceptor(rpc.RequestIDUnaryClientInterceptor()),
		)
		if err != nil {
			return fmt.Errorf("connect %s: %w", remote, err)
		}
		defer conn.Close()
		log.Info(ctx, "driving remote session", logging.String("addr", remote))
		return console.New(rpc.NewClient(conn), out, log).Run(ctx, in)
	}

	r, err := runner.New(cfg, log)
	if err != nil {
		return err
	}
	r.Start(ctx)
	defer r.Stop()

	return console.New(console.LocalDriver{Session: r.Session}, out, log).Run(ctx, in)
}
