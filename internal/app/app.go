package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spinarena/server/internal/config"
	servernet "spinarena/server/internal/net"
	"spinarena/server/internal/observability"
	"spinarena/server/internal/round"
	"spinarena/server/internal/session"
	"spinarena/server/internal/telemetry"
	"spinarena/server/logging"
	loggingSinks "spinarena/server/logging/sinks"
)

const defaultShutdownTimeout = 5 * time.Second

type Config struct {
	Server config.Server
	Logger telemetry.Logger
	// Stdout receives the console sink. Defaults to os.Stdout.
	Stdout io.Writer
}

// Main parses args and runs the server until SIGINT or SIGTERM.
func Main(args []string) error {
	cfg, err := config.ParseServer(flag.NewFlagSet("server", flag.ContinueOnError), args)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Run(ctx, Config{Server: cfg})
}

// Run serves the session until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, cfg Config) error {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}
	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	serverCfg := cfg.Server

	shutdownTracing, err := observability.Setup(ctx, serverCfg.Observability())
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		if cerr := shutdownTracing(context.Background()); cerr != nil {
			telemetryLogger.Printf("failed to flush traces: %v", cerr)
		}
	}()

	logConfig := serverCfg.Logging()
	sinks, err := buildSinks(logConfig, stdout)
	if err != nil {
		return err
	}
	router, err := logging.NewRouter(logging.SystemClock{}, logConfig, sinks)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		if cerr := router.Close(context.Background()); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	metrics := telemetry.NewCounters()
	sess := session.New(session.Config{
		StartingBalance: serverCfg.StartingBalance,
		Round:           round.Config{Publisher: router},
		TickRate:        serverCfg.TickRate,
		Logger:          telemetryLogger,
		Metrics:         metrics,
	})

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	go sess.Run(runCtx)

	handler := servernet.NewHTTPHandler(sess, servernet.HTTPHandlerConfig{
		ClientDir:             serverCfg.ClientDir,
		Logger:                telemetryLogger,
		Publisher:             router,
		Observability:         serverCfg.Observability(),
		Counters:              metrics,
		EventStats:            router.Stats,
		DefaultWinProbability: serverCfg.WinProbability,
	})

	srv := &http.Server{Addr: serverCfg.Addr, Handler: handler}
	errCh := make(chan error, 1)
	go func() {
		telemetryLogger.Printf("server listening on %s (session %s)", srv.Addr, sess.ID())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	telemetryLogger.Printf("shutting down")
	timeout := serverCfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	stats := router.Stats()
	telemetryLogger.Printf("routed %d events (%d dropped, %d rounds open)", stats.EventsTotal, stats.DroppedTotal, stats.OpenRounds)
	for _, name := range stats.DisabledSinks {
		telemetryLogger.Printf("log sink %s was disabled after repeated failures", name)
	}
	return nil
}

func buildSinks(cfg logging.Config, stdout io.Writer) ([]logging.NamedSink, error) {
	var sinks []logging.NamedSink
	if cfg.HasSink(logging.SinkConsole) {
		sinks = append(sinks, logging.NamedSink{Name: logging.SinkConsole, Sink: loggingSinks.NewConsoleSink(stdout)})
	}
	if cfg.HasSink(logging.SinkJSON) {
		file, err := os.OpenFile(cfg.JSON.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open json log %q: %w", cfg.JSON.FilePath, err)
		}
		sinks = append(sinks, logging.NamedSink{Name: logging.SinkJSON, Sink: loggingSinks.NewJSON(file, cfg.JSON.FlushInterval)})
	}
	return sinks, nil
}
