package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/vango-go/asana-coach/pkg/coach/config"
	"github.com/vango-go/asana-coach/pkg/coach/logs"
	coachserver "github.com/vango-go/asana-coach/pkg/coach/server"
	"github.com/vango-go/asana-coach/pkg/coach/telemetry"
)

const serviceName = "asana-coach"

type serveDeps struct {
	loadConfig     func() (config.Config, error)
	newServer      func(config.Config, *slog.Logger, ...coachserver.Option) *coachserver.Server
	setupTelemetry func(ctx context.Context, serviceName, version, endpoint string) (func(context.Context) error, error)
	signalNotify   func(chan<- os.Signal, ...os.Signal)
	signalStop     func(chan<- os.Signal)
}

func defaultServeDeps() serveDeps {
	return serveDeps{
		loadConfig:     config.LoadFromEnv,
		newServer:      coachserver.New,
		setupTelemetry: telemetry.Setup,
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {
			signal.Notify(c, sig...)
		},
		signalStop: signal.Stop,
	}
}

func buildHTTPServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func runServe(ctx context.Context, stderr io.Writer, addr string, deps serveDeps) error {
	if deps.loadConfig == nil {
		return errors.New("missing loadConfig dependency")
	}
	if deps.newServer == nil {
		return errors.New("missing newServer dependency")
	}
	if deps.signalNotify == nil || deps.signalStop == nil {
		return errors.New("missing signal dependency")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := deps.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if addr = strings.TrimSpace(addr); addr != "" {
		cfg.Addr = addr
	}

	logger, err := logs.New(logs.Options{Writer: stderr, Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	shutdownTelemetry := func(context.Context) error { return nil }
	if deps.setupTelemetry != nil {
		shutdownTelemetry, err = deps.setupTelemetry(ctx, serviceName, version, cfg.OTelEndpoint)
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	srv := deps.newServer(cfg, logger.Logger)
	httpSrv := buildHTTPServer(cfg, srv.Handler())

	logger.Info("starting coach server",
		"addr", cfg.Addr,
		"perception_base_url", cfg.PerceptionBaseURL,
		"speech_enabled", cfg.SpeechEnabled(),
		"tracing_enabled", cfg.OTelEndpoint != "",
	)

	listenErrCh := make(chan error, 1)
	go func() {
		err := httpSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErrCh <- err
			return
		}
		listenErrCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	deps.signalNotify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer deps.signalStop(sigCh)

	select {
	case err := <-listenErrCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("context canceled, draining")
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	srv.Lifecycle().SetDraining(true)
	warned := srv.Sessions().WarnAll("server_draining", "server is shutting down; finish your current pose")
	logger.Info("draining coach sessions", "sessions", warned)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	// Hijacked websocket connections are invisible to Shutdown.
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer waitCancel()
	if !srv.Sessions().Wait(waitCtx) {
		canceled := srv.Sessions().CancelAll()
		logger.Warn("grace period elapsed, canceled coach sessions", "sessions", canceled)
	}

	if err := <-listenErrCh; err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	logger.Info("coach server stopped")
	return nil
}
