package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/vango-go/asana-coach/pkg/coach/catalog"
	"github.com/vango-go/asana-coach/pkg/coach/config"
	coachserver "github.com/vango-go/asana-coach/pkg/coach/server"
)

func testConfig() config.Config {
	return config.Config{
		Addr:                "127.0.0.1:0",
		CORSAllowedOrigins:  map[string]struct{}{},
		MaxMessageBytes:     1 << 20,
		FeedbackCooldown:    5 * time.Second,
		HoldDuration:        3 * time.Second,
		WSPingInterval:      time.Second,
		WSWriteTimeout:      time.Second,
		MaxSessionDuration:  time.Minute,
		PerceptionBaseURL:   "http://127.0.0.1:8766",
		PerceptionTimeout:   time.Second,
		CartesiaBaseURL:     "https://api.cartesia.ai",
		ReadHeaderTimeout:   time.Second,
		ShutdownGracePeriod: time.Second,
		LogLevel:            "info",
	}
}

func noSignals() (func(chan<- os.Signal, ...os.Signal), func(chan<- os.Signal)) {
	return func(c chan<- os.Signal, sig ...os.Signal) {}, func(c chan<- os.Signal) {}
}

func TestRunMain_ReturnsNonZeroWhenConfigLoadFails(t *testing.T) {
	t.Parallel()

	notify, stop := noSignals()
	var stdout, stderr bytes.Buffer
	exitCode := runMain(context.Background(), []string{"serve"}, &stdout, &stderr, serveDeps{
		loadConfig: func() (config.Config, error) {
			return config.Config{}, errors.New("boom")
		},
		newServer: func(cfg config.Config, logger *slog.Logger, opts ...coachserver.Option) *coachserver.Server {
			t.Fatalf("newServer should not be called when config load fails")
			return nil
		},
		signalNotify: notify,
		signalStop:   stop,
	})

	if exitCode != 1 {
		t.Fatalf("exitCode=%d, want 1", exitCode)
	}
	if got := stderr.String(); !strings.Contains(got, "load config: boom") {
		t.Fatalf("stderr=%q", got)
	}
}

func TestRunMain_UnknownCommand(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	if code := runMain(context.Background(), []string{"stretch"}, &stdout, &stderr, defaultServeDeps()); code != 1 {
		t.Fatalf("exitCode=%d, want 1", code)
	}
}

func TestBuildHTTPServer_UsesConfiguredAddress(t *testing.T) {
	t.Parallel()

	cfg := config.Config{
		Addr:              "127.0.0.1:9999",
		ReadHeaderTimeout: 2 * time.Second,
	}

	srv := buildHTTPServer(cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	if srv.Addr != cfg.Addr {
		t.Fatalf("Addr=%q, want %q", srv.Addr, cfg.Addr)
	}
	if srv.ReadHeaderTimeout != cfg.ReadHeaderTimeout {
		t.Fatalf("ReadHeaderTimeout=%v, want %v", srv.ReadHeaderTimeout, cfg.ReadHeaderTimeout)
	}
}

func TestPosesCmd_Table(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	if code := runMain(context.Background(), []string{"poses"}, &stdout, &stderr, defaultServeDeps()); code != 0 {
		t.Fatalf("exitCode=%d stderr=%q", code, stderr.String())
	}
	out := stdout.String()
	for _, want := range []string{"Surya Namaskar", "bhujangasana", "Eight-Limbed Salutation"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPosesCmd_JSON(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	if code := runMain(context.Background(), []string{"poses", "--json"}, &stdout, &stderr, defaultServeDeps()); code != 0 {
		t.Fatalf("exitCode=%d stderr=%q", code, stderr.String())
	}
	var routines []catalog.Routine
	if err := json.Unmarshal(stdout.Bytes(), &routines); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(routines) != 1 || len(routines[0].Asanas) != 12 {
		t.Fatalf("routines=%+v", routines)
	}
}

func TestVersionCmd(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	if code := runMain(context.Background(), []string{"version"}, &stdout, &stderr, defaultServeDeps()); code != 0 {
		t.Fatalf("exitCode=%d", code)
	}
	if strings.TrimSpace(stdout.String()) != version {
		t.Fatalf("stdout=%q", stdout.String())
	}
}

func TestRunServe_DrainsOnContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	notify, stop := noSignals()
	telemetryCalls := 0
	var stderr bytes.Buffer
	err := runServe(ctx, &stderr, "", serveDeps{
		loadConfig: func() (config.Config, error) { return testConfig(), nil },
		newServer:  coachserver.New,
		setupTelemetry: func(ctx context.Context, name, v, endpoint string) (func(context.Context) error, error) {
			telemetryCalls++
			if name != serviceName || endpoint != "" {
				t.Errorf("telemetry name=%q endpoint=%q", name, endpoint)
			}
			return func(context.Context) error { return nil }, nil
		},
		signalNotify: notify,
		signalStop:   stop,
	})
	if err != nil {
		t.Fatalf("runServe error: %v", err)
	}
	if telemetryCalls != 1 {
		t.Fatalf("telemetryCalls=%d", telemetryCalls)
	}
	if !strings.Contains(stderr.String(), "coach server stopped") {
		t.Fatalf("stderr=%q", stderr.String())
	}
}

func TestRunServe_TelemetryErrorAborts(t *testing.T) {
	t.Parallel()

	notify, stop := noSignals()
	err := runServe(context.Background(), &bytes.Buffer{}, "", serveDeps{
		loadConfig: func() (config.Config, error) { return testConfig(), nil },
		newServer: func(cfg config.Config, logger *slog.Logger, opts ...coachserver.Option) *coachserver.Server {
			t.Fatalf("newServer should not be called when telemetry fails")
			return nil
		},
		setupTelemetry: func(context.Context, string, string, string) (func(context.Context) error, error) {
			return nil, errors.New("exporter down")
		},
		signalNotify: notify,
		signalStop:   stop,
	})
	if err == nil || !strings.Contains(err.Error(), "exporter down") {
		t.Fatalf("err=%v", err)
	}
}
