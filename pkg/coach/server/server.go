package server

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/vango-go/asana-coach/pkg/coach/config"
	"github.com/vango-go/asana-coach/pkg/coach/handlers"
	"github.com/vango-go/asana-coach/pkg/coach/lifecycle"
	"github.com/vango-go/asana-coach/pkg/coach/metrics"
	"github.com/vango-go/asana-coach/pkg/coach/mw"
	"github.com/vango-go/asana-coach/pkg/coach/perception"
	"github.com/vango-go/asana-coach/pkg/coach/sessions"
	"github.com/vango-go/asana-coach/pkg/coach/speech"
)

type Server struct {
	cfg    config.Config
	logger *slog.Logger
	mux    *http.ServeMux

	metrics     *metrics.Metrics
	lifecycle   *lifecycle.Lifecycle
	sessions    *sessions.Tracker
	detector    perception.Detector
	comparator  perception.Comparator
	synthesizer speech.Synthesizer
}

type Option func(*Server)

// WithPerception replaces the HTTP pose sidecar client.
func WithPerception(d perception.Detector, c perception.Comparator) Option {
	return func(s *Server) {
		s.detector = d
		s.comparator = c
	}
}

// WithSynthesizer replaces the configured TTS provider. nil silences speech.
func WithSynthesizer(synth speech.Synthesizer) Option {
	return func(s *Server) { s.synthesizer = synth }
}

func WithLifecycle(l *lifecycle.Lifecycle) Option {
	return func(s *Server) { s.lifecycle = l }
}

func WithSessions(t *sessions.Tracker) Option {
	return func(s *Server) { s.sessions = t }
}

func New(cfg config.Config, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout: 10 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
		Timeout: cfg.PerceptionTimeout,
	}

	sidecar := perception.NewHTTPClient(cfg.PerceptionBaseURL, httpClient)
	s := &Server{
		cfg:        cfg,
		logger:     logger,
		mux:        http.NewServeMux(),
		metrics:    metrics.New(""),
		lifecycle:  &lifecycle.Lifecycle{},
		sessions:   sessions.NewTracker(),
		detector:   sidecar,
		comparator: sidecar,
	}
	if cfg.SpeechEnabled() {
		s.synthesizer = speech.NewCartesia(cfg.CartesiaAPIKey, cfg.CartesiaBaseURL, cfg.CartesiaVoiceID, httpClient)
	}
	for _, opt := range opts {
		opt(s)
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Handle("/healthz", handlers.HealthHandler{})
	s.mux.Handle("/readyz", handlers.ReadyHandler{Config: s.cfg, Lifecycle: s.lifecycle, Sessions: s.sessions})
	s.mux.Handle("/metrics", s.metrics.Handler())

	s.mux.Handle("/v1/poses", handlers.PosesHandler{})
	s.mux.Handle("/v1/poses/resolve", handlers.ResolveHandler{})
	s.mux.Handle("/v1/coach", handlers.CoachHandler{
		Config:      s.cfg,
		Logger:      s.logger,
		Lifecycle:   s.lifecycle,
		Sessions:    s.sessions,
		Detector:    s.detector,
		Comparator:  s.comparator,
		Synthesizer: s.synthesizer,
		Metrics:     s.metrics,
	})

	s.mux.Handle("/", handlers.NotFoundHandler{})
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.CORS(s.cfg.CORSAllowedOrigins, h)
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}

func (s *Server) Lifecycle() *lifecycle.Lifecycle { return s.lifecycle }

func (s *Server) Sessions() *sessions.Tracker { return s.sessions }

func (s *Server) Metrics() *metrics.Metrics { return s.metrics }
