package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-go/asana-coach/pkg/coach/apierror"
	"github.com/vango-go/asana-coach/pkg/coach/config"
	"github.com/vango-go/asana-coach/pkg/coach/lifecycle"
	"github.com/vango-go/asana-coach/pkg/coach/metrics"
	"github.com/vango-go/asana-coach/pkg/coach/mw"
	"github.com/vango-go/asana-coach/pkg/coach/perception"
	"github.com/vango-go/asana-coach/pkg/coach/session"
	"github.com/vango-go/asana-coach/pkg/coach/sessions"
	"github.com/vango-go/asana-coach/pkg/coach/speech"
)

// CoachHandler handles /v1/coach websocket sessions.
type CoachHandler struct {
	Config      config.Config
	Logger      *slog.Logger
	Lifecycle   *lifecycle.Lifecycle
	Sessions    *sessions.Tracker
	Detector    perception.Detector
	Comparator  perception.Comparator
	Synthesizer speech.Synthesizer
	Tracer      trace.Tracer
	Metrics     *metrics.Metrics
}

func (h CoachHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	if r.Method != http.MethodGet {
		apierror.Write(w, http.StatusMethodNotAllowed, reqID, &apierror.Error{Type: apierror.ErrInvalidRequest, Message: "method not allowed", Code: "method_not_allowed"})
		return
	}
	if h.Lifecycle.IsDraining() {
		apierror.Write(w, http.StatusServiceUnavailable, reqID, &apierror.Error{Type: apierror.ErrUnavailable, Message: "server is draining", Code: "draining"})
		return
	}
	if !mw.OriginAllowed(h.Config.CORSAllowedOrigins, r.Header.Get("Origin")) {
		apierror.Write(w, http.StatusForbidden, reqID, &apierror.Error{Type: apierror.ErrInvalidRequest, Message: "origin is not allowed", Param: "Origin", Code: "forbidden_origin"})
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sessionID := "s_" + uuid.NewString()
	sess, err := session.New(session.Dependencies{
		Conn:        conn,
		Logger:      logger,
		Detector:    h.Detector,
		Comparator:  h.Comparator,
		Synthesizer: h.Synthesizer,
		Tracer:      h.Tracer,
		Metrics:     h.Metrics,
		SessionID:   sessionID,
		RequestID:   reqID,
		Config:      SessionConfig(h.Config),
	})
	if err != nil {
		logger.Error("coach session setup failed", "request_id", reqID, "error", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "session setup failed"),
			time.Now().Add(writeTimeoutOrDefault(h.Config.WSWriteTimeout)))
		return
	}

	unregister := h.Sessions.Register(sessionID, sess)
	defer unregister()

	started := time.Now()
	h.Metrics.SessionStarted()
	defer func() { h.Metrics.SessionEnded(time.Since(started)) }()

	logger.Info("coach session started", "session_id", sessionID, "request_id", reqID)
	if err := sess.Run(r.Context()); err != nil {
		logger.Warn("coach session ended with error", "session_id", sessionID, "request_id", reqID, "error", err)
		return
	}
	logger.Info("coach session ended", "session_id", sessionID, "request_id", reqID)
}

// SessionConfig maps server settings onto per-connection limits.
func SessionConfig(cfg config.Config) session.Config {
	return session.Config{
		MaxMessageBytes:    cfg.MaxMessageBytes,
		MaxFrameFPS:        cfg.MaxFrameFPS,
		FrameBurstSeconds:  cfg.FrameBurstSeconds,
		PingInterval:       cfg.WSPingInterval,
		WriteTimeout:       cfg.WSWriteTimeout,
		ReadTimeout:        cfg.WSReadTimeout,
		MaxSessionDuration: cfg.MaxSessionDuration,
		FeedbackCooldown:   cfg.FeedbackCooldown,
		HoldDuration:       cfg.HoldDuration,
	}
}

func writeTimeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 5 * time.Second
	}
	return d
}
