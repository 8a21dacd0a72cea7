// Package session runs one coaching conversation over a websocket: it reads
// init and frame messages, drives the feedback engine and writes replies.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/vango-go/asana-coach/pkg/coach/catalog"
	"github.com/vango-go/asana-coach/pkg/coach/feedback"
	"github.com/vango-go/asana-coach/pkg/coach/metrics"
	"github.com/vango-go/asana-coach/pkg/coach/perception"
	"github.com/vango-go/asana-coach/pkg/coach/protocol"
	"github.com/vango-go/asana-coach/pkg/coach/speech"
)

const (
	tracerName = "github.com/vango-go/asana-coach/pkg/coach/session"

	outboundPriorityQueueSize = 8
	frameRateLimitMessage     = "frame rate limit exceeded"
)

var (
	ErrSessionNotInitialized = errors.New("session not initialized")

	errBackpressure = errors.New("coach outbound backpressure")
)

type Config struct {
	MaxMessageBytes    int64
	MaxFrameFPS        int
	FrameBurstSeconds  int
	PingInterval       time.Duration
	WriteTimeout       time.Duration
	ReadTimeout        time.Duration
	MaxSessionDuration time.Duration
	FeedbackCooldown   time.Duration
	HoldDuration       time.Duration
	OutboundQueueSize  int
}

type Dependencies struct {
	Conn        *websocket.Conn
	Logger      *slog.Logger
	Detector    perception.Detector
	Comparator  perception.Comparator
	Synthesizer speech.Synthesizer
	Tracer      trace.Tracer
	Metrics     *metrics.Metrics
	SessionID   string
	RequestID   string
	Config      Config
	Now         func() time.Time
}

type Session struct {
	conn       *websocket.Conn
	logger     *slog.Logger
	detector   perception.Detector
	comparator perception.Comparator
	synth      speech.Synthesizer
	tracer     trace.Tracer
	metrics    *metrics.Metrics
	sessionID  string
	cfg        Config
	now        func() time.Time
	engine     feedback.Engine
	limiter    *frameLimiter

	ctx    context.Context
	cancel context.CancelFunc

	outboundPriority chan outboundFrame
	outboundNormal   chan outboundFrame

	// state is nil until the first valid init. Only the control loop touches it.
	state *feedback.State
}

type inboundFrame struct {
	messageType int
	data        []byte
	err         error
}

func New(deps Dependencies) (*Session, error) {
	if deps.Conn == nil {
		return nil, fmt.Errorf("connection is required")
	}
	if deps.Detector == nil {
		return nil, fmt.Errorf("pose detector is required")
	}
	if deps.Comparator == nil {
		return nil, fmt.Errorf("pose comparator is required")
	}
	return newSession(deps), nil
}

func newSession(deps Dependencies) *Session {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Tracer == nil {
		deps.Tracer = otel.Tracer(tracerName)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Config.OutboundQueueSize <= 0 {
		deps.Config.OutboundQueueSize = 32
	}

	var opts []feedback.Option
	if deps.Config.FeedbackCooldown > 0 {
		opts = append(opts, feedback.WithCooldown(deps.Config.FeedbackCooldown))
	}
	if deps.Config.HoldDuration > 0 {
		opts = append(opts, feedback.WithHoldDuration(deps.Config.HoldDuration))
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		conn:             deps.Conn,
		logger:           deps.Logger.With("session_id", deps.SessionID, "request_id", deps.RequestID),
		detector:         deps.Detector,
		comparator:       deps.Comparator,
		synth:            deps.Synthesizer,
		tracer:           deps.Tracer,
		metrics:          deps.Metrics,
		sessionID:        deps.SessionID,
		cfg:              deps.Config,
		now:              deps.Now,
		engine:           feedback.NewEngine(opts...),
		limiter:          newFrameLimiter(deps.Now, deps.Config.MaxFrameFPS, deps.Config.FrameBurstSeconds),
		ctx:              ctx,
		cancel:           cancel,
		outboundPriority: make(chan outboundFrame, outboundPriorityQueueSize),
		outboundNormal:   make(chan outboundFrame, deps.Config.OutboundQueueSize),
	}
}

// Run serves the connection until the client disconnects, ctx is canceled,
// Cancel is called or the session exceeds its maximum duration.
func (s *Session) Run(ctx context.Context) error {
	defer s.cancel()
	if ctx != nil {
		stop := context.AfterFunc(ctx, s.cancel)
		defer stop()
	}

	if s.cfg.MaxMessageBytes > 0 {
		s.conn.SetReadLimit(s.cfg.MaxMessageBytes)
	}
	if s.cfg.ReadTimeout > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		s.conn.SetPongHandler(func(string) error {
			return s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		})
	}

	readCh := make(chan inboundFrame, 16)
	var g errgroup.Group
	g.Go(func() error {
		s.readLoop(readCh)
		return nil
	})
	g.Go(func() error {
		w := outboundWriter{
			ws:       s.conn,
			ctx:      s.ctx,
			cfg:      s.cfg,
			priority: s.outboundPriority,
			normal:   s.outboundNormal,
		}
		err := w.Run()
		// A dead writer means nothing more can be said; stop the loop.
		s.cancel()
		if err != nil {
			// Unblocks readLoop, which would otherwise wait on a silent client.
			_ = s.conn.Close()
		}
		return err
	})

	loopErr := s.loop(readCh)
	s.cancel()
	writerErr := g.Wait()

	s.state = nil
	if loopErr != nil {
		return loopErr
	}
	return writerErr
}

func (s *Session) loop(readCh <-chan inboundFrame) error {
	var sessionTimer <-chan time.Time
	if s.cfg.MaxSessionDuration > 0 {
		t := time.NewTimer(s.cfg.MaxSessionDuration)
		defer t.Stop()
		sessionTimer = t.C
	}

	for {
		select {
		case <-s.ctx.Done():
			return nil
		case <-sessionTimer:
			_ = s.sendWarning("session_expired", "maximum session duration reached")
			return nil
		case frame, ok := <-readCh:
			if !ok || frame.err != nil {
				if frame.err != nil && websocket.IsUnexpectedCloseError(frame.err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.logger.Warn("coach connection read failed", "error", frame.err)
				}
				return nil
			}
			if frame.messageType != websocket.TextMessage {
				if err := s.sendError("Invalid data"); err != nil {
					return err
				}
				continue
			}
			if err := s.handleMessage(frame.data); err != nil {
				return err
			}
		}
	}
}

// handleMessage processes one inbound message. The returned error is a
// transport failure; client mistakes are answered on the socket.
func (s *Session) handleMessage(data []byte) error {
	msg, err := protocol.DecodeClientMessage(data)
	if err != nil {
		return s.sendError(clientMessage(err))
	}
	switch m := msg.(type) {
	case protocol.ClientInit:
		return s.handleInit(m)
	case protocol.ClientFrame:
		return s.handleFrame(m)
	default:
		return s.sendError("Invalid data")
	}
}

func (s *Session) handleInit(m protocol.ClientInit) error {
	mode, err := catalog.ParseMode(m.Mode)
	if err != nil {
		return s.sendError(err.Error())
	}
	seq, err := catalog.ResolveSequence(string(mode), m.AsanaIDs)
	if err != nil {
		return s.sendError(err.Error())
	}

	if s.state != nil {
		s.logger.Info("coach session restarted", "mode", mode)
	}
	s.state = feedback.NewState(mode, seq, m.RoutineName)

	pose := s.state.CurrentPose()
	s.logger.Info("coach session initialized", "mode", mode, "poses", len(seq), "pose", pose)

	audio := speech.EncodeAudio(s.ctx, s.synth, feedback.IntroText(s.state), s.logger)
	return s.sendJSON(protocol.ServerInitResponse{
		Type:      protocol.TypeInitResponse,
		AudioData: audio,
		PoseName:  pose.DisplayName(),
	})
}

func (s *Session) handleFrame(m protocol.ClientFrame) error {
	if s.state == nil {
		s.metrics.RecordFrameError(metrics.FrameErrorNotInitialized)
		return s.sendError(ErrSessionNotInitialized.Error())
	}
	if !s.limiter.Allow() {
		s.metrics.RecordFrameError(metrics.FrameErrorRateLimited)
		return s.sendError(frameRateLimitMessage)
	}

	pose := s.state.CurrentPose()
	ctx, span := s.tracer.Start(s.ctx, "coach.frame", trace.WithAttributes(
		attribute.String("coach.session_id", s.sessionID),
		attribute.String("coach.pose", string(pose)),
	))
	defer span.End()

	ev, err := s.evaluate(ctx, m, pose)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn("coach frame evaluation failed", "error", err, "pose", pose)
		s.metrics.RecordFrameError(frameErrorKind(err))
		return s.sendError(clientMessage(err))
	}

	d := s.engine.Step(s.state, ev, s.now())
	span.SetAttributes(
		attribute.String("coach.outcome", d.Outcome.String()),
		attribute.Bool("coach.emitted", d.Emit),
	)
	s.metrics.RecordFrame(d.Outcome.String(), d.Emit)
	if d.Transition {
		s.logger.Info("coach pose completed", "pose", pose, "outcome", d.Outcome.String(), "index", s.state.Index)
	}

	return s.sendJSON(s.feedbackMessage(ctx, d))
}

func (s *Session) evaluate(ctx context.Context, m protocol.ClientFrame, pose catalog.PoseID) (feedback.Evaluation, error) {
	if pose == "" {
		// Finished sessions still answer frames without consulting perception.
		return feedback.NoLandmarks(), nil
	}
	img, err := protocol.DecodeImageData(m.ImageData)
	if err != nil {
		return feedback.Evaluation{}, err
	}
	start := time.Now()
	landmarks, err := s.detector.Detect(ctx, img)
	s.metrics.ObservePerception("detect", time.Since(start))
	if err != nil {
		return feedback.Evaluation{}, fmt.Errorf("pose detection failed: %w", err)
	}
	if len(landmarks) == 0 {
		return feedback.NoLandmarks(), nil
	}
	start = time.Now()
	verdict, err := s.comparator.Compare(ctx, landmarks, pose)
	s.metrics.ObservePerception("compare", time.Since(start))
	if err != nil {
		return feedback.Evaluation{}, fmt.Errorf("pose comparison failed: %w", err)
	}
	return feedback.FromVerdict(verdict), nil
}

func (s *Session) feedbackMessage(ctx context.Context, d feedback.Decision) protocol.ServerFeedback {
	msg := protocol.ServerFeedback{
		Data:     int(d.Outcome),
		PoseName: d.Pose.DisplayName(),
	}
	if d.HasAccuracy {
		confidence := d.Accuracy / 100
		msg.Confidence = &confidence
	}
	if d.Emit {
		msg.AudioData = speech.EncodeAudio(ctx, s.synth, d.Text, s.logger)
	}
	return msg
}

func frameErrorKind(err error) string {
	var decErr *protocol.DecodeError
	if errors.As(err, &decErr) {
		return metrics.FrameErrorDecode
	}
	return metrics.FrameErrorPerception
}

// clientMessage is the text put in an error reply. Decode errors drop the
// offending parameter name.
func clientMessage(err error) string {
	var decErr *protocol.DecodeError
	if errors.As(err, &decErr) {
		return decErr.Message
	}
	return err.Error()
}

func (s *Session) sendError(message string) error {
	return s.sendJSON(protocol.ServerError{Error: message})
}

func (s *Session) sendWarning(code, message string) error {
	payload, err := json.Marshal(protocol.ServerWarning{Type: protocol.TypeWarning, Code: code, Message: message})
	if err != nil {
		return err
	}
	select {
	case s.outboundPriority <- outboundFrame{payload: payload}:
		return nil
	default:
		return errBackpressure
	}
}

func (s *Session) sendJSON(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case s.outboundNormal <- outboundFrame{payload: payload}:
		return nil
	case <-s.ctx.Done():
		return nil
	}
}

func (s *Session) readLoop(out chan<- inboundFrame) {
	defer close(out)
	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case out <- inboundFrame{err: err}:
			case <-s.ctx.Done():
			}
			return
		}
		select {
		case out <- inboundFrame{messageType: messageType, data: data}:
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Session) ID() string {
	if s == nil {
		return ""
	}
	return s.sessionID
}

func (s *Session) Cancel() {
	if s == nil || s.cancel == nil {
		return
	}
	s.cancel()
}

func (s *Session) SendWarning(code, message string) error {
	if s == nil {
		return nil
	}
	return s.sendWarning(code, message)
}
