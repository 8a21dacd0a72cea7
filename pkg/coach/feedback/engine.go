package feedback

import (
	"time"

	"github.com/vango-go/asana-coach/pkg/coach/catalog"
)

const (
	// DefaultFeedbackCooldown is the minimum gap between non-critical phrases.
	DefaultFeedbackCooldown = 5 * time.Second
	// DefaultHoldDuration is how long a correct pose must be held to advance.
	DefaultHoldDuration = 3 * time.Second

	maxJointCorrections = 2
)

// Outcome values double as the wire codes sent to clients.
type Outcome int

const (
	OutcomeNoPose Outcome = iota
	OutcomeMisaligned
	OutcomeHolding
	OutcomePartialCorrect
	OutcomeAdvance
	OutcomeSessionComplete
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoPose:
		return "no_pose"
	case OutcomeMisaligned:
		return "misaligned"
	case OutcomeHolding:
		return "holding"
	case OutcomePartialCorrect:
		return "partial_correct"
	case OutcomeAdvance:
		return "advance"
	case OutcomeSessionComplete:
		return "session_complete"
	default:
		return "unknown"
	}
}

// Decision is the engine's verdict for one frame.
type Decision struct {
	Outcome Outcome
	// Emit is false when the outcome fell inside the cooldown window. Text is
	// empty in that case.
	Emit bool
	Text string
	// Transition marks a completed hold (advance or session complete).
	Transition bool

	Accuracy    float64
	HasAccuracy bool
	// Pose is the pose the client should show: the current pose, or the next
	// one after an advance. Empty once the session is complete.
	Pose catalog.PoseID
}

// Engine applies the feedback rules to one frame at a time. It holds no
// per-session state.
type Engine struct {
	Cooldown     time.Duration
	HoldDuration time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithCooldown overrides DefaultFeedbackCooldown. Negative values are ignored.
func WithCooldown(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.Cooldown = d
		}
	}
}

// WithHoldDuration overrides DefaultHoldDuration. Negative values are ignored.
func WithHoldDuration(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.HoldDuration = d
		}
	}
}

// NewEngine returns an Engine with the defaults and opts applied.
func NewEngine(opts ...Option) Engine {
	e := Engine{
		Cooldown:     DefaultFeedbackCooldown,
		HoldDuration: DefaultHoldDuration,
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// Step advances state by one frame evaluated at now and reports what, if
// anything, should be said. The hold check runs on every frame; only
// non-critical outcomes are subject to the cooldown.
func (e Engine) Step(state *State, ev Evaluation, now time.Time) Decision {
	if state == nil {
		return Decision{Outcome: OutcomeSessionComplete}
	}

	if state.Terminal() {
		d := Decision{Outcome: OutcomeSessionComplete, Text: completionText(state, lastPose(state))}
		return e.gate(state, d, now)
	}

	pose := state.CurrentPose()

	if !ev.LandmarksFound {
		return e.emit(state, Decision{
			Outcome:     OutcomeNoPose,
			Text:        noPoseText,
			HasAccuracy: true,
			Pose:        pose,
		}, now)
	}

	if !ev.Similar {
		state.clearHold()
		return e.gate(state, Decision{
			Outcome:     OutcomeMisaligned,
			Text:        misalignedText,
			HasAccuracy: true,
			Pose:        pose,
		}, now)
	}

	if len(ev.WrongJoints) > 0 {
		state.clearHold()
		return e.gate(state, Decision{
			Outcome:     OutcomePartialCorrect,
			Text:        jointCorrectionText(ev.WrongJoints, maxJointCorrections),
			Accuracy:    ev.Accuracy,
			HasAccuracy: true,
			Pose:        pose,
		}, now)
	}

	if !state.holding() {
		state.HoldStartedAt = now
	}
	if now.Sub(state.HoldStartedAt) < e.HoldDuration {
		return e.gate(state, Decision{
			Outcome:     OutcomeHolding,
			Text:        holdingText,
			Accuracy:    ev.Accuracy,
			HasAccuracy: true,
			Pose:        pose,
		}, now)
	}

	state.clearHold()
	state.Index++

	if state.Mode == catalog.ModeSingle || state.Terminal() {
		return e.emit(state, Decision{
			Outcome:    OutcomeSessionComplete,
			Transition: true,
			Text:       completionText(state, pose),
		}, now)
	}

	next := state.CurrentPose()
	return e.emit(state, Decision{
		Outcome:    OutcomeAdvance,
		Transition: true,
		Text:       advanceText(pose, next),
		Pose:       next,
	}, now)
}

// CooldownElapsed reports whether a non-critical outcome may be emitted at now.
func (e Engine) CooldownElapsed(state *State, now time.Time) bool {
	if state.LastFeedbackAt.IsZero() {
		return true
	}
	return now.Sub(state.LastFeedbackAt) > e.Cooldown
}

func (e Engine) gate(state *State, d Decision, now time.Time) Decision {
	if !e.CooldownElapsed(state, now) {
		d.Text = ""
		d.Emit = false
		return d
	}
	return e.emit(state, d, now)
}

func (e Engine) emit(state *State, d Decision, now time.Time) Decision {
	d.Emit = true
	state.LastFeedbackAt = now
	return d
}

func lastPose(state *State) catalog.PoseID {
	if len(state.Sequence) == 0 {
		return ""
	}
	return state.Sequence[len(state.Sequence)-1]
}
