// Package feedback implements the per-session coaching state machine: it
// decides, frame by frame, what to say, when to advance to the next pose and
// when to stay quiet.
package feedback

import (
	"time"

	"github.com/vango-go/asana-coach/pkg/coach/catalog"
	"github.com/vango-go/asana-coach/pkg/coach/perception"
)

// State is the progress of one session. It is owned by a single connection
// and must not be shared.
type State struct {
	Mode        catalog.Mode
	RoutineName string
	Sequence    []catalog.PoseID
	Index       int

	// HoldStartedAt is zero when no hold is in progress.
	HoldStartedAt time.Time
	// LastFeedbackAt is zero until the first emitted outcome.
	LastFeedbackAt time.Time
}

// NewState builds the initial state for a resolved sequence. The sequence is
// copied so states never alias each other.
func NewState(mode catalog.Mode, sequence []catalog.PoseID, routineName string) *State {
	seq := make([]catalog.PoseID, len(sequence))
	copy(seq, sequence)
	return &State{
		Mode:        mode,
		RoutineName: catalog.RoutineName(routineName),
		Sequence:    seq,
	}
}

// Terminal reports whether every pose in the sequence has been completed.
func (s *State) Terminal() bool {
	return s.Index >= len(s.Sequence)
}

// CurrentPose is the pose being evaluated, or "" once terminal.
func (s *State) CurrentPose() catalog.PoseID {
	if s.Terminal() || s.Index < 0 {
		return ""
	}
	return s.Sequence[s.Index]
}

func (s *State) holding() bool {
	return !s.HoldStartedAt.IsZero()
}

func (s *State) clearHold() {
	s.HoldStartedAt = time.Time{}
}

// Evaluation is what perception produced for one frame.
type Evaluation struct {
	LandmarksFound bool
	Similar        bool
	Accuracy       float64
	WrongJoints    []perception.WrongJoint
}

// NoLandmarks is the evaluation for a frame where no body was found.
func NoLandmarks() Evaluation {
	return Evaluation{}
}

// FromVerdict lifts a comparator verdict into an evaluation.
func FromVerdict(v perception.Verdict) Evaluation {
	return Evaluation{
		LandmarksFound: true,
		Similar:        v.Similar,
		Accuracy:       v.Accuracy,
		WrongJoints:    v.WrongJoints,
	}
}
