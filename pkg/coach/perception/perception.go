// Package perception defines the pose detection and comparison collaborators
// used by coaching sessions.
package perception

import (
	"context"

	"github.com/vango-go/asana-coach/pkg/coach/catalog"
)

// Landmark is one detected body keypoint in normalized image coordinates.
type Landmark struct {
	ID         int     `json:"id"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z,omitempty"`
	Visibility float64 `json:"visibility,omitempty"`
}

// Landmarks is the detector output for one frame. Empty means no pose.
type Landmarks []Landmark

// WrongJoint is a single correction. Key identifies the joint to the
// comparator, Joint is its spoken name, Direction is "increase" or "decrease".
type WrongJoint struct {
	Key       string `json:"key"`
	Joint     string `json:"joint"`
	Direction string `json:"direction"`
}

// Verdict is the comparator result for one frame. WrongJoints keeps the
// producer's priority order.
type Verdict struct {
	Similar     bool
	Accuracy    float64
	WrongJoints []WrongJoint
}

type Detector interface {
	Detect(ctx context.Context, image []byte) (Landmarks, error)
}

type Comparator interface {
	Compare(ctx context.Context, landmarks Landmarks, pose catalog.PoseID) (Verdict, error)
}

// DetectorFunc adapts a function to Detector.
type DetectorFunc func(ctx context.Context, image []byte) (Landmarks, error)

func (f DetectorFunc) Detect(ctx context.Context, image []byte) (Landmarks, error) {
	return f(ctx, image)
}

// ComparatorFunc adapts a function to Comparator.
type ComparatorFunc func(ctx context.Context, landmarks Landmarks, pose catalog.PoseID) (Verdict, error)

func (f ComparatorFunc) Compare(ctx context.Context, landmarks Landmarks, pose catalog.PoseID) (Verdict, error) {
	return f(ctx, landmarks, pose)
}
