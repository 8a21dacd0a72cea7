package feedback

import (
	"fmt"
	"strings"

	"github.com/vango-go/asana-coach/pkg/coach/catalog"
	"github.com/vango-go/asana-coach/pkg/coach/perception"
)

const (
	noPoseText     = "Position unclear. Please move closer or try again."
	misalignedText = "Adjust your position."
	holdingText    = "Perfect pose! Hold it."
)

func jointCorrectionText(joints []perception.WrongJoint, limit int) string {
	parts := make([]string, 0, limit)
	for _, j := range joints {
		if len(parts) == limit {
			break
		}
		name := strings.ReplaceAll(strings.TrimSpace(j.Joint), "_", " ")
		parts = append(parts, fmt.Sprintf("%s angle at %s", strings.TrimSpace(j.Direction), name))
	}
	return strings.Join(parts, ". ")
}

func advanceText(done, next catalog.PoseID) string {
	return fmt.Sprintf("%s complete. Next pose is %s.", done.DisplayName(), next.DisplayName())
}

func completionText(state *State, pose catalog.PoseID) string {
	if state.Mode == catalog.ModeSingle {
		return fmt.Sprintf("%s complete. Well done.", pose.DisplayName())
	}
	return fmt.Sprintf("%s complete. Well done.", catalog.RoutineName(state.RoutineName))
}

// IntroText is spoken when a session is initialized.
func IntroText(state *State) string {
	pose := state.CurrentPose()
	if state.Mode == catalog.ModeSingle {
		return fmt.Sprintf("Starting %s. Get into position.", pose.DisplayName())
	}
	return fmt.Sprintf("Starting %s sequence. First pose is %s.", catalog.RoutineName(state.RoutineName), pose.DisplayName())
}
