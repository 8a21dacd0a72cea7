// Package catalog holds the fixed pose sequences a coaching session can run.
package catalog

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Mode selects how a session walks the catalog.
type Mode string

const (
	ModeSingle  Mode = "single"
	ModeRoutine Mode = "routine"
)

// DefaultRoutineName is spoken when the client does not name its routine.
const DefaultRoutineName = "Surya Namaskara"

// PoseID is the reference-pose identifier understood by the comparator.
type PoseID string

const (
	Pranamasana              PoseID = "pranamasana"
	Hastauttanasana          PoseID = "hastauttanasana"
	Hastapadasana            PoseID = "hastapadasana"
	RightAshwaSanchalanasana PoseID = "right_ashwa_sanchalanasana"
	Dandasana                PoseID = "dandasana"
	AshtangaNamaskara        PoseID = "ashtanga_namaskara"
	Bhujangasana             PoseID = "bhujangasana"
	AdhoMukhaSvanasana       PoseID = "adho_mukha_svanasana"
	LeftAshwaSanchalanasana  PoseID = "left_ashwa_sanchalanasana"
)

var titleCaser = cases.Title(language.English)

// DisplayName is the spoken form of the pose ("right ashwa sanchalanasana").
func (p PoseID) DisplayName() string {
	return strings.ReplaceAll(string(p), "_", " ")
}

// Title is the display name in title case, used by the HTTP catalog listing.
func (p PoseID) Title() string {
	return titleCaser.String(p.DisplayName())
}

var suryaNamaskar = []PoseID{
	Pranamasana,
	Hastauttanasana,
	Hastapadasana,
	RightAshwaSanchalanasana,
	Dandasana,
	AshtangaNamaskara,
	Bhujangasana,
	AdhoMukhaSvanasana,
	LeftAshwaSanchalanasana,
	Hastapadasana,
	Hastauttanasana,
	Pranamasana,
}

// External asana ids as sent by clients in single-pose mode.
var poseByAsanaID = map[int]PoseID{
	1:  Pranamasana,
	2:  Hastauttanasana,
	3:  Hastapadasana,
	4:  RightAshwaSanchalanasana,
	5:  Dandasana,
	6:  AshtangaNamaskara,
	7:  Bhujangasana,
	8:  AdhoMukhaSvanasana,
	9:  LeftAshwaSanchalanasana,
	10: Hastapadasana,
	11: Hastauttanasana,
	12: Pranamasana,
}

type InvalidModeError struct {
	Mode string
}

func (e *InvalidModeError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("invalid mode %q (want single or routine)", e.Mode)
}

type UnknownPoseIDError struct {
	ID      int
	Missing bool
}

func (e *UnknownPoseIDError) Error() string {
	if e == nil {
		return ""
	}
	if e.Missing {
		return "asanaIds must contain at least one id in single mode"
	}
	return fmt.Sprintf("unknown asana id %d", e.ID)
}

// ParseMode maps a wire mode string onto a Mode.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeSingle:
		return ModeSingle, nil
	case ModeRoutine:
		return ModeRoutine, nil
	default:
		return "", &InvalidModeError{Mode: raw}
	}
}

// ResolveSequence returns the ordered poses a session in mode will walk.
// Single mode uses ids[0]; routine mode ignores ids. The returned slice is
// always freshly allocated.
func ResolveSequence(mode string, ids []int) ([]PoseID, error) {
	m, err := ParseMode(mode)
	if err != nil {
		return nil, err
	}
	if m == ModeRoutine {
		out := make([]PoseID, len(suryaNamaskar))
		copy(out, suryaNamaskar)
		return out, nil
	}
	if len(ids) == 0 {
		return nil, &UnknownPoseIDError{Missing: true}
	}
	pose, ok := LookupAsana(ids[0])
	if !ok {
		return nil, &UnknownPoseIDError{ID: ids[0]}
	}
	return []PoseID{pose}, nil
}

func LookupAsana(id int) (PoseID, bool) {
	p, ok := poseByAsanaID[id]
	return p, ok
}

// RoutineName returns the trimmed client-supplied name or the default.
func RoutineName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultRoutineName
	}
	return name
}
