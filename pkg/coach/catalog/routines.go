package catalog

// Asana is one step of a published routine.
type Asana struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	SanskritName string `json:"sanskritName"`
	Pose         PoseID `json:"pose"`
}

type Routine struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Difficulty  string  `json:"difficulty"`
	Asanas      []Asana `json:"asanas"`
}

// asanaLabels are the names clients display for each asana id. Id 12 is
// listed as Tadasana even though it is compared against pranamasana.
var asanaLabels = map[int]struct{ name, sanskrit string }{
	1:  {"Pranamasana", "Prayer Pose"},
	2:  {"Hastauttanasana", "Raised Arms Pose"},
	3:  {"Hastapadasana", "Hand to Foot Pose"},
	4:  {"Ashwa Sanchalanasana", "Equestrian Pose"},
	5:  {"Dandasana", "Stick Pose"},
	6:  {"Ashtanga Namaskara", "Eight-Limbed Salutation"},
	7:  {"Bhujangasana", "Cobra Pose"},
	8:  {"Adho Mukha Svanasana", "Downward-Facing Dog Pose"},
	9:  {"Ashwa Sanchalanasana", "Equestrian Pose"},
	10: {"Hastapadasana", "Hand to Foot Pose"},
	11: {"Hastauttanasana", "Raised Arms Pose"},
	12: {"Tadasana", "Mountain Pose"},
}

// Routines lists the routines clients can offer. Callers own the result.
func Routines() []Routine {
	asanas := make([]Asana, 0, len(poseByAsanaID))
	for id := 1; id <= len(poseByAsanaID); id++ {
		pose := poseByAsanaID[id]
		label := asanaLabels[id]
		asanas = append(asanas, Asana{
			ID:           id,
			Name:         label.name,
			SanskritName: label.sanskrit,
			Pose:         pose,
		})
	}
	return []Routine{{
		ID:          "surya-namaskar",
		Name:        "Surya Namaskar",
		Description: "A sequence of 12 yoga poses to greet the sun.",
		Difficulty:  "intermediate",
		Asanas:      asanas,
	}}
}
