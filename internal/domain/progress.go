package domain

// Stage is a pipeline phase. Declaration order is the only legal forward
// order.
type Stage string

const (
	StageIdle             Stage = "idle"
	StageCheckingInfo     Stage = "checking_info"
	StageEnrichingInfo    Stage = "enriching_info"
	StageGeneratingTitles Stage = "generating_titles"
	StageGeneratingReview Stage = "generating_reviews"
	StageCompleted        Stage = "completed"
)

var stageOrder = map[Stage]int{
	StageIdle:             0,
	StageCheckingInfo:     1,
	StageEnrichingInfo:    2,
	StageGeneratingTitles: 3,
	StageGeneratingReview: 4,
	StageCompleted:        5,
}

// Order returns the stage's position, -1 for unknown stages.
func (s Stage) Order() int {
	if o, ok := stageOrder[s]; ok {
		return o
	}
	return -1
}

// ProgressState is a snapshot emitted to progress observers.
type ProgressState struct {
	Stage          Stage  `json:"stage"`
	CurrentStep    int    `json:"currentStep"`
	TotalSteps     int    `json:"totalSteps"`
	CurrentTitle   string `json:"currentTitle,omitempty"`
	CurrentPersona string `json:"currentPersona,omitempty"`
	Description    string `json:"stageDescription"`
}
