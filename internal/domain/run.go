package domain

import "time"

// RunResult is everything a completed pipeline run produced.
type RunResult struct {
	RunID         string            `json:"runId"`
	OriginalTitle string            `json:"originalTitle"`
	Language      Language          `json:"language"`
	Model         string            `json:"model"`
	Sufficiency   SufficiencyResult `json:"sufficiency"`
	EnrichedInfo  string            `json:"enrichedInfo,omitempty"`
	Variants      []VariantTitle    `json:"variants"`
	Personas      []Persona         `json:"personas"`
	Reviews       []Review          `json:"reviews"`
	StartedAt     time.Time         `json:"startedAt"`
	FinishedAt    time.Time         `json:"finishedAt"`
}

// Pool returns the reviewed titles, original first.
func (r *RunResult) Pool() []string {
	return Pool(r.OriginalTitle, r.Variants)
}
