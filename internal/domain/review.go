package domain

import "time"

// Review is one persona's reaction to one title.
type Review struct {
	Seq         int       `json:"seq"`
	Title       string    `json:"title"`
	PersonaID   string    `json:"personaId"`
	PersonaName string    `json:"personaName"`
	Score       int       `json:"score"`
	Comment     string    `json:"comment"`
	Tags        []string  `json:"tags"`
	Suggestions []string  `json:"suggestions"`
	Fallback    bool      `json:"fallback,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
