package domain

import "strings"

// Persona is a simulated reader. Immutable within a run.
type Persona struct {
	ID              string   `json:"id" yaml:"id"`
	Name            string   `json:"name" yaml:"name"`
	Description     string   `json:"description" yaml:"description"`
	Characteristics []string `json:"characteristics" yaml:"characteristics"`
	Category        string   `json:"category,omitempty" yaml:"category"`
	Color           string   `json:"color,omitempty" yaml:"color"`
	Icon            string   `json:"icon,omitempty" yaml:"icon"`
}

// CharacteristicsText joins traits the way they are quoted in prompts.
func (p Persona) CharacteristicsText() string {
	return strings.Join(p.Characteristics, ", ")
}
