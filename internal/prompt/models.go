package prompt

import "github.com/kapu/reader-sim-go/internal/domain"

type TitleData struct {
	Title string
}

// TitleGenerationData carries the optional "\nAdditional context: ..." suffix
// appended right after the original title.
type TitleGenerationData struct {
	Title             string
	AdditionalContext string
}

type ReviewData struct {
	PersonaName        string
	PersonaDescription string
	Characteristics    string
	Title              string
}

func NewReviewData(p domain.Persona, title string) ReviewData {
	return ReviewData{
		PersonaName:        p.Name,
		PersonaDescription: p.Description,
		Characteristics:    p.CharacteristicsText(),
		Title:              title,
	}
}

// AdditionalContext formats enrichment text for the title-generation prompt.
func AdditionalContext(enriched string) string {
	if enriched == "" {
		return ""
	}
	return "\nAdditional context: " + enriched
}
