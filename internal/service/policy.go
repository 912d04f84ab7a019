package service

import (
	"math/rand/v2"

	"github.com/kapu/reader-sim-go/internal/constants"
	"github.com/kapu/reader-sim-go/internal/domain"
	"github.com/kapu/reader-sim-go/internal/prompt"
)

// FallbackPolicy collects every default the pipeline substitutes when a
// model call fails or answers nonsense.
type FallbackPolicy struct {
	// SufficiencyFailOpen reports a failed check as sufficient.
	SufficiencyFailOpen bool
	// HeuristicOnFailure judges very short titles insufficient when the
	// check itself failed. Takes precedence over SufficiencyFailOpen.
	HeuristicOnFailure bool
	// EnrichmentOnFailure is returned when neither search nor the model
	// produced context.
	EnrichmentOnFailure string
	ScorePolicy         func() int
	DefaultTags         func(lang domain.Language) []string
	DefaultSuggestions  func(lang domain.Language) []string
	FallbackVariants    func(title string, lang domain.Language) []domain.VariantTitle
	// AbortOnAuthFailure stops the run on 401/403 instead of synthesizing
	// results from defaults.
	AbortOnAuthFailure bool
}

func DefaultFallbackPolicy() FallbackPolicy {
	return FallbackPolicy{
		SufficiencyFailOpen: true,
		EnrichmentOnFailure: "",
		ScorePolicy:         RandomScore,
		DefaultTags:         prompt.DefaultTags,
		DefaultSuggestions:  prompt.DefaultSuggestions,
		FallbackVariants:    prompt.FallbackVariants,
		AbortOnAuthFailure:  true,
	}
}

// RandomScore draws uniformly from the fallback range [7, 9].
func RandomScore() int {
	lo, hi := constants.ScoreRange.FallbackMin, constants.ScoreRange.FallbackMax
	return lo + rand.IntN(hi-lo+1)
}

// FixedScore returns a policy that always yields n.
func FixedScore(n int) func() int {
	return func() int { return n }
}

// ScorePolicyByName maps the SCORE_FALLBACK setting onto a policy.
func ScorePolicyByName(name string) func() int {
	if name == "fixed" {
		return FixedScore(constants.ScoreRange.FallbackFixed)
	}
	return RandomScore
}

func (p FallbackPolicy) score() int {
	if p.ScorePolicy == nil {
		return RandomScore()
	}
	return p.ScorePolicy()
}

func (p FallbackPolicy) tags(lang domain.Language) []string {
	if p.DefaultTags == nil {
		return prompt.DefaultTags(lang)
	}
	return p.DefaultTags(lang)
}

func (p FallbackPolicy) suggestions(lang domain.Language) []string {
	if p.DefaultSuggestions == nil {
		return prompt.DefaultSuggestions(lang)
	}
	return p.DefaultSuggestions(lang)
}

func (p FallbackPolicy) variants(title string, lang domain.Language) []domain.VariantTitle {
	if p.FallbackVariants != nil {
		if v := p.FallbackVariants(title, lang); len(v) > 0 {
			return v
		}
	}
	return prompt.FallbackVariants(title, lang)
}
