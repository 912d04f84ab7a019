package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/kapu/reader-sim-go/internal/domain"
	"github.com/kapu/reader-sim-go/internal/llm"
	"github.com/kapu/reader-sim-go/internal/parser"
	"github.com/kapu/reader-sim-go/internal/prompt"
)

// VariantHooks lets the caller observe the generator's internal stages.
// Every field is optional.
type VariantHooks struct {
	OnChecked    func(domain.SufficiencyResult)
	OnEnriching  func()
	OnEnriched   func(text string)
	OnGenerating func()
}

// VariantOutcome is the generator's full result.
type VariantOutcome struct {
	Variants     []domain.VariantTitle
	Sufficiency  domain.SufficiencyResult
	EnrichedInfo string
}

type VariantGenerator struct {
	llm         llm.Client
	prompts     *prompt.PromptBuilder
	sufficiency *SufficiencyChecker
	enrichment  *EnrichmentService
	policy      FallbackPolicy
	logger      *zap.Logger
}

func NewVariantGenerator(client llm.Client, prompts *prompt.PromptBuilder, sufficiency *SufficiencyChecker, enrichment *EnrichmentService, policy FallbackPolicy, logger *zap.Logger) *VariantGenerator {
	return &VariantGenerator{
		llm:         client,
		prompts:     prompts,
		sufficiency: sufficiency,
		enrichment:  enrichment,
		policy:      policy,
		logger:      logger,
	}
}

// Generate returns at least one variant of title. fallback may be nil, in
// which case the policy's deterministic variants are used.
func (g *VariantGenerator) Generate(ctx context.Context, title string, cfg domain.LLMConfig, fallback func(string) []domain.VariantTitle, hooks VariantHooks) []domain.VariantTitle {
	return g.GenerateOutcome(ctx, title, cfg, fallback, hooks).Variants
}

func (g *VariantGenerator) GenerateOutcome(ctx context.Context, title string, cfg domain.LLMConfig, fallback func(string) []domain.VariantTitle, hooks VariantHooks) VariantOutcome {
	lang := cfg.Lang()
	var out VariantOutcome

	out.Sufficiency = g.sufficiency.Check(ctx, title, cfg)
	if hooks.OnChecked != nil {
		hooks.OnChecked(out.Sufficiency)
	}

	if !out.Sufficiency.IsSufficient {
		if hooks.OnEnriching != nil {
			hooks.OnEnriching()
		}
		out.EnrichedInfo = g.enrichment.Enrich(ctx, title, cfg)
		if out.EnrichedInfo != "" && hooks.OnEnriched != nil {
			hooks.OnEnriched(out.EnrichedInfo)
		}
	}

	if hooks.OnGenerating != nil {
		hooks.OnGenerating()
	}

	fallbackFor := func() []domain.VariantTitle {
		if fallback != nil {
			if v := fallback(title); len(v) > 0 {
				return v
			}
		}
		return g.policy.variants(title, lang)
	}

	p, err := g.prompts.Render(prompt.TemplateTitleGeneration, lang, prompt.TitleGenerationData{
		Title:             title,
		AdditionalContext: prompt.AdditionalContext(out.EnrichedInfo),
	})
	if err != nil {
		g.logger.Error("Failed to render title generation prompt", zap.Error(err))
		out.Variants = fallbackFor()
		return out
	}

	raw, err := g.llm.Complete(ctx, p.System, p.User, cfg)
	if err != nil {
		g.logger.Warn("Variant generation failed, using fallback titles",
			zap.String("title", title),
			zap.Error(err),
		)
		out.Variants = fallbackFor()
		return out
	}

	out.Variants = parser.ParseVariantList(raw, fallbackFor)
	if len(out.Variants) == 0 {
		out.Variants = g.policy.variants(title, lang)
	}

	g.logger.Debug("Variants generated",
		zap.String("title", title),
		zap.Int("count", len(out.Variants)),
	)
	return out
}
