package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kapu/reader-sim-go/internal/constants"
	"github.com/kapu/reader-sim-go/internal/domain"
	"github.com/kapu/reader-sim-go/internal/llm"
	"github.com/kapu/reader-sim-go/internal/parser"
	"github.com/kapu/reader-sim-go/internal/prompt"
	"github.com/kapu/reader-sim-go/internal/service/cache"
	"github.com/kapu/reader-sim-go/internal/util"
)

// SufficiencyChecker asks the model whether a title carries enough context
// to write variants from. It never blocks the pipeline.
type SufficiencyChecker struct {
	llm     llm.Client
	prompts *prompt.PromptBuilder
	cache   cache.Store
	policy  FallbackPolicy
	logger  *zap.Logger
}

func NewSufficiencyChecker(client llm.Client, prompts *prompt.PromptBuilder, store cache.Store, policy FallbackPolicy, logger *zap.Logger) *SufficiencyChecker {
	if store == nil {
		store = cache.Nop{}
	}
	return &SufficiencyChecker{
		llm:     client,
		prompts: prompts,
		cache:   store,
		policy:  policy,
		logger:  logger,
	}
}

func (s *SufficiencyChecker) Check(ctx context.Context, title string, cfg domain.LLMConfig) domain.SufficiencyResult {
	lang := cfg.Lang()
	key := cache.Key("sufficiency", cfg.Provider, cfg.APIURL, cfg.Model, lang.String(), title)

	var cached domain.SufficiencyResult
	if ok, err := s.cache.Get(ctx, key, &cached); err == nil && ok {
		s.logger.Debug("Sufficiency cache hit", zap.String("title", title))
		return cached
	}

	p, err := s.prompts.Render(prompt.TemplateInformationSufficiency, lang, prompt.TitleData{Title: title})
	if err != nil {
		s.logger.Error("Failed to render sufficiency prompt", zap.Error(err))
		return s.onFailure(title, lang)
	}

	raw, err := s.llm.Complete(ctx, p.System, p.User, cfg)
	if err != nil {
		s.logger.Warn("Sufficiency check failed, using fallback verdict",
			zap.String("title", title),
			zap.Error(err),
		)
		return s.onFailure(title, lang)
	}

	result, parsed := parser.ParseSufficiencyOK(raw)
	result.Reason = strings.TrimSpace(result.Reason)
	result.Reason = util.TruncateString(result.Reason, constants.AIInputLimits.MaxReasonLength)

	// A default verdict says nothing about the title; the next run asks again.
	if parsed {
		if err := s.cache.Set(ctx, key, result, constants.CacheTTL.Sufficiency); err != nil {
			s.logger.Warn("Failed to cache sufficiency verdict", zap.Error(err))
		}
	} else {
		s.logger.Warn("Unreadable sufficiency answer, using default verdict", zap.String("title", title))
	}

	s.logger.Debug("Sufficiency checked",
		zap.String("title", title),
		zap.Bool("sufficient", result.IsSufficient),
	)
	return result
}

func (s *SufficiencyChecker) onFailure(title string, lang domain.Language) domain.SufficiencyResult {
	if s.policy.HeuristicOnFailure {
		return HeuristicSufficiency(title, lang)
	}
	return domain.SufficiencyResult{
		IsSufficient: s.policy.SufficiencyFailOpen,
		Reason:       prompt.SufficiencyFailureReason(lang),
	}
}

// HeuristicSufficiency judges a title without the model: fewer than two
// words or four characters is too little to go on.
func HeuristicSufficiency(title string, lang domain.Language) domain.SufficiencyResult {
	trimmed := strings.TrimSpace(title)
	if util.WordCount(trimmed) < 2 || utf8.RuneCountInString(trimmed) < 4 {
		reason := "Title is too short to infer topic and audience"
		if lang == domain.LanguageChinese {
			reason = "标题过短，无法判断主题和受众"
		}
		return domain.SufficiencyResult{IsSufficient: false, Reason: reason}
	}
	return domain.SufficiencyResult{IsSufficient: true, Reason: prompt.SufficiencyFailureReason(lang)}
}
