package service

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/kapu/reader-sim-go/internal/constants"
	"github.com/kapu/reader-sim-go/internal/domain"
	"github.com/kapu/reader-sim-go/internal/llm"
	"github.com/kapu/reader-sim-go/internal/prompt"
	"github.com/kapu/reader-sim-go/internal/util"
)

// ReviewProgress is reported once per finished (title, persona) review.
// Completed never decreases between calls.
type ReviewProgress struct {
	Completed int
	Total     int
	Title     string
	Persona   string
}

type ReviewEngine struct {
	llm         llm.Client
	prompts     *prompt.PromptBuilder
	policy      FallbackPolicy
	concurrency int
	logger      *zap.Logger
	now         func() time.Time
}

func NewReviewEngine(client llm.Client, prompts *prompt.PromptBuilder, policy FallbackPolicy, concurrency int, logger *zap.Logger) *ReviewEngine {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ReviewEngine{
		llm:         client,
		prompts:     prompts,
		policy:      policy,
		concurrency: concurrency,
		logger:      logger,
		now:         time.Now,
	}
}

// ReviewTitle runs the comment, tags, suggestions and score calls for one
// pair. If any call fails the whole review is synthesized from defaults.
func (r *ReviewEngine) ReviewTitle(ctx context.Context, title string, persona domain.Persona, cfg domain.LLMConfig) domain.Review {
	review, err := r.review(ctx, title, persona, cfg)
	if err != nil {
		r.logger.Warn("Review failed, using fallback review",
			zap.String("title", title),
			zap.String("persona", persona.ID),
			zap.Error(err),
		)
		return r.fallbackReview(title, persona, cfg.Lang())
	}
	return review
}

func (r *ReviewEngine) review(ctx context.Context, title string, persona domain.Persona, cfg domain.LLMConfig) (domain.Review, error) {
	lang := cfg.Lang()
	data := prompt.NewReviewData(persona, title)

	comment, err := r.ask(ctx, prompt.TemplateReviewComment, data, cfg)
	if err != nil {
		return domain.Review{}, err
	}
	tagsRaw, err := r.ask(ctx, prompt.TemplateReviewTags, data, cfg)
	if err != nil {
		return domain.Review{}, err
	}
	suggestionsRaw, err := r.ask(ctx, prompt.TemplateReviewSuggestions, data, cfg)
	if err != nil {
		return domain.Review{}, err
	}
	scoreRaw, err := r.ask(ctx, prompt.TemplateReviewScore, data, cfg)
	if err != nil {
		return domain.Review{}, err
	}

	tags := util.SplitList(tagsRaw)
	if len(tags) == 0 {
		tags = r.policy.tags(lang)
	}
	suggestions := util.SplitList(suggestionsRaw)
	if len(suggestions) == 0 {
		suggestions = r.policy.suggestions(lang)
	}

	score, ok := ParseScore(scoreRaw)
	if !ok {
		score = r.policy.score()
		r.logger.Debug("Unparsable score, using policy score",
			zap.String("raw", util.TruncateString(scoreRaw, 40)),
			zap.Int("score", score),
		)
	}

	return domain.Review{
		Title:       title,
		PersonaID:   persona.ID,
		PersonaName: persona.Name,
		Score:       ClampScore(score),
		Comment:     strings.TrimSpace(comment),
		Tags:        tags,
		Suggestions: suggestions,
		Timestamp:   r.now(),
	}, nil
}

func (r *ReviewEngine) ask(ctx context.Context, name prompt.TemplateName, data prompt.ReviewData, cfg domain.LLMConfig) (string, error) {
	p, err := r.prompts.Render(name, cfg.Lang(), data)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return r.llm.Complete(ctx, p.System, p.User, cfg)
}

func (r *ReviewEngine) fallbackReview(title string, persona domain.Persona, lang domain.Language) domain.Review {
	return domain.Review{
		Title:       title,
		PersonaID:   persona.ID,
		PersonaName: persona.Name,
		Score:       ClampScore(r.policy.score()),
		Comment:     prompt.FallbackComment(persona, title, lang),
		Tags:        r.policy.tags(lang),
		Suggestions: r.policy.suggestions(lang),
		Fallback:    true,
		Timestamp:   r.now(),
	}
}

// ReviewAll reviews the full pool × personas cross product, titles outer and
// personas inner. The result has exactly one review per pair in that order,
// whatever the worker count.
func (r *ReviewEngine) ReviewAll(ctx context.Context, titles []string, personas []domain.Persona, cfg domain.LLMConfig, onStep func(ReviewProgress)) []domain.Review {
	total := len(titles) * len(personas)
	results := make([]domain.Review, total)
	if total == 0 {
		return results
	}

	var (
		mu        sync.Mutex
		completed int
	)

	p := pool.New().WithMaxGoroutines(r.concurrency)
	for ti, title := range titles {
		for pi, persona := range personas {
			seq := ti*len(personas) + pi
			title, persona := title, persona
			p.Go(func() {
				review := r.ReviewTitle(ctx, title, persona, cfg)
				review.Seq = seq

				mu.Lock()
				defer mu.Unlock()
				results[seq] = review
				completed++
				if onStep != nil {
					onStep(ReviewProgress{
						Completed: completed,
						Total:     total,
						Title:     title,
						Persona:   persona.Name,
					})
				}
			})
		}
	}
	p.Wait()

	r.logger.Info("Reviews completed",
		zap.Int("titles", len(titles)),
		zap.Int("personas", len(personas)),
		zap.Int("reviews", total),
	)
	return results
}

// ParseScore reads a leading integer the way a lenient number parser does:
// optional whitespace and sign, then digits up to the first non-digit.
func ParseScore(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}

	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}

	digits := strings.TrimLeft(s[:end], "0")
	if digits == "" {
		digits = "0"
	}
	if len(digits) > 9 {
		digits = "999999999"
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}

func ClampScore(score int) int {
	return util.Clamp(score, constants.ScoreRange.Min, constants.ScoreRange.Max)
}

// Ranked returns a copy sorted by descending score; ties keep their
// original order.
func Ranked(reviews []domain.Review) []domain.Review {
	ranked := slices.Clone(reviews)
	slices.SortStableFunc(ranked, func(a, b domain.Review) int {
		return b.Score - a.Score
	})
	return ranked
}
