// Package pipeline drives one title through sufficiency checking, enrichment,
// variant generation and persona review while reporting progress.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kapu/reader-sim-go/internal/constants"
	"github.com/kapu/reader-sim-go/internal/domain"
	"github.com/kapu/reader-sim-go/internal/llm"
	"github.com/kapu/reader-sim-go/internal/service"
	"github.com/kapu/reader-sim-go/pkg/errors"
)

// Callbacks observe a run. Both are optional and are invoked from the
// goroutine that produced the event.
type Callbacks struct {
	OnProgress     func(domain.ProgressState)
	OnEnrichedInfo func(text string)
}

type Runner struct {
	variants   *service.VariantGenerator
	reviews    *service.ReviewEngine
	policy     service.FallbackPolicy
	validate   *validator.Validate
	resetDelay time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewRunner builds a runner. A positive resetDelay returns the progress
// tracker to IDLE that long after completion; zero leaves it at COMPLETED.
func NewRunner(variants *service.VariantGenerator, reviews *service.ReviewEngine, policy service.FallbackPolicy, resetDelay time.Duration, logger *zap.Logger) *Runner {
	return &Runner{
		variants:   variants,
		reviews:    reviews,
		policy:     policy,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		resetDelay: resetDelay,
		logger:     logger,
		now:        time.Now,
	}
}

// Run executes the whole pipeline. Component failures degrade to fallbacks;
// Run itself only fails on invalid input, cancellation, or (when the policy
// says so) credentials the endpoint keeps rejecting. Partial results are
// discarded on failure.
func (r *Runner) Run(ctx context.Context, title string, personas []domain.Persona, cfg domain.LLMConfig, cb Callbacks) (*domain.RunResult, error) {
	title = strings.TrimSpace(title)
	if err := r.validateInput(title, personas, cfg); err != nil {
		return nil, err
	}

	lang := cfg.Lang()
	tracker := NewTracker(cb.OnProgress, r.logger)
	started := r.now()

	var watch *llm.FailureWatch
	if r.policy.AbortOnAuthFailure {
		ctx, watch = llm.WithFailureWatch(ctx)
		defer watch.Stop()
	}

	fail := func(err error) (*domain.RunResult, error) {
		tracker.Reset()
		r.logger.Error("Pipeline run aborted", zap.String("title", title), zap.Error(err))
		return nil, err
	}
	aborted := func() error {
		if watch != nil {
			if err := watch.Err(); err != nil {
				return err
			}
		}
		return ctx.Err()
	}

	provisional := constants.PipelineConfig.ProvisionalSteps
	stage := func(s domain.Stage, step int) {
		tracker.Update(domain.ProgressState{
			Stage:        s,
			CurrentStep:  step,
			TotalSteps:   provisional,
			CurrentTitle: title,
			Description:  describe(s, lang, title, ""),
		})
	}

	stage(domain.StageCheckingInfo, 1)
	outcome := r.variants.GenerateOutcome(ctx, title, cfg, nil, service.VariantHooks{
		OnEnriching: func() { stage(domain.StageEnrichingInfo, 2) },
		OnEnriched: func(text string) {
			if cb.OnEnrichedInfo != nil {
				cb.OnEnrichedInfo(text)
			}
		},
		OnGenerating: func() { stage(domain.StageGeneratingTitles, 3) },
	})
	if err := aborted(); err != nil {
		return fail(err)
	}

	pool := domain.Pool(title, outcome.Variants)
	total := len(pool) * len(personas)
	tracker.Update(domain.ProgressState{
		Stage:       domain.StageGeneratingReview,
		CurrentStep: 0,
		TotalSteps:  total,
		Description: describe(domain.StageGeneratingReview, lang, pool[0], personas[0].Name),
	})

	reviews := r.reviews.ReviewAll(ctx, pool, personas, cfg, func(p service.ReviewProgress) {
		tracker.Update(domain.ProgressState{
			Stage:          domain.StageGeneratingReview,
			CurrentStep:    p.Completed,
			TotalSteps:     p.Total,
			CurrentTitle:   p.Title,
			CurrentPersona: p.Persona,
			Description:    describe(domain.StageGeneratingReview, lang, p.Title, p.Persona),
		})
	})
	if err := aborted(); err != nil {
		return fail(err)
	}

	tracker.Update(domain.ProgressState{
		Stage:       domain.StageCompleted,
		CurrentStep: total,
		TotalSteps:  total,
		Description: describe(domain.StageCompleted, lang, "", ""),
	})
	if r.resetDelay > 0 {
		time.AfterFunc(r.resetDelay, tracker.Reset)
	}

	result := &domain.RunResult{
		RunID:         uuid.NewString(),
		OriginalTitle: title,
		Language:      lang,
		Model:         cfg.Model,
		Sufficiency:   outcome.Sufficiency,
		EnrichedInfo:  outcome.EnrichedInfo,
		Variants:      outcome.Variants,
		Personas:      personas,
		Reviews:       reviews,
		StartedAt:     started,
		FinishedAt:    r.now(),
	}

	r.logger.Info("Pipeline run completed",
		zap.String("run_id", result.RunID),
		zap.String("title", title),
		zap.Int("variants", len(outcome.Variants)),
		zap.Int("reviews", len(reviews)),
		zap.Duration("elapsed", result.FinishedAt.Sub(started)),
	)
	return result, nil
}

func (r *Runner) validateInput(title string, personas []domain.Persona, cfg domain.LLMConfig) error {
	if title == "" {
		return errors.NewValidationError("title must not be empty", "title", title)
	}
	if n := utf8.RuneCountInString(title); n > constants.AIInputLimits.MaxTitleLength {
		return errors.NewValidationError(
			fmt.Sprintf("title is %d characters, limit is %d", n, constants.AIInputLimits.MaxTitleLength),
			"title", n)
	}
	if len(personas) == 0 {
		return errors.NewValidationError("at least one persona must be selected", "personas", 0)
	}

	if err := r.validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errors.NewValidationError(
				fmt.Sprintf("invalid LLM configuration: %s failed %q", fe.Field(), fe.Tag()),
				fe.Field(), fe.Value())
		}
		return errors.NewValidationError("invalid LLM configuration", "config", err.Error())
	}
	return nil
}
