package pipeline

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/kapu/reader-sim-go/internal/domain"
	"github.com/kapu/reader-sim-go/internal/llm"
	"github.com/kapu/reader-sim-go/internal/llm/llmtest"
	"github.com/kapu/reader-sim-go/internal/prompt"
	"github.com/kapu/reader-sim-go/internal/service"
	"github.com/kapu/reader-sim-go/pkg/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testCfg = domain.LLMConfig{
	APIURL: "https://llm.test/v1/chat/completions",
	APIKey: "sk-test",
	Model:  "test-model",
}

var testPersonas = []domain.Persona{
	{ID: "student", Name: "Student", Description: "a curious learner", Characteristics: []string{"curious"}},
	{ID: "techie", Name: "Tech Enthusiast", Description: "loves gadgets", Characteristics: []string{"early adopter"}},
}

const twoVariants = `[{"title":"A","angle":"Emotional","focus":"X"},{"title":"B","angle":"Practical","focus":"Y"}]`

func newRunner(client llm.Client, policy service.FallbackPolicy, concurrency int, resetDelay time.Duration) *Runner {
	logger := zap.NewNop()
	pb := prompt.DefaultPromptBuilder()
	suff := service.NewSufficiencyChecker(client, pb, nil, policy, logger)
	enrich := service.NewEnrichmentService(client, pb, nil, nil, policy, logger)
	variants := service.NewVariantGenerator(client, pb, suff, enrich, policy, logger)
	reviews := service.NewReviewEngine(client, pb, policy, concurrency, logger)
	return NewRunner(variants, reviews, policy, resetDelay, logger)
}

func testPolicy() service.FallbackPolicy {
	p := service.DefaultFallbackPolicy()
	p.ScorePolicy = service.FixedScore(7)
	return p
}

func scriptedRouter(sufficient bool) *llmtest.Router {
	verdict := `{"isSufficient": true, "reason": "clear"}`
	if !sufficient {
		verdict = `{"isSufficient": false, "reason": "no topic"}`
	}
	return llmtest.NewRouter().
		On(llmtest.KindSufficiency, llmtest.Reply(verdict)).
		On(llmtest.KindEnrichment, llmtest.Reply("Background context.")).
		On(llmtest.KindTitles, llmtest.Reply(twoVariants)).
		On(llmtest.KindComment, llmtest.Reply("Good.")).
		On(llmtest.KindTags, llmtest.Reply("clear, useful")).
		On(llmtest.KindSuggestions, llmtest.Reply("shorter")).
		On(llmtest.KindScore, llmtest.Reply("15"))
}

type progressLog struct {
	mu     sync.Mutex
	states []domain.ProgressState
}

func (p *progressLog) record(s domain.ProgressState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = append(p.states, s)
}

func (p *progressLog) snapshot() []domain.ProgressState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.ProgressState(nil), p.states...)
}

func stages(states []domain.ProgressState) []domain.Stage {
	var out []domain.Stage
	for _, s := range states {
		if len(out) == 0 || out[len(out)-1] != s.Stage {
			out = append(out, s.Stage)
		}
	}
	return out
}

func assertMonotonic(t *testing.T, states []domain.ProgressState) {
	t.Helper()
	for i := 1; i < len(states); i++ {
		prev, cur := states[i-1], states[i]
		require.GreaterOrEqual(t, cur.Stage.Order(), prev.Stage.Order(), "stage regressed at %d", i)
		if cur.Stage == prev.Stage {
			require.GreaterOrEqual(t, cur.CurrentStep, prev.CurrentStep, "step regressed at %d", i)
		}
	}
}

func TestRunSufficientTitleSkipsEnrichment(t *testing.T) {
	router := scriptedRouter(true)
	runner := newRunner(router, testPolicy(), 1, 0)

	var log progressLog
	enrichedCalls := 0
	res, err := runner.Run(context.Background(), "  How to cook rice ", testPersonas, testCfg, Callbacks{
		OnProgress:     log.record,
		OnEnrichedInfo: func(string) { enrichedCalls++ },
	})
	require.NoError(t, err)

	assert.Zero(t, enrichedCalls)
	assert.Equal(t, "How to cook rice", res.OriginalTitle)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, []string{"How to cook rice", "A", "B"}, res.Pool())
	require.Len(t, res.Reviews, 6)
	for _, r := range res.Reviews {
		assert.Equal(t, 10, r.Score)
	}

	states := log.snapshot()
	assertMonotonic(t, states)
	assert.Equal(t, []domain.Stage{
		domain.StageCheckingInfo,
		domain.StageGeneratingTitles,
		domain.StageGeneratingReview,
		domain.StageCompleted,
	}, stages(states))

	assert.Equal(t, 5, states[0].TotalSteps)
	last := states[len(states)-1]
	assert.Equal(t, 6, last.CurrentStep)
	assert.Equal(t, 6, last.TotalSteps)
}

func TestRunInsufficientTitleEnriches(t *testing.T) {
	router := scriptedRouter(false)
	runner := newRunner(router, testPolicy(), 2, 0)

	var log progressLog
	var enriched []string
	res, err := runner.Run(context.Background(), "Thing", testPersonas, testCfg, Callbacks{
		OnProgress:     log.record,
		OnEnrichedInfo: func(s string) { enriched = append(enriched, s) },
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Background context."}, enriched)
	assert.Equal(t, "Background context.", res.EnrichedInfo)
	assert.False(t, res.Sufficiency.IsSufficient)

	call, ok := router.Last(llmtest.KindTitles)
	require.True(t, ok)
	assert.Contains(t, call.User, "\nAdditional context: Background context.")

	states := log.snapshot()
	assertMonotonic(t, states)
	assert.Contains(t, stages(states), domain.StageEnrichingInfo)
}

func TestRunSurvivesEveryCallFailing(t *testing.T) {
	router := llmtest.NewRouter()
	router.Default = llmtest.Fail(errors.NewRequestFailedError("openai", 503, nil))
	runner := newRunner(router, testPolicy(), 1, 0)

	res, err := runner.Run(context.Background(), "Rice", testPersonas, testCfg, Callbacks{})
	require.NoError(t, err)

	assert.Len(t, res.Variants, 5)
	require.Len(t, res.Reviews, 6*2)
	for _, r := range res.Reviews {
		assert.True(t, r.Fallback)
		assert.Equal(t, 7, r.Score)
	}
}

func TestRunAbortsOnRejectedCredentials(t *testing.T) {
	router := scriptedRouter(true)
	router.On(llmtest.KindSufficiency, llmtest.Fail(errors.NewRequestFailedError("openai", 401, nil)))

	cfg := llm.DefaultModelManagerConfig()
	cfg.Retry.MaxAttempts = 1
	mm := llm.NewModelManager(cfg, zap.NewNop())
	mm.Register(router)

	runner := newRunner(mm, testPolicy(), 1, 0)
	var log progressLog
	res, err := runner.Run(context.Background(), "Rice", testPersonas, testCfg, Callbacks{OnProgress: log.record})

	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, errors.ErrMisconfigured)
	assert.Zero(t, router.Count(llmtest.KindScore))

	states := log.snapshot()
	require.NotEmpty(t, states)
	assert.Equal(t, domain.StageIdle, states[len(states)-1].Stage)
}

func TestRunKeepsGoingOnRejectedCredentialsWhenPolicyAllows(t *testing.T) {
	router := scriptedRouter(true)
	router.On(llmtest.KindSufficiency, llmtest.Fail(errors.NewRequestFailedError("openai", 401, nil)))

	cfg := llm.DefaultModelManagerConfig()
	cfg.Retry.MaxAttempts = 1
	mm := llm.NewModelManager(cfg, zap.NewNop())
	mm.Register(router)

	policy := testPolicy()
	policy.AbortOnAuthFailure = false
	res, err := newRunner(mm, policy, 1, 0).Run(context.Background(), "Rice", testPersonas, testCfg, Callbacks{})

	require.NoError(t, err)
	assert.True(t, res.Sufficiency.IsSufficient)
	assert.Len(t, res.Reviews, 6)
}

func TestRunHonoursCancellation(t *testing.T) {
	router := scriptedRouter(true)
	ctx, cancel := context.WithCancel(context.Background())
	router.On(llmtest.KindTitles, func(context.Context, string) (string, error) {
		cancel()
		return twoVariants, nil
	})

	var log progressLog
	_, err := newRunner(router, testPolicy(), 1, 0).Run(ctx, "Rice", testPersonas, testCfg, Callbacks{OnProgress: log.record})
	assert.ErrorIs(t, err, context.Canceled)

	states := log.snapshot()
	assert.Equal(t, domain.StageIdle, states[len(states)-1].Stage)
}

func TestRunValidatesInput(t *testing.T) {
	runner := newRunner(scriptedRouter(true), testPolicy(), 1, 0)
	ctx := context.Background()

	cases := []struct {
		name     string
		title    string
		personas []domain.Persona
		cfg      domain.LLMConfig
		field    string
	}{
		{"empty title", "   ", testPersonas, testCfg, "title"},
		{"long title", strings.Repeat("x", 501), testPersonas, testCfg, "title"},
		{"no personas", "Rice", nil, testCfg, "personas"},
		{"missing url", "Rice", testPersonas, domain.LLMConfig{Model: "m"}, "APIURL"},
		{"missing model", "Rice", testPersonas, domain.LLMConfig{APIURL: "https://x.test/v1"}, "Model"},
		{"bad language", "Rice", testPersonas, domain.LLMConfig{APIURL: "https://x.test/v1", Model: "m", Language: "fr"}, "Language"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := runner.Run(ctx, tc.title, tc.personas, tc.cfg, Callbacks{})
			var verr *errors.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestRunResetsToIdleAfterDelay(t *testing.T) {
	var log progressLog
	_, err := newRunner(scriptedRouter(true), testPolicy(), 1, 10*time.Millisecond).
		Run(context.Background(), "Rice", testPersonas[:1], testCfg, Callbacks{OnProgress: log.record})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		states := log.snapshot()
		return states[len(states)-1].Stage == domain.StageIdle
	}, time.Second, 5*time.Millisecond)
}
