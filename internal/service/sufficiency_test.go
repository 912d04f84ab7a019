package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kapu/reader-sim-go/internal/domain"
	"github.com/kapu/reader-sim-go/internal/llm/llmtest"
	"github.com/kapu/reader-sim-go/internal/prompt"
	"github.com/kapu/reader-sim-go/internal/service/cache"
)

func TestSufficiencyParsesVerdict(t *testing.T) {
	h := newHarness(testPolicy(), 1)
	h.router.On(llmtest.KindSufficiency, llmtest.Reply("```json\n{\"isSufficient\": false, \"reason\": \"no audience\"}\n```"))

	got := h.sufficiency.Check(context.Background(), "Thing", testCfg)
	assert.False(t, got.IsSufficient)
	assert.Equal(t, "no audience", got.Reason)

	call, ok := h.router.Last(llmtest.KindSufficiency)
	require.True(t, ok)
	assert.Contains(t, call.User, "Thing")
}

func TestSufficiencyFailsOpenOnTransportError(t *testing.T) {
	h := newHarness(testPolicy(), 1)
	h.router.On(llmtest.KindSufficiency, llmtest.Fail(networkError()))

	got := h.sufficiency.Check(context.Background(), "Thing", testCfg)
	assert.True(t, got.IsSufficient)
	assert.Equal(t, prompt.SufficiencyFailureReason(domain.LanguageEnglish), got.Reason)

	zh := testCfg
	zh.Language = domain.LanguageChinese
	got = h.sufficiency.Check(context.Background(), "东西", zh)
	assert.True(t, got.IsSufficient)
	assert.Equal(t, prompt.SufficiencyFailureReason(domain.LanguageChinese), got.Reason)
}

func TestSufficiencyUnparsableDefaultsToSufficient(t *testing.T) {
	h := newHarness(testPolicy(), 1)
	h.router.On(llmtest.KindSufficiency, llmtest.Reply("I think it's fine"))

	got := h.sufficiency.Check(context.Background(), "How to cook rice", testCfg)
	assert.True(t, got.IsSufficient)
}

func TestSufficiencyHeuristicOnFailure(t *testing.T) {
	policy := testPolicy()
	policy.HeuristicOnFailure = true
	h := newHarness(policy, 1)
	h.router.On(llmtest.KindSufficiency, llmtest.Fail(networkError()))

	assert.False(t, h.sufficiency.Check(context.Background(), "Thing", testCfg).IsSufficient)
	assert.True(t, h.sufficiency.Check(context.Background(), "How to cook rice", testCfg).IsSufficient)
}

func TestHeuristicSufficiency(t *testing.T) {
	cases := []struct {
		title string
		want  bool
	}{
		{"Thing", false},
		{"AI", false},
		{"Go tips", true},
		{"远程办公", true},
		{"办公", false},
		{"  ", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HeuristicSufficiency(tc.title, domain.LanguageEnglish).IsSufficient, tc.title)
	}
}

func TestSufficiencyCachesVerdicts(t *testing.T) {
	router := llmtest.NewRouter().On(llmtest.KindSufficiency, llmtest.Reply(`{"isSufficient": true, "reason": "clear"}`))
	store := cache.NewMemoryStore(time.Minute, time.Minute, zap.NewNop())
	checker := NewSufficiencyChecker(router, prompt.DefaultPromptBuilder(), store, testPolicy(), zap.NewNop())

	ctx := context.Background()
	first := checker.Check(ctx, "How to cook rice", testCfg)
	second := checker.Check(ctx, "How to cook rice", testCfg)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, router.Count(llmtest.KindSufficiency))

	other := testCfg
	other.Model = "other-model"
	checker.Check(ctx, "How to cook rice", other)
	assert.Equal(t, 2, router.Count(llmtest.KindSufficiency))
}

func TestSufficiencyFailuresAreNotCached(t *testing.T) {
	router := llmtest.NewRouter().On(llmtest.KindSufficiency, llmtest.Fail(networkError()))
	store := cache.NewMemoryStore(time.Minute, time.Minute, zap.NewNop())
	checker := NewSufficiencyChecker(router, prompt.DefaultPromptBuilder(), store, testPolicy(), zap.NewNop())

	checker.Check(context.Background(), "Thing", testCfg)
	checker.Check(context.Background(), "Thing", testCfg)
	assert.Equal(t, 2, router.Count(llmtest.KindSufficiency))
	assert.Equal(t, 0, store.Len())
}

func TestSufficiencyUnreadableAnswersAreNotCached(t *testing.T) {
	router := llmtest.NewRouter().On(llmtest.KindSufficiency, llmtest.Reply(""))
	store := cache.NewMemoryStore(time.Minute, time.Minute, zap.NewNop())
	checker := NewSufficiencyChecker(router, prompt.DefaultPromptBuilder(), store, testPolicy(), zap.NewNop())

	ctx := context.Background()
	first := checker.Check(ctx, "Thing", testCfg)
	assert.True(t, first.IsSufficient)
	assert.Equal(t, 0, store.Len())

	router.On(llmtest.KindSufficiency, llmtest.Reply(`{"isSufficient": false, "reason": "no topic"}`))
	second := checker.Check(ctx, "Thing", testCfg)
	assert.Equal(t, domain.SufficiencyResult{IsSufficient: false, Reason: "no topic"}, second)
	assert.Equal(t, 2, router.Count(llmtest.KindSufficiency))
}

func TestSufficiencyCacheKeyIncludesEndpoint(t *testing.T) {
	router := llmtest.NewRouter().On(llmtest.KindSufficiency, llmtest.Reply(`{"isSufficient": true, "reason": "clear"}`))
	store := cache.NewMemoryStore(time.Minute, time.Minute, zap.NewNop())
	checker := NewSufficiencyChecker(router, prompt.DefaultPromptBuilder(), store, testPolicy(), zap.NewNop())

	ctx := context.Background()
	checker.Check(ctx, "How to cook rice", testCfg)

	otherURL := testCfg
	otherURL.APIURL = "https://other.test/v1/chat/completions"
	checker.Check(ctx, "How to cook rice", otherURL)

	otherProvider := testCfg
	otherProvider.Provider = "gemini"
	checker.Check(ctx, "How to cook rice", otherProvider)

	assert.Equal(t, 3, router.Count(llmtest.KindSufficiency))
	assert.Equal(t, 3, store.Len())
}
