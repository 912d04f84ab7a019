package service

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/kapu/reader-sim-go/internal/domain"
	"github.com/kapu/reader-sim-go/internal/llm/llmtest"
	"github.com/kapu/reader-sim-go/internal/mcp"
	"github.com/kapu/reader-sim-go/internal/prompt"
	"github.com/kapu/reader-sim-go/pkg/errors"
)

var testCfg = domain.LLMConfig{
	APIURL: "https://llm.test/v1/chat/completions",
	APIKey: "sk-test",
	Model:  "test-model",
}

func testPolicy() FallbackPolicy {
	p := DefaultFallbackPolicy()
	p.ScorePolicy = FixedScore(7)
	return p
}

func testPersonas() []domain.Persona {
	return []domain.Persona{
		{ID: "student", Name: "Student", Description: "a curious learner", Characteristics: []string{"curious", "budget"}},
		{ID: "techie", Name: "Tech Enthusiast", Description: "loves gadgets", Characteristics: []string{"early adopter"}},
	}
}

type harness struct {
	router      *llmtest.Router
	tools       *fakeTools
	sufficiency *SufficiencyChecker
	enrichment  *EnrichmentService
	variants    *VariantGenerator
	reviews     *ReviewEngine
}

func newHarness(policy FallbackPolicy, concurrency int) *harness {
	logger := zap.NewNop()
	pb := prompt.DefaultPromptBuilder()
	router := llmtest.NewRouter()
	tools := &fakeTools{}

	h := &harness{router: router, tools: tools}
	h.sufficiency = NewSufficiencyChecker(router, pb, nil, policy, logger)
	h.enrichment = NewEnrichmentService(router, pb, tools.factory, nil, policy, logger)
	h.variants = NewVariantGenerator(router, pb, h.sufficiency, h.enrichment, policy, logger)
	h.reviews = NewReviewEngine(router, pb, policy, concurrency, logger)
	return h
}

// fakeTools is a scripted ToolService; every factory call hands out the
// same instance and counts it.
type fakeTools struct {
	mu          sync.Mutex
	connectErr  error
	tools       []mcp.Tool
	result      *mcp.CallResult
	executeErr  error
	created     int
	connects    int
	disconnects int
	executed    []string
	lastArgs    map[string]any
}

func (f *fakeTools) factory(string) mcp.ToolService {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	return f
}

func (f *fakeTools) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	return f.connectErr
}

func (f *fakeTools) ListTools(context.Context) ([]mcp.Tool, error) {
	return f.tools, nil
}

func (f *fakeTools) Execute(_ context.Context, name string, args map[string]any) (*mcp.CallResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.executed = append(f.executed, name)
	f.lastArgs = args
	if f.executeErr != nil {
		return nil, f.executeErr
	}
	return f.result, nil
}

func (f *fakeTools) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	return nil
}

func searchResult(items ...mcp.SearchItem) *mcp.CallResult {
	b, _ := json.Marshal(mcp.SearchResult{Success: true, Items: items})
	return &mcp.CallResult{Content: []mcp.Content{{Type: "text", Text: string(b)}}}
}

func networkError() error {
	return errors.NewRequestFailedError("openai", 0, context.DeadlineExceeded)
}
