// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"strings"
	"sync"

	"github.com/kapu/reader-sim-go/internal/domain"
)

// Kind names which prompt a completion request was built from.
type Kind string

const (
	KindSufficiency Kind = "sufficiency"
	KindEnrichment  Kind = "enrichment"
	KindTitles      Kind = "titles"
	KindComment     Kind = "comment"
	KindTags        Kind = "tags"
	KindSuggestions Kind = "suggestions"
	KindScore       Kind = "score"
	KindUnknown     Kind = "unknown"
)

var markers = []struct {
	kind  Kind
	texts []string
}{
	{KindSufficiency, []string{"information analysis expert", "信息分析专家"}},
	{KindEnrichment, []string{"information enrichment expert", "信息丰富专家"}},
	{KindTitles, []string{"title optimization expert", "标题优化专家"}},
	{KindTags, []string{"only return tags", "仅返回标签"}},
	{KindSuggestions, []string{"only return suggestions", "仅返回建议"}},
	{KindScore, []string{"only return a number", "仅返回一个数字"}},
	{KindComment, []string{"within 100 words", "100字以内"}},
}

// Classify maps a system prompt onto the Kind that produced it.
func Classify(systemPrompt string) Kind {
	for _, m := range markers {
		for _, t := range m.texts {
			if strings.Contains(systemPrompt, t) {
				return m.kind
			}
		}
	}
	return KindUnknown
}

// Call records one completion request.
type Call struct {
	Kind   Kind
	System string
	User   string
}

// Handler answers one kind of request.
type Handler func(ctx context.Context, user string) (string, error)

// Reply answers every request with text.
func Reply(text string) Handler {
	return func(context.Context, string) (string, error) { return text, nil }
}

// Fail answers every request with err.
func Fail(err error) Handler {
	return func(context.Context, string) (string, error) { return "", err }
}

// Router dispatches requests to per-kind handlers. Unrouted kinds answer
// with Default, or an empty string when Default is nil.
type Router struct {
	mu       sync.Mutex
	handlers map[Kind]Handler
	calls    []Call
	Default  Handler
}

func NewRouter() *Router {
	return &Router{handlers: make(map[Kind]Handler)}
}

// On sets the handler for k and returns the router for chaining.
func (r *Router) On(k Kind, h Handler) *Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[k] = h
	return r
}

// Name lets a Router stand in for the OpenAI provider inside a real
// ModelManager.
func (r *Router) Name() string {
	return "openai"
}

func (r *Router) Complete(ctx context.Context, systemPrompt, userPrompt string, _ domain.LLMConfig) (string, error) {
	kind := Classify(systemPrompt)

	r.mu.Lock()
	r.calls = append(r.calls, Call{Kind: kind, System: systemPrompt, User: userPrompt})
	h, ok := r.handlers[kind]
	if !ok {
		h = r.Default
	}
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if h == nil {
		return "", nil
	}
	return h(ctx, userPrompt)
}

// Calls returns a copy of every recorded request.
func (r *Router) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Count returns how many requests of kind k were made.
func (r *Router) Count(k Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Kind == k {
			n++
		}
	}
	return n
}

// Last returns the most recent request of kind k.
func (r *Router) Last(k Kind) (Call, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.calls) - 1; i >= 0; i-- {
		if r.calls[i].Kind == k {
			return r.calls[i], true
		}
	}
	return Call{}, false
}
