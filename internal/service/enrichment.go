package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/kapu/reader-sim-go/internal/constants"
	"github.com/kapu/reader-sim-go/internal/domain"
	"github.com/kapu/reader-sim-go/internal/llm"
	"github.com/kapu/reader-sim-go/internal/mcp"
	"github.com/kapu/reader-sim-go/internal/prompt"
	"github.com/kapu/reader-sim-go/internal/service/cache"
	"github.com/kapu/reader-sim-go/internal/util"
)

// EnrichmentService gathers background context for a thin title, first from
// the MCP browser-search tool, then from the model itself. It never fails.
type EnrichmentService struct {
	llm     llm.Client
	prompts *prompt.PromptBuilder
	tools   mcp.Factory
	cache   cache.Store
	policy  FallbackPolicy
	logger  *zap.Logger
}

func NewEnrichmentService(client llm.Client, prompts *prompt.PromptBuilder, tools mcp.Factory, store cache.Store, policy FallbackPolicy, logger *zap.Logger) *EnrichmentService {
	if store == nil {
		store = cache.Nop{}
	}
	return &EnrichmentService{
		llm:     client,
		prompts: prompts,
		tools:   tools,
		cache:   store,
		policy:  policy,
		logger:  logger,
	}
}

func (e *EnrichmentService) Enrich(ctx context.Context, title string, cfg domain.LLMConfig) string {
	lang := cfg.Lang()
	key := cache.Key("enrichment", lang.String(), title)

	var cached string
	if ok, err := e.cache.Get(ctx, key, &cached); err == nil && ok && cached != "" {
		e.logger.Debug("Enrichment cache hit", zap.String("title", title))
		return cached
	}

	text := ""
	if cfg.FeatureStatus.BrowserSearchDisabled() || e.tools == nil {
		e.logger.Debug("Browser search disabled, enriching via model", zap.String("title", title))
	} else {
		searched, err := e.searchViaTools(ctx, title, cfg)
		if err != nil {
			e.logger.Warn("MCP search failed, falling back to model", zap.String("title", title), zap.Error(err))
		}
		text = searched
	}

	if text == "" {
		text = e.enrichViaLLM(ctx, title, cfg)
	}
	if text == "" {
		return e.policy.EnrichmentOnFailure
	}

	if err := e.cache.Set(ctx, key, text, constants.CacheTTL.Enrichment); err != nil {
		e.logger.Warn("Failed to cache enrichment", zap.Error(err))
	}
	return text
}

func (e *EnrichmentService) searchViaTools(ctx context.Context, title string, cfg domain.LLMConfig) (string, error) {
	url := cfg.MCPURL
	if url == "" {
		url = constants.MCPDefaults.URL
	}

	ts := e.tools(url)
	if err := ts.Connect(ctx); err != nil {
		return "", err
	}
	defer func() {
		if err := ts.Disconnect(); err != nil {
			e.logger.Debug("MCP disconnect failed", zap.Error(err))
		}
	}()

	tools, err := ts.ListTools(ctx)
	if err != nil {
		return "", err
	}

	tool, ok := mcp.FindBrowserSearch(tools)
	if !ok {
		e.logger.Debug("No browser search tool offered", zap.Int("tools", len(tools)))
		return "", nil
	}

	res, err := ts.Execute(ctx, tool.Name, mcp.SearchArgs(tool, title))
	if err != nil {
		return "", err
	}
	search, err := mcp.DecodeSearchResult(res)
	if err != nil {
		return "", err
	}

	e.logger.Debug("MCP search completed",
		zap.String("tool", tool.Name),
		zap.Int("items", len(search.Items)),
	)
	return FormatSearchItems(search.Items), nil
}

func (e *EnrichmentService) enrichViaLLM(ctx context.Context, title string, cfg domain.LLMConfig) string {
	p, err := e.prompts.Render(prompt.TemplateInformationEnrichment, cfg.Lang(), prompt.TitleData{Title: title})
	if err != nil {
		e.logger.Error("Failed to render enrichment prompt", zap.Error(err))
		return ""
	}

	raw, err := e.llm.Complete(ctx, p.System, p.User, cfg)
	if err != nil {
		e.logger.Warn("Model enrichment failed", zap.String("title", title), zap.Error(err))
		return ""
	}

	text := strings.TrimSpace(raw)
	if words := util.WordCount(text); words > constants.AIInputLimits.MaxEnrichmentWords*2 {
		e.logger.Warn("Model enrichment longer than requested", zap.Int("words", words))
	}
	return util.TruncateString(text, constants.AIInputLimits.MaxEnrichmentRunes)
}

// FormatSearchItems renders search hits as "# title\ndescription" blocks.
// Descriptions often carry HTML snippets and are reduced to text.
func FormatSearchItems(items []mcp.SearchItem) string {
	var sb strings.Builder
	for _, item := range items {
		fmt.Fprintf(&sb, "\n# %s\n%s\n\n", strings.TrimSpace(item.Title), stripHTML(item.Description))
	}
	return sb.String()
}

func stripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
