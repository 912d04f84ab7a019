package llm

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/kapu/reader-sim-go/internal/constants"
	"github.com/kapu/reader-sim-go/internal/domain"
	"github.com/kapu/reader-sim-go/pkg/errors"
)

var (
	geminiStatusRegex = regexp.MustCompile(`Error (\d{3})`)
	geminiCodeRegex   = regexp.MustCompile(`"code":\s*(\d{3})`)
)

// GeminiProvider calls the Gemini API. APIURL is ignored; the SDK picks the
// endpoint. Clients are cached per API key.
type GeminiProvider struct {
	httpClient *http.Client
	logger     *zap.Logger
	clients    map[string]*genai.Client
	mu         sync.Mutex
}

func NewGeminiProvider(httpClient *http.Client, logger *zap.Logger) *GeminiProvider {
	return &GeminiProvider{
		httpClient: httpClient,
		logger:     logger,
		clients:    make(map[string]*genai.Client),
	}
}

func (g *GeminiProvider) Name() string {
	return ProviderGemini
}

func (g *GeminiProvider) client(ctx context.Context, apiKey string) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if c, ok := g.clients[apiKey]; ok {
		return c, nil
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: g.httpClient,
	})
	if err != nil {
		return nil, err
	}
	g.clients[apiKey] = c
	return c, nil
}

func (g *GeminiProvider) Complete(ctx context.Context, systemPrompt, userPrompt string, cfg domain.LLMConfig) (string, error) {
	client, err := g.client(ctx, cfg.APIKey)
	if err != nil {
		return "", errors.NewRequestFailedError(ProviderGemini, 0, err)
	}

	temp := float32(constants.LLMDefaults.Temperature)
	genConfig := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       &temp,
	}

	resp, err := client.Models.GenerateContent(ctx, cfg.Model, genai.Text(userPrompt), genConfig)
	if err != nil {
		status := geminiStatus(err)
		g.logger.Debug("Gemini generation failed",
			zap.String("model", cfg.Model),
			zap.Int("status", status),
			zap.Error(err),
		)
		return "", errors.NewRequestFailedError(ProviderGemini, status, err)
	}

	text := extractTextFromGeminiResponse(resp)
	g.logger.Debug("Gemini response received", zap.Int("length", len(text)))
	return text, nil
}

// geminiStatus digs the HTTP status out of the SDK error text; 0 when absent.
func geminiStatus(err error) int {
	msg := err.Error()
	for _, re := range []*regexp.Regexp{geminiStatusRegex, geminiCodeRegex} {
		if matches := re.FindStringSubmatch(msg); len(matches) > 1 {
			if code, convErr := strconv.Atoi(matches[1]); convErr == nil {
				return code
			}
		}
	}
	return 0
}

func extractTextFromGeminiResponse(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return ""
	}

	var texts []string
	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, "")
}
