package llm

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"github.com/kapu/reader-sim-go/internal/constants"
	"github.com/kapu/reader-sim-go/internal/domain"
	"github.com/kapu/reader-sim-go/pkg/errors"
)

// OpenAIProvider speaks the OpenAI chat-completions protocol to any
// compatible endpoint.
type OpenAIProvider struct {
	httpClient *http.Client
	logger     *zap.Logger
}

func NewOpenAIProvider(httpClient *http.Client, logger *zap.Logger) *OpenAIProvider {
	return &OpenAIProvider{
		httpClient: httpClient,
		logger:     logger,
	}
}

func (o *OpenAIProvider) Name() string {
	return ProviderOpenAI
}

// BaseURL turns a full chat-completions URL into the SDK base URL.
func BaseURL(apiURL string) string {
	base := strings.TrimRight(strings.TrimSpace(apiURL), "/")
	base = strings.TrimSuffix(base, "/chat/completions")
	return base + "/"
}

func (o *OpenAIProvider) Complete(ctx context.Context, systemPrompt, userPrompt string, cfg domain.LLMConfig) (string, error) {
	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(BaseURL(cfg.APIURL)),
		option.WithHTTPClient(o.httpClient),
		option.WithMaxRetries(0),
	)

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(constants.LLMDefaults.Temperature),
	}

	var raw *http.Response
	resp, err := client.Chat.Completions.New(ctx, params, option.WithResponseInto(&raw))
	if err != nil {
		var apiErr *openai.Error
		if stderrors.As(err, &apiErr) {
			o.logger.Debug("OpenAI-compatible request rejected",
				zap.String("model", cfg.Model),
				zap.Int("status", apiErr.StatusCode),
			)
			return "", errors.NewRequestFailedError(ProviderOpenAI, apiErr.StatusCode, err)
		}
		if raw != nil && raw.StatusCode >= 200 && raw.StatusCode < 300 {
			// 2xx with a body we could not decode counts as empty content.
			o.logger.Warn("OpenAI-compatible response did not match schema",
				zap.String("model", cfg.Model),
				zap.Error(err),
			)
			return "", nil
		}
		return "", errors.NewRequestFailedError(ProviderOpenAI, 0, err)
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}

	text := resp.Choices[0].Message.Content
	o.logger.Debug("OpenAI-compatible response received",
		zap.String("model", cfg.Model),
		zap.Int("length", len(text)),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
	)
	return text, nil
}
