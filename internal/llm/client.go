// Package llm sends single-turn chat completions to the configured endpoint.
package llm

import (
	"context"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/reader-sim-go/internal/constants"
	"github.com/kapu/reader-sim-go/internal/domain"
	"github.com/kapu/reader-sim-go/internal/util"
	"github.com/kapu/reader-sim-go/pkg/errors"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Client is the completion contract every pipeline component depends on.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, cfg domain.LLMConfig) (string, error)
}

// Provider talks to one vendor API. Errors must be *errors.RequestFailedError.
type Provider interface {
	Name() string
	Complete(ctx context.Context, systemPrompt, userPrompt string, cfg domain.LLMConfig) (string, error)
}

type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Jitter      time.Duration
}

type ModelManagerConfig struct {
	Timeout          time.Duration
	Retry            RetryPolicy
	FailureThreshold int
	ResetTimeout     time.Duration
	RateLimitTimeout time.Duration
}

// DefaultModelManagerConfig mirrors the values in constants.
func DefaultModelManagerConfig() ModelManagerConfig {
	return ModelManagerConfig{
		Timeout: constants.LLMDefaults.Timeout,
		Retry: RetryPolicy{
			MaxAttempts: constants.RetryConfig.MaxAttempts,
			BaseDelay:   constants.RetryConfig.BaseDelay,
			Jitter:      constants.RetryConfig.Jitter,
		},
		FailureThreshold: constants.CircuitBreakerConfig.FailureThreshold,
		ResetTimeout:     constants.CircuitBreakerConfig.ResetTimeout,
		RateLimitTimeout: constants.CircuitBreakerConfig.RateLimitTimeout,
	}
}

// ModelManager routes completions to the configured provider with bounded
// retries and a circuit breaker per endpoint.
type ModelManager struct {
	cfg       ModelManagerConfig
	logger    *zap.Logger
	providers map[string]Provider
	breakers  map[string]*util.CircuitBreaker
	mu        sync.Mutex
	sleep     func(ctx context.Context, d time.Duration) error
}

func NewModelManager(cfg ModelManagerConfig, logger *zap.Logger) *ModelManager {
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry.MaxAttempts = 1
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	mm := &ModelManager{
		cfg:       cfg,
		logger:    logger,
		providers: make(map[string]Provider),
		breakers:  make(map[string]*util.CircuitBreaker),
		sleep:     sleepContext,
	}
	mm.Register(NewOpenAIProvider(httpClient, logger))
	mm.Register(NewGeminiProvider(httpClient, logger))
	return mm
}

// Register adds or replaces a provider under its Name().
func (mm *ModelManager) Register(p Provider) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.providers[strings.ToLower(p.Name())] = p
}

func (mm *ModelManager) provider(name string) Provider {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	if name == "" {
		name = ProviderOpenAI
	}
	if p, ok := mm.providers[strings.ToLower(name)]; ok {
		return p
	}
	return mm.providers[ProviderOpenAI]
}

func (mm *ModelManager) breaker(endpoint string) *util.CircuitBreaker {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	cb, ok := mm.breakers[endpoint]
	if !ok {
		cb = util.NewCircuitBreaker(endpoint, mm.cfg.FailureThreshold, mm.cfg.ResetTimeout, mm.logger)
		mm.breakers[endpoint] = cb
	}
	return cb
}

// Complete returns the first choice's content. Rate limits, 5xx and network
// failures are retried; everything else is returned on first sight.
func (mm *ModelManager) Complete(ctx context.Context, systemPrompt, userPrompt string, cfg domain.LLMConfig) (string, error) {
	provider := mm.provider(cfg.Provider)
	cb := mm.breaker(cfg.Provider + "|" + cfg.APIURL)

	var lastErr error
	for attempt := 1; attempt <= mm.cfg.Retry.MaxAttempts; attempt++ {
		if !cb.CanExecute() {
			status := cb.GetStatus()
			mm.logger.Warn("LLM endpoint unavailable (Circuit OPEN)",
				zap.String("endpoint", status.Name),
				zap.Int("failure_count", status.FailureCount),
			)
			if lastErr == nil {
				lastErr = errors.ErrCircuitOpen
			}
			break
		}

		text, err := provider.Complete(ctx, systemPrompt, userPrompt, cfg)
		if err == nil {
			cb.RecordSuccess()
			return text, nil
		}
		lastErr = err
		recordFailure(ctx, err)

		if ctx.Err() != nil {
			break
		}
		if errors.IsRetryable(err) {
			timeout := mm.cfg.ResetTimeout
			if errors.IsRateLimited(err) {
				timeout = mm.cfg.RateLimitTimeout
			}
			cb.RecordFailure(timeout)
		}
		if !errors.IsRetryable(err) || attempt == mm.cfg.Retry.MaxAttempts {
			break
		}

		delay := mm.backoff(attempt)
		mm.logger.Debug("Retrying LLM request",
			zap.String("provider", provider.Name()),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := mm.sleep(ctx, delay); err != nil {
			break
		}
	}

	return "", lastErr
}

// Ping sends one tiny completion without retries, for connection checks.
func (mm *ModelManager) Ping(ctx context.Context, cfg domain.LLMConfig) error {
	_, err := mm.provider(cfg.Provider).Complete(ctx, "You are a connectivity check. Reply with OK.", "ping", cfg)
	return err
}

func (mm *ModelManager) backoff(attempt int) time.Duration {
	delay := mm.cfg.Retry.BaseDelay << (attempt - 1)
	if mm.cfg.Retry.Jitter > 0 {
		delay += time.Duration(rand.Int64N(int64(mm.cfg.Retry.Jitter)))
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
