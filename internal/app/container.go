package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kapu/reader-sim-go/internal/config"
	"github.com/kapu/reader-sim-go/internal/constants"
	"github.com/kapu/reader-sim-go/internal/llm"
	"github.com/kapu/reader-sim-go/internal/mcp"
	"github.com/kapu/reader-sim-go/internal/persona"
	"github.com/kapu/reader-sim-go/internal/pipeline"
	"github.com/kapu/reader-sim-go/internal/prompt"
	"github.com/kapu/reader-sim-go/internal/server"
	"github.com/kapu/reader-sim-go/internal/service"
	"github.com/kapu/reader-sim-go/internal/service/archive"
	"github.com/kapu/reader-sim-go/internal/service/cache"
	"github.com/kapu/reader-sim-go/internal/service/database"
)

// Container bundles the assembled services shared by the CLI and the server.
type Container struct {
	Config  *config.Config
	Logger  *zap.Logger
	Catalog *persona.Catalog
	Models  *llm.ModelManager
	Tools   mcp.Factory
	Cache   cache.Store
	Policy  service.FallbackPolicy
	Runner  *pipeline.Runner
	Archive *archive.Archive

	closers []func()
}

// Options adjusts what Build wires up for a single command.
type Options struct {
	// Concurrency overrides PIPELINE_CONCURRENCY when positive.
	Concurrency int
	// Archive forces the Postgres archive on regardless of ARCHIVE_ENABLED.
	Archive bool
}

// Build assembles every service. Heavy initialisation (cache, database) happens
// here so commands stay focused on their own flow.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (container *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	c := &Container{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	c.Catalog, err = persona.Load(cfg.Personas.File)
	if err != nil {
		return nil, fmt.Errorf("failed to load persona catalog: %w", err)
	}

	c.Cache, err = buildCache(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}
	c.closers = append(c.closers, func() { _ = c.Cache.Close() })

	if cfg.Archive.Enabled || opts.Archive {
		pg, pgErr := database.NewPostgresService(ctx, database.PostgresConfig{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			Database: cfg.Postgres.Database,
			SSLMode:  cfg.Postgres.SSLMode,
		}, logger)
		if pgErr != nil {
			return nil, fmt.Errorf("failed to create postgres service: %w", pgErr)
		}
		c.closers = append(c.closers, func() { _ = pg.Close() })

		c.Archive = archive.New(pg.GetDB(), logger)
		if err = c.Archive.EnsureSchema(ctx); err != nil {
			return nil, err
		}
	}

	mmCfg := llm.DefaultModelManagerConfig()
	mmCfg.Timeout = cfg.LLM.Timeout
	mmCfg.Retry.MaxAttempts = cfg.LLM.RetryMaxAttempts
	c.Models = llm.NewModelManager(mmCfg, logger)

	c.Tools = mcp.NewHTTPFactory(cfg.MCP.Timeout, logger)
	c.Policy = policyFromConfig(cfg)

	concurrency := cfg.Pipeline.Concurrency
	if opts.Concurrency > 0 {
		concurrency = opts.Concurrency
	}

	pb := prompt.DefaultPromptBuilder()
	suff := service.NewSufficiencyChecker(c.Models, pb, c.Cache, c.Policy, logger)
	enrich := service.NewEnrichmentService(c.Models, pb, c.Tools, c.Cache, c.Policy, logger)
	variants := service.NewVariantGenerator(c.Models, pb, suff, enrich, c.Policy, logger)
	reviews := service.NewReviewEngine(c.Models, pb, c.Policy, concurrency, logger)
	c.Runner = pipeline.NewRunner(variants, reviews, c.Policy, cfg.Pipeline.ResetDelay, logger)

	logger.Info("Services assembled",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", cfg.LLM.Model),
		zap.String("cache", cfg.Cache.Backend),
		zap.Bool("archive", c.Archive != nil),
		zap.Int("personas", c.Catalog.Len()),
		zap.Int("concurrency", concurrency),
	)
	return c, nil
}

// NewServer wires the HTTP surface over the container's services.
func (c *Container) NewServer() *server.Server {
	deps := server.Dependencies{
		Runner:  c.Runner,
		Catalog: c.Catalog,
		LLM:     c.Config.DomainLLMConfig(),
	}
	if c.Archive != nil {
		deps.Archive = c.Archive
	}
	return server.New(deps, c.Logger)
}

// Close releases resources in reverse order of acquisition.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

func buildCache(cfg *config.Config, logger *zap.Logger) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case config.CacheBackendRedis:
		return cache.NewRedisStore(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logger)
	case config.CacheBackendNone:
		return cache.Nop{}, nil
	default:
		return cache.NewMemoryStore(constants.CacheTTL.Enrichment, constants.CacheTTL.Cleanup, logger), nil
	}
}

func policyFromConfig(cfg *config.Config) service.FallbackPolicy {
	p := service.DefaultFallbackPolicy()
	p.ScorePolicy = service.ScorePolicyByName(cfg.Pipeline.ScoreFallback)
	p.HeuristicOnFailure = cfg.Pipeline.SufficiencyHeuristic
	p.AbortOnAuthFailure = cfg.Pipeline.AbortOnAuthFailure
	return p
}
