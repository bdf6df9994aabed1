package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"horeca-ingredients/internal/api"
	"horeca-ingredients/internal/core/ai"
	"horeca-ingredients/internal/core/ai/cache"
	"horeca-ingredients/internal/core/ai/gemini"
	"horeca-ingredients/internal/core/ai/perplexity"
	"horeca-ingredients/internal/core/auth"
	"horeca-ingredients/internal/core/generation"
	"horeca-ingredients/internal/core/heuristics"
	"horeca-ingredients/internal/core/images"
	"horeca-ingredients/internal/core/ingest"
	"horeca-ingredients/internal/core/pacing"
	"horeca-ingredients/internal/core/parser"
	"horeca-ingredients/internal/core/pricing"
	"horeca-ingredients/internal/core/prompt"
	"horeca-ingredients/internal/infrastructure/config"
	"horeca-ingredients/internal/infrastructure/store"
	"horeca-ingredients/internal/pkg/common"

	"go.uber.org/zap"
)

func main() {
	// 載入設定
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel, cfg.LogMode, cfg.LogDir); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.Bool("perplexity_enabled", cfg.Perplexity.Enabled),
		zap.String("perplexity_api_key", config.MaskAPIKey(cfg.Perplexity.APIKey)),
		zap.String("perplexity_model", cfg.Perplexity.Model),
		zap.Bool("gemini_enabled", cfg.Gemini.Enabled),
		zap.String("gemini_model", cfg.Gemini.Model),
		zap.String("database_driver", cfg.Database.Driver),
		zap.String("pacer", cfg.Pipeline.Pacer),
	)

	ctx := context.Background()

	db, err := store.Open(ctx, store.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		common.LogFatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			common.LogFatal("Failed to migrate database", zap.Error(err))
		}
	}

	rules, err := heuristics.Load(cfg.Heuristics.RulesFile)
	if err != nil {
		common.LogFatal("Failed to load heuristics rules", zap.Error(err))
	}

	provider, researchProvider, closeProviders, err := buildProviders(ctx, cfg)
	if err != nil {
		common.LogFatal("Failed to initialize AI providers", zap.Error(err))
	}
	defer closeProviders()

	pace, err := pacing.NewFactory(cfg.Pipeline.Pacer, cfg.Pipeline.ItemDelay, cfg.Pipeline.RequestsPerMinute)
	if err != nil {
		common.LogFatal("Failed to build pacer", zap.Error(err))
	}

	prompts := prompt.NewBuilder(cfg.Pipeline.AvoidListLimit, countryCodes(ctx, db))
	research := ai.NewResearcher(provider, parser.New(rules))

	ingester := ingest.NewService(db, rules, ingest.Options{
		MaxUses:             cfg.Pipeline.MaxUses,
		MaxRecipes:          cfg.Pipeline.MaxRecipes,
		MaxVarieties:        cfg.Pipeline.MaxVarieties,
		IncrementalSnapshot: cfg.Pipeline.IncrementalSnapshot,
	})
	priceSvc := pricing.NewService(db, research, prompts, ingester.Prices(), pace, pricing.Options{
		Region:           cfg.Pipeline.DefaultRegion,
		DefaultBatchSize: cfg.Pipeline.PriceBatchSize,
		MaxTokens:        cfg.Perplexity.MaxTokens,
	})
	generator := generation.NewService(db, research, priceSvc, prompts, pace, generation.Options{
		ManualMaxItems:    cfg.Pipeline.ManualMaxItems,
		MaxAutomaticCount: cfg.Pipeline.MaxAutomaticCount,
		DefaultRegion:     cfg.Pipeline.DefaultRegion,
		MaxTokens:         cfg.Perplexity.MaxTokens,
	})
	imageOpts := images.Options{
		MaxCandidates:   cfg.Images.MaxCandidates,
		ValidationDelay: cfg.Images.ValidationDelay,
		AllowedDomains:  cfg.Images.AllowedDomains,
		MaxBatch:        cfg.Images.MaxBatch,
	}
	if researchProvider.Name() == "perplexity" {
		imageOpts.Model = cfg.Perplexity.ImageModel
	}
	imageSvc := images.NewService(db, researchProvider, prompts, images.NewValidator(cfg.Images.ValidationTimeout), imageOpts)

	router, err := api.SetupRouter(cfg, api.Dependencies{
		Generator: generator,
		Ingester:  ingester,
		Prices:    priceSvc,
		Images:    imageSvc,
		Verifier:  auth.NewVerifier(cfg.Auth.JWTSecret, db, cfg.Auth.AdminRole),
		DB:        db,
		Providers: []string{provider.Name()},
	})
	if err != nil {
		common.LogFatal("Failed to setup router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Int("port", cfg.Server.Port),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	// 等待進行中的研究批次結束
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
	}

	common.LogInfo("Server exited")
}

// buildProviders 建立供應商鏈：Perplexity 為主、Gemini 為備援，並依設定加上快取。
// 第二個回傳值為圖片研究用的供應商，有 Perplexity 時直接使用。
func buildProviders(ctx context.Context, cfg *config.Config) (ai.Provider, ai.Provider, func(), error) {
	var (
		chain   []ai.Provider
		closers []func()
		primary ai.Provider
	)
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	if cfg.Perplexity.Enabled {
		p := perplexity.New(perplexity.Config{
			APIKey:    cfg.Perplexity.APIKey,
			BaseURL:   cfg.Perplexity.BaseURL,
			Model:     cfg.Perplexity.Model,
			MaxTokens: cfg.Perplexity.MaxTokens,
			Timeout:   cfg.Perplexity.Timeout,
		})
		chain = append(chain, p)
		primary = p
	}
	if cfg.Gemini.Enabled {
		g, err := gemini.NewClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.Timeout)
		if err != nil {
			return nil, nil, closeAll, fmt.Errorf("gemini: %w", err)
		}
		closers = append(closers, func() { _ = g.Close() })
		chain = append(chain, g)
	}
	if len(chain) == 0 {
		common.LogWarn("未設定任何 AI 供應商，生成請求將回傳備援資料")
	}

	var provider ai.Provider = ai.NewChain(cfg.Pipeline.ProviderRetries, cfg.Pipeline.RetryBackoff, chain...)
	if primary == nil {
		primary = provider
	}

	if cfg.Cache.Enabled {
		var cacheStore cache.Store
		switch cfg.Cache.Backend {
		case "redis":
			rs, err := cache.NewRedisStore(ctx, cache.RedisOptions{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			if err != nil {
				return nil, nil, closeAll, err
			}
			closers = append(closers, func() { _ = rs.Close() })
			cacheStore = rs
		default:
			ms := cache.NewMemoryStore(cfg.Cache.MaxSize, cfg.Cache.CleanupInterval)
			closers = append(closers, func() { _ = ms.Close() })
			cacheStore = ms
		}
		provider = cache.Wrap(provider, cacheStore, cfg.Cache.TTL)
		common.LogInfo("AI 回應快取已啟用", zap.String("backend", cfg.Cache.Backend), zap.Duration("ttl", cfg.Cache.TTL))
	}

	return provider, primary, closeAll, nil
}

// countryCodes 取得價格研究的國家清單，失敗時使用預設值
func countryCodes(ctx context.Context, db *store.Store) []string {
	countries, err := db.ListCountries(ctx)
	if err != nil {
		common.LogWarn("無法取得國家清單，使用預設值", zap.Error(err))
		return nil
	}
	codes := make([]string, 0, len(countries))
	for _, c := range countries {
		codes = append(codes, c.Code)
	}
	return codes
}
