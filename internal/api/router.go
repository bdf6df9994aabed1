package api

import (
	"fmt"
	"time"

	"horeca-ingredients/internal/api/handlers/content"
	"horeca-ingredients/internal/api/handlers/health"
	"horeca-ingredients/internal/api/handlers/images"
	"horeca-ingredients/internal/api/handlers/prices"
	"horeca-ingredients/internal/api/middleware"
	"horeca-ingredients/internal/infrastructure/config"
	"horeca-ingredients/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependencies 路由所需的服務
type Dependencies struct {
	Generator content.Generator
	Ingester  content.Ingester
	Prices    prices.Updater
	Images    images.Researcher
	Verifier  middleware.TokenVerifier
	DB        health.Pinger
	Providers []string
}

func (d Dependencies) validate() error {
	switch {
	case d.Generator == nil:
		return fmt.Errorf("generator is required")
	case d.Ingester == nil:
		return fmt.Errorf("ingester is required")
	case d.Prices == nil:
		return fmt.Errorf("price updater is required")
	case d.Images == nil:
		return fmt.Errorf("image researcher is required")
	case d.Verifier == nil:
		return fmt.Errorf("token verifier is required")
	}
	return nil
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, fmt.Errorf("invalid router dependencies: %w", err)
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
		zap.Strings("providers", deps.Providers),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.Logger())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))

	// 健康檢查路由
	hh := health.NewHandler(cfg.App.Version, deps.Providers, deps.DB)
	router.GET("/health", hh.Health)
	router.GET("/ready", hh.Ready)
	router.GET("/live", hh.Live)

	v1 := router.Group("/api/v1")
	if cfg.RateLimit.Enabled {
		v1.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	v1.Use(middleware.NewDeduplicator(cfg.DedupWindow).Middleware())
	// 授權檢查必須在任何 AI 或資料庫操作之前
	v1.Use(middleware.RequireAdmin(deps.Verifier))
	v1.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))
	{
		ch := content.NewHandler(deps.Generator, deps.Ingester)
		v1.POST("/content/generate", ch.Generate)
		v1.POST("/content/save", ch.Save)

		v1.POST("/prices/update", prices.NewHandler(deps.Prices).Update)
		v1.POST("/images/research", images.NewHandler(deps.Images).Research)
	}

	common.LogInfo("Router setup completed successfully",
		zap.Duration("request_timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
	)
	return router, nil
}
