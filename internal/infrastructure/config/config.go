package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig        `mapstructure:"app"`
	Server      ServerConfig     `mapstructure:"server"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Redis       RedisConfig      `mapstructure:"redis"`
	Cache       CacheConfig      `mapstructure:"cache"`
	Perplexity  PerplexityConfig `mapstructure:"perplexity"`
	Gemini      GeminiConfig     `mapstructure:"gemini"`
	Pipeline    PipelineConfig   `mapstructure:"pipeline"`
	Images      ImagesConfig     `mapstructure:"images"`
	Auth        AuthConfig       `mapstructure:"auth"`
	RateLimit   RateLimitConfig  `mapstructure:"rate_limit"`
	Heuristics  HeuristicsConfig `mapstructure:"heuristics"`
	DedupWindow time.Duration    `mapstructure:"dedup_window"`
	LogLevel    string           `mapstructure:"log_level"`
	LogMode     string           `mapstructure:"log_mode"`
	LogDir      string           `mapstructure:"log_dir"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
}

// DatabaseConfig 資料庫配置
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// RedisConfig Redis 連線配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig 緩存配置（AI 回應快取）
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Backend         string        `mapstructure:"backend"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// PerplexityConfig 深度研究供應商配置
type PerplexityConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	Model      string        `mapstructure:"model"`
	ImageModel string        `mapstructure:"image_model"`
	MaxTokens  int           `mapstructure:"max_tokens"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// GeminiConfig 快速供應商配置
type GeminiConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// PipelineConfig 內容生成流程配置
type PipelineConfig struct {
	ManualMaxItems      int           `mapstructure:"manual_max_items"`
	MaxAutomaticCount   int           `mapstructure:"max_automatic_count"`
	ItemDelay           time.Duration `mapstructure:"item_delay"`
	Pacer               string        `mapstructure:"pacer"`
	RequestsPerMinute   int           `mapstructure:"requests_per_minute"`
	ProviderRetries     int           `mapstructure:"provider_retries"`
	RetryBackoff        time.Duration `mapstructure:"retry_backoff"`
	AvoidListLimit      int           `mapstructure:"avoid_list_limit"`
	IncrementalSnapshot bool          `mapstructure:"incremental_snapshot"`
	MaxUses             int           `mapstructure:"max_uses"`
	MaxRecipes          int           `mapstructure:"max_recipes"`
	MaxVarieties        int           `mapstructure:"max_varieties"`
	PriceBatchSize      int           `mapstructure:"price_batch_size"`
	DefaultRegion       string        `mapstructure:"default_region"`
}

// ImagesConfig 圖片研究配置
type ImagesConfig struct {
	MaxCandidates     int           `mapstructure:"max_candidates"`
	ValidationTimeout time.Duration `mapstructure:"validation_timeout"`
	ValidationDelay   time.Duration `mapstructure:"validation_delay"`
	AllowedDomains    []string      `mapstructure:"allowed_domains"`
	MaxBatch          int           `mapstructure:"max_batch"`
}

// AuthConfig 授權配置
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	AdminRole string `mapstructure:"admin_role"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// HeuristicsConfig 價格與分類規則表來源
type HeuristicsConfig struct {
	RulesFile string `mapstructure:"rules_file"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 不存在時僅使用環境變數與預設值
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定環境變量
	_ = v.BindEnv("database.dsn", "DATABASE_URL")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("perplexity.api_key", "PERPLEXITY_API_KEY")
	_ = v.BindEnv("perplexity.model", "PERPLEXITY_MODEL")
	_ = v.BindEnv("gemini.api_key", "GEMINI_API_KEY")
	_ = v.BindEnv("gemini.model", "GEMINI_MODEL")
	_ = v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	_ = v.BindEnv("cache.enabled", "CACHE_ENABLED")
	_ = v.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	_ = v.BindEnv("dedup_window", "DEDUP_WINDOW")
	_ = v.BindEnv("log_level", "LOG_LEVEL")
	_ = v.BindEnv("log_mode", "LOG_MODE")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 有金鑰時自動啟用對應供應商
	if cfg.Perplexity.APIKey != "" {
		cfg.Perplexity.Enabled = true
	}
	if cfg.Gemini.APIKey != "" {
		cfg.Gemini.Enabled = true
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// MaskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "horeca-ingredients")

	// 伺服器設定（研究批次耗時較長）
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "300s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "290s")
	v.SetDefault("server.max_body_bytes", 2<<20)

	// 資料庫設定
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.auto_migrate", true)

	// Redis 設定
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	// 快取設定
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.max_size", 500)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_interval", "10m")

	// Perplexity 設定
	v.SetDefault("perplexity.enabled", false)
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("perplexity.image_model", "sonar")
	v.SetDefault("perplexity.max_tokens", 4000)
	v.SetDefault("perplexity.timeout", "60s")

	// Gemini 設定
	v.SetDefault("gemini.enabled", false)
	v.SetDefault("gemini.model", "gemini-1.5-flash")
	v.SetDefault("gemini.timeout", "30s")

	// 生成流程設定
	v.SetDefault("pipeline.manual_max_items", 8)
	v.SetDefault("pipeline.max_automatic_count", 10)
	v.SetDefault("pipeline.item_delay", "3s")
	v.SetDefault("pipeline.pacer", "fixed")
	v.SetDefault("pipeline.requests_per_minute", 20)
	v.SetDefault("pipeline.provider_retries", 1)
	v.SetDefault("pipeline.retry_backoff", "2s")
	v.SetDefault("pipeline.avoid_list_limit", 150)
	v.SetDefault("pipeline.incremental_snapshot", true)
	v.SetDefault("pipeline.max_uses", 10)
	v.SetDefault("pipeline.max_recipes", 5)
	v.SetDefault("pipeline.max_varieties", 10)
	v.SetDefault("pipeline.price_batch_size", 5)
	v.SetDefault("pipeline.default_region", "España")

	// 圖片研究設定
	v.SetDefault("images.max_candidates", 6)
	v.SetDefault("images.validation_timeout", "8s")
	v.SetDefault("images.validation_delay", "500ms")
	v.SetDefault("images.max_batch", 10)
	v.SetDefault("images.allowed_domains", []string{
		"wikimedia.org", "wikipedia.org", "unsplash.com", "pexels.com", "pixabay.com",
	})

	// 授權設定
	v.SetDefault("auth.admin_role", "admin")

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 30)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("dedup_window", "2s")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_dir", "logs")
}

// validateConfig 驗證設定
func validateConfig(cfg *Config) error {
	if cfg.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}
	if cfg.Database.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth jwt secret is required")
	}

	if cfg.Cache.Enabled {
		if cfg.Cache.Backend != "memory" && cfg.Cache.Backend != "redis" {
			return fmt.Errorf("invalid cache backend %q", cfg.Cache.Backend)
		}
		if cfg.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if cfg.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if cfg.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	if cfg.Pipeline.ManualMaxItems <= 0 {
		return fmt.Errorf("invalid pipeline manual max items")
	}
	switch cfg.Pipeline.Pacer {
	case "fixed", "token_bucket", "none":
	default:
		return fmt.Errorf("invalid pipeline pacer %q", cfg.Pipeline.Pacer)
	}
	if cfg.Pipeline.Pacer == "token_bucket" && cfg.Pipeline.RequestsPerMinute <= 0 {
		return fmt.Errorf("token bucket pacer requires requests_per_minute > 0")
	}
	if cfg.Images.MaxCandidates <= 0 {
		return fmt.Errorf("invalid images max candidates")
	}

	return nil
}
