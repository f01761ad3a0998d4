package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Apify      ApifyConfig      `yaml:"apify" mapstructure:"apify"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Policy     PolicyConfig     `yaml:"policy" mapstructure:"policy"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" mapstructure:"telemetry"`
	Cost       CostConfig       `yaml:"cost" mapstructure:"cost"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend. MaxConns and MinConns only
// apply to the postgres driver.
type StoreConfig struct {
	Driver   string `yaml:"driver" mapstructure:"driver"`
	DSN      string `yaml:"dsn" mapstructure:"dsn"`
	MaxConns int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ApifyConfig holds scrape-service settings.
type ApifyConfig struct {
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Actor   string `yaml:"actor" mapstructure:"actor"`
}

// PerplexityConfig holds AI web-search settings.
type PerplexityConfig struct {
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// AnthropicConfig holds settings for the structuring assist.
type AnthropicConfig struct {
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
	Model  string `yaml:"model" mapstructure:"model"`
}

// FetchConfig configures the direct HTTP fetch tier.
type FetchConfig struct {
	Timeout          time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MinContentLength int           `yaml:"min_content_length" mapstructure:"min_content_length"`
	MaxBodyBytes     int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	UserAgent        string        `yaml:"user_agent" mapstructure:"user_agent"`
	HostRPS          float64       `yaml:"host_rps" mapstructure:"host_rps"`
	HostBurst        int           `yaml:"host_burst" mapstructure:"host_burst"`
}

// PipelineConfig configures the per-artist enrichment pipeline.
type PipelineConfig struct {
	ArtistTimeout    time.Duration `yaml:"artist_timeout" mapstructure:"artist_timeout"`
	RateLimitBackoff time.Duration `yaml:"rate_limit_backoff" mapstructure:"rate_limit_backoff"`
	ContactPaths     []string      `yaml:"contact_paths" mapstructure:"contact_paths"`
}

// BatchConfig configures the batch orchestrator.
type BatchConfig struct {
	ArtistDelayMin    time.Duration `yaml:"artist_delay_min" mapstructure:"artist_delay_min"`
	ArtistDelayMax    time.Duration `yaml:"artist_delay_max" mapstructure:"artist_delay_max"`
	MembersPerTick    int           `yaml:"members_per_tick" mapstructure:"members_per_tick"`
	TickInterval      time.Duration `yaml:"tick_interval" mapstructure:"tick_interval"`
	MaxConcurrentJobs int           `yaml:"max_concurrent_jobs" mapstructure:"max_concurrent_jobs"`
}

// CacheConfig configures the paid-call cache.
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// PolicyConfig locates the email quality policy file.
type PolicyConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// TelemetryConfig configures the result webhook and metrics listener.
type TelemetryConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
	Listen     string `yaml:"listen" mapstructure:"listen"`
}

// CostConfig holds estimated unit prices for spend accounting.
type CostConfig struct {
	ScrapeUSD   float64 `yaml:"scrape_usd" mapstructure:"scrape_usd"`
	BulkRunUSD  float64 `yaml:"bulk_run_usd" mapstructure:"bulk_run_usd"`
	AISearchUSD float64 `yaml:"ai_search_usd" mapstructure:"ai_search_usd"`
	ClaudeUSD   float64 `yaml:"claude_usd" mapstructure:"claude_usd"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CRATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Secrets get empty defaults so the keys are known to viper;
	// AutomaticEnv only resolves env vars for known keys during Unmarshal.
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "crate.db")
	v.SetDefault("store.max_conns", 0)
	v.SetDefault("store.min_conns", 0)
	v.SetDefault("apify.api_key", "")
	v.SetDefault("apify.base_url", "https://api.apify.com/v2")
	v.SetDefault("apify.actor", "apify~website-content-crawler")
	v.SetDefault("perplexity.api_key", "")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "claude-3-5-haiku-latest")
	v.SetDefault("fetch.timeout", "15s")
	v.SetDefault("fetch.min_content_length", 100)
	v.SetDefault("fetch.max_body_bytes", 524288)
	v.SetDefault("fetch.user_agent", "")
	v.SetDefault("fetch.host_rps", 0.5)
	v.SetDefault("fetch.host_burst", 2)
	v.SetDefault("pipeline.artist_timeout", "3m")
	v.SetDefault("pipeline.rate_limit_backoff", "5s")
	v.SetDefault("pipeline.contact_paths", []string{"/contact", "/contact-us", "/about", "/booking"})
	v.SetDefault("batch.artist_delay_min", "15s")
	v.SetDefault("batch.artist_delay_max", "20s")
	v.SetDefault("batch.members_per_tick", 1)
	v.SetDefault("batch.tick_interval", "5s")
	v.SetDefault("batch.max_concurrent_jobs", 1)
	v.SetDefault("cache.ttl", "168h")
	v.SetDefault("policy.path", "")
	v.SetDefault("telemetry.webhook_url", "")
	v.SetDefault("telemetry.listen", ":8400")
	v.SetDefault("cost.scrape_usd", 0.002)
	v.SetDefault("cost.bulk_run_usd", 0.01)
	v.SetDefault("cost.ai_search_usd", 0.005)
	v.SetDefault("cost.claude_usd", 0.001)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Problems are
// joined into one error so the operator sees everything at once.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "enrich", "batch", "serve":
		if c.Store.DSN == "" {
			problems = append(problems, "store.dsn is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
		problems = append(problems, "store.driver must be sqlite or postgres")
	}
	if c.Batch.MembersPerTick < 1 {
		problems = append(problems, "batch.members_per_tick must be >= 1")
	}
	if c.Batch.MaxConcurrentJobs < 1 || c.Batch.MaxConcurrentJobs > 16 {
		problems = append(problems, "batch.max_concurrent_jobs must be between 1 and 16")
	}
	if c.Batch.ArtistDelayMin > c.Batch.ArtistDelayMax {
		problems = append(problems, "batch.artist_delay_min must not exceed batch.artist_delay_max")
	}
	if mode == "serve" && c.Telemetry.Listen == "" {
		problems = append(problems, "telemetry.listen is required")
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
