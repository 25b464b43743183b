package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/roster-enrich/internal/credential"
	"github.com/sells-group/roster-enrich/internal/resilience"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Readme      ReadmeConfig      `yaml:"readme" mapstructure:"readme"`
	Apify       ApifyConfig       `yaml:"apify" mapstructure:"apify"`
	Search      SearchConfig      `yaml:"search" mapstructure:"search"`
	Serper      SerperConfig      `yaml:"serper" mapstructure:"serper"`
	SerpAPI     SerpAPIConfig     `yaml:"serpapi" mapstructure:"serpapi"`
	GoogleCSE   GoogleCSEConfig   `yaml:"google_cse" mapstructure:"google_cse"`
	Credentials CredentialsConfig `yaml:"credentials" mapstructure:"credentials"`
	Retry       RetryConfig       `yaml:"retry" mapstructure:"retry"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run ledger backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
	Disabled    bool   `yaml:"disabled" mapstructure:"disabled"`
}

// ReadmeConfig configures profile README fetching.
type ReadmeConfig struct {
	URLTemplate string `yaml:"url_template" mapstructure:"url_template"`
	DelayMs     int    `yaml:"delay_ms" mapstructure:"delay_ms"`
	MaxAttempts int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
}

// Delay returns the pause before each attempt.
func (c ReadmeConfig) Delay() time.Duration {
	return time.Duration(c.DelayMs) * time.Millisecond
}

// ApifyConfig holds Apify actor settings.
type ApifyConfig struct {
	Tokens          string `yaml:"tokens" mapstructure:"tokens"` // JSON object: token -> remaining uses
	ActorID         string `yaml:"actor_id" mapstructure:"actor_id"`
	BaseURL         string `yaml:"base_url" mapstructure:"base_url"`
	MaxBatch        int    `yaml:"max_batch" mapstructure:"max_batch"`
	PageSize        int    `yaml:"page_size" mapstructure:"page_size"`
	PollTimeoutSecs int    `yaml:"poll_timeout_secs" mapstructure:"poll_timeout_secs"`
}

// SearchConfig holds settings shared by every search provider.
type SearchConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"` // serper, serpapi or google_cse
	Site     string `yaml:"site" mapstructure:"site"`
	Location string `yaml:"location" mapstructure:"location"`
	Country  string `yaml:"country" mapstructure:"country"`
	PerPage  int    `yaml:"per_page" mapstructure:"per_page"`
	MaxPages int    `yaml:"max_pages" mapstructure:"max_pages"`
	DelayMs  int    `yaml:"delay_ms" mapstructure:"delay_ms"`
}

// Delay returns the minimum spacing between page requests.
func (c SearchConfig) Delay() time.Duration {
	return time.Duration(c.DelayMs) * time.Millisecond
}

// SerperConfig holds Serper credentials.
type SerperConfig struct {
	Tokens  string `yaml:"tokens" mapstructure:"tokens"` // JSON object: token -> remaining uses
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// SerpAPIConfig holds SerpApi credentials.
type SerpAPIConfig struct {
	Tokens  string `yaml:"tokens" mapstructure:"tokens"` // JSON object: token -> remaining uses
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Engine  string `yaml:"engine" mapstructure:"engine"`
}

// GoogleCSEConfig holds the Custom Search key and engine. The single key is
// pooled with DailyQuota uses.
type GoogleCSEConfig struct {
	APIKey     string `yaml:"api_key" mapstructure:"api_key"`
	EngineID   string `yaml:"engine_id" mapstructure:"engine_id"`
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	DailyQuota int    `yaml:"daily_quota" mapstructure:"daily_quota"`
}

// CredentialsConfig points at an optional credentials file.
type CredentialsConfig struct {
	File string `yaml:"file" mapstructure:"file"`
}

// RetryConfig configures retries for API reads.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// Policy converts the config to a resilience.RetryConfig.
func (c RetryConfig) Policy() resilience.RetryConfig {
	return resilience.FromRetryConfig(c.MaxAttempts, c.InitialBackoffMs, c.MaxBackoffMs, c.Multiplier, c.JitterFraction)
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
	v.SetEnvPrefix("ENRICH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unprefixed names used by existing .env files.
	for key, env := range map[string]string{
		"apify.tokens":         "APIFY_TOKENS",
		"apify.actor_id":       "APIFY_ACTOR_ID",
		"serper.tokens":        "SERPER_TOKENS",
		"serpapi.tokens":       "SERP_API_TOKENS",
		"serpapi.engine":       "SERP_API_ENGINE_ID",
		"google_cse.api_key":   "GOOGLE_CLOUD_API_KEY",
		"google_cse.engine_id": "GOOGLE_SEARCH_ENGINE_ID",
	} {
		prefixed := "ENRICH_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", env)
		}
	}

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "roster-enrich.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("readme.url_template", "https://raw.githubusercontent.com/{id}/{id}/main/README.md")
	v.SetDefault("readme.delay_ms", 2000)
	v.SetDefault("readme.max_attempts", 3)
	v.SetDefault("readme.timeout_secs", 15)
	v.SetDefault("readme.user_agent", "roster-enrich/1.0")
	v.SetDefault("apify.base_url", "https://api.apify.com/v2")
	v.SetDefault("apify.max_batch", 100)
	v.SetDefault("apify.page_size", 100)
	v.SetDefault("apify.poll_timeout_secs", 600)
	v.SetDefault("search.provider", "serper")
	v.SetDefault("search.site", "ma.linkedin.com/in/")
	v.SetDefault("search.location", "Morocco")
	v.SetDefault("search.country", "ma")
	v.SetDefault("search.per_page", 10)
	v.SetDefault("search.max_pages", 10)
	v.SetDefault("search.delay_ms", 1000)
	v.SetDefault("serper.base_url", "https://google.serper.dev")
	v.SetDefault("serpapi.base_url", "https://serpapi.com")
	v.SetDefault("serpapi.engine", "google")
	v.SetDefault("google_cse.base_url", "https://www.googleapis.com/customsearch/v1")
	v.SetDefault("google_cse.daily_quota", 100)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 30000)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter_fraction", 0.25)

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

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return eris.Errorf("config: store.driver must be sqlite or postgres, got %q", c.Store.Driver)
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" && !c.Store.Disabled {
		return eris.New("config: store.database_url is required for postgres")
	}
	if c.Readme.MaxAttempts < 1 {
		return eris.Errorf("config: readme.max_attempts must be >= 1, got %d", c.Readme.MaxAttempts)
	}
	if c.Readme.DelayMs < 0 {
		return eris.Errorf("config: readme.delay_ms must be >= 0, got %d", c.Readme.DelayMs)
	}
	if !strings.Contains(c.Readme.URLTemplate, "{id}") {
		return eris.Errorf("config: readme.url_template must contain {id}, got %q", c.Readme.URLTemplate)
	}
	if c.Apify.MaxBatch < 1 {
		return eris.Errorf("config: apify.max_batch must be >= 1, got %d", c.Apify.MaxBatch)
	}
	switch c.Search.Provider {
	case "serper", "serpapi", "google_cse":
	default:
		return eris.Errorf("config: search.provider must be serper, serpapi or google_cse, got %q", c.Search.Provider)
	}
	if c.Search.PerPage < 1 || c.Search.MaxPages < 1 {
		return eris.New("config: search.per_page and search.max_pages must be >= 1")
	}
	if c.Search.DelayMs < 0 {
		return eris.Errorf("config: search.delay_ms must be >= 0, got %d", c.Search.DelayMs)
	}
	return nil
}

// ApifyPool builds the Apify credential pool from apify.tokens merged with
// the apify section of the credentials file.
func (c *Config) ApifyPool() (*credential.Pool, error) {
	return c.pool(c.Apify.Tokens, func(f *credential.File) map[string]int { return f.Apify })
}

// SerperPool builds the Serper credential pool from serper.tokens merged
// with the serper section of the credentials file.
func (c *Config) SerperPool() (*credential.Pool, error) {
	return c.pool(c.Serper.Tokens, func(f *credential.File) map[string]int { return f.Serper })
}

// SerpAPIPool builds the SerpApi credential pool from serpapi.tokens merged
// with the serpapi section of the credentials file.
func (c *Config) SerpAPIPool() (*credential.Pool, error) {
	return c.pool(c.SerpAPI.Tokens, func(f *credential.File) map[string]int { return f.SerpAPI })
}

// GoogleCSEPool returns a pool holding the single Custom Search key with
// google_cse.daily_quota uses. It is empty when no key is configured.
func (c *Config) GoogleCSEPool() *credential.Pool {
	if c.GoogleCSE.APIKey == "" {
		return credential.NewPool(nil)
	}
	return credential.NewPool(map[string]int{c.GoogleCSE.APIKey: c.GoogleCSE.DailyQuota})
}

func (c *Config) pool(raw string, section func(*credential.File) map[string]int) (*credential.Pool, error) {
	fromEnv, err := credential.Parse(raw)
	if err != nil {
		return nil, eris.Wrap(err, "config: parse tokens")
	}
	fromFile := map[string]int{}
	if c.Credentials.File != "" {
		f, err := credential.LoadFile(c.Credentials.File)
		if err != nil {
			return nil, err
		}
		fromFile = section(f)
	}
	return credential.NewPool(credential.Merge(fromFile, fromEnv)), nil
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
