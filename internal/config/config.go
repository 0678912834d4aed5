package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv   = "REFSCREENER_CONFIG"
	databasePathEnv = "REFSCREENER_DB"
	mailtoEnv       = "REFSCREENER_MAILTO"
	indexURLEnv     = "RETRACTION_INDEX_URL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Database  DatabaseConfig  `yaml:"database"`
	Providers ProviderConfig  `yaml:"providers"`
	Screening ScreeningConfig `yaml:"screening"`
	Batch     BatchConfig     `yaml:"batch"`
	Retry     RetryConfig     `yaml:"retry"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// LoggingConfig sets the console log level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig locates the SQLite job row store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ProviderConfig groups endpoints for every external source.
type ProviderConfig struct {
	OpenAlex EndpointConfig `yaml:"openalex"`
	Crossref EndpointConfig `yaml:"crossref"`
	PubMed   EndpointConfig `yaml:"pubmed"`
	Landing  LandingConfig  `yaml:"landing"`
	Index    IndexConfig    `yaml:"index"`
}

// EndpointConfig describes one provider API.
type EndpointConfig struct {
	BaseURL string `yaml:"baseUrl"`
	Mailto  string `yaml:"mailto"`
}

// LandingConfig controls the landing-page banner scan.
type LandingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ResolverURL string `yaml:"resolverUrl"`
}

// IndexConfig locates the bulk retraction dataset.
type IndexConfig struct {
	URL string `yaml:"url"`
}

// ScreeningConfig tunes the reference resolver.
type ScreeningConfig struct {
	BatchSize int `yaml:"batchSize"`
	// ShortCircuitRetracted skips reference evaluation when the focal DOI
	// itself is in the bulk index. Nil means the default (on).
	ShortCircuitRetracted *bool `yaml:"shortCircuitRetracted"`
}

// ShortCircuit resolves the tri-state flag.
func (s ScreeningConfig) ShortCircuit() bool {
	if s.ShortCircuitRetracted == nil {
		return true
	}
	return *s.ShortCircuitRetracted
}

// BatchConfig bounds one runner invocation. Durations are plain seconds so
// the YAML stays obvious.
type BatchConfig struct {
	Limit               int `yaml:"limit"`
	PauseSeconds        int `yaml:"pauseSeconds"`
	TimeBudgetSeconds   int `yaml:"timeBudgetSeconds"`
	SafetyMarginSeconds int `yaml:"safetyMarginSeconds"`
	AllBudgetSeconds    int `yaml:"allBudgetSeconds"`
}

// Pause converts the configured pause to a duration.
func (b BatchConfig) Pause() time.Duration { return time.Duration(b.PauseSeconds) * time.Second }

// TimeBudget converts the configured batch budget to a duration.
func (b BatchConfig) TimeBudget() time.Duration {
	return time.Duration(b.TimeBudgetSeconds) * time.Second
}

// SafetyMargin converts the configured margin to a duration.
func (b BatchConfig) SafetyMargin() time.Duration {
	return time.Duration(b.SafetyMarginSeconds) * time.Second
}

// AllBudget converts the configured supervisory budget to a duration.
func (b BatchConfig) AllBudget() time.Duration {
	return time.Duration(b.AllBudgetSeconds) * time.Second
}

// RetryConfig describes the provider backoff policy.
type RetryConfig struct {
	MaxAttempts     int     `yaml:"maxAttempts"`
	BaseDelayMillis int     `yaml:"baseDelayMillis"`
	Multiplier      float64 `yaml:"multiplier"`
}

// BaseDelay converts the configured base delay to a duration.
func (r RetryConfig) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelayMillis) * time.Millisecond
}

// SchedulerConfig defines when recurring batch sweeps run.
type SchedulerConfig struct {
	CronExpression string `yaml:"cronExpression"`
}

// Load reads YAML configuration (if present) and applies environment
// overrides. An empty path falls back to REFSCREENER_CONFIG.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(mailtoEnv); v != "" {
		c.Providers.OpenAlex.Mailto = v
		c.Providers.Crossref.Mailto = v
	}
	if v := os.Getenv(indexURLEnv); v != "" {
		c.Providers.Index.URL = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}
	if override.Database.Path != "" {
		base.Database = override.Database
	}

	if override.Providers.OpenAlex.BaseURL != "" {
		base.Providers.OpenAlex.BaseURL = override.Providers.OpenAlex.BaseURL
	}
	if override.Providers.OpenAlex.Mailto != "" {
		base.Providers.OpenAlex.Mailto = override.Providers.OpenAlex.Mailto
	}
	if override.Providers.Crossref.BaseURL != "" {
		base.Providers.Crossref.BaseURL = override.Providers.Crossref.BaseURL
	}
	if override.Providers.Crossref.Mailto != "" {
		base.Providers.Crossref.Mailto = override.Providers.Crossref.Mailto
	}
	if override.Providers.PubMed.BaseURL != "" {
		base.Providers.PubMed.BaseURL = override.Providers.PubMed.BaseURL
	}
	if override.Providers.Landing.ResolverURL != "" {
		base.Providers.Landing = override.Providers.Landing
	}
	if override.Providers.Index.URL != "" {
		base.Providers.Index = override.Providers.Index
	}

	if override.Screening.BatchSize > 0 {
		base.Screening.BatchSize = override.Screening.BatchSize
	}
	if override.Screening.ShortCircuitRetracted != nil {
		base.Screening.ShortCircuitRetracted = override.Screening.ShortCircuitRetracted
	}

	if override.Batch.Limit > 0 {
		base.Batch.Limit = override.Batch.Limit
	}
	if override.Batch.PauseSeconds > 0 {
		base.Batch.PauseSeconds = override.Batch.PauseSeconds
	}
	if override.Batch.TimeBudgetSeconds > 0 {
		base.Batch.TimeBudgetSeconds = override.Batch.TimeBudgetSeconds
	}
	if override.Batch.SafetyMarginSeconds > 0 {
		base.Batch.SafetyMarginSeconds = override.Batch.SafetyMarginSeconds
	}
	if override.Batch.AllBudgetSeconds > 0 {
		base.Batch.AllBudgetSeconds = override.Batch.AllBudgetSeconds
	}

	if override.Retry.MaxAttempts > 0 {
		base.Retry.MaxAttempts = override.Retry.MaxAttempts
	}
	if override.Retry.BaseDelayMillis > 0 {
		base.Retry.BaseDelayMillis = override.Retry.BaseDelayMillis
	}
	if override.Retry.Multiplier > 0 {
		base.Retry.Multiplier = override.Retry.Multiplier
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler = override.Scheduler
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info"},
		Database: DatabaseConfig{Path: "refscreener.db"},
		Providers: ProviderConfig{
			OpenAlex: EndpointConfig{BaseURL: "https://api.openalex.org"},
			Crossref: EndpointConfig{BaseURL: "https://api.crossref.org"},
			PubMed:   EndpointConfig{BaseURL: "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"},
			Landing:  LandingConfig{Enabled: true, ResolverURL: "https://doi.org"},
			Index:    IndexConfig{URL: "https://api.labs.crossref.org/data/retractionwatch"},
		},
		Screening: ScreeningConfig{BatchSize: 40},
		Batch: BatchConfig{
			Limit:               25,
			PauseSeconds:        2,
			TimeBudgetSeconds:   300,
			SafetyMarginSeconds: 30,
			AllBudgetSeconds:    21600,
		},
		Retry: RetryConfig{
			MaxAttempts:     2,
			BaseDelayMillis: 1000,
			Multiplier:      2.0,
		},
		Scheduler: SchedulerConfig{CronExpression: "0 6 * * *"},
	}
}
