// Package config loads the service configuration from a YAML file with
// environment-variable overrides for deploy-time and secret values.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultServerAddress     = ":8080"
	defaultReadTimeout       = 10 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultWorkerConcurrency = 2
	defaultJobPostTTL        = time.Hour
	defaultCandidateTTL      = 15 * time.Minute
	defaultWorkDir           = "candidates"
	defaultScoringModel      = "claude-opus-4-20250514"
	defaultScoringMaxTokens  = 1024
	defaultViewportScale     = 2.0
)

// Config is the root configuration for both the worker and API processes.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Redis      RedisConfig      `yaml:"redis"`
	Greenhouse GreenhouseConfig `yaml:"greenhouse"`
	Scoring    ScoringConfig    `yaml:"scoring"`
	Worker     WorkerConfig     `yaml:"worker"`
	Convert    ConvertConfig    `yaml:"convert"`
	Refresh    RefreshConfig    `yaml:"refresh"`
}

type ServerConfig struct {
	Address      string        `yaml:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// GreenhouseConfig configures the applicant-tracking API client.
type GreenhouseConfig struct {
	BaseURL string        `yaml:"base_url"`
	AuthKey string        `yaml:"-"` // GREENHOUSE_AUTH_KEY only, never from file
	Timeout time.Duration `yaml:"timeout"`

	// JobPostTTL bounds the job-description cache; CandidateTTL bounds the
	// raw candidate-detail cache. The two are independent.
	JobPostTTL   time.Duration `yaml:"job_post_ttl"`
	CandidateTTL time.Duration `yaml:"candidate_ttl"`
}

// ScoringConfig configures the language-model scoring client.
type ScoringConfig struct {
	APIKey    string `yaml:"-"` // ANTHROPIC_API_KEY only
	Model     string `yaml:"model"`
	MaxTokens int64  `yaml:"max_tokens"`

	// DryRun skips the scoring API and assigns a pseudo-random score.
	// Cost-control affordance for local runs and load tests.
	DryRun bool `yaml:"dry_run"`
}

type WorkerConfig struct {
	Concurrency int           `yaml:"concurrency"`
	JobTimeout  time.Duration `yaml:"job_timeout"`
}

type ConvertConfig struct {
	WorkDir       string  `yaml:"work_dir"`
	SofficePath   string  `yaml:"soffice_path"`
	ViewportScale float64 `yaml:"viewport_scale"`
}

// RefreshConfig drives the optional scheduled re-download of job postings.
type RefreshConfig struct {
	Schedule string  `yaml:"schedule"` // cron expression, empty disables
	JobIDs   []int64 `yaml:"job_ids"`
}

// Load reads the config file at path, applies defaults and environment
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	setDefaults(&cfg)
	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate checks required fields. Secrets are checked lazily by the
// clients that need them so read-only commands work without them.
func (c *Config) Validate() error {
	if c.Redis.Addr == "" {
		return errors.New("redis.addr is required")
	}
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker.concurrency must be positive, got %d", c.Worker.Concurrency)
	}
	if c.Convert.ViewportScale <= 0 {
		return fmt.Errorf("convert.viewport_scale must be positive, got %v", c.Convert.ViewportScale)
	}
	if c.Refresh.Schedule != "" && len(c.Refresh.JobIDs) == 0 {
		return errors.New("refresh.job_ids is required when refresh.schedule is set")
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = defaultServerAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Greenhouse.BaseURL == "" {
		cfg.Greenhouse.BaseURL = "https://harvest.greenhouse.io/v1"
	}
	if cfg.Greenhouse.Timeout == 0 {
		cfg.Greenhouse.Timeout = 30 * time.Second
	}
	if cfg.Greenhouse.JobPostTTL == 0 {
		cfg.Greenhouse.JobPostTTL = defaultJobPostTTL
	}
	if cfg.Greenhouse.CandidateTTL == 0 {
		cfg.Greenhouse.CandidateTTL = defaultCandidateTTL
	}
	if cfg.Scoring.Model == "" {
		cfg.Scoring.Model = defaultScoringModel
	}
	if cfg.Scoring.MaxTokens == 0 {
		cfg.Scoring.MaxTokens = defaultScoringMaxTokens
	}
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = defaultWorkerConcurrency
	}
	if cfg.Worker.JobTimeout == 0 {
		cfg.Worker.JobTimeout = 10 * time.Minute
	}
	if cfg.Convert.WorkDir == "" {
		cfg.Convert.WorkDir = defaultWorkDir
	}
	if cfg.Convert.SofficePath == "" {
		cfg.Convert.SofficePath = "soffice"
	}
	if cfg.Convert.ViewportScale == 0 {
		cfg.Convert.ViewportScale = defaultViewportScale
	}
}

func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("GREENHOUSE_AUTH_KEY"); v != "" {
		cfg.Greenhouse.AuthKey = v
	}
	if v := os.Getenv("GREENHOUSE_BASE_URL"); v != "" {
		cfg.Greenhouse.BaseURL = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Scoring.APIKey = v
	}
	if v := os.Getenv("SCORING_DRY_RUN"); v != "" {
		cfg.Scoring.DryRun = parseBool(v)
	}
	if v := os.Getenv("APP_DEBUG"); v != "" {
		cfg.Debug = parseBool(v)
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Address = v
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes"
}
