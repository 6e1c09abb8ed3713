// Package config loads service settings from the environment (and an optional .env file).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DispatchInProcess = "inprocess"
	DispatchQueue     = "queue"
)

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// PostgresDSN selects the durable store; empty keeps jobs in memory.
	PostgresDSN string `env:"POSTGRES_DSN"`
	RedisAddr   string `env:"REDIS_ADDR"`

	Dispatch DispatchConfig
	Research ResearchConfig
	LLM      LLMConfig
	Log      LogConfig

	// JWTSecret enables bearer-token identity. Without it the X-Owner-ID header is trusted.
	JWTSecret string `env:"JWT_SECRET"`
}

type DispatchConfig struct {
	Mode              string        `env:"DISPATCH_MODE"          envDefault:"inprocess"`
	Workers           int           `env:"WORKERS"                envDefault:"4"`
	QueueKey          string        `env:"REDIS_QUEUE_KEY"        envDefault:"research:jobs:queue"`
	ProcessingKey     string        `env:"REDIS_PROCESSING_KEY"   envDefault:"research:jobs:processing"`
	LockPrefix        string        `env:"REDIS_LOCK_PREFIX"      envDefault:"research:jobs:lock:"`
	LockTTL           time.Duration `env:"EXECUTION_LOCK_TTL"     envDefault:"30m"`
	VisibilityTimeout time.Duration `env:"QUEUE_VISIBILITY"       envDefault:"15m"`
	ReapInterval      time.Duration `env:"QUEUE_REAP_INTERVAL"    envDefault:"30s"`
}

type ResearchConfig struct {
	Provider      string        `env:"SEARCH_PROVIDER"        envDefault:"serper"`
	SerperAPIKey  string        `env:"SERPER_API_KEY"`
	SerperBaseURL string        `env:"SERPER_BASE_URL"        envDefault:"https://google.serper.dev"`
	GoogleAPIKey  string        `env:"GOOGLE_SEARCH_API_KEY"`
	GoogleCX      string        `env:"GOOGLE_SEARCH_CX"`
	CallTimeout   time.Duration `env:"RESEARCH_TIMEOUT"       envDefault:"45s"`
	JobDeadline   time.Duration `env:"JOB_DEADLINE"           envDefault:"0s"`
	MaxInFlight   int           `env:"RESEARCH_MAX_IN_FLIGHT" envDefault:"3"`
	MaxTopics     int           `env:"MAX_TOPICS"             envDefault:"20"`
	MaxArticles   int           `env:"MAX_ARTICLES"           envDefault:"5"`
	MaxPapers     int           `env:"MAX_PAPERS"             envDefault:"3"`
}

type LLMConfig struct {
	Provider string        `env:"SUMMARIZER"        envDefault:"none"`
	APIKey   string        `env:"GEMINI_API_KEY"`
	Model    string        `env:"GEMINI_MODEL"      envDefault:"gemini-2.5-flash"`
	Timeout  time.Duration `env:"SUMMARIZE_TIMEOUT" envDefault:"60s"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL"  envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Sanitize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Sanitize clamps out-of-range values back to defaults.
func (c *Config) Sanitize() {
	c.Dispatch.Mode = strings.ToLower(strings.TrimSpace(c.Dispatch.Mode))
	if c.Dispatch.Mode == "" {
		c.Dispatch.Mode = DispatchInProcess
	}
	if c.Dispatch.Workers <= 0 {
		c.Dispatch.Workers = 4
	}
	if c.Dispatch.LockTTL <= 0 {
		c.Dispatch.LockTTL = 30 * time.Minute
	}
	if c.Dispatch.VisibilityTimeout <= 0 {
		c.Dispatch.VisibilityTimeout = 15 * time.Minute
	}
	if c.Dispatch.ReapInterval <= 0 {
		c.Dispatch.ReapInterval = 30 * time.Second
	}

	c.Research.Provider = strings.ToLower(strings.TrimSpace(c.Research.Provider))
	if c.Research.CallTimeout <= 0 {
		c.Research.CallTimeout = 45 * time.Second
	}
	if c.Research.JobDeadline < 0 {
		c.Research.JobDeadline = 0
	}
	if c.Research.MaxInFlight <= 0 {
		c.Research.MaxInFlight = 1
	}
	if c.Research.MaxTopics <= 0 {
		c.Research.MaxTopics = 20
	}
	if c.Research.MaxArticles <= 0 {
		c.Research.MaxArticles = 5
	}
	if c.Research.MaxPapers <= 0 {
		c.Research.MaxPapers = 3
	}

	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = 60 * time.Second
	}
}

// LongestJob estimates the longest a job may run with these settings: every topic wave
// hitting the research timeout, bounded by JOB_DEADLINE, plus the overview summary.
func (c *Config) LongestJob() time.Duration {
	inFlight := max(c.Research.MaxInFlight, 1)
	waves := (c.Research.MaxTopics + inFlight - 1) / inFlight
	d := time.Duration(waves) * c.Research.CallTimeout
	if c.Research.JobDeadline > 0 && c.Research.JobDeadline < d {
		d = c.Research.JobDeadline
	}
	if c.LLM.Provider == "gemini" {
		d += c.LLM.Timeout
	}
	return d
}

// Warnings reports settings that are valid but work against each other.
func (c *Config) Warnings() []string {
	var out []string
	if c.Dispatch.Mode == DispatchQueue {
		if longest := c.LongestJob(); c.Dispatch.VisibilityTimeout <= longest {
			out = append(out, fmt.Sprintf(
				"QUEUE_VISIBILITY (%s) is not above the longest possible job (%s): running jobs may be redelivered",
				c.Dispatch.VisibilityTimeout, longest))
		}
		if c.Dispatch.LockTTL <= c.LongestJob() {
			out = append(out, fmt.Sprintf(
				"EXECUTION_LOCK_TTL (%s) is not above the longest possible job (%s): a redelivery may run concurrently",
				c.Dispatch.LockTTL, c.LongestJob()))
		}
	}
	return out
}

func (c *Config) Validate() error {
	switch c.Dispatch.Mode {
	case DispatchInProcess:
	case DispatchQueue:
		if c.RedisAddr == "" {
			return fmt.Errorf("config: REDIS_ADDR is required for DISPATCH_MODE=%s", DispatchQueue)
		}
		if c.PostgresDSN == "" {
			return fmt.Errorf("config: POSTGRES_DSN is required for DISPATCH_MODE=%s", DispatchQueue)
		}
	default:
		return fmt.Errorf("config: unknown DISPATCH_MODE %q", c.Dispatch.Mode)
	}

	switch c.Research.Provider {
	case "serper":
		if c.Research.SerperAPIKey == "" {
			return fmt.Errorf("config: SERPER_API_KEY is required for SEARCH_PROVIDER=serper")
		}
	case "customsearch":
		if c.Research.GoogleAPIKey == "" || c.Research.GoogleCX == "" {
			return fmt.Errorf("config: GOOGLE_SEARCH_API_KEY and GOOGLE_SEARCH_CX are required for SEARCH_PROVIDER=customsearch")
		}
	case "none":
	default:
		return fmt.Errorf("config: unknown SEARCH_PROVIDER %q", c.Research.Provider)
	}

	switch c.LLM.Provider {
	case "none", "":
	case "gemini":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("config: GEMINI_API_KEY is required for SUMMARIZER=gemini")
		}
	default:
		return fmt.Errorf("config: unknown SUMMARIZER %q", c.LLM.Provider)
	}
	return nil
}
