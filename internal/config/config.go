package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/technova/attrition-console/internal/client"
	"github.com/technova/attrition-console/internal/risk"
)

// Config captures the settings required to boot the attrition console.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	Logging  LoggingConfig  `yaml:"logging"`
	Risk     RiskConfig     `yaml:"risk"`
	Sessions SessionsConfig `yaml:"sessions"`
	Roster   RosterConfig   `yaml:"roster"`
	Cache    CacheConfig    `yaml:"cache"`
}

// ServerConfig controls the HTTP gateway and metrics listeners.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
	AllowedOrigins  []string      `yaml:"allowedOrigins"`
}

// ScoringConfig configures access to the attrition scoring service.
type ScoringConfig struct {
	BaseURL string        `yaml:"baseURL"`
	Timeout time.Duration `yaml:"timeout"`
	Paths   client.Paths  `yaml:"paths"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// RiskConfig controls the local tier fallback and presentation copy.
type RiskConfig struct {
	HighThreshold   float64 `yaml:"highThreshold"`
	MediumThreshold float64 `yaml:"mediumThreshold"`
	ProfilesPath    string  `yaml:"profilesPath"`
}

// Thresholds returns the configured fallback cut points.
func (r RiskConfig) Thresholds() risk.Thresholds {
	return risk.Thresholds{High: r.HighThreshold, Medium: r.MediumThreshold}
}

// SessionsConfig bounds the in-memory console sessions held by the gateway.
type SessionsConfig struct {
	MaxSessions int           `yaml:"maxSessions"`
	IdleTTL     time.Duration `yaml:"idleTTL"`
}

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheValkey = "valkey"
)

// CacheConfig controls caching of scoring service reference data.
type CacheConfig struct {
	Backend      string        `yaml:"backend"`
	TTL          time.Duration `yaml:"ttl"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
}

// RosterConfig controls roster paging.
type RosterConfig struct {
	PageSize    int `yaml:"pageSize"`
	MaxPageSize int `yaml:"maxPageSize"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("ATTRITION_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the console cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Scoring.BaseURL) == "" {
		return fmt.Errorf("scoring.baseURL is required")
	}
	if c.Scoring.Timeout <= 0 {
		return fmt.Errorf("scoring.timeout must be positive")
	}
	if err := c.Risk.Thresholds().Validate(); err != nil {
		return fmt.Errorf("risk: %w", err)
	}
	if c.Sessions.MaxSessions <= 0 {
		return fmt.Errorf("sessions.maxSessions must be positive")
	}
	if c.Roster.PageSize <= 0 || c.Roster.MaxPageSize < c.Roster.PageSize {
		return fmt.Errorf("roster.pageSize must be positive and not exceed roster.maxPageSize")
	}
	switch c.Cache.Backend {
	case CacheNone, CacheMemory:
	case CacheValkey:
		if strings.TrimSpace(c.Cache.Addr) == "" {
			return fmt.Errorf("cache.addr is required for the valkey backend")
		}
	default:
		return fmt.Errorf("unknown cache.backend %q", c.Cache.Backend)
	}
	return nil
}

func defaultConfig() Config {
	thresholds := risk.DefaultThresholds()
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Scoring: ScoringConfig{
			BaseURL: "http://localhost:8000",
			Timeout: client.DefaultTimeout,
			Paths:   client.DefaultPaths(),
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Risk: RiskConfig{
			HighThreshold:   thresholds.High,
			MediumThreshold: thresholds.Medium,
		},
		Sessions: SessionsConfig{
			MaxSessions: 256,
			IdleTTL:     30 * time.Minute,
		},
		Roster: RosterConfig{PageSize: 10, MaxPageSize: 100},
		Cache: CacheConfig{
			Backend:     CacheMemory,
			TTL:         5 * time.Minute,
			DialTimeout: 5 * time.Second,
			MaxRetries:  2,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ATTRITION_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("ATTRITION_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("ATTRITION_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("ATTRITION_API_URL"); v != "" {
		cfg.Scoring.BaseURL = v
	}
	if v := os.Getenv("ATTRITION_API_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Scoring.Timeout = d
		}
	}
	if v := os.Getenv("ATTRITION_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ATTRITION_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("ATTRITION_RISK_HIGH_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Risk.HighThreshold = f
		}
	}
	if v := os.Getenv("ATTRITION_RISK_MEDIUM_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Risk.MediumThreshold = f
		}
	}
	if v := os.Getenv("ATTRITION_RISK_PROFILES_PATH"); v != "" {
		cfg.Risk.ProfilesPath = v
	}
	if v := os.Getenv("ATTRITION_MAX_SESSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Sessions.MaxSessions = n
		}
	}
	if v := os.Getenv("ATTRITION_SESSION_IDLE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Sessions.IdleTTL = d
		}
	}
	if v := os.Getenv("ATTRITION_ROSTER_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Roster.PageSize = n
		}
	}
	if v := os.Getenv("ATTRITION_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("ATTRITION_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.TTL = d
		}
	}
	if v := os.Getenv("ATTRITION_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("ATTRITION_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("ATTRITION_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("ATTRITION_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("ATTRITION_CACHE_TLS"); strings.EqualFold(v, "true") || v == "1" {
		cfg.Cache.TLS = true
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
