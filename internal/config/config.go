// Package config provides unified configuration loading for the answer engine.
// Supports YAML files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the answer engine.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Store         StoreConfig         `yaml:"store"`
	Cache         CacheConfig         `yaml:"cache"`
	Chat          ChatConfig          `yaml:"chat"`
	LLM           LLMConfig           `yaml:"llm"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
	AdminToken       string        `yaml:"admin_token"`
	AllowedOrigins   []string      `yaml:"allowed_origins"`
	ChatRateLimit    int           `yaml:"chat_rate_limit"` // concurrent /chat requests
}

// StoreConfig selects and configures the authoritative entry store tier.
type StoreConfig struct {
	Driver string         `yaml:"driver"` // file, postgres or sqlite
	File   FileConfig     `yaml:"file"`
	SQL    SQLStoreConfig `yaml:"sql"`
}

// FileConfig holds durable-file tier settings.
type FileConfig struct {
	DataDir string `yaml:"data_dir"`
}

// SQLStoreConfig holds relational tier settings.
type SQLStoreConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// CacheConfig holds distributed cache tier settings.
type CacheConfig struct {
	Driver string        `yaml:"driver"` // none, memory or redis
	TTL    time.Duration `yaml:"ttl"`
	Redis  RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// ChatConfig holds the resolver pipeline settings.
type ChatConfig struct {
	ProbeToken     string   `yaml:"probe_token"`
	ProbeReply     string   `yaml:"probe_reply"`
	Greetings      []string `yaml:"greetings"`
	GreetingReply  string   `yaml:"greeting_reply"`
	DomainKeywords []string `yaml:"domain_keywords"`
	ContactEmail   string   `yaml:"contact_email"`
	ContactPhone   string   `yaml:"contact_phone"`
	AcceptScore    float64  `yaml:"accept_score"`

	// MaxTokenDistance is the per-token fuzzy matching tolerance. 0.35 is
	// strict; 0.5 tolerates heavier typos at the cost of false positives.
	MaxTokenDistance float64 `yaml:"max_token_distance"`
}

// LLMConfig holds the LLM fallback settings.
type LLMConfig struct {
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Persona     string        `yaml:"persona"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

const defaultPersona = `Du bist der digitale Assistent der Uwe Müller GmbH (Baumaschinen Müller).
Antworten: professionell, freundlich, kurz und informativ.
Wenn es um Maschinen geht, verweise IMMER auf den direkten Kontakt:
📧 info@baumaschinen-mueller.de
📞 +49 2403 997312
Wenn du keine Infos hast, ebenfalls Kontakt angeben.`

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             3000,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     60 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 10 * time.Second,
			AllowedOrigins: []string{
				"https://www.baumaschinen-mueller.de",
				"https://baumaschinen-mueller.de",
			},
			ChatRateLimit: 60,
		},
		Store: StoreConfig{
			Driver: "file",
			File: FileConfig{
				DataDir: "./data",
			},
			SQL: SQLStoreConfig{
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
		Cache: CacheConfig{
			Driver: "none",
			TTL:    10 * time.Minute,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				DB:       0,
				PoolSize: 10,
			},
		},
		Chat: ChatConfig{
			ProbeToken:    "ping",
			ProbeReply:    "pong",
			Greetings:     []string{"hi", "hallo", "hey", "guten tag", "moin", "servus", "danke", "vielen dank"},
			GreetingReply: "👋 Hallo! Wie kann ich Ihnen helfen?",
			DomainKeywords: []string{
				"bagger", "minibagger", "radlader", "maschine", "maschinen",
				"lader", "komatsu", "caterpillar", "volvo", "jcb", "kubota", "motor",
			},
			ContactEmail:     "info@baumaschinen-mueller.de",
			ContactPhone:     "+49 2403 997312",
			AcceptScore:      0.4,
			MaxTokenDistance: 0.35,
		},
		LLM: LLMConfig{
			Model:       "gpt-4o-mini",
			Persona:     defaultPersona,
			Temperature: 0.6,
			MaxTokens:   500,
			Timeout:     30 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Store.Driver {
	case "file", "postgres", "sqlite":
	default:
		return fmt.Errorf("invalid store driver: %s", c.Store.Driver)
	}

	switch c.Cache.Driver {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}

	if c.Chat.AcceptScore <= 0 || c.Chat.AcceptScore > 1 {
		return fmt.Errorf("accept_score must be in (0,1], got %f", c.Chat.AcceptScore)
	}

	if c.Chat.MaxTokenDistance <= 0 || c.Chat.MaxTokenDistance > 1 {
		return fmt.Errorf("max_token_distance must be in (0,1], got %f", c.Chat.MaxTokenDistance)
	}

	if c.Store.Driver != "file" && c.Store.SQL.DSN == "" {
		return fmt.Errorf("sql dsn is required for store driver %s", c.Store.Driver)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}

	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Store.File.DataDir = v
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		if strings.HasPrefix(v, "sqlite:") {
			cfg.Store.Driver = "sqlite"
			cfg.Store.SQL.DSN = strings.TrimPrefix(v, "sqlite:")
		} else if strings.HasPrefix(v, "postgres") {
			cfg.Store.Driver = "postgres"
			cfg.Store.SQL.DSN = v
		}
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		cfg.Cache.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}

	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.LLM.Model = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}
