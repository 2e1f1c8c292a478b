// Package config loads autoshell settings from built-in defaults, an optional
// YAML file and AUTOSHELL_* environment variables, in that order.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable, e.g. AUTOSHELL_SERVER_ADDR.
const EnvPrefix = "AUTOSHELL_"

// History backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

const defaults = `
server:
  addr: ":8080"
  shutdown_timeout: 10s
  max_task_size: 65536
  trust_proxy: false
orchestrator:
  budget: 5
  preamble_file: primer.txt
  command_timeout: 10m
  workdir: ""
completion:
  model: gpt-4o-mini
  base_url: ""
github:
  workdir: repos
  author_name: autoshell
  author_email: autoshell@localhost
history:
  backend: memory
  ttl: 0s
  redact: true
redis:
  addr: localhost:6379
  db: 0
  prefix: "autoshell:"
logging:
  level: info
  format: text
  file: ""
`

// Config holds the complete autoshell configuration.
type Config struct {
	Server       ServerConfig       `koanf:"server" yaml:"server"`
	Orchestrator OrchestratorConfig `koanf:"orchestrator" yaml:"orchestrator"`
	Completion   CompletionConfig   `koanf:"completion" yaml:"completion"`
	GitHub       GitHubConfig       `koanf:"github" yaml:"github"`
	History      HistoryConfig      `koanf:"history" yaml:"history"`
	Redis        RedisConfig        `koanf:"redis" yaml:"redis"`
	Logging      LoggingConfig      `koanf:"logging" yaml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string        `koanf:"addr" yaml:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxTaskSize     int           `koanf:"max_task_size" yaml:"max_task_size"`
	// TrustProxy takes client addresses from forwarding headers (behind a reverse proxy only).
	TrustProxy bool `koanf:"trust_proxy" yaml:"trust_proxy"`
}

// OrchestratorConfig holds the task loop settings.
type OrchestratorConfig struct {
	Budget         int           `koanf:"budget" yaml:"budget"`
	PreambleFile   string        `koanf:"preamble_file" yaml:"preamble_file"`
	CommandTimeout time.Duration `koanf:"command_timeout" yaml:"command_timeout"`
	Workdir        string        `koanf:"workdir" yaml:"workdir"`
}

// CompletionConfig holds the completion endpoint settings.
type CompletionConfig struct {
	Model   string `koanf:"model" yaml:"model"`
	APIKey  Secret `koanf:"api_key" yaml:"api_key"`
	BaseURL string `koanf:"base_url" yaml:"base_url"`
}

// GitHubConfig holds webhook and checkout settings.
type GitHubConfig struct {
	WebhookSecret Secret   `koanf:"webhook_secret" yaml:"webhook_secret"`
	Token         Secret   `koanf:"token" yaml:"token"`
	Users         []string `koanf:"users" yaml:"users"`
	Orgs          []string `koanf:"orgs" yaml:"orgs"`
	Workdir       string   `koanf:"workdir" yaml:"workdir"`
	AuthorName    string   `koanf:"author_name" yaml:"author_name"`
	AuthorEmail   string   `koanf:"author_email" yaml:"author_email"`
}

// HistoryConfig selects the issue history cache.
type HistoryConfig struct {
	Backend string        `koanf:"backend" yaml:"backend"`
	TTL     time.Duration `koanf:"ttl" yaml:"ttl"`

	// Redact masks credentials in cached messages. RedactPatterns replaces the
	// built-in patterns when set.
	Redact         bool     `koanf:"redact" yaml:"redact"`
	RedactPatterns []string `koanf:"redact_patterns" yaml:"redact_patterns,omitempty"`

	// EncryptionKey is a base64 AES-256 key; when set, cached content is encrypted.
	// FallbackKeys decrypt entries written before a key rotation.
	EncryptionKey Secret   `koanf:"encryption_key" yaml:"encryption_key"`
	FallbackKeys  []Secret `koanf:"fallback_keys" yaml:"fallback_keys,omitempty"`
}

// RedisConfig holds the Redis connection used by the redis history backend and locks.
type RedisConfig struct {
	Addr     string `koanf:"addr" yaml:"addr"`
	Password Secret `koanf:"password" yaml:"password"`
	DB       int    `koanf:"db" yaml:"db"`
	Prefix   string `koanf:"prefix" yaml:"prefix"`
}

// LoggingConfig holds the logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
	File   string `koanf:"file" yaml:"file"`
}

// Load reads defaults, then path (when non-empty), then the environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider([]byte(defaults)), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// AUTOSHELL_SECTION_FIELD_NAME -> section.field_name
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envLists maps list settings to the way their environment value is split.
// Redaction patterns are split on whitespace because regexps may contain commas.
var envLists = map[string]func(string) []string{
	"github.users":            splitComma,
	"github.orgs":             splitComma,
	"history.fallback_keys":   splitComma,
	"history.redact_patterns": strings.Fields,
}

func envValue(key, value string) (string, interface{}) {
	k := envKey(key)
	if split, ok := envLists[k]; ok {
		return k, split(value)
	}
	return k, value
}

func splitComma(s string) []string {
	out := []string{}
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Orchestrator.Budget <= 0 {
		errs = append(errs, fmt.Errorf("orchestrator.budget must be positive, got %d", c.Orchestrator.Budget))
	}
	if c.Orchestrator.CommandTimeout < 0 {
		errs = append(errs, errors.New("orchestrator.command_timeout must not be negative"))
	}
	switch c.History.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr is required for the redis history backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("history.backend must be %q or %q, got %q", BackendMemory, BackendRedis, c.History.Backend))
	}
	if c.History.EncryptionKey.IsSet() {
		if _, err := DecodeKey(c.History.EncryptionKey); err != nil {
			errs = append(errs, fmt.Errorf("history.encryption_key: %w", err))
		}
	}
	for i, k := range c.History.FallbackKeys {
		if _, err := DecodeKey(k); err != nil {
			errs = append(errs, fmt.Errorf("history.fallback_keys[%d]: %w", i, err))
		}
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// DecodeKey decodes a base64 AES-256 key.
func DecodeKey(s Secret) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s.Value())
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// Dump renders the configuration as YAML with secrets redacted.
func (c *Config) Dump() ([]byte, error) {
	return yamlv3.Marshal(c)
}

// LoadPreamble reads the preamble file. A missing file yields an empty string.
func LoadPreamble(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read preamble: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
