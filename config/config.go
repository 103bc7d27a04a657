// Package config provides configuration loading and validation.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/artpar/specgate/domain/spec"
)

// Handler kinds.
const (
	KindProperties = "properties"
	KindEcho       = "echo"
	KindRoutes     = "routes"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Specs    SpecsConfig     `yaml:"specs"`
	Commands CommandsConfig  `yaml:"commands"`
	Logging  LoggingConfig   `yaml:"logging"`
	Metrics  MetricsConfig   `yaml:"metrics"`
	Handlers []HandlerConfig `yaml:"handlers" validate:"dive"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port" validate:"min=1,max=65535"`
	BasePath     string        `yaml:"base_path"`
	ReadTimeout  time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"gte=0"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" validate:"gte=0"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

// SpecsConfig configures where spec resources come from. Directories are
// searched in order, then the database, then the specs built into the binary.
type SpecsConfig struct {
	Dirs      []string `yaml:"dirs" validate:"dive,required"`
	Database  string   `yaml:"database"`
	Watch     bool     `yaml:"watch"`
	CopyDepth int      `yaml:"copy_depth" validate:"gte=0"`
}

// CommandsConfig configures command payload validation.
type CommandsConfig struct {
	Validate *bool `yaml:"validate"`
}

// ValidateEnabled reports whether payloads are validated. It defaults to true.
func (c CommandsConfig) ValidateEnabled() bool {
	return c.Validate == nil || *c.Validate
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"startswith=/"`
}

// HandlerConfig declares a built-in operation to register.
type HandlerConfig struct {
	Name string `yaml:"name" validate:"required"`
	Kind string `yaml:"kind" validate:"required,oneof=properties echo routes"`

	// Spec names a spec resource; InlineSpec embeds one. With neither the
	// handler gets the empty spec, bound at /<name>.
	Spec       string         `yaml:"spec" validate:"excluded_with=InlineSpec"`
	InlineSpec map[string]any `yaml:"inline_spec"`

	// Lazy defers building the handler until its first request.
	Lazy bool `yaml:"lazy"`

	// Properties seeds a properties handler.
	Properties map[string]string `yaml:"properties"`
}

// Source returns the spec source the handler declares.
func (h HandlerConfig) Source() (spec.Source, error) {
	if h.InlineSpec == nil {
		return spec.Source{Name: h.Spec}, nil
	}
	data, err := json.Marshal(h.InlineSpec)
	if err != nil {
		return spec.Source{}, fmt.Errorf("handler %s: encode inline spec: %w", h.Name, err)
	}
	s, err := spec.Parse(data)
	if err != nil {
		return spec.Source{}, fmt.Errorf("handler %s: inline spec: %w", h.Name, err)
	}
	return spec.Source{Inline: &s}, nil
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return finish(&cfg)
}

// LoadFromEnv creates configuration from defaults and environment variables.
//
// Environment variables:
//
//	SPECGATE_SERVER_HOST        - Server host (default: 0.0.0.0)
//	SPECGATE_SERVER_PORT        - Server port (default: 8080)
//	SPECGATE_SERVER_BASE_PATH   - Path prefix of dispatched operations (default: /api)
//	SPECGATE_SPECS_DIRS         - Comma separated spec directories
//	SPECGATE_SPECS_DATABASE     - SQLite spec store path
//	SPECGATE_SPECS_WATCH        - Reload when spec files change
//	SPECGATE_COMMANDS_VALIDATE  - Validate command payloads (default: true)
//	SPECGATE_LOG_LEVEL          - Log level: debug, info, warn, error (default: info)
//	SPECGATE_LOG_FORMAT         - Log format: json or console (default: json)
//	SPECGATE_METRICS_ENABLED    - Enable the metrics endpoint
func LoadFromEnv() (*Config, error) {
	return finish(&Config{})
}

// LoadWithFallback loads path when it exists and falls back to LoadFromEnv.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

func finish(cfg *Config) (*Config, error) {
	applyEnvOverrides(cfg)
	setDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies SPECGATE_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SPECGATE_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SPECGATE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SPECGATE_SERVER_BASE_PATH"); v != "" {
		cfg.Server.BasePath = v
	}

	if v := os.Getenv("SPECGATE_SPECS_DIRS"); v != "" {
		cfg.Specs.Dirs = nil
		for _, dir := range strings.Split(v, ",") {
			if dir = strings.TrimSpace(dir); dir != "" {
				cfg.Specs.Dirs = append(cfg.Specs.Dirs, dir)
			}
		}
	}
	if v := os.Getenv("SPECGATE_SPECS_DATABASE"); v != "" {
		cfg.Specs.Database = v
	}
	if v := os.Getenv("SPECGATE_SPECS_WATCH"); v != "" {
		cfg.Specs.Watch = parseBool(v)
	}

	if v := os.Getenv("SPECGATE_COMMANDS_VALIDATE"); v != "" {
		b := parseBool(v)
		cfg.Commands.Validate = &b
	}

	if v := os.Getenv("SPECGATE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SPECGATE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("SPECGATE_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

// DefaultHandlers are registered when the config declares none.
func DefaultHandlers() []HandlerConfig {
	return []HandlerConfig{
		{Name: KindProperties, Kind: KindProperties, Spec: "core.properties"},
		{Name: KindEcho, Kind: KindEcho, Spec: "core.echo"},
		{Name: KindRoutes, Kind: KindRoutes, Spec: "core.routes"},
	}
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.BasePath == "" {
		cfg.Server.BasePath = "/api"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 1 << 20
	}

	if cfg.Specs.CopyDepth == 0 {
		cfg.Specs.CopyDepth = spec.DefaultCopyDepth
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if len(cfg.Handlers) == 0 {
		cfg.Handlers = DefaultHandlers()
	}
}

var structValidator = validator.New(validator.WithRequiredStructEnabled())

func validate(cfg *Config) error {
	if err := structValidator.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}

	seen := make(map[string]bool, len(cfg.Handlers))
	for i, h := range cfg.Handlers {
		if seen[h.Name] {
			return fmt.Errorf("handlers[%d].name %q is declared twice", i, h.Name)
		}
		seen[h.Name] = true
		if _, err := h.Source(); err != nil {
			return fmt.Errorf("handlers[%d]: %w", i, err)
		}
	}

	return nil
}
