package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// DefaultSentinel is the cardinality reported for concepts no external code represents.
const DefaultSentinel = 10000

// Zero-blur policies decide whether aligned codes that are best for no
// concept still count in nbCodes.
const (
	ZeroBlurExclude = "exclude"
	ZeroBlurInclude = "include"
)

type MemgraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
}

type EvaluationConfig struct {
	Systems        []string `toml:"systems"`
	Modes          []string `toml:"modes"`
	Sentinel       int      `toml:"sentinel"`
	ZeroBlurPolicy string   `toml:"zero_blur_policy"`
	OutputDir      string   `toml:"output_dir"`
}

type ConcurrencyConfig struct {
	Systems int `toml:"systems"`
	// Matchers splits the abstract bindings of one system into shards
	// whose selector tables are merged afterwards.
	Matchers int `toml:"matchers"`
}

type LogConfig struct {
	Mode string `toml:"mode"`
}

type ServerConfig struct {
	Port string `toml:"port"`
}

type Config struct {
	Memgraph    MemgraphConfig    `toml:"memgraph"`
	Evaluation  EvaluationConfig  `toml:"evaluation"`
	Concurrency ConcurrencyConfig `toml:"concurrency"`
	Log         LogConfig         `toml:"log"`
	Server      ServerConfig      `toml:"server"`
}

func Default() *Config {
	return &Config{
		Memgraph: MemgraphConfig{
			URI: "bolt://localhost:7687",
		},
		Evaluation: EvaluationConfig{
			Modes:          []string{"full", "generic"},
			Sentinel:       DefaultSentinel,
			ZeroBlurPolicy: ZeroBlurExclude,
			OutputDir:      ".",
		},
		Concurrency: ConcurrencyConfig{
			Systems:  4,
			Matchers: 1,
		},
		Log: LogConfig{
			Mode: "dev",
		},
		Server: ServerConfig{
			Port: "8080",
		},
	}
}

// Load reads a TOML file on top of Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault behaves like Load but falls back to Default when the file
// does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// ApplyEnv overrides file values with environment variables when set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("MEMGRAPH_URI"); v != "" {
		c.Memgraph.URI = v
	}
	if v := os.Getenv("MEMGRAPH_USER"); v != "" {
		c.Memgraph.User = v
	}
	if v := os.Getenv("MEMGRAPH_PASSWORD"); v != "" {
		c.Memgraph.Password = v
	}
	if v := os.Getenv("NUVALIGN_OUTPUT_DIR"); v != "" {
		c.Evaluation.OutputDir = v
	}
	if v := os.Getenv("NUVALIGN_SYSTEMS"); v != "" {
		c.Evaluation.Systems = splitList(v)
	}
	if v := os.Getenv("NUVALIGN_LOG_MODE"); v != "" {
		c.Log.Mode = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
}

func (c *Config) Validate() error {
	if c.Evaluation.Sentinel <= 0 {
		return fmt.Errorf("evaluation.sentinel must be positive, got %d", c.Evaluation.Sentinel)
	}
	switch c.Evaluation.ZeroBlurPolicy {
	case ZeroBlurExclude, ZeroBlurInclude:
	default:
		return fmt.Errorf("evaluation.zero_blur_policy must be %q or %q, got %q",
			ZeroBlurExclude, ZeroBlurInclude, c.Evaluation.ZeroBlurPolicy)
	}
	if len(c.Evaluation.Modes) == 0 {
		return fmt.Errorf("evaluation.modes must not be empty")
	}
	if c.Concurrency.Systems < 1 {
		return fmt.Errorf("concurrency.systems must be at least 1, got %d", c.Concurrency.Systems)
	}
	if c.Concurrency.Matchers < 1 {
		return fmt.Errorf("concurrency.matchers must be at least 1, got %d", c.Concurrency.Matchers)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
