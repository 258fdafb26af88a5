package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DataDirName is the per-project directory holding the prompt cache and
// downloaded tokenizer files.
const DataDirName = ".promptgen"

// Config holds all configuration for promptgen.
type Config struct {
	Tokenizer TokenizerConfig   `yaml:"tokenizer"`
	Generate  GenerateConfig    `yaml:"generate"`
	Output    OutputConfig      `yaml:"output"`
	Sweep     SweepConfig       `yaml:"sweep"`
	Cache     CacheConfig       `yaml:"cache"`
	Logging   LoggingConfig     `yaml:"logging"`
	Presets   map[string]string `yaml:"presets,omitempty"` // extra or overriding preset names
}

// TokenizerConfig holds tokenizer binding configuration.
type TokenizerConfig struct {
	Default        string `yaml:"default"`
	ModelMaxLength int    `yaml:"model_max_length"` // advisory only, never truncates
	CacheDir       string `yaml:"cache_dir"`        // empty = <dir>/.promptgen/tokenizers
	AuthTokenEnv   string `yaml:"auth_token_env"`   // environment variable holding the hub token
	OfflineBPE     bool   `yaml:"offline_bpe"`      // use embedded tiktoken ranks
}

// GenerateConfig holds defaults for the generate command.
type GenerateConfig struct {
	Lengths   []int  `yaml:"lengths"`
	Prefix    string `yaml:"prefix"`
	Source    string `yaml:"source"` // empty = built-in text
	KeepGoing bool   `yaml:"keep_going"`
}

// OutputConfig holds output file configuration.
type OutputConfig struct {
	Overwrite   bool          `yaml:"overwrite"`
	LockTimeout time.Duration `yaml:"lock_timeout"`
}

// SweepConfig holds the matrix generated by the sweep command.
type SweepConfig struct {
	Out        string            `yaml:"out"`
	Tokenizers []string          `yaml:"tokenizers"`
	Lengths    []int             `yaml:"lengths"`
	Sources    []string          `yaml:"sources"` // paths, globs or "alice"
	Excludes   []string          `yaml:"excludes"`
	Formats    []string          `yaml:"formats"`
	Prefixes   map[string]string `yaml:"prefixes"` // source name -> prefix
}

// CacheConfig holds prompt cache configuration.
type CacheConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`           // empty = <dir>/.promptgen/cache.db
	MemoryEntries int    `yaml:"memory_entries"` // in-process entries kept in front of the db
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text", "json" or "logfmt"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Tokenizer: TokenizerConfig{
			Default:        "gpt-4",
			ModelMaxLength: 1_000_000,
			AuthTokenEnv:   "HF_TOKEN",
			OfflineBPE:     true,
		},
		Generate: GenerateConfig{
			Lengths: []int{128},
		},
		Output: OutputConfig{
			Overwrite:   false,
			LockTimeout: 5 * time.Second,
		},
		Sweep: SweepConfig{
			Out:        "prompts",
			Tokenizers: []string{"byte-bos", "gpt-4", "gpt-4o"},
			Lengths:    []int{16, 32, 64, 128, 256, 512, 1024, 2048},
			Sources:    []string{"alice"},
			Excludes:   []string{"**/.git/**", "**/" + DataDirName + "/**"},
			Formats:    []string{"jsonl", "txt"},
			Prefixes: map[string]string{
				"alice": "Summarize this text:",
			},
		},
		Cache: CacheConfig{
			Enabled:       false,
			MemoryEntries: 256,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for promptgen.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "promptgen.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, DataDirName, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports settings no command can work with.
func (c *Config) Validate() error {
	for _, n := range c.Generate.Lengths {
		if n < 1 {
			return fmt.Errorf("generate.lengths: %d is not a positive token count", n)
		}
	}
	for _, n := range c.Sweep.Lengths {
		if n < 1 {
			return fmt.Errorf("sweep.lengths: %d is not a positive token count", n)
		}
	}
	for _, f := range c.Sweep.Formats {
		switch strings.ToLower(f) {
		case "jsonl", "txt":
		default:
			return fmt.Errorf("sweep.formats: unknown format %q (want jsonl or txt)", f)
		}
	}
	if c.Tokenizer.ModelMaxLength < 0 {
		return fmt.Errorf("tokenizer.model_max_length: must not be negative")
	}
	if c.Cache.MemoryEntries < 0 {
		return fmt.Errorf("cache.memory_entries: must not be negative")
	}
	return nil
}

// AuthToken returns the hub token from the configured environment variable.
func (c *Config) AuthToken() string {
	if c.Tokenizer.AuthTokenEnv == "" {
		return ""
	}
	return os.Getenv(c.Tokenizer.AuthTokenEnv)
}

// CacheDBPath returns the path to the prompt cache database.
func (c *Config) CacheDBPath(dir string) string {
	if c.Cache.Path != "" {
		return c.Cache.Path
	}
	return CacheDBPath(dir)
}

// TokenizerCacheDir returns where downloaded tokenizer files are kept.
func (c *Config) TokenizerCacheDir(dir string) string {
	if c.Tokenizer.CacheDir != "" {
		return c.Tokenizer.CacheDir
	}
	return filepath.Join(dir, DataDirName, "tokenizers")
}

// CacheDBPath returns the default path to the prompt cache database.
func CacheDBPath(dir string) string {
	return filepath.Join(dir, DataDirName, "cache.db")
}

// EnsureDataDir ensures the .promptgen directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, DataDirName), 0755)
}
