package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"promptgen/config"
	"promptgen/internal/adapter/cache"
	"promptgen/internal/adapter/store"
	"promptgen/internal/adapter/tokenizer"
	"promptgen/internal/diag"
	"promptgen/internal/port"
)

// EnvPrefix prefixes every environment override, e.g. PROMPTGEN_LOG_LEVEL.
const EnvPrefix = "PROMPTGEN"

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
	logger  *log.Logger

	v = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "promptgen",
	Short: "Generate prompts with an exact token count",
	Long: `promptgen cuts a source text down to prompts that encode to exactly the
requested number of tokens under a given tokenizer. Every prompt is decoded and
re-encoded before it is accepted, so benchmark inputs have the length they claim.

Example usage:
  promptgen generate -t gpt-4 -n 128,256,512 -o prompts.jsonl
  promptgen generate -t byte-bos -n 64 -p "Summarize this text:" -o prompt.txt
  promptgen sweep --out prompts --tokenizers gpt-4,gpt-4o
  promptgen verify prompts/**/*.jsonl`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		applyOverrides(cfg, v)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		logger = diag.NewLogger(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format, diag.NewRunID())
		logger.Debug("config loaded", "dir", rootDir, "file", cfgFile)
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./promptgen.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "project directory holding config and cache (default is current directory)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text, json, logfmt")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	v.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	v.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	v.BindEnv("logging.level", EnvPrefix+"_LOG_LEVEL")
	v.BindEnv("logging.format", EnvPrefix+"_LOG_FORMAT")
	v.BindEnv("tokenizer.default", EnvPrefix+"_TOKENIZER")
	v.BindEnv("tokenizer.offline_bpe", EnvPrefix+"_OFFLINE_BPE")
	v.BindEnv("tokenizer.cache_dir", EnvPrefix+"_TOKENIZER_CACHE_DIR")
	v.BindEnv("cache.enabled", EnvPrefix+"_CACHE")
	v.BindEnv("output.overwrite", EnvPrefix+"_OVERWRITE")
}

// applyOverrides layers flags and PROMPTGEN_* variables over the file config.
func applyOverrides(c *config.Config, v *viper.Viper) {
	if s := v.GetString("logging.level"); s != "" {
		c.Logging.Level = s
	}
	if s := v.GetString("logging.format"); s != "" {
		c.Logging.Format = s
	}
	if s := v.GetString("tokenizer.default"); s != "" {
		c.Tokenizer.Default = s
	}
	if s := v.GetString("tokenizer.cache_dir"); s != "" {
		c.Tokenizer.CacheDir = s
	}
	if v.IsSet("tokenizer.offline_bpe") {
		c.Tokenizer.OfflineBPE = v.GetBool("tokenizer.offline_bpe")
	}
	if v.IsSet("cache.enabled") {
		c.Cache.Enabled = v.GetBool("cache.enabled")
	}
	if v.IsSet("output.overwrite") {
		c.Output.Overwrite = v.GetBool("output.overwrite")
	}
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}

// newResolver binds tokenizers with the loaded configuration.
func newResolver() *tokenizer.Resolver {
	return tokenizer.NewResolver(tokenizer.NewPresets(cfg.Presets), tokenizer.Options{
		ModelMaxLength: cfg.Tokenizer.ModelMaxLength,
		CacheDir:       cfg.TokenizerCacheDir(rootDir),
		AuthToken:      cfg.AuthToken(),
		OfflineBPE:     cfg.Tokenizer.OfflineBPE,
		Logger:         logger,
	})
}

// openCache opens the prompt cache when enabled. The returned close func is
// never nil.
func openCache(enabled bool) (port.PromptCache, func() error, error) {
	noop := func() error { return nil }
	if !enabled {
		return nil, noop, nil
	}
	st, err := openBoltStore()
	if err != nil {
		return nil, noop, err
	}
	layered := cache.NewLayered(cache.NewMemoryCache(cfg.Cache.MemoryEntries), st)
	closeFn := func() error {
		logger.Debug("prompt cache closed", "memory_entries", layered.MemorySize())
		return st.Close()
	}
	return layered, closeFn, nil
}

// openBoltStore opens the cache database and brings its schema up to date.
func openBoltStore() (*store.BoltStore, error) {
	dbPath := cfg.CacheDBPath(rootDir)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	st, err := store.NewBoltStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open prompt cache: %w", err)
	}
	reason, err := st.Prepare(cfg)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to prepare prompt cache: %w", err)
	}
	if reason != "" {
		logger.Info("prompt cache updated", "reason", reason, "path", dbPath)
	}
	return st, nil
}
