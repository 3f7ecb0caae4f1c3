// Package config loads sigil configuration using Viper from a YAML file,
// SIGIL_ environment variables and command-line flags.
//
// Configuration is read once at startup. Directory settings are resolved
// against the document root during Load, so every component receives
// absolute paths and nothing re-reads viper afterwards.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	sigilerrors "github.com/conneroisu/sigil/internal/errors"
	"github.com/conneroisu/sigil/internal/logging"
)

type Config struct {
	Root      string          `mapstructure:"root" yaml:"root"`
	Templates TemplatesConfig `mapstructure:"templates" yaml:"templates"`
	Cache     CacheConfig     `mapstructure:"cache" yaml:"cache"`
	Compiler  CompilerConfig  `mapstructure:"compiler" yaml:"compiler"`
	Render    RenderConfig    `mapstructure:"render" yaml:"render"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Watch     WatchConfig     `mapstructure:"watch" yaml:"watch"`
}

type TemplatesConfig struct {
	Dir       string `mapstructure:"dir" yaml:"dir"`
	Extension string `mapstructure:"extension" yaml:"extension"`
}

type CacheConfig struct {
	Dir         string `mapstructure:"dir" yaml:"dir"`
	MemoryBytes int64  `mapstructure:"memory_bytes" yaml:"memory_bytes"`
}

type CompilerConfig struct {
	StrictSectionNames bool `mapstructure:"strict_section_names" yaml:"strict_section_names"`
}

type RenderConfig struct {
	Imports []string `mapstructure:"imports" yaml:"imports"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

// Defaults registered with viper by SetDefaults.
var defaults = map[string]interface{}{
	"root":                          ".",
	"templates.dir":                 "app/views",
	"templates.extension":           ".html",
	"cache.dir":                     "app/views/cache",
	"cache.memory_bytes":            int64(8 << 20),
	"compiler.strict_section_names": false,
	"render.imports":                []string{"strings", "html"},
	"log.level":                     "info",
	"log.format":                    "auto",
	"watch.debounce":                300 * time.Millisecond,
}

// SetDefaults registers every default with viper so that environment
// variables are recognized for all keys.
func SetDefaults() {
	for key, value := range defaults {
		viper.SetDefault(key, value)
	}
}

// EnvPrefix prefixes every environment override, e.g. SIGIL_CACHE_DIR.
const EnvPrefix = "SIGIL"

// BindEnv makes viper consult SIGIL_<SECTION>_<OPTION> environment variables.
func BindEnv() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// Load reads the configuration from viper, resolves directories against the
// root and validates the result.
func Load() (*Config, error) {
	SetDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, sigilerrors.NewConfigError("decoding configuration", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, sigilerrors.NewConfigError("invalid configuration", err)
	}

	root, err := filepath.Abs(config.Root)
	if err != nil {
		return nil, sigilerrors.NewConfigError("resolving root", err)
	}
	config.Root = root
	config.Templates.Dir = resolve(root, config.Templates.Dir)
	config.Cache.Dir = resolve(root, config.Cache.Dir)

	return &config, nil
}

// LoggerConfig returns the logging settings in the form the logging package
// expects.
func (c *Config) LoggerConfig() (*logging.LoggerConfig, error) {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Format = c.Log.Format
	return cfg, nil
}

func resolve(root, dir string) string {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(root, dir)
}

// validateConfig validates configuration values before paths are resolved.
func validateConfig(config *Config) error {
	if err := validatePath("root", config.Root); err != nil {
		return err
	}
	if err := validatePath("templates.dir", config.Templates.Dir); err != nil {
		return err
	}
	if err := validatePath("cache.dir", config.Cache.Dir); err != nil {
		return err
	}

	ext := config.Templates.Extension
	if len(ext) < 2 || !strings.HasPrefix(ext, ".") || strings.ContainsAny(ext, `/\`) {
		return fmt.Errorf("templates.extension %q must look like \".html\"", ext)
	}

	if filepath.Clean(config.Templates.Dir) == filepath.Clean(config.Cache.Dir) {
		return fmt.Errorf("cache.dir must differ from templates.dir")
	}

	if config.Cache.MemoryBytes < 0 {
		return fmt.Errorf("cache.memory_bytes must not be negative")
	}

	if _, err := logging.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch config.Log.Format {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("log.format %q must be auto, text or json", config.Log.Format)
	}

	if config.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}

	for _, name := range config.Render.Imports {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("render.imports contains an empty name")
		}
	}

	return nil
}

// validatePath rejects empty paths and paths with characters that never
// appear in a sensible directory name.
func validatePath(key, path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%s must not be empty", key)
	}
	if strings.ContainsAny(path, "\x00\n\r") {
		return fmt.Errorf("%s contains a control character", key)
	}
	return nil
}
