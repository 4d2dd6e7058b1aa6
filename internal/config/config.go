// Package config loads tally's configuration with viper.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/Veraticus/tally/internal/category"
	"github.com/Veraticus/tally/internal/city"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/logging"
	"github.com/Veraticus/tally/internal/synonym"
	"github.com/Veraticus/tally/internal/textnorm"
)

// EnvPrefix prefixes every environment variable tally reads.
const EnvPrefix = "TALLY"

// Config represents the complete application configuration.
type Config struct {
	Database struct {
		Path string `mapstructure:"path" yaml:"path"`
	} `mapstructure:"database" yaml:"database"`

	User string `mapstructure:"user" yaml:"user"`

	Logging struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"logging" yaml:"logging"`

	City struct {
		PatternWeights map[string]float64 `mapstructure:"pattern_weights" yaml:"pattern_weights"`
		SeedFile       string             `mapstructure:"seed_file" yaml:"seed_file"`
		SynonymBoost   float64            `mapstructure:"synonym_boost" yaml:"synonym_boost"`
		KnownCityBoost float64            `mapstructure:"known_city_boost" yaml:"known_city_boost"`
		MinConfidence  float64            `mapstructure:"min_confidence" yaml:"min_confidence"`
		CleanResult    bool               `mapstructure:"clean_result" yaml:"clean_result"`
	} `mapstructure:"city" yaml:"city"`

	Category struct {
		MatchMode string `mapstructure:"match_mode" yaml:"match_mode"`
	} `mapstructure:"category" yaml:"category"`

	Ledger struct {
		StopWords      []string `mapstructure:"stop_words" yaml:"stop_words"`
		MinTokenLength int      `mapstructure:"min_token_length" yaml:"min_token_length"`
	} `mapstructure:"ledger" yaml:"ledger"`
}

// LoadOptions selects where configuration is read from.
type LoadOptions struct {
	// ConfigFile overrides the config file search when set.
	ConfigFile string
	// EnvFile is loaded into the environment before reading variables.
	// A missing file is ignored.
	EnvFile string
	// SearchPaths replaces the default config directories.
	SearchPaths []string
}

// NewViper returns a viper instance with tally's defaults and environment
// binding. Callers may bind flags to it before Load.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	defaults := city.DefaultOptions()

	v.SetDefault("database.path", DefaultDatabasePath())
	v.SetDefault("user", "default")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("city.pattern_weights", map[string]float64{})
	v.SetDefault("city.seed_file", "")
	v.SetDefault("city.synonym_boost", defaults.SynonymBoost)
	v.SetDefault("city.known_city_boost", defaults.KnownCityBoost)
	v.SetDefault("city.min_confidence", defaults.MinConfidence)
	v.SetDefault("city.clean_result", defaults.CleanResult)

	v.SetDefault("category.match_mode", string(category.MatchSubstring))

	v.SetDefault("ledger.min_token_length", textnorm.DefaultMinTokenLength)
	v.SetDefault("ledger.stop_words", []string{})
}

// Load reads configuration from defaults, the config file, a .env file and
// the environment, in increasing priority, and validates it.
func Load(v *viper.Viper, opts LoadOptions) (*Config, error) {
	if v == nil {
		v = NewViper()
	}

	if opts.EnvFile != "" {
		if err := godotenv.Load(ExpandPath(opts.EnvFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", opts.EnvFile, err)
		}
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(ExpandPath(opts.ConfigFile))
	} else {
		paths := opts.SearchPaths
		if paths == nil {
			paths = defaultSearchPaths()
		}
		for _, p := range paths {
			v.AddConfigPath(ExpandPath(p))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: failed to read config: %w", common.ErrInvalidConfig, err)
		}
		// Config file not found is OK, we'll use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Database.Path = ExpandPath(cfg.Database.Path)
	cfg.City.SeedFile = ExpandPath(cfg.City.SeedFile)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	return &cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database.path cannot be empty")
	}
	if strings.TrimSpace(c.User) == "" {
		return errors.New("user cannot be empty")
	}
	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", c.Logging.Format)
	}

	ranges := []struct {
		name  string
		value float64
	}{
		{"city.synonym_boost", c.City.SynonymBoost},
		{"city.known_city_boost", c.City.KnownCityBoost},
		{"city.min_confidence", c.City.MinConfidence},
	}
	for _, r := range ranges {
		if math.IsNaN(r.value) || r.value < 0 || r.value > 1 {
			return fmt.Errorf("%s must be between 0.0 and 1.0, got: %f", r.name, r.value)
		}
	}
	for id, w := range c.City.PatternWeights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("city.pattern_weights.%s must be a number", id)
		}
	}

	if _, err := category.ParseMatchMode(c.Category.MatchMode); err != nil {
		return fmt.Errorf("category.match_mode: %w", err)
	}
	if c.Ledger.MinTokenLength < 1 {
		return fmt.Errorf("ledger.min_token_length must be at least 1, got: %d", c.Ledger.MinTokenLength)
	}
	return nil
}

// CityOptions converts the city section to extraction options. Negative
// pattern weights are passed through; extraction clamps them to zero.
func (c *Config) CityOptions() city.Options {
	weights := make(map[string]float64, len(c.City.PatternWeights))
	for id, w := range c.City.PatternWeights {
		weights[id] = w
	}
	return city.Options{
		PatternWeights: weights,
		SynonymBoost:   c.City.SynonymBoost,
		KnownCityBoost: c.City.KnownCityBoost,
		MinConfidence:  c.City.MinConfidence,
		CleanResult:    c.City.CleanResult,
	}
}

// MatchMode returns the configured keyword match mode.
func (c *Config) MatchMode() category.MatchMode {
	mode, err := category.ParseMatchMode(c.Category.MatchMode)
	if err != nil {
		return category.MatchSubstring
	}
	return mode
}

// Seed loads the synonym seed, merging city.seed_file over the built-in one
// when it is set.
func (c *Config) Seed() (*synonym.Seed, error) {
	if c.City.SeedFile == "" {
		return synonym.DefaultSeed()
	}
	return synonym.LoadSeedFile(c.City.SeedFile)
}

// Tokenizer builds the ledger tokenizer from the ledger section.
func (c *Config) Tokenizer() *textnorm.Tokenizer {
	return textnorm.NewTokenizer(c.Ledger.MinTokenLength, c.Ledger.StopWords...)
}

// Logger builds the logrus-backed application logger.
func (c *Config) Logger() logging.Logger {
	return logging.New(c.Logging.Level, c.Logging.Format, os.Stderr)
}
