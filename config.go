package tablift

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// Config represents the tablift configuration
type Config struct {
	Dialect    string           `yaml:"dialect"`
	InputDir   string           `yaml:"input_dir"`
	Analyzer   AnalyzerConfig   `yaml:"analyzer"`
	Generation GenerationConfig `yaml:"generation"`
}

// AnalyzerConfig holds the complexity classification thresholds.
// Thresholds are configuration, not hidden constants.
type AnalyzerConfig struct {
	MaxSimpleDepth int `yaml:"max_simple_depth"`
	MaxMediumDepth int `yaml:"max_medium_depth"`
}

// GenerationConfig represents view generation settings
type GenerationConfig struct {
	OutputDir string `yaml:"output_dir"`
	// TableAlias is the alias used for the base table in generated
	// expressions and scoped-aggregate subqueries.
	TableAlias string `yaml:"table_alias"`
	// SourceTable is the relation scoped-aggregate subqueries select
	// from; usually overridden per run on the command line.
	SourceTable string `yaml:"source_table"`
	// Workers is the number of parallel field compilations (0 = CPU count).
	Workers int `yaml:"workers"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Dialect:  string(DialectPostgres),
		InputDir: ".",
		Analyzer: AnalyzerConfig{
			MaxSimpleDepth: 3,
			MaxMediumDepth: 6,
		},
		Generation: GenerationConfig{
			OutputDir:   "./generated",
			TableAlias:  "base",
			SourceTable: "source",
			Workers:     0,
		},
	}
}

// LoadConfig loads configuration from the given path, falling back to
// defaults when the file does not exist. A .env file in the working
// directory is loaded first so yaml values may reference environment
// variables indirectly through the process environment.
func LoadConfig(path string) (*Config, error) {
	// Ignore missing .env; it is optional
	_ = godotenv.Load()

	config := DefaultConfig()

	if path == "" {
		path = "tablift.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}

		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	if _, ok := ParseDialect(c.Dialect); !ok {
		return fmt.Errorf("%w: %s (%w)", ErrConfigValidation, c.Dialect, ErrUnknownDialect)
	}

	if c.Analyzer.MaxSimpleDepth <= 0 {
		return fmt.Errorf("%w: analyzer.max_simple_depth must be positive", ErrConfigValidation)
	}

	if c.Analyzer.MaxMediumDepth <= c.Analyzer.MaxSimpleDepth {
		return fmt.Errorf("%w: analyzer.max_medium_depth must be greater than max_simple_depth", ErrConfigValidation)
	}

	if c.Generation.Workers < 0 {
		return fmt.Errorf("%w: generation.workers must not be negative", ErrConfigValidation)
	}

	return nil
}

// TargetDialect returns the parsed dialect.
func (c *Config) TargetDialect() Dialect {
	d, _ := ParseDialect(c.Dialect)
	return d
}
