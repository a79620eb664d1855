package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"ngram-go/internal/service/tokenizer"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Config is the application configuration
type Config struct {
	App       AppConfig       `yaml:"app"`
	NGram     NGramConfig     `yaml:"ngram"`
	Tokenizer tokenizer.Rules `yaml:"tokenizer"`
	Corpora   []Corpus        `yaml:"corpora"`
}

// AppConfig holds process-level settings
type AppConfig struct {
	Port             int      `yaml:"port"`
	LogLevel         string   `yaml:"log_level"`
	LogOutputs       []string `yaml:"log_outputs"`
	MetricsNamespace string   `yaml:"metrics_namespace"`
	MCPEnabled       bool     `yaml:"mcp_enabled"`
}

// NGramConfig holds model defaults applied when a request leaves a field unset
type NGramConfig struct {
	N                      int     `yaml:"n"`
	MaxLength              int     `yaml:"max_length"`
	Strategy               string  `yaml:"strategy"`
	Seed                   uint64  `yaml:"seed"` // 0 draws a random seed per model
	SeedText               string  `yaml:"seed_text"`
	Encoding               string  `yaml:"encoding"`
	CorpusRoot             string  `yaml:"corpus_root"` // API clients may only train on files below it; empty allows none
	UseBloom               bool    `yaml:"use_bloom"`
	BloomExpectedItems     uint    `yaml:"bloom_expected_items"`
	BloomFalsePositiveRate float64 `yaml:"bloom_false_positive_rate"`
}

// Corpus is a training corpus loaded when the server starts
type Corpus struct {
	Name     string `yaml:"name"`
	Path     string `yaml:"path"`
	Encoding string `yaml:"encoding"`
	N        int    `yaml:"n"`
	SeedText string `yaml:"seed_text"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		App: AppConfig{
			Port:             8080,
			LogLevel:         "info",
			LogOutputs:       []string{"stdout"},
			MetricsNamespace: "ngram",
			MCPEnabled:       true,
		},
		NGram: NGramConfig{
			N:                      3,
			MaxLength:              1000,
			Strategy:               "weighted",
			Encoding:               "utf-8",
			BloomExpectedItems:     100000,
			BloomFalsePositiveRate: 0.01,
		},
		Tokenizer: tokenizer.DefaultRules(),
	}
}

// LoadConfig builds the configuration from defaults, the optional YAML file at path, a .env file
// in the working directory and NGRAM_* environment variables, in increasing priority.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("NGRAM_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid NGRAM_PORT: %w", err)
		}
		c.App.Port = port
	}
	if v, ok := os.LookupEnv("NGRAM_LOG_LEVEL"); ok {
		c.App.LogLevel = v
	}
	if v, ok := os.LookupEnv("NGRAM_N"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid NGRAM_N: %w", err)
		}
		c.NGram.N = n
	}
	if v, ok := os.LookupEnv("NGRAM_MAX_LENGTH"); ok {
		maxLength, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid NGRAM_MAX_LENGTH: %w", err)
		}
		c.NGram.MaxLength = maxLength
	}
	if v, ok := os.LookupEnv("NGRAM_SEED"); ok {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid NGRAM_SEED: %w", err)
		}
		c.NGram.Seed = seed
	}
	if v, ok := os.LookupEnv("NGRAM_STRATEGY"); ok {
		c.NGram.Strategy = v
	}
	if v, ok := os.LookupEnv("NGRAM_ENCODING"); ok {
		c.NGram.Encoding = v
	}
	if v, ok := os.LookupEnv("NGRAM_CORPUS_ROOT"); ok {
		c.NGram.CorpusRoot = v
	}
	return nil
}

// Validate checks values that would otherwise fail later at model construction
func (c *Config) Validate() error {
	if c.NGram.N <= 1 {
		return fmt.Errorf("ngram.n must be greater than 1, got %d", c.NGram.N)
	}
	if c.NGram.MaxLength < 0 {
		return fmt.Errorf("ngram.max_length must not be negative, got %d", c.NGram.MaxLength)
	}
	switch strings.ToLower(c.NGram.Strategy) {
	case "", "weighted", "greedy":
	default:
		return fmt.Errorf("ngram.strategy must be weighted or greedy, got %q", c.NGram.Strategy)
	}
	seen := make(map[string]struct{}, len(c.Corpora))
	for i, corpus := range c.Corpora {
		if corpus.Name == "" || corpus.Path == "" {
			return fmt.Errorf("corpora[%d]: name and path are required", i)
		}
		if _, dup := seen[corpus.Name]; dup {
			return fmt.Errorf("corpora[%d]: duplicate name %q", i, corpus.Name)
		}
		seen[corpus.Name] = struct{}{}
		if corpus.N != 0 && corpus.N <= 1 {
			return fmt.Errorf("corpora[%d]: n must be greater than 1, got %d", i, corpus.N)
		}
	}
	return nil
}

// GetCorpus returns the configured corpus with the given name
func (c *Config) GetCorpus(name string) (*Corpus, error) {
	for i := range c.Corpora {
		if c.Corpora[i].Name == name {
			return &c.Corpora[i], nil
		}
	}
	return nil, fmt.Errorf("corpus not found: %s", name)
}
