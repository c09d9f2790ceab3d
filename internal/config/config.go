// Package config holds the analyzer settings and their loading rules.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bdougie/visionstream/internal/models"
)

// Defaults, matching the element's documented property defaults
const (
	DefaultPrompt           = "Describe what you see in this image"
	DefaultModel            = "gemini-1.5-flash"
	DefaultAnalysisInterval = 5.0

	// PlaceholderAPIKey is the value shipped in sample configs.
	PlaceholderAPIKey = "YOUR_API_KEY_HERE"
)

// Bounds of the configuration surface
const (
	MinAnalysisInterval = 0.1
	MaxAnalysisInterval = 3600.0
	MaxTemperature      = 2.0
	MinTopK             = 1
	MaxTopK             = 40
)

// Environment variables read by ApplyEnv
const (
	EnvAPIKey = "GEMINI_API_KEY"
	EnvModel  = "GEMINI_MODEL"
	EnvPrompt = "GEMINI_PROMPT"
)

var ErrInvalid = errors.New("invalid configuration")

// Config is the full analyzer configuration.
type Config struct {
	APIKey string `yaml:"api_key"`
	Prompt string `yaml:"prompt"`
	Model  string `yaml:"model"`

	// AnalysisInterval is the minimum spacing, in seconds of stream time,
	// between two analysis requests.
	AnalysisInterval float64 `yaml:"analysis_interval"`

	// OutputMetadata selects metadata attachment; false emits events.
	OutputMetadata bool `yaml:"output_metadata"`

	StopSequences   []string `yaml:"stop_sequences,omitempty"`
	Temperature     *float64 `yaml:"temperature,omitempty"`
	MaxOutputTokens *int     `yaml:"max_output_tokens,omitempty"`
	TopP            *float64 `yaml:"top_p,omitempty"`
	TopK            *int     `yaml:"top_k,omitempty"`

	// RequestTimeout bounds a single API call. Zero waits indefinitely.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Default returns the default configuration. Generation parameters are left
// unset so the service applies its own defaults.
func Default() Config {
	return Config{
		Prompt:           DefaultPrompt,
		Model:            DefaultModel,
		AnalysisInterval: DefaultAnalysisInterval,
		OutputMetadata:   true,
	}
}

// Load reads a YAML file over the defaults. An empty path yields the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment when the variables are set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		c.Model = v
	}
	if v := os.Getenv(EnvPrompt); v != "" {
		c.Prompt = v
	}
}

// HasCredential reports whether an API key other than the placeholder is
// configured.
func (c Config) HasCredential() bool {
	key := strings.TrimSpace(c.APIKey)
	return key != "" && key != PlaceholderAPIKey
}

// Interval returns AnalysisInterval as a duration.
func (c Config) Interval() time.Duration {
	return time.Duration(c.AnalysisInterval * float64(time.Second))
}

// Generation returns a copy of the generation parameters.
func (c Config) Generation() models.GenerationConfig {
	return models.GenerationConfig{
		StopSequences:   c.StopSequences,
		Temperature:     c.Temperature,
		MaxOutputTokens: c.MaxOutputTokens,
		TopP:            c.TopP,
		TopK:            c.TopK,
	}.Clone()
}

// Validate checks every field against its bounds. A missing API key is not
// an error here: frames are simply not analyzed until one is set.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Model) == "" {
		errs = append(errs, errors.New("model must not be empty"))
	}
	if c.AnalysisInterval < MinAnalysisInterval || c.AnalysisInterval > MaxAnalysisInterval {
		errs = append(errs, fmt.Errorf("analysis_interval %.3g outside [%.1f, %.0f]", c.AnalysisInterval, MinAnalysisInterval, MaxAnalysisInterval))
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > MaxTemperature) {
		errs = append(errs, fmt.Errorf("temperature %.3g outside [0, %.1f]", *c.Temperature, MaxTemperature))
	}
	if c.MaxOutputTokens != nil && *c.MaxOutputTokens < 1 {
		errs = append(errs, fmt.Errorf("max_output_tokens %d must be positive", *c.MaxOutputTokens))
	}
	if c.TopP != nil && (*c.TopP < 0 || *c.TopP > 1) {
		errs = append(errs, fmt.Errorf("top_p %.3g outside [0, 1]", *c.TopP))
	}
	if c.TopK != nil && (*c.TopK < MinTopK || *c.TopK > MaxTopK) {
		errs = append(errs, fmt.Errorf("top_k %d outside [%d, %d]", *c.TopK, MinTopK, MaxTopK))
	}
	if c.RequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("request_timeout %s must not be negative", c.RequestTimeout))
	}
	for i, s := range c.StopSequences {
		if s == "" {
			errs = append(errs, fmt.Errorf("stop_sequences[%d] is empty", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}
