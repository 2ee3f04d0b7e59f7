// Package config provides configuration loading and management for the
// praxis pipeline.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete pipeline configuration.
type Config struct {
	Skills   SkillsConfig   `yaml:"skills"`
	Registry RegistryConfig `yaml:"registry"`
	Links    LinksConfig    `yaml:"links"`
	Releases ReleasesConfig `yaml:"releases"`
	Extract  ExtractConfig  `yaml:"extract"`
}

// SkillsConfig locates the knowledge base inputs and compiled outputs.
type SkillsConfig struct {
	// Dir is the root directory holding one subdirectory per skill.
	Dir string `yaml:"dir"`
	// OutputDir receives one compiled document per skill.
	OutputDir string `yaml:"output_dir"`
}

// RegistryConfig names the declarative registry files driving the
// checkers.
type RegistryConfig struct {
	Sections string `yaml:"sections"`
	Checks   string `yaml:"checks"`
	Releases string `yaml:"releases"`
}

// LinksConfig tunes the link health checker.
type LinksConfig struct {
	Workers       int           `yaml:"workers"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxAttempts   int           `yaml:"max_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
	RatePerSecond float64       `yaml:"rate_per_second"`
}

// ReleasesConfig tunes the release-watch detector.
type ReleasesConfig struct {
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
}

// ExtractConfig tunes example extraction.
type ExtractConfig struct {
	// OutputDir receives extracted example snippets.
	OutputDir string `yaml:"output_dir"`
	// SyntaxCheck enables the Go snippet syntax sanity check. A nil
	// pointer means the layer left it unset, so merging can tell an
	// explicit "false" apart from an absent key.
	SyntaxCheck *bool `yaml:"syntax_check"`
}

// SyntaxCheckEnabled resolves the tri-state flag; unset means enabled.
func (e *ExtractConfig) SyntaxCheckEnabled() bool {
	return e.SyntaxCheck == nil || *e.SyntaxCheck
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Skills: SkillsConfig{
			Dir:       "skills",
			OutputDir: "build",
		},
		Registry: RegistryConfig{
			Sections: "registry/sections.yaml",
			Checks:   "registry/checks.yaml",
			Releases: "registry/releases.yaml",
		},
		Links: LinksConfig{
			Workers:       5,
			Timeout:       10 * time.Second,
			MaxAttempts:   3,
			RetryDelay:    time.Second,
			RatePerSecond: 8,
		},
		Releases: ReleasesConfig{
			Timeout:     15 * time.Second,
			MaxAttempts: 3,
			RetryDelay:  time.Second,
		},
		Extract: ExtractConfig{
			OutputDir:   "build/examples",
			SyntaxCheck: boolPtr(true),
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Skills.Dir == "" {
		return fmt.Errorf("skills.dir is required")
	}
	if c.Skills.OutputDir == "" {
		return fmt.Errorf("skills.output_dir is required")
	}
	if c.Registry.Sections == "" {
		return fmt.Errorf("registry.sections is required")
	}
	if c.Links.Workers < 1 {
		return fmt.Errorf("links.workers must be at least 1")
	}
	if c.Links.MaxAttempts < 1 {
		return fmt.Errorf("links.max_attempts must be at least 1")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file, layered over the
// defaults.
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()
	if err := unmarshalFile(path, config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadLayer reads a YAML file into an otherwise zero Config, so the
// result carries only the values the file actually sets. Layers loaded
// this way merge without defaults masquerading as explicit settings.
func LoadLayer(path string) (*Config, error) {
	var config Config
	if err := unmarshalFile(path, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

func unmarshalFile(path string, out *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// SaveToFile writes the configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Merge merges another config into this one; non-zero values in other
// take precedence.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Skills.Dir != "" {
		c.Skills.Dir = other.Skills.Dir
	}
	if other.Skills.OutputDir != "" {
		c.Skills.OutputDir = other.Skills.OutputDir
	}

	if other.Registry.Sections != "" {
		c.Registry.Sections = other.Registry.Sections
	}
	if other.Registry.Checks != "" {
		c.Registry.Checks = other.Registry.Checks
	}
	if other.Registry.Releases != "" {
		c.Registry.Releases = other.Registry.Releases
	}

	if other.Links.Workers != 0 {
		c.Links.Workers = other.Links.Workers
	}
	if other.Links.Timeout != 0 {
		c.Links.Timeout = other.Links.Timeout
	}
	if other.Links.MaxAttempts != 0 {
		c.Links.MaxAttempts = other.Links.MaxAttempts
	}
	if other.Links.RetryDelay != 0 {
		c.Links.RetryDelay = other.Links.RetryDelay
	}
	if other.Links.RatePerSecond != 0 {
		c.Links.RatePerSecond = other.Links.RatePerSecond
	}

	if other.Releases.Timeout != 0 {
		c.Releases.Timeout = other.Releases.Timeout
	}
	if other.Releases.MaxAttempts != 0 {
		c.Releases.MaxAttempts = other.Releases.MaxAttempts
	}
	if other.Releases.RetryDelay != 0 {
		c.Releases.RetryDelay = other.Releases.RetryDelay
	}

	if other.Extract.OutputDir != "" {
		c.Extract.OutputDir = other.Extract.OutputDir
	}
	if other.Extract.SyntaxCheck != nil {
		c.Extract.SyntaxCheck = other.Extract.SyntaxCheck
	}
}

func boolPtr(b bool) *bool { return &b }
