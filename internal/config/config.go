package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/iancoleman/strcase"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/mcncl/jsondelta/internal/errors"
	"github.com/mcncl/jsondelta/internal/resolver"
)

// EnvPrefix starts the name of every environment override.
const EnvPrefix = "JSONDELTA_"

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Color modes
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config represents the complete configuration for jsondelta
type Config struct {
	Ignore     []string       `yaml:"ignore" toml:"ignore"`
	Nested     []string       `yaml:"nested" toml:"nested"`
	UniqueKeys resolver.Table `yaml:"unique_keys" toml:"unique_keys"`
	UnicodeNFC bool           `yaml:"unicode_nfc" toml:"unicode_nfc"`
	BatchSize  int            `yaml:"batch_size" toml:"batch_size"`
	BatchPause string         `yaml:"batch_pause" toml:"batch_pause"`
	Output     OutputConfig   `yaml:"output" toml:"output"`
	Logging    LoggingConfig  `yaml:"logging" toml:"logging"`
}

// OutputConfig controls how records are printed
type OutputConfig struct {
	Format string `yaml:"format" toml:"format"`
	Color  string `yaml:"color" toml:"color"`
	Stats  bool   `yaml:"stats" toml:"stats"`
}

// LoggingConfig controls diagnostic logging on stderr
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		Ignore:     []string{},
		Nested:     []string{},
		BatchSize:  200,
		BatchPause: "5ms",
		Output: OutputConfig{
			Format: FormatText,
			Color:  ColorAuto,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from a YAML or TOML file, chosen by
// extension. Values missing from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigError("failed to read config file", err)
	}

	cfg := NewConfig()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.NewDecoder(bytes.NewReader(data)).Decode(cfg)
	default:
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.NewConfigError("failed to parse config file "+path, err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindConfigFile searches for a config file in current directory and parents
func FindConfigFile() string {
	configNames := []string{".jsondelta.yml", ".jsondelta.yaml", ".jsondelta.toml"}

	currentDir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		for _, name := range configNames {
			configPath := filepath.Join(currentDir, name)
			if info, err := os.Stat(configPath); err == nil && !info.IsDir() {
				return configPath
			}
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	return ""
}

// Pause returns BatchPause as a duration. An empty value means no pause.
func (c *Config) Pause() (time.Duration, error) {
	if strings.TrimSpace(c.BatchPause) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(c.BatchPause))
	if err != nil {
		return 0, errors.NewConfigError(fmt.Sprintf("batch_pause %q is not a duration", c.BatchPause), err)
	}
	if d < 0 {
		return 0, errors.NewConfigError(fmt.Sprintf("batch_pause %q is negative", c.BatchPause), nil)
	}
	return d, nil
}

// normalize lowercases the enumerated settings.
func (c *Config) normalize() {
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	c.Output.Color = strings.ToLower(strings.TrimSpace(c.Output.Color))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
}

// Validate checks every enumerated and numeric setting.
func (c *Config) Validate() error {
	if c.BatchSize < 0 {
		return errors.NewConfigError(fmt.Sprintf("batch_size must not be negative, got %d", c.BatchSize), nil)
	}
	if _, err := c.Pause(); err != nil {
		return err
	}
	if err := oneOf("output.format", c.Output.Format, FormatText, FormatJSON, FormatYAML); err != nil {
		return err
	}
	if err := oneOf("output.color", c.Output.Color, ColorAuto, ColorAlways, ColorNever); err != nil {
		return err
	}
	if err := oneOf("logging.level", c.Logging.Level, "debug", "info", "warn", "warning", "error", "off"); err != nil {
		return err
	}
	return oneOf("logging.format", c.Logging.Format, "text", "json")
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if strings.EqualFold(value, a) {
			return nil
		}
	}
	return errors.NewConfigError(
		fmt.Sprintf("%s must be one of %s, got %q", key, strings.Join(allowed, ", "), value), nil)
}

// EnvName returns the environment variable overriding a config key, such as
// JSONDELTA_OUTPUT_FORMAT for "output.format".
func EnvName(key string) string {
	return EnvPrefix + strcase.ToScreamingSnake(strings.ReplaceAll(key, ".", "_"))
}

type envBinding struct {
	key   string
	apply func(c *Config, value string) error
}

var envBindings = []envBinding{
	{"ignore", func(c *Config, v string) error { c.Ignore = splitList(v); return nil }},
	{"nested", func(c *Config, v string) error { c.Nested = splitList(v); return nil }},
	{"unique_keys", func(c *Config, v string) error { return c.UniqueKeys.UnmarshalText([]byte(v)) }},
	{"unicode_nfc", func(c *Config, v string) error { return parseBool(v, &c.UnicodeNFC) }},
	{"batch_size", func(c *Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		c.BatchSize = n
		return nil
	}},
	{"batch_pause", func(c *Config, v string) error { c.BatchPause = v; return nil }},
	{"output.format", func(c *Config, v string) error { c.Output.Format = strings.TrimSpace(v); return nil }},
	{"output.color", func(c *Config, v string) error { c.Output.Color = strings.TrimSpace(v); return nil }},
	{"output.stats", func(c *Config, v string) error { return parseBool(v, &c.Output.Stats) }},
	{"logging.level", func(c *Config, v string) error { c.Logging.Level = strings.TrimSpace(v); return nil }},
	{"logging.format", func(c *Config, v string) error { c.Logging.Format = strings.TrimSpace(v); return nil }},
}

// ApplyEnv overrides c with the JSONDELTA_* variables found by lookup.
func ApplyEnv(c *Config, lookup func(string) (string, bool)) error {
	for _, b := range envBindings {
		name := EnvName(b.key)
		value, ok := lookup(name)
		if !ok {
			continue
		}
		if err := b.apply(c, value); err != nil {
			return errors.NewConfigError(fmt.Sprintf("invalid value %q for %s", value, name), err)
		}
	}
	return nil
}

func parseBool(s string, dst *bool) error {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	*dst = b
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Overrides holds settings given on the command line. Zero values and nil
// pointers leave the underlying configuration alone.
type Overrides struct {
	Ignore     []string
	Nested     []string
	UniqueKeys string
	UnicodeNFC *bool
	BatchSize  int
	Format     string
	Color      string
	Stats      *bool
	LogLevel   string
}

// MergeConfigs merges CLI overrides into a base config. Ignore and nested
// names are added to the base lists; unique key pairs replace the base entry
// for the same path.
func MergeConfigs(base *Config, override Overrides) (*Config, error) {
	merged := *base
	merged.Ignore = append(append([]string{}, base.Ignore...), override.Ignore...)
	merged.Nested = append(append([]string{}, base.Nested...), override.Nested...)
	merged.UniqueKeys = *base.UniqueKeys.Clone()

	if override.UniqueKeys != "" {
		pairs, err := resolver.ParsePairsStrict(override.UniqueKeys)
		if err != nil {
			return nil, err
		}
		for _, e := range pairs.Entries() {
			merged.UniqueKeys.Set(e.Prefix, e.Key)
		}
	}
	if override.UnicodeNFC != nil {
		merged.UnicodeNFC = *override.UnicodeNFC
	}
	if override.BatchSize > 0 {
		merged.BatchSize = override.BatchSize
	}
	if override.Format != "" {
		merged.Output.Format = override.Format
	}
	if override.Color != "" {
		merged.Output.Color = override.Color
	}
	if override.Stats != nil {
		merged.Output.Stats = *override.Stats
	}
	if override.LogLevel != "" {
		merged.Logging.Level = override.LogLevel
	}

	return &merged, nil
}

// LoadConfigWithCLI resolves the effective configuration: defaults, then
// the config file (configPath, or one found by FindConfigFile when empty),
// then JSONDELTA_* environment variables, then CLI overrides.
func LoadConfigWithCLI(configPath string, override Overrides) (*Config, error) {
	return load(configPath, override, os.LookupEnv)
}

func load(configPath string, override Overrides, lookup func(string) (string, bool)) (*Config, error) {
	if configPath == "" {
		configPath = FindConfigFile()
	}

	cfg := NewConfig()
	if configPath != "" {
		fileConfig, err := LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = fileConfig
	}

	if err := ApplyEnv(cfg, lookup); err != nil {
		return nil, err
	}

	merged, err := MergeConfigs(cfg, override)
	if err != nil {
		return nil, err
	}
	merged.normalize()
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}
