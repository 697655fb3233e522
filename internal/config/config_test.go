package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcncl/jsondelta/internal/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func noEnv(string) (string, bool) { return "", false }

func envMap(m map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := m[name]
		return v, ok
	}
}

func TestConfig_DefaultValues(t *testing.T) {
	cfg := NewConfig()

	assert.Empty(t, cfg.Ignore)
	assert.Empty(t, cfg.Nested)
	assert.Equal(t, 0, cfg.UniqueKeys.Len())
	assert.False(t, cfg.UnicodeNFC)
	assert.Equal(t, 200, cfg.BatchSize)
	assert.Equal(t, FormatText, cfg.Output.Format)
	assert.Equal(t, ColorAuto, cfg.Output.Color)
	assert.False(t, cfg.Output.Stats)
	assert.Equal(t, "warn", cfg.Logging.Level)

	pause, err := cfg.Pause()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Millisecond, pause)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_LoadFromYAML(t *testing.T) {
	yamlContent := `
ignore: [updatedAt, etag]
nested:
  - payload
unique_keys:
  items: sku
  orders.lines: lineId
unicode_nfc: true
batch_size: 50
batch_pause: 1ms
output:
  format: json
  stats: true
logging:
  level: debug
  format: json
`
	path := writeFile(t, t.TempDir(), "config.yml", yamlContent)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"updatedAt", "etag"}, cfg.Ignore)
	assert.Equal(t, []string{"payload"}, cfg.Nested)
	assert.Equal(t, "items:sku, orders.lines:lineId", cfg.UniqueKeys.String())
	assert.True(t, cfg.UnicodeNFC)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, FormatJSON, cfg.Output.Format)
	assert.Equal(t, ColorAuto, cfg.Output.Color, "unset keys keep defaults")
	assert.True(t, cfg.Output.Stats)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestConfig_LoadFromTOML(t *testing.T) {
	tomlContent := `
ignore = ["updatedAt"]
unique_keys = "items:sku, orders:id"
batch_size = 10

[output]
format = "yaml"
color = "never"
`
	path := writeFile(t, t.TempDir(), "config.toml", tomlContent)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"updatedAt"}, cfg.Ignore)
	key, ok := cfg.UniqueKeys.Resolve("orders")
	require.True(t, ok)
	assert.Equal(t, "id", key)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, FormatYAML, cfg.Output.Format)
	assert.Equal(t, ColorNever, cfg.Output.Color)
}

func TestConfig_LoadNonExistentFile(t *testing.T) {
	_, err := LoadConfig("/non/existent/config.yml")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, os.ErrNotExist))
	assert.Contains(t, errors.UserFriendlyError(err), "Configuration error: failed to read config file")
}

func TestConfig_LoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantMsg string
	}{
		{"invalid yaml", "bad.yml", "ignore: [unclosed array\n", "failed to parse config file"},
		{"invalid toml", "bad.toml", "ignore = [\n", "failed to parse config file"},
		{"bad unique key pair", "pairs.yml", "unique_keys: \"items\"\n", "not a path:key pair"},
		{"bad format", "format.yml", "output:\n  format: xml\n", "output.format must be one of"},
		{"bad color", "color.yml", "output:\n  color: rainbow\n", "output.color must be one of"},
		{"negative batch", "batch.yml", "batch_size: -1\n", "batch_size must not be negative"},
		{"bad pause", "pause.yml", "batch_pause: soon\n", "batch_pause"},
		{"bad log level", "log.yml", "logging:\n  level: loud\n", "logging.level must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), tt.file, tt.content)

			_, err := LoadConfig(path)
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, &errors.AppError{Type: errors.ErrorTypeConfig}))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestConfig_FindConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	nestedDir := filepath.Join(tmpDir, "project", "subdir")
	require.NoError(t, os.MkdirAll(nestedDir, 0o755))

	writeFile(t, filepath.Join(tmpDir, "project"), ".jsondelta.toml", `batch_size = 7`)
	t.Chdir(nestedDir)

	foundPath := FindConfigFile()
	require.NotEmpty(t, foundPath, "Should find config file")

	cfg, err := LoadConfig(foundPath)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.BatchSize)
}

func TestConfig_FindConfigFilePrefersYAML(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, ".jsondelta.toml", `batch_size = 1`)
	yml := writeFile(t, tmpDir, ".jsondelta.yml", `batch_size: 2`)
	t.Chdir(tmpDir)

	found, err := filepath.EvalSymlinks(FindConfigFile())
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(yml)
	require.NoError(t, err)
	assert.Equal(t, want, found)
}

func TestConfig_FindConfigFileNotFound(t *testing.T) {
	t.Chdir(t.TempDir())
	assert.Empty(t, FindConfigFile())
}

func TestEnvName(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"ignore", "JSONDELTA_IGNORE"},
		{"unique_keys", "JSONDELTA_UNIQUE_KEYS"},
		{"output.format", "JSONDELTA_OUTPUT_FORMAT"},
		{"logging.level", "JSONDELTA_LOGGING_LEVEL"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, EnvName(tt.key))
		})
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := NewConfig()
	err := ApplyEnv(cfg, envMap(map[string]string{
		"JSONDELTA_IGNORE":        "a, b,,c",
		"JSONDELTA_UNIQUE_KEYS":   "items:sku",
		"JSONDELTA_UNICODE_NFC":   "true",
		"JSONDELTA_BATCH_SIZE":    "25",
		"JSONDELTA_OUTPUT_FORMAT": "yaml",
		"JSONDELTA_OUTPUT_STATS":  "1",
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, cfg.Ignore)
	assert.Equal(t, "items:sku", cfg.UniqueKeys.String())
	assert.True(t, cfg.UnicodeNFC)
	assert.Equal(t, 25, cfg.BatchSize)
	assert.Equal(t, FormatYAML, cfg.Output.Format)
	assert.True(t, cfg.Output.Stats)
}

func TestApplyEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"batch size", map[string]string{"JSONDELTA_BATCH_SIZE": "many"}},
		{"bool", map[string]string{"JSONDELTA_OUTPUT_STATS": "sometimes"}},
		{"pairs", map[string]string{"JSONDELTA_UNIQUE_KEYS": "items"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ApplyEnv(NewConfig(), envMap(tt.env))
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, &errors.AppError{Type: errors.ErrorTypeConfig}))
		})
	}
}

func TestConfig_MergeWithCLI(t *testing.T) {
	base := NewConfig()
	base.Ignore = []string{"etag"}
	require.NoError(t, base.UniqueKeys.UnmarshalText([]byte("items:sku, orders:id")))

	yes := true
	merged, err := MergeConfigs(base, Overrides{
		Ignore:     []string{"updatedAt"},
		UniqueKeys: "orders:number",
		UnicodeNFC: &yes,
		Format:     FormatJSON,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"etag", "updatedAt"}, merged.Ignore)
	assert.Equal(t, "items:sku, orders:number", merged.UniqueKeys.String())
	assert.True(t, merged.UnicodeNFC)
	assert.Equal(t, FormatJSON, merged.Output.Format)
	assert.Equal(t, 200, merged.BatchSize, "zero override keeps base")

	assert.Equal(t, []string{"etag"}, base.Ignore, "base is not modified")
	assert.Equal(t, "items:sku, orders:id", base.UniqueKeys.String())
}

func TestConfig_MergeRejectsBadPairs(t *testing.T) {
	_, err := MergeConfigs(NewConfig(), Overrides{UniqueKeys: "items"})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidPair))
}

func TestLoadConfigWithPrecedence(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", `
batch_size: 10
output:
  format: json
  color: never
logging:
  level: info
`)

	cfg, err := load(path, Overrides{Format: FormatYAML}, envMap(map[string]string{
		"JSONDELTA_BATCH_SIZE":    "20",
		"JSONDELTA_OUTPUT_FORMAT": "text",
	}))
	require.NoError(t, err)

	assert.Equal(t, FormatYAML, cfg.Output.Format, "CLI beats env")
	assert.Equal(t, 20, cfg.BatchSize, "env beats file")
	assert.Equal(t, ColorNever, cfg.Output.Color, "file beats default")
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format, "default")
}

func TestLoadConfigWithPrecedence_NoFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := load("", Overrides{}, noEnv)
	require.NoError(t, err)
	assert.Equal(t, NewConfig().Output, cfg.Output)
}

func TestLoadConfigWithPrecedence_InvalidOverride(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := load("", Overrides{Format: "xml"}, noEnv)
	require.Error(t, err)
	assert.Contains(t, errors.UserFriendlyError(err), "output.format must be one of")
}
