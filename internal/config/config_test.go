// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsWithNoFile(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir, Config{})
	require.NoError(t, err)

	assert.Equal(t, Defaults().MaxFileSizeBytes, cfg.MaxFileSizeBytes)
	assert.False(t, cfg.LLM.Enabled)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.True(t, cfg.Cache.Enabled)

	abs, err := filepath.Abs(dir)
	require.NoError(t, err)
	assert.Equal(t, abs, cfg.ProjectRoot)
}

func TestLoadRejectsMalformedConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hcaa.yaml"), []byte("not: [valid yaml"), 0644))

	_, err := Load(dir, Config{})
	assert.Error(t, err)
}

func TestLoadMergesConfigFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	contents := `
exclude:
  - "*.generated.go"
parse_workers: 2
llm:
  enabled: true
  provider: mock
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hcaa.yaml"), []byte(contents), 0644))

	cfg, err := Load(dir, Config{})
	require.NoError(t, err)

	assert.Equal(t, []string{"*.generated.go"}, cfg.ExcludeGlobs)
	assert.Equal(t, 2, cfg.ParseWorkers)
	assert.True(t, cfg.LLM.Enabled)
	assert.Equal(t, "mock", cfg.LLM.Provider)
}

func TestLoadOverridesWinOverConfigFile(t *testing.T) {
	dir := t.TempDir()
	contents := `
llm:
  provider: openai
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hcaa.yaml"), []byte(contents), 0644))

	cfg, err := Load(dir, Config{LLM: LLMConfig{Provider: "anthropic"}})
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.LLM.Provider)
}

func TestApplyEnvOverridesOllamaSettings(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "http://example.internal:11434")
	t.Setenv("OLLAMA_EMBED_MODEL", "custom-model")
	t.Setenv("HCAA_LLM_API_KEY", "")

	cfg := Defaults()
	cfg.LLM.Provider = "ollama"
	applyEnv(&cfg)

	assert.Equal(t, "http://example.internal:11434", cfg.LLM.BaseURL)
	assert.Equal(t, "custom-model", cfg.LLM.Model)
}

func TestApplyEnvIgnoresEmbedModelForNonOllamaProvider(t *testing.T) {
	t.Setenv("OLLAMA_EMBED_MODEL", "custom-model")

	cfg := Defaults()
	cfg.LLM.Provider = "openai"
	cfg.LLM.Model = "gpt-4"
	applyEnv(&cfg)

	assert.Equal(t, "gpt-4", cfg.LLM.Model)
}

func TestLoadRejectsUnresolvablePath(t *testing.T) {
	_, err := Load("", Config{})
	// filepath.Abs("") resolves to the cwd and never errors in practice;
	// this asserts Load doesn't panic on an edge-case empty path instead.
	assert.NoError(t, err)
}
