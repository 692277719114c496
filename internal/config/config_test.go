package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "en", cfg.Documents.Language)
	assert.Equal(t, []string{"prose"}, cfg.AnalyserNames())
	assert.True(t, cfg.Analyser("prose").Enabled())
}

func TestLoadOverlay(t *testing.T) {
	cfg, err := Load(map[string]any{
		"textLSP": map[string]any{
			"analysers": map[string]any{
				"prose": map[string]any{
					"enabled":       true,
					"max_sentence":  30,
					"check_text":    map[string]any{"on_change": false},
					"repeated_word": false,
				},
				"other": map[string]any{"enabled": false},
			},
			"documents": map[string]any{"language": "de-DE"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "de-DE", cfg.Documents.Language)
	assert.Equal(t, []string{"other", "prose"}, cfg.AnalyserNames())

	prose := cfg.Analyser("prose")
	assert.True(t, prose.Enabled())
	assert.Equal(t, 30, prose.Int("max_sentence", 40))
	assert.Equal(t, 40, prose.Int("missing", 40))
	assert.False(t, prose.Bool("check_text.on_change", true))
	assert.True(t, prose.Bool("check_text.on_save", true))
	assert.False(t, prose.Bool("repeated_word", true))
	assert.False(t, cfg.Analyser("other").Enabled())
	assert.False(t, cfg.Analyser("absent").Enabled())
	assert.Equal(t, "x", cfg.Analyser("absent").String("a", "x"))
}

func TestLoadDoesNotTouchDefaults(t *testing.T) {
	_, err := Load(map[string]any{"analysers": map[string]any{"prose": map[string]any{"enabled": false}}})
	require.NoError(t, err)

	cfg := Default()
	assert.True(t, cfg.Analyser("prose").Enabled())
}

func TestLoadRejectsBadShape(t *testing.T) {
	_, err := Load(map[string]any{"documents": "en"})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
textLSP:
  analysers:
    prose:
      enabled: true
      max_sentence: 12
  documents:
    language: fr
`), 0o644))
	cfg, err := LoadFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "fr", cfg.Documents.Language)
	assert.Equal(t, 12, cfg.Analyser("prose").Int("max_sentence", 0))

	jsonPath := filepath.Join(dir, "settings.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"documents": {"language": "nl"}}`), 0o644))
	cfg, err = LoadFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "nl", cfg.Documents.Language)

	badPath := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badPath, []byte(`{`), 0o644))
	_, err = LoadFile(badPath)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	dotenv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("TEXTLSP_QUEUE_SIZE=7\nTEXTLSP_CACHE_TTL=1h\n"), 0o644))
	t.Setenv("TEXTLSP_VERBOSITY", "3")
	// Registered so the variables set by the file are restored afterwards.
	t.Setenv("TEXTLSP_QUEUE_SIZE", "")
	os.Unsetenv("TEXTLSP_QUEUE_SIZE")
	t.Setenv("TEXTLSP_CACHE_TTL", "")
	os.Unsetenv("TEXTLSP_CACHE_TTL")

	env, err := LoadEnv(dotenv)
	require.NoError(t, err)
	assert.Equal(t, 3, env.Verbosity)
	assert.Equal(t, 7, env.QueueSize)
	assert.Equal(t, time.Hour, env.CacheTTL)
	assert.Equal(t, 4, env.Parsers)

	_, err = LoadEnv(filepath.Join(dir, "absent.env"))
	assert.NoError(t, err)
}
