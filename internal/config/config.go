package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned for settings that do not have the expected shape.
var ErrInvalid = errors.New("invalid settings")

// settingsKey is the object clients nest the server's settings under.
const settingsKey = "textLSP"

// Config holds the language-server settings sent by the client.
type Config struct {
	// Analysers maps a checker name to its own settings object.
	Analysers map[string]json.RawMessage `json:"analysers"`
	Documents Documents                  `json:"documents"`
}

type Documents struct {
	Language string `json:"language"`
}

var defaultConfig = Config{
	Analysers: map[string]json.RawMessage{
		"prose": json.RawMessage(`{"enabled": true}`),
	},
	Documents: Documents{Language: "en"},
}

// Default returns the settings used before the client sends any.
func Default() Config {
	cfg := defaultConfig
	cfg.Analysers = maps.Clone(defaultConfig.Analysers)
	return cfg
}

// Load overlays v, any JSON-shaped value, on the defaults. A value wrapping
// the settings in a "textLSP" object is unwrapped first. Each analyser's
// object replaces the default one as a whole.
func Load(v any) (Config, error) {
	cfg := Default()

	data, err := json.Marshal(v)
	if err != nil {
		return Config{}, fmt.Errorf("failed to marshal source: %w", err)
	}
	if nested := gjson.GetBytes(data, settingsKey); nested.IsObject() {
		data = []byte(nested.Raw)
	}
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		// null or a scalar: nothing to overlay.
		return cfg, nil
	}

	// only fields present in src will overwrite.
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return cfg, nil
}

// LoadFile reads settings from a YAML or JSON file, chosen by extension.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var v any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &v)
	default:
		err = json.Unmarshal(data, &v)
	}
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s: %w", ErrInvalid, path, err)
	}
	return Load(v)
}

// AnalyserNames returns the configured checker names in order.
func (c Config) AnalyserNames() []string {
	return slices.Sorted(maps.Keys(c.Analysers))
}

// Analyser returns the settings of one checker.
func (c Config) Analyser(name string) Section {
	raw, ok := c.Analysers[name]
	if !ok {
		return Section{}
	}
	return Section{gjson.ParseBytes(raw)}
}

// Section is a settings subtree read with gjson paths.
type Section struct {
	r gjson.Result
}

// Enabled reports the "enabled" flag. Checkers are off unless enabled.
func (s Section) Enabled() bool { return s.Bool("enabled", false) }

func (s Section) Bool(path string, def bool) bool {
	if v := s.r.Get(path); v.Exists() {
		return v.Bool()
	}
	return def
}

func (s Section) Int(path string, def int) int {
	if v := s.r.Get(path); v.Exists() {
		return int(v.Int())
	}
	return def
}

func (s Section) String(path string, def string) string {
	if v := s.r.Get(path); v.Exists() {
		return v.String()
	}
	return def
}

// Raw returns the subtree as JSON, "" when absent.
func (s Section) Raw() string { return s.r.Raw }
