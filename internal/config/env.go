package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable read by LoadEnv.
const EnvPrefix = "TEXTLSP"

// Env holds process configuration read from the environment.
type Env struct {
	// Env: TEXTLSP_LOG_FILE
	LogFile string `envconfig:"LOG_FILE"`

	// Env: TEXTLSP_VERBOSITY (default: 1)
	Verbosity int `envconfig:"VERBOSITY" default:"1"`

	// Settings is a YAML or JSON settings file used until the client sends
	// its own.
	// Env: TEXTLSP_SETTINGS
	Settings string `envconfig:"SETTINGS"`

	// CachePath is the SQLite file caching checker results. Empty keeps the
	// cache in memory.
	// Env: TEXTLSP_CACHE_PATH
	CachePath string `envconfig:"CACHE_PATH"`

	// Env: TEXTLSP_CACHE_TTL (default: 168h)
	CacheTTL time.Duration `envconfig:"CACHE_TTL" default:"168h"`

	// Env: TEXTLSP_QUEUE_SIZE (default: 64)
	QueueSize int `envconfig:"QUEUE_SIZE" default:"64"`

	// Parsers is the number of tree-sitter parsers per grammar.
	// Env: TEXTLSP_PARSERS (default: 4)
	Parsers int `envconfig:"PARSERS" default:"4"`
}

// LoadDotEnv loads environment variables from a .env file.
// If path is empty, it loads from ".env" in the current directory.
// If the file does not exist, it silently returns nil.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

// LoadEnv loads the .env file at dotenv, when present, and then reads the
// environment. Variables already set win over the file.
func LoadEnv(dotenv string) (Env, error) {
	if err := LoadDotEnv(dotenv); err != nil {
		return Env{}, err
	}
	var env Env
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return Env{}, err
	}
	return env, nil
}
