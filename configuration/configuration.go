package configuration

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

var defaultConfig = Config{
	OpenaiAPIKey:   "API_KEY",
	OpenaiAPIHost:  "https://api.openai.com/v1",
	Model:          "gpt-4",
	Temperature:    0.5,
	RequestTimeout: 60,

	Database: &DatabaseConfig{
		Driver: "sqlite",
		DSN:    "~/.walletchat/walletchat.db",
	},

	Server: &ServerConfig{
		Port: 3030,
	},
}

// Config holds configuration for the walletchat server.
type Config struct {
	OpenaiAPIKey   string  `json:"openai_api_key"`
	OpenaiAPIHost  string  `json:"openai_api_host"`
	Model          string  `json:"model"`
	Temperature    float32 `json:"temperature"`
	RequestTimeout int     `json:"request_timeout"`

	Database *DatabaseConfig `json:"database"`
	Server   *ServerConfig   `json:"server"`
}

// DatabaseConfig holds configuration for the chat store.
type DatabaseConfig struct {
	// Either "sqlite" or "postgres".
	Driver string `json:"driver"`
	// File path for sqlite, connection URL for postgres.
	DSN string `json:"dsn"`
}

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	Port int `json:"port"`
}

// Parse a configuration file. Environment variables OPENAI_API_KEY and
// WALLETCHAT_DATABASE_URL take precedence over file values.
func Parse(path string) (*Config, error) {
	path, err := expandPath(path)
	if err != nil {
		return nil, errors.Wrap(err, "expanding path")
	}

	if err := initializeIfNotPresent(path); err != nil {
		return nil, errors.Wrap(err, "initializing configuration")
	}
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading file")
	}

	config := &Config{}
	if err = json.Unmarshal(bytes, config); err != nil {
		return nil, errors.Wrap(err, "unmarshaling into config")
	}

	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.OpenaiAPIKey = apiKey
	}
	if databaseURL := os.Getenv("WALLETCHAT_DATABASE_URL"); databaseURL != "" {
		config.Database = &DatabaseConfig{Driver: "postgres", DSN: databaseURL}
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	if config.Database.Driver == "sqlite" {
		expandedDSN, err := expandPath(config.Database.DSN)
		if err != nil {
			return nil, errors.Wrap(err, "expanding database path")
		}
		config.Database.DSN = expandedDSN
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.OpenaiAPIKey == "" || c.OpenaiAPIKey == defaultConfig.OpenaiAPIKey {
		return errors.New("openai api key is missing")
	}
	if c.Database == nil {
		return errors.New("database configuration is missing")
	}
	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return errors.Errorf("unknown database driver (%s)", c.Database.Driver)
	}
	if c.Server == nil || c.Server.Port == 0 {
		return errors.New("server port is missing")
	}
	return nil
}

// save a configuration file.
func (c *Config) save(path string) error {
	bytes, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling config")
	}

	err = os.WriteFile(path, bytes, 0644)
	if err != nil {
		return errors.Wrap(err, "writing file")
	}

	return nil
}

// initializeIfNotPresent initializes a config if it does not exist.
func initializeIfNotPresent(path string) error {
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil
	}

	// Create the directories.
	dir, _ := filepath.Split(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "creating folders")
	}

	if err := defaultConfig.save(path); err != nil {
		return errors.Wrap(err, "saving default config")
	}
	return nil
}

func expandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "getting user home dir")
	}
	return filepath.Join(home, path[2:]), nil
}
