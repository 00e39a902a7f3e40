package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Database      string        `yaml:"database,omitempty"`  // SQLite file (fallback: data.db)
	LogLevel      string        `yaml:"log_level,omitempty"` // zerolog level name (fallback: info)
	Catalog       CatalogConfig `yaml:"catalog"`
	MQTT          MQTTConfig    `yaml:"mqtt,omitempty"`
	HomeAssistant HAConfig      `yaml:"home_assistant,omitempty"`
}

// CatalogConfig holds Power to Choose settings
type CatalogConfig struct {
	APIURL         string   `yaml:"api_url,omitempty"`
	CSVURL         string   `yaml:"csv_url,omitempty"`
	PageSize       int      `yaml:"page_size,omitempty"`       // Fallback: 200
	TimeoutSeconds int      `yaml:"timeout_seconds,omitempty"` // Fallback: 30
	ZipCodes       []string `yaml:"zip_codes,omitempty"`       // Empty means a statewide search
}

// MQTTConfig holds broker settings for publishing repricing results
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"` // host:port
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty"` // Fallback: gridprice
}

// HAConfig holds Home Assistant HTTP API configuration
type HAConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`       // e.g., "http://homeassistant.local:8123"
	Token    string `yaml:"token"`     // Long-lived access token
	EntityID string `yaml:"entity_id"` // e.g., "sensor.cheapest_electricity_plan"
}

// Load reads the config file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty config if file doesn't exist
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return &cfg, nil
}

// Save writes the config to file
func Save(configPath string, cfg *Config) error {
	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}

// GetDatabase returns the database path with a default of data.db
func (c *Config) GetDatabase() string {
	if c.Database == "" {
		return "data.db"
	}
	return c.Database
}

// GetLogLevel returns the log level with a default of info
func (c *Config) GetLogLevel() string {
	if c.LogLevel == "" {
		return "info"
	}
	return c.LogLevel
}

// GetPageSize returns the catalog page size with a default of 200
func (c *CatalogConfig) GetPageSize() int {
	if c.PageSize <= 0 {
		return 200
	}
	return c.PageSize
}

// GetTimeout returns the catalog request timeout with a default of 30 seconds
func (c *CatalogConfig) GetTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GetTopicPrefix returns the MQTT topic prefix with a default of gridprice
func (c *MQTTConfig) GetTopicPrefix() string {
	if c.TopicPrefix == "" {
		return "gridprice"
	}
	return c.TopicPrefix
}
