package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// DirName is the per-workspace directory holding config and the database.
const DirName = ".codelists"

// currentVersion is the config schema version
const currentVersion = 1

// Config represents the complete codelists configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Database DatabaseConfig `json:"database" mapstructure:"database"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
	Ontology OntologyConfig `json:"ontology" mapstructure:"ontology"`
	Cache    CacheConfig    `json:"cache" mapstructure:"cache"`
}

// DatabaseConfig locates the sqlite database
type DatabaseConfig struct {
	// Path is relative to the workspace root unless absolute
	Path string `json:"path" mapstructure:"path"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// OntologyConfig controls how graphs are built from a release
type OntologyConfig struct {
	// DefaultRelease is used when a command does not name one
	DefaultRelease string `json:"defaultRelease" mapstructure:"defaultRelease"`
	// IgnoreUnknown drops seed codes missing from the release instead of failing
	IgnoreUnknown bool `json:"ignoreUnknown" mapstructure:"ignoreUnknown"`
}

// CacheConfig controls the per-version graph cache
type CacheConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	// CompressionLevel is a zstd level, 1 (fastest) to 22
	CompressionLevel int `json:"compressionLevel" mapstructure:"compressionLevel"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: currentVersion,
		Database: DatabaseConfig{
			Path: filepath.Join(DirName, "codelists.db"),
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
		Ontology: OntologyConfig{
			IgnoreUnknown: false,
		},
		Cache: CacheConfig{
			Enabled:          true,
			CompressionLevel: 3,
		},
	}
}

// LoadConfig loads configuration from .codelists/config.json. Keys missing
// from the file keep their defaults.
func LoadConfig(root string) (*Config, error) {
	v := viper.New()

	d := DefaultConfig()
	v.SetDefault("version", d.Version)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("ontology.defaultRelease", d.Ontology.DefaultRelease)
	v.SetDefault("ontology.ignoreUnknown", d.Ontology.IgnoreUnknown)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.compressionLevel", d.Cache.CompressionLevel)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(root, DirName))

	v.SetEnvPrefix("CODELISTS")
	_ = v.BindEnv("logging.level", "CODELISTS_LOG_LEVEL")
	_ = v.BindEnv("database.path", "CODELISTS_DB")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the configuration to .codelists/config.json
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, DirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// DatabasePath resolves the database path against root.
func (c *Config) DatabasePath(root string) string {
	if filepath.IsAbs(c.Database.Path) {
		return c.Database.Path
	}
	return filepath.Join(root, c.Database.Path)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != currentVersion {
		return &ConfigError{Field: "version", Message: fmt.Sprintf("unsupported config version %d", c.Version)}
	}
	if c.Database.Path == "" {
		return &ConfigError{Field: "database.path", Message: "must not be empty"}
	}
	switch c.Logging.Format {
	case "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be human or json"}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return &ConfigError{Field: "logging.level", Message: "must be debug, info, warn or error"}
	}
	if c.Cache.CompressionLevel < 1 || c.Cache.CompressionLevel > 22 {
		return &ConfigError{Field: "cache.compressionLevel", Message: "must be between 1 and 22"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
