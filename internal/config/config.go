package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Data      DataConfig
	Database  DatabaseConfig
	Mongo     MongoConfig
	Publish   PublishConfig
	History   HistoryConfig
	Revisions RevisionsConfig
	Backup    BackupConfig
	MCP       MCPConfig
	Log       LogConfig
}

// DataConfig holds the local data directory (exports, sqlite file).
type DataConfig struct {
	Dir string
}

// DatabaseConfig selects the SQL backend: sqlite, postgres or mysql.
type DatabaseConfig struct {
	Driver string
	DSN    string
}

// MongoConfig enables the MongoDB release store when URI is set.
type MongoConfig struct {
	URI      string
	Database string
}

// PublishConfig points at the backend that owns releases.
// Token is sent as a bearer token; when empty the secret store is consulted.
type PublishConfig struct {
	Endpoint string
	Timeout  time.Duration
	Token    string
}

// HistoryConfig caps the in-memory undo stack.
type HistoryConfig struct {
	Limit int
}

// RevisionsConfig caps persisted revisions per release.
type RevisionsConfig struct {
	Max int
}

// BackupConfig schedules periodic revision snapshots. Empty disables it.
type BackupConfig struct {
	Schedule string
}

// MCPConfig lets the desktop app serve MCP over HTTP, e.g. "127.0.0.1:7331".
// Empty keeps it off; the standalone stdio server is unaffected.
type MCPConfig struct {
	Listen string
}

type LogConfig struct {
	Debug bool
	File  string
}

func defaultDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "pagebuilder")
}

// Load reads configuration from file and env. Env var overrides use prefix
// PAGEBUILDER_ (e.g. PAGEBUILDER_PUBLISH_ENDPOINT). path may be empty, in
// which case config.{toml,yaml} is searched in ~/.config/pagebuilder.
func Load(path string) (Config, error) {
	v := viper.New()

	dataDir := defaultDataDir()
	v.SetDefault("data.dir", dataDir)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", filepath.Join(dataDir, "pagebuilder.db"))
	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", "pagebuilder")
	v.SetDefault("publish.endpoint", "")
	v.SetDefault("publish.timeout", "30s")
	v.SetDefault("publish.token", "")
	v.SetDefault("history.limit", 100)
	v.SetDefault("revisions.max", 40)
	v.SetDefault("backup.schedule", "@every 5m")
	v.SetDefault("mcp.listen", "")
	v.SetDefault("log.debug", false)
	v.SetDefault("log.file", "")

	if path == "" {
		path = os.Getenv("PAGEBUILDER_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		home, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(home, ".config", "pagebuilder"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("PAGEBUILDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// An explicit path must exist; the search path is optional.
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks values viper cannot type-check on its own.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("config: unsupported database.driver %q", c.Database.Driver)
	}
	if c.History.Limit < 0 {
		return fmt.Errorf("config: history.limit must be >= 0")
	}
	if c.Revisions.Max < 1 {
		return fmt.Errorf("config: revisions.max must be >= 1")
	}
	return nil
}

// ExportDir is where JSON exports are written by default.
func (c Config) ExportDir() string {
	return filepath.Join(c.Data.Dir, "exports")
}
