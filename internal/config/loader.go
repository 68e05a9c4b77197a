package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and defaults.
// Priority (highest to lowest): CLI flags > env vars > config file > defaults.
// CLI flag overrides are applied by the command layer after Load returns.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("SHELFHOUND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("shelfhound")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".shelfhound"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// Only a missing auto-discovered file is fine; an explicitly
		// named path that cannot be read, and any malformed file, fail.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper so environment
// variables are picked up for every key.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("crawl.seeds", cfg.Crawl.Seeds)
	v.SetDefault("crawl.category", cfg.Crawl.Category)
	v.SetDefault("crawl.link_pattern", cfg.Crawl.LinkPattern)
	v.SetDefault("crawl.delay", cfg.Crawl.Delay)
	v.SetDefault("crawl.output_dir", cfg.Crawl.OutputDir)

	v.SetDefault("fetcher.user_agent", cfg.Fetcher.UserAgent)
	v.SetDefault("fetcher.request_timeout", cfg.Fetcher.RequestTimeout)
	v.SetDefault("fetcher.follow_redirects", cfg.Fetcher.FollowRedirects)
	v.SetDefault("fetcher.max_redirects", cfg.Fetcher.MaxRedirects)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.idle_conn_timeout", cfg.Fetcher.IdleConnTimeout)
	v.SetDefault("fetcher.max_idle_conns", cfg.Fetcher.MaxIdleConns)

	v.SetDefault("images.enabled", cfg.Images.Enabled)
	v.SetDefault("images.dir", cfg.Images.Dir)
	v.SetDefault("images.max_per_product", cfg.Images.MaxPerProduct)
	v.SetDefault("images.delay", cfg.Images.Delay)
	v.SetDefault("images.timeout", cfg.Images.Timeout)

	v.SetDefault("sinks.enabled", cfg.Sinks.Enabled)
	v.SetDefault("sinks.mode", cfg.Sinks.Mode)
	v.SetDefault("sinks.csv_file", cfg.Sinks.CSVFile)
	v.SetDefault("sinks.sqlite_file", cfg.Sinks.SQLiteFile)
	v.SetDefault("sinks.dump_file", cfg.Sinks.DumpFile)
	v.SetDefault("sinks.postgres.dsn", cfg.Sinks.Postgres.DSN)
	v.SetDefault("sinks.postgres.table", cfg.Sinks.Postgres.Table)
	v.SetDefault("sinks.mongo.uri", cfg.Sinks.Mongo.URI)
	v.SetDefault("sinks.mongo.database", cfg.Sinks.Mongo.Database)
	v.SetDefault("sinks.mongo.collection", cfg.Sinks.Mongo.Collection)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.output", cfg.Logging.Output)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
