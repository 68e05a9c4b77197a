package config

import (
	"fmt"
	"net/url"
)

var validSinks = map[string]bool{
	"csv": true, "sqlite": true, "sqldump": true, "postgres": true, "mongo": true,
}

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if len(cfg.Crawl.Seeds) == 0 {
		return fmt.Errorf("crawl.seeds must list at least one category page")
	}
	for _, seed := range cfg.Crawl.Seeds {
		if err := ValidateURL(seed); err != nil {
			return fmt.Errorf("invalid seed %q: %w", seed, err)
		}
	}
	if cfg.Crawl.Category == "" {
		return fmt.Errorf("crawl.category must not be empty")
	}
	if cfg.Crawl.LinkPattern == "" {
		return fmt.Errorf("crawl.link_pattern must not be empty")
	}
	if cfg.Crawl.Delay < 0 {
		return fmt.Errorf("crawl.delay must be >= 0")
	}
	if cfg.Crawl.OutputDir == "" {
		return fmt.Errorf("crawl.output_dir must not be empty")
	}

	if cfg.Fetcher.RequestTimeout <= 0 {
		return fmt.Errorf("fetcher.request_timeout must be > 0")
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}

	for i, rule := range cfg.Resolver.Fields {
		if rule.Name == "" {
			return fmt.Errorf("resolver.fields[%d]: name must not be empty", i)
		}
		for j, q := range rule.Queries {
			switch q.Type {
			case "css", "xpath":
				if q.Selector == "" {
					return fmt.Errorf("resolver.fields[%d].queries[%d]: %s query needs a selector", i, j, q.Type)
				}
			case "regex":
				if q.Pattern == "" {
					return fmt.Errorf("resolver.fields[%d].queries[%d]: regex query needs a pattern", i, j)
				}
			default:
				return fmt.Errorf("resolver.fields[%d].queries[%d]: type must be css/xpath/regex, got %q", i, j, q.Type)
			}
		}
	}

	if cfg.Images.Enabled {
		if cfg.Images.Dir == "" {
			return fmt.Errorf("images.dir must not be empty")
		}
		if cfg.Images.MaxPerProduct < 1 {
			return fmt.Errorf("images.max_per_product must be >= 1, got %d", cfg.Images.MaxPerProduct)
		}
		if cfg.Images.Delay < 0 {
			return fmt.Errorf("images.delay must be >= 0")
		}
		if cfg.Images.Timeout <= 0 {
			return fmt.Errorf("images.timeout must be > 0")
		}
	}

	if cfg.Sinks.Mode != ModeReplace && cfg.Sinks.Mode != ModeAppend {
		return fmt.Errorf("sinks.mode must be 'replace' or 'append', got %q", cfg.Sinks.Mode)
	}
	for _, name := range cfg.Sinks.Enabled {
		if !validSinks[name] {
			return fmt.Errorf("sink %q is not supported (valid: csv, sqlite, sqldump, postgres, mongo)", name)
		}
		switch name {
		case "csv":
			if cfg.Sinks.CSVFile == "" {
				return fmt.Errorf("sinks.csv_file must not be empty")
			}
		case "sqlite":
			if cfg.Sinks.SQLiteFile == "" {
				return fmt.Errorf("sinks.sqlite_file must not be empty")
			}
		case "sqldump":
			if cfg.Sinks.DumpFile == "" {
				return fmt.Errorf("sinks.dump_file must not be empty")
			}
		case "postgres":
			if cfg.Sinks.Postgres.DSN == "" {
				return fmt.Errorf("sinks.postgres.dsn is required when the postgres sink is enabled")
			}
		case "mongo":
			if cfg.Sinks.Mongo.URI == "" {
				return fmt.Errorf("sinks.mongo.uri is required when the mongo sink is enabled")
			}
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

// ValidateURL checks if a URL string is usable as a crawl target.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
