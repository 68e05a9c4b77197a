package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for shelfhound.
type Config struct {
	Crawl    CrawlConfig    `mapstructure:"crawl"    yaml:"crawl"`
	Fetcher  FetcherConfig  `mapstructure:"fetcher"  yaml:"fetcher"`
	Resolver ResolverConfig `mapstructure:"resolver" yaml:"resolver"`
	Images   ImagesConfig   `mapstructure:"images"   yaml:"images"`
	Sinks    SinksConfig    `mapstructure:"sinks"    yaml:"sinks"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"  yaml:"metrics"`
}

// CrawlConfig controls the sequential category crawl.
type CrawlConfig struct {
	Seeds       []string      `mapstructure:"seeds"        yaml:"seeds"`
	Category    string        `mapstructure:"category"     yaml:"category"`
	LinkPattern string        `mapstructure:"link_pattern" yaml:"link_pattern"`
	Delay       time.Duration `mapstructure:"delay"        yaml:"delay"`
	OutputDir   string        `mapstructure:"output_dir"   yaml:"output_dir"`
}

// FetcherConfig controls the HTTP transport.
type FetcherConfig struct {
	UserAgent       string        `mapstructure:"user_agent"        yaml:"user_agent"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"   yaml:"request_timeout"`
	FollowRedirects bool          `mapstructure:"follow_redirects"  yaml:"follow_redirects"`
	MaxRedirects    int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
}

// ResolverConfig holds the per-field extraction rules. Rules are ordered:
// structured metadata is consulted first when metadata_key is set, then
// each markup query in turn until one produces a value.
type ResolverConfig struct {
	Fields []FieldRule `mapstructure:"fields" yaml:"fields"`
}

// FieldRule defines how a single product field is resolved.
type FieldRule struct {
	Name        string  `mapstructure:"name"         yaml:"name"`
	MetadataKey string  `mapstructure:"metadata_key" yaml:"metadata_key"`
	Queries     []Query `mapstructure:"queries"      yaml:"queries"`
}

// Query is one markup lookup: css, xpath or regex.
type Query struct {
	Type      string `mapstructure:"type"      yaml:"type"`
	Selector  string `mapstructure:"selector"  yaml:"selector"`
	Attribute string `mapstructure:"attribute" yaml:"attribute"`
	Pattern   string `mapstructure:"pattern"   yaml:"pattern"`
}

// ImagesConfig controls the post-crawl image downloads.
type ImagesConfig struct {
	Enabled       bool          `mapstructure:"enabled"         yaml:"enabled"`
	Dir           string        `mapstructure:"dir"             yaml:"dir"`
	MaxPerProduct int           `mapstructure:"max_per_product" yaml:"max_per_product"`
	Delay         time.Duration `mapstructure:"delay"           yaml:"delay"`
	Timeout       time.Duration `mapstructure:"timeout"         yaml:"timeout"`
}

// Sink write modes. Replace clears previous output before the run;
// append keeps it and relies on identity upserts to avoid duplicates.
const (
	ModeReplace = "replace"
	ModeAppend  = "append"
)

// SinksConfig controls which output backends receive records.
type SinksConfig struct {
	Enabled    []string       `mapstructure:"enabled"     yaml:"enabled"`
	Mode       string         `mapstructure:"mode"        yaml:"mode"`
	CSVFile    string         `mapstructure:"csv_file"    yaml:"csv_file"`
	SQLiteFile string         `mapstructure:"sqlite_file" yaml:"sqlite_file"`
	DumpFile   string         `mapstructure:"dump_file"   yaml:"dump_file"`
	Postgres   PostgresConfig `mapstructure:"postgres"    yaml:"postgres"`
	Mongo      MongoConfig    `mapstructure:"mongo"       yaml:"mongo"`
}

// PostgresConfig configures the optional server-backed relational sink.
type PostgresConfig struct {
	DSN   string `mapstructure:"dsn"   yaml:"dsn"`
	Table string `mapstructure:"table" yaml:"table"`
}

// MongoConfig configures the optional document sink.
type MongoConfig struct {
	URI        string `mapstructure:"uri"        yaml:"uri"`
	Database   string `mapstructure:"database"   yaml:"database"`
	Collection string `mapstructure:"collection" yaml:"collection"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults. The resolver
// rules mirror common storefront markup and can be replaced wholesale
// from the config file.
func DefaultConfig() *Config {
	return &Config{
		Crawl: CrawlConfig{
			Seeds: []string{
				"https://www.aldi.us/products/thanksgiving/thanksgiving-desserts/k/257",
			},
			Category:    "Thanksgiving",
			LinkPattern: "/products/",
			Delay:       800 * time.Millisecond,
			OutputDir:   "./output",
		},
		Fetcher: FetcherConfig{
			UserAgent:       "Mozilla/5.0 (compatible; Shelfhound/1.0; +https://github.com/shelfhound/shelfhound)",
			RequestTimeout:  20 * time.Second,
			FollowRedirects: true,
			MaxRedirects:    10,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    100,
		},
		Resolver: ResolverConfig{
			Fields: DefaultFieldRules(),
		},
		Images: ImagesConfig{
			Enabled:       true,
			Dir:           "images",
			MaxPerProduct: 1,
			Delay:         120 * time.Millisecond,
			Timeout:       30 * time.Second,
		},
		Sinks: SinksConfig{
			Enabled:    []string{"csv", "sqlite", "sqldump"},
			Mode:       ModeReplace,
			CSVFile:    "products.csv",
			SQLiteFile: "products.db",
			DumpFile:   "products.sql",
			Postgres: PostgresConfig{
				Table: "products",
			},
			Mongo: MongoConfig{
				Database:   "shelfhound",
				Collection: "products",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}

// DefaultFieldRules returns the stock extraction rules: structured
// metadata first where a schema.org key exists, then ranked CSS
// fallbacks matching common storefront markup.
func DefaultFieldRules() []FieldRule {
	return []FieldRule{
		{
			Name:        "title",
			MetadataKey: "name",
			Queries: []Query{
				{Type: "css", Selector: "h1"},
				{Type: "css", Selector: ".product-title"},
				{Type: "css", Selector: ".page-title"},
			},
		},
		{
			Name:        "price",
			MetadataKey: "price",
			Queries: []Query{
				{Type: "css", Selector: ".product-price"},
				{Type: "css", Selector: ".price"},
			},
		},
		{
			// No structured source exists for unit pricing.
			Name: "unit_price",
			Queries: []Query{
				{Type: "css", Selector: ".unit-price"},
			},
		},
		{
			Name:        "description",
			MetadataKey: "description",
			Queries: []Query{
				{Type: "css", Selector: ".product-description"},
				{Type: "css", Selector: ".short-description"},
			},
		},
		{
			Name:        "brand",
			MetadataKey: "brand",
			Queries: []Query{
				{Type: "css", Selector: ".brand"},
			},
		},
		{
			Name:        "sku",
			MetadataKey: "sku",
			Queries: []Query{
				{Type: "css", Selector: "[data-sku]"},
			},
		},
	}
}
