package sink

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/shelfhound/shelfhound/internal/config"
	"github.com/shelfhound/shelfhound/internal/types"
)

// Sink is the interface for all output backends.
type Sink interface {
	// Store persists a batch of products.
	Store(products []*types.Product) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the sink identifier.
	Name() string
}

// New builds every enabled sink and wraps them in a MultiSink. A sink
// that cannot be constructed fails the whole call: broken output
// configuration should surface before any page is fetched.
func New(ctx context.Context, cfg *config.SinksConfig, outputDir string, logger *slog.Logger) (*MultiSink, error) {
	backends := make([]Sink, 0, len(cfg.Enabled))
	for _, name := range cfg.Enabled {
		var (
			s   Sink
			err error
		)
		switch name {
		case "csv":
			s, err = NewCSVSink(filepath.Join(outputDir, cfg.CSVFile), cfg.Mode, logger)
		case "sqlite":
			s, err = NewSQLiteSink(filepath.Join(outputDir, cfg.SQLiteFile), cfg.Mode, logger)
		case "sqldump":
			s, err = NewDumpSink(filepath.Join(outputDir, cfg.DumpFile), cfg.Mode, logger)
		case "postgres":
			s, err = NewPostgresSink(ctx, cfg.Postgres.DSN, cfg.Postgres.Table, cfg.Mode, logger)
		case "mongo":
			s, err = NewMongoSink(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection, cfg.Mode, logger)
		default:
			err = fmt.Errorf("unsupported sink: %s", name)
		}
		if err != nil {
			closeAll(backends, logger)
			return nil, &types.StorageError{Backend: name, Err: err}
		}
		backends = append(backends, s)
	}
	return NewMultiSink(backends, logger), nil
}

func closeAll(backends []Sink, logger *slog.Logger) {
	for _, b := range backends {
		if err := b.Close(); err != nil {
			logger.Warn("sink close failed during setup rollback",
				"sink", b.Name(), "error", err)
		}
	}
}

// MultiSink fans every batch out to all configured backends. One
// backend failing never stops the others from attempting their writes;
// the first failure is reported after all backends have been tried.
type MultiSink struct {
	backends []Sink
	logger   *slog.Logger
}

// NewMultiSink creates a sink that fans out to backends.
func NewMultiSink(backends []Sink, logger *slog.Logger) *MultiSink {
	return &MultiSink{
		backends: backends,
		logger:   logger.With("component", "multi_sink"),
	}
}

func (s *MultiSink) Name() string { return "multi" }

// Names lists the wrapped backend names in order.
func (s *MultiSink) Names() []string {
	names := make([]string, len(s.backends))
	for i, b := range s.backends {
		names[i] = b.Name()
	}
	return names
}

func (s *MultiSink) Store(products []*types.Product) error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Store(products); err != nil {
			s.logger.Error("sink store failed", "sink", backend.Name(), "error", err)
			if firstErr == nil {
				firstErr = &types.StorageError{Backend: backend.Name(), Err: err}
			}
		}
	}
	return firstErr
}

func (s *MultiSink) Close() error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Close(); err != nil {
			s.logger.Error("sink close failed", "sink", backend.Name(), "error", err)
			if firstErr == nil {
				firstErr = &types.StorageError{Backend: backend.Name(), Err: err}
			}
		}
	}
	return firstErr
}
