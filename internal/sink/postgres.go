package sink

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shelfhound/shelfhound/internal/config"
	"github.com/shelfhound/shelfhound/internal/types"
)

// PostgresSink writes products to a server-backed relational table
// through a pgx pool. Rows are upserted on identity, so reruns update
// existing products instead of duplicating them.
type PostgresSink struct {
	pool   *pgxpool.Pool
	table  string
	count  int
	logger *slog.Logger
}

// NewPostgresSink connects to the database named by dsn and prepares
// the target table. Replace mode clears rows from earlier runs.
func NewPostgresSink(ctx context.Context, dsn, table, mode string, logger *slog.Logger) (*PostgresSink, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	s := &PostgresSink{
		pool:   pool,
		table:  table,
		logger: logger.With("component", "postgres_sink"),
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		identity TEXT PRIMARY KEY,
		title TEXT,
		price TEXT,
		unit_price TEXT,
		description TEXT,
		brand TEXT,
		sku TEXT,
		category TEXT,
		subcategory TEXT,
		url TEXT,
		image_urls TEXT
	)`, table)
	if _, err := pool.Exec(connectCtx, ddl); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create %s table: %w", table, err)
	}
	if mode == config.ModeReplace {
		if _, err := pool.Exec(connectCtx, "DELETE FROM "+table); err != nil {
			pool.Close()
			return nil, fmt.Errorf("clear %s table: %w", table, err)
		}
	}

	return s, nil
}

func (s *PostgresSink) Name() string { return "postgres" }

func (s *PostgresSink) Store(products []*types.Product) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	query := fmt.Sprintf(`INSERT INTO %s
		(identity,title,price,unit_price,description,brand,sku,category,subcategory,url,image_urls)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (identity) DO UPDATE SET
			title = EXCLUDED.title,
			price = EXCLUDED.price,
			unit_price = EXCLUDED.unit_price,
			description = EXCLUDED.description,
			brand = EXCLUDED.brand,
			sku = EXCLUDED.sku,
			category = EXCLUDED.category,
			subcategory = EXCLUDED.subcategory,
			url = EXCLUDED.url,
			image_urls = EXCLUDED.image_urls`, s.table)

	for _, p := range products {
		if _, err := s.pool.Exec(ctx, query, recordArgs(p)...); err != nil {
			return fmt.Errorf("postgres upsert: %w", err)
		}
		s.count++
	}
	return nil
}

func (s *PostgresSink) Close() error {
	s.logger.Info("postgres sink closing", "table", s.table, "products", s.count)
	s.pool.Close()
	return nil
}
