package sink

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/shelfhound/shelfhound/internal/config"
	"github.com/shelfhound/shelfhound/internal/types"
)

const productsDDL = `CREATE TABLE IF NOT EXISTS products (
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
)`

const productsUpsert = `INSERT OR REPLACE INTO products
(identity,title,price,unit_price,description,brand,sku,category,subcategory,url,image_urls)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`

// recordArgs flattens a product into statement arguments: identity
// first, then the fixed columns in schema order.
func recordArgs(p *types.Product) []any {
	args := make([]any, 0, 1+len(types.Columns()))
	args = append(args, p.Identity)
	for _, v := range p.Row() {
		args = append(args, v)
	}
	return args
}

// SQLiteSink writes products into an embedded SQLite database. The
// table is created if absent; rows are keyed by identity, so storing
// the same product twice updates in place instead of duplicating.
type SQLiteSink struct {
	path   string
	db     *sql.DB
	count  int
	logger *slog.Logger
}

// NewSQLiteSink opens the database at path and prepares the products
// table. Replace mode clears rows left over from earlier runs.
func NewSQLiteSink(path, mode string, logger *slog.Logger) (*SQLiteSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(productsDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create products table: %w", err)
	}
	if mode == config.ModeReplace {
		if _, err := db.Exec(`DELETE FROM products`); err != nil {
			db.Close()
			return nil, fmt.Errorf("clear products table: %w", err)
		}
	}

	return &SQLiteSink{
		path:   path,
		db:     db,
		logger: logger.With("component", "sqlite_sink"),
	}, nil
}

func (s *SQLiteSink) Name() string { return "sqlite" }

func (s *SQLiteSink) Store(products []*types.Product) error {
	for _, p := range products {
		if _, err := s.db.Exec(productsUpsert, recordArgs(p)...); err != nil {
			return fmt.Errorf("sqlite upsert: %w", err)
		}
		s.count++
	}
	return nil
}

func (s *SQLiteSink) Close() error {
	s.logger.Info("SQLite written", "path", s.path, "products", s.count)
	return s.db.Close()
}
