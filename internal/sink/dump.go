package sink

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shelfhound/shelfhound/internal/config"
	"github.com/shelfhound/shelfhound/internal/types"
)

// DumpSink emits the relational table as a portable SQL script for
// environments without direct database access. Replaying the script on
// an empty database recreates the products table and its rows, and
// replaying it twice is harmless because rows are keyed by identity.
// Append mode adds a fresh transaction block after any existing ones.
type DumpSink struct {
	path   string
	file   *os.File
	w      *bufio.Writer
	count  int
	logger *slog.Logger
}

// NewDumpSink opens the script at path and writes the transaction
// preamble and table definition.
func NewDumpSink(path, mode string, logger *slog.Logger) (*DumpSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if mode == config.ModeAppend {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open dump file: %w", err)
	}

	s := &DumpSink{
		path:   path,
		file:   f,
		w:      bufio.NewWriter(f),
		logger: logger.With("component", "dump_sink"),
	}

	fmt.Fprintln(s.w, "BEGIN TRANSACTION;")
	fmt.Fprintf(s.w, "%s;\n", strings.Join(strings.Fields(productsDDL), " "))
	return s, nil
}

func (s *DumpSink) Name() string { return "sqldump" }

func (s *DumpSink) Store(products []*types.Product) error {
	for _, p := range products {
		args := recordArgs(p)
		quoted := make([]string, len(args))
		for i, a := range args {
			quoted[i] = sqlQuote(fmt.Sprint(a))
		}
		fmt.Fprintf(s.w, "INSERT OR REPLACE INTO products (identity,title,price,unit_price,description,brand,sku,category,subcategory,url,image_urls) VALUES(%s);\n",
			strings.Join(quoted, ","))
		s.count++
	}
	return nil
}

func (s *DumpSink) Close() error {
	fmt.Fprintln(s.w, "COMMIT;")
	if err := s.w.Flush(); err != nil {
		s.file.Close()
		return fmt.Errorf("flush dump: %w", err)
	}
	s.logger.Info("SQL dump written", "path", s.path, "products", s.count)
	return s.file.Close()
}

// sqlQuote wraps a value in single quotes, doubling embedded quotes.
func sqlQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
