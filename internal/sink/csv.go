package sink

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shelfhound/shelfhound/internal/config"
	"github.com/shelfhound/shelfhound/internal/types"
)

// CSVSink writes products as rows with the fixed column schema. In
// replace mode the file is truncated and a header written; in append
// mode rows are added to the existing file and the header is only
// written when the file starts empty.
type CSVSink struct {
	path   string
	file   *os.File
	writer *csv.Writer
	count  int
	logger *slog.Logger
}

// NewCSVSink opens (or creates) the output file at path.
func NewCSVSink(path, mode string, logger *slog.Logger) (*CSVSink, error) {
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
		return nil, fmt.Errorf("open output file: %w", err)
	}

	s := &CSVSink{
		path:   path,
		file:   f,
		writer: csv.NewWriter(f),
		logger: logger.With("component", "csv_sink"),
	}

	needHeader := true
	if mode == config.ModeAppend {
		if info, err := f.Stat(); err == nil && info.Size() > 0 {
			needHeader = false
		}
	}
	if needHeader {
		if err := s.writer.Write(types.Columns()); err != nil {
			f.Close()
			return nil, fmt.Errorf("write CSV header: %w", err)
		}
		s.writer.Flush()
	}

	return s, nil
}

func (s *CSVSink) Name() string { return "csv" }

func (s *CSVSink) Store(products []*types.Product) error {
	for _, p := range products {
		if err := s.writer.Write(p.Row()); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
		s.count++
	}
	s.writer.Flush()
	return s.writer.Error()
}

func (s *CSVSink) Close() error {
	s.logger.Info("CSV written", "path", s.path, "products", s.count)
	if s.writer != nil {
		s.writer.Flush()
	}
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}
