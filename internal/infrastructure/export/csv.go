package export

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/alekseyt9/pubcrawler/internal/domain"
	"github.com/alekseyt9/pubcrawler/internal/ports"
)

var csvHeader = []string{"title", "year", "authors", "publication_link", "author_links", "abstract", "page_number"}

// CSVExporter writes a run's records to a local CSV snapshot, keeping a
// timestamped backup of any previous snapshot.
type CSVExporter struct {
	path   string
	logger *slog.Logger
}

var _ ports.Exporter = (*CSVExporter)(nil)

// NewCSVExporter wires the snapshot path.
func NewCSVExporter(path string, log *slog.Logger) *CSVExporter {
	return &CSVExporter{path: path, logger: log}
}

// Export replaces the snapshot with the given records.
func (e *CSVExporter) Export(records []domain.Publication) error {
	if e.path == "" {
		return nil
	}
	if len(records) == 0 {
		e.debug("no records to export")
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(e.path), 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	e.backupExisting()

	f, err := os.Create(e.path)
	if err != nil {
		return fmt.Errorf("create %s: %w", e.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, rec := range records {
		year := ""
		if rec.Year != 0 {
			year = strconv.Itoa(rec.Year)
		}
		row := []string{
			rec.Title,
			year,
			rec.Authors,
			rec.PublicationLink,
			rec.AuthorLinks,
			rec.Abstract,
			strconv.Itoa(rec.PageNumber),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	e.info("exported publications to csv", "path", e.path, "count", len(records))
	return nil
}

func (e *CSVExporter) backupExisting() {
	if _, err := os.Stat(e.path); err != nil {
		return
	}

	backup := fmt.Sprintf("%s.backup_%d", e.path, time.Now().Unix())
	if err := os.Rename(e.path, backup); err != nil {
		e.warn("cannot back up previous snapshot", "path", e.path, "error", err)
		return
	}
	e.info("backed up previous snapshot", "backup", backup)
}

func (e *CSVExporter) debug(msg string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}

func (e *CSVExporter) info(msg string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Info(msg, args...)
	}
}

func (e *CSVExporter) warn(msg string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Warn(msg, args...)
	}
}
