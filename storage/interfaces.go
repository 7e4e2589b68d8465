package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"studio-insights/models"
	"studio-insights/utils"
)

// Exporter serializes a crawl result in one output format.
type Exporter interface {
	Export(w io.Writer, data *models.ExtractedData) error
	Extension() string
}

// DatasetSource supplies the raw datasets a crawl reads.
type DatasetSource interface {
	Load(ctx context.Context) (models.DataSources, error)
	Close() error
}

// DatasetWriter stores raw datasets, replacing what was there.
type DatasetWriter interface {
	WriteDataset(ctx context.Context, ds models.Dataset, records []models.Record) error
	Close() error
}

// Formats lists the accepted export format names.
var Formats = []string{"csv", "excel", "xlsx", "text", "json", "pdf"}

// NewExporter returns the exporter for format. chromeBin is only used by the
// pdf format; empty means auto-detect.
func NewExporter(format, chromeBin string, logger *utils.Logger) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return &CSVWriter{}, nil
	case "excel":
		return &ExcelCSVWriter{}, nil
	case "xlsx":
		return &XLSXWriter{}, nil
	case "text", "txt":
		return &TextWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	case "pdf":
		return NewPDFWriter(chromeBin, logger), nil
	}
	return nil, fmt.Errorf("export: unknown format %q (want one of %s)", format, strings.Join(Formats, ", "))
}

// FileName returns the default export file name for data:
// studio-insights-<date>-<first 8 chars of crawl id>.<ext>.
func FileName(data *models.ExtractedData, ext string) string {
	ts := data.Summary.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	id := strings.ReplaceAll(data.Summary.CrawlID, "-", "")
	if id == "" {
		id = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("studio-insights-%s-%s.%s", ts.Format("2006-01-02"), id, ext)
}

// WriteFile exports data into dir under FileName and returns the path.
// The directory is created if needed.
func WriteFile(dir string, exp Exporter, data *models.ExtractedData) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("export: create output dir: %w", err)
	}

	path := filepath.Join(dir, FileName(data, exp.Extension()))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("export: create file %q: %w", path, err)
	}

	if err := exp.Export(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("export %s: %w", exp.Extension(), err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("export: close %q: %w", path, err)
	}
	return path, nil
}
