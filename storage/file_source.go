package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"studio-insights/models"
	"studio-insights/utils"
)

// FileSource loads datasets from <dir>/<dataset>.json (an array of objects)
// or, failing that, <dir>/<dataset>.csv with a header row. Missing files
// leave the dataset unset.
type FileSource struct {
	dir    string
	logger *utils.Logger
}

func NewFileSource(dir string, logger *utils.Logger) *FileSource {
	return &FileSource{dir: dir, logger: logger}
}

func (s *FileSource) Load(ctx context.Context) (models.DataSources, error) {
	if _, err := os.Stat(s.dir); err != nil {
		return nil, fmt.Errorf("files: data dir %q: %w", s.dir, err)
	}

	sources := make(models.DataSources)
	for _, ds := range models.AllDatasets() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		records, path, err := s.loadDataset(ds)
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Debug("[source] No file for dataset %s in %s", ds, s.dir)
			continue
		}
		if err != nil {
			return nil, err
		}
		sources[ds] = records
		s.logger.Info("[source] Loaded %d %s records from %s", len(records), ds, path)
	}
	return sources, nil
}

func (s *FileSource) Close() error { return nil }

func (s *FileSource) loadDataset(ds models.Dataset) ([]models.Record, string, error) {
	jsonPath := filepath.Join(s.dir, string(ds)+".json")
	if b, err := os.ReadFile(jsonPath); err == nil {
		records, err := decodeJSONRecords(b)
		if err != nil {
			return nil, "", fmt.Errorf("files: %s: %w", jsonPath, err)
		}
		return records, jsonPath, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, "", fmt.Errorf("files: read %q: %w", jsonPath, err)
	}

	csvPath := filepath.Join(s.dir, string(ds)+".csv")
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	records, err := decodeCSVRecords(f)
	if err != nil {
		return nil, "", fmt.Errorf("files: %s: %w", csvPath, err)
	}
	return records, csvPath, nil
}

// decodeJSONRecords accepts either a bare array of objects or an object with
// a "data" array. Numbers decode as json.Number.
func decodeJSONRecords(b []byte) ([]models.Record, error) {
	b = bytes.TrimSpace(b)
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	if len(b) > 0 && b[0] == '{' {
		var wrapped struct {
			Data []models.Record `json:"data"`
		}
		if err := dec.Decode(&wrapped); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		return nonNil(wrapped.Data), nil
	}

	var records []models.Record
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return nonNil(records), nil
}

func decodeCSVRecords(r io.Reader) ([]models.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return []models.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	records := []models.Record{}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(records)+1, err)
		}
		rec := make(models.Record, len(header))
		for i, h := range header {
			if i < len(row) && row[i] != "" {
				rec[h] = row[i]
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func nonNil(records []models.Record) []models.Record {
	if records == nil {
		return []models.Record{}
	}
	return records
}
