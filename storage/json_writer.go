package storage

import (
	"encoding/json"
	"io"

	"studio-insights/models"
)

// JSONWriter dumps the crawl result as indented JSON. Values are not
// formatted.
type JSONWriter struct{}

func (j *JSONWriter) Extension() string { return "json" }

func (j *JSONWriter) Export(w io.Writer, data *models.ExtractedData) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(data)
}
