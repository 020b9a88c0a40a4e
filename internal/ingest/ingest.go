// Package ingest loads record collections from CSV and JSON files or URLs.
package ingest

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go-retail-pivot/internal/model"
	"go-retail-pivot/pkg/utils"

	"github.com/sirupsen/logrus"
)

// Formats accepted by LoadAs.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// Load reads records from a local path or an http(s) URL. The format comes
// from the extension; anything that is not .json is read as CSV.
func Load(ctx context.Context, pathOrURL string, log logrus.FieldLogger) ([]model.Record, error) {
	return LoadAs(ctx, pathOrURL, "", log)
}

// LoadAs is Load with an explicit format. An empty format falls back to the
// extension.
func LoadAs(ctx context.Context, pathOrURL, format string, log logrus.FieldLogger) ([]model.Record, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if format == "" {
		format = FormatCSV
		if strings.EqualFold(filepath.Ext(pathOrURL), ".json") {
			format = FormatJSON
		}
	}
	log.WithFields(logrus.Fields{"source": pathOrURL, "format": format}).Info("➡️ Starting ingestion")

	reader, err := open(ctx, pathOrURL)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var records []model.Record
	switch format {
	case FormatJSON:
		records, err = ReadJSON(reader)
	case FormatCSV:
		records, err = ReadCSV(ctx, reader)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", pathOrURL, err)
	}

	log.WithFields(logrus.Fields{"source": pathOrURL, "records": len(records)}).Info("📄 Ingestion done")
	return records, nil
}

func open(ctx context.Context, pathOrURL string) (io.ReadCloser, error) {
	if strings.HasPrefix(pathOrURL, "http://") || strings.HasPrefix(pathOrURL, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pathOrURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to GET %s: %w", pathOrURL, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("failed to GET %s: status %d", pathOrURL, resp.StatusCode)
		}
		return resp.Body, nil
	}
	file, err := os.Open(pathOrURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// ReadCSV reads a header row and one record per line. Cells are typed with
// utils.ParseValue; empty cells are left out of the record.
func ReadCSV(ctx context.Context, r io.Reader) ([]model.Record, error) {
	csvReader := csv.NewReader(r)
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1

	headers, err := csvReader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i, h := range headers {
		headers[i] = strings.ReplaceAll(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), `"`, "")
	}

	var records []model.Record
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := csvReader.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("CSV read error on line %d: %w", line, err)
		}
		rec := make(model.Record, len(headers))
		for i, h := range headers {
			if i >= len(row) || h == "" {
				continue
			}
			if v := utils.ParseValue(row[i]); v != nil {
				rec[h] = v
			}
		}
		records = append(records, rec)
	}
}

// ReadJSON accepts an array of objects, or an object wrapping one under
// "records" or "data".
func ReadJSON(r io.Reader) ([]model.Record, error) {
	var raw interface{}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}

	if obj, ok := raw.(map[string]interface{}); ok {
		switch {
		case obj["records"] != nil:
			raw = obj["records"]
		case obj["data"] != nil:
			raw = obj["data"]
		default:
			return []model.Record{obj}, nil
		}
	}

	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("expected an array of objects, got %T", raw)
	}
	records := make([]model.Record, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("item %d is %T, not an object", i, item)
		}
		records = append(records, model.Record(m))
	}
	return records, nil
}
