// Package inventory writes the normalized library catalog to disk in a
// machine-consumable format (Parquet or JSONL), one record per managed file.
package inventory

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/shelver-tools/shelver/internal/duplicates"
	"github.com/shelver-tools/shelver/internal/models"
)

// Record is one inventory row. Fields are flattened for columnar storage.
type Record struct {
	Path          string `parquet:"path" json:"path"`
	CanonicalName string `parquet:"canonical_name" json:"canonical_name"`
	Authors       string `parquet:"authors" json:"authors"`
	Title         string `parquet:"title" json:"title"`
	Year          int32  `parquet:"year" json:"year"`
	Series        string `parquet:"series" json:"series"`
	Edition       string `parquet:"edition" json:"edition"`
	Volume        string `parquet:"volume" json:"volume"`
	Extension     string `parquet:"extension" json:"extension"`
	SizeBytes     int64  `parquet:"size_bytes" json:"size_bytes"`
	ModifiedUnix  int64  `parquet:"modified_unix" json:"modified_unix"`
	Digest        string `parquet:"digest" json:"digest"`
}

// Build converts a batch of normalized files into inventory records. With a
// non-nil digester each record carries a content digest; digest failures are
// logged and leave the field empty.
func Build(files []*models.NormalizedFile, digester duplicates.Digester) []Record {
	records := make([]Record, 0, len(files))
	for _, f := range files {
		if f.IsFailedDownload || f.IsTooSmall {
			continue
		}

		r := Record{
			Path:          f.OriginalPath,
			CanonicalName: f.NewName,
			Extension:     f.Extension,
			SizeBytes:     f.Size,
			ModifiedUnix:  f.ModifiedTime.Unix(),
		}
		if f.Meta != nil {
			r.Authors = f.Meta.Authors
			r.Title = f.Meta.Title
			r.Year = int32(f.Meta.Year)
			r.Series = f.Meta.Series
			r.Edition = f.Meta.Edition
			r.Volume = f.Meta.Volume
		}
		if h := f.Cloud.ProviderHash(); h != "" {
			r.Digest = h
		} else if digester != nil {
			sum, err := digester.Digest(f.OriginalPath)
			if err != nil {
				slog.Warn("failed to digest file for inventory", "path", f.OriginalPath, "error", err)
			} else {
				r.Digest = "md5:" + sum
			}
		}
		records = append(records, r)
	}
	return records
}

// Write stores records at path, choosing the format from the extension
// (.parquet, .jsonl, or .json lines).
func Write(path string, records []Record) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return writeParquet(path, records)
	case ".jsonl", ".json":
		return writeJSONL(path, records)
	}
	return fmt.Errorf("unsupported inventory format: %s (supported: .parquet, .jsonl)", path)
}

func writeParquet(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create inventory file: %w", err)
	}

	writer := parquet.NewGenericWriter[Record](f)
	if _, err := writer.Write(records); err != nil {
		f.Close()
		return fmt.Errorf("failed to write parquet records: %w", err)
	}
	if err := writer.Close(); err != nil {
		f.Close()
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close inventory file: %w", err)
	}

	slog.Info("wrote inventory", "path", path, "records", len(records), "format", "parquet")
	return nil
}

func writeJSONL(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create inventory file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode inventory record: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush inventory file: %w", err)
	}

	slog.Info("wrote inventory", "path", path, "records", len(records), "format", "jsonl")
	return nil
}

// Read loads an inventory file back, format detected from the extension.
// The reverse of Write, mainly for tooling and tests.
func Read(path string) ([]Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return readParquet(path)
	case ".jsonl", ".json":
		return readJSONL(path)
	}
	return nil, fmt.Errorf("unsupported inventory format: %s", path)
}

func readParquet(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open inventory file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat inventory file: %w", err)
	}
	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[Record](pf)
	defer reader.Close()

	records := make([]Record, 0, reader.NumRows())
	buf := make([]Record, 128)
	for {
		n, err := reader.Read(buf)
		records = append(records, buf[:n]...)
		if err != nil {
			break
		}
	}
	return records, nil
}

func readJSONL(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open inventory file: %w", err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var r Record
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("failed to parse inventory line %d: %w", line, err)
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read inventory file: %w", err)
	}
	return records, nil
}
