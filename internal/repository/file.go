package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/UnknownOlympus/poimap/internal/models"
)

const (
	indent   = "    "
	dirPerm  = 0o755
	filePerm = 0o644
)

// ErrNotCollected is returned by LoadRecords when the output file does not exist yet.
var ErrNotCollected = errors.New("no collected data found, run collect first")

// SaveRecords writes records as an indented JSON array, overwriting the file.
// Non-ASCII text and HTML characters are written as-is.
// The file is truncated and written in place, so a crash mid-write can leave it incomplete.
func (r *Repository) SaveRecords(ctx context.Context, records []models.POIRecord) error {
	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", indent)

	if records == nil {
		records = []models.POIRecord{}
	}
	if err = encoder.Encode(records); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to encode records: %w", err)
	}

	if err = file.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}

	r.log.DebugContext(ctx, "Records written", "path", r.path, "count", len(records))

	return nil
}

// LoadRecords reads the JSON array written by SaveRecords.
func (r *Repository) LoadRecords(ctx context.Context) ([]models.POIRecord, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotCollected, r.path)
		}
		return nil, fmt.Errorf("failed to read records file: %w", err)
	}

	var records []models.POIRecord
	if err = json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode records file: %w", err)
	}

	r.log.DebugContext(ctx, "Records loaded", "path", r.path, "count", len(records))

	return records, nil
}
