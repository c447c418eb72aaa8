package repository

import (
	"context"
	"log/slog"

	"github.com/UnknownOlympus/poimap/internal/models"
)

// Repository stores collected POIs as a JSON array in a single file.
type Repository struct {
	path string
	log  *slog.Logger
}

type Interface interface {
	SaveRecords(ctx context.Context, records []models.POIRecord) error
	LoadRecords(ctx context.Context) ([]models.POIRecord, error)
}

// NewRepository creates a new instance of Repository backed by the file at path.
// It returns a pointer to the newly created Repository.
func NewRepository(path string, log *slog.Logger) *Repository {
	return &Repository{path: path, log: log}
}

// Path returns the file the repository reads and writes.
func (r *Repository) Path() string {
	return r.path
}
