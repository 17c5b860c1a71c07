// Package handlers implements the HTTP surface: batch submit/query/cancel,
// batch download, and single-project generation.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"assetgen/internal/batch"
	"assetgen/internal/domain"
	"assetgen/internal/infra"
	"assetgen/internal/pipeline"
)

// BatchService is the slice of the batch manager the handlers use.
type BatchService interface {
	Submit(ctx context.Context, sub batch.Submission) (*batch.Receipt, error)
	Get(ctx context.Context, id string) (*domain.BatchJob, error)
	List(ctx context.Context) ([]*domain.BatchJob, error)
	Cancel(ctx context.Context, id string) error
}

// ProjectRunner runs one requirement set synchronously.
type ProjectRunner interface {
	Run(ctx context.Context, batchID, projectName string, doc *pipeline.RequirementDoc, opts batch.RunOptions) (*batch.RunReport, error)
}

// ArchiveSource reads stored variant files for the download endpoint.
type ArchiveSource interface {
	Walk(ctx context.Context, prefix string, fn func(key string, size int64) error) error
	Read(ctx context.Context, key string) ([]byte, error)
}

// App bundles the dependencies of every handler.
type App struct {
	Batches BatchService
	Runner  ProjectRunner
	Files   ArchiveSource
	Logger  infra.Logger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, map[string]string{"error": msg})
}

// Health reports liveness.
func (a *App) Health(w http.ResponseWriter, _ *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}
