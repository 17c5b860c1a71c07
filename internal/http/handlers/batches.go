package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"assetgen/internal/batch"
	"assetgen/internal/domain"
	"assetgen/internal/generation"
	ziparc "assetgen/pkg/zip"
)

type projectDTO struct {
	ProjectID   string `json:"project_id"`
	ProjectPath string `json:"project_path"`
	Name        string `json:"name"`
}

type optionsDTO struct {
	Quantity            int                      `json:"quantity"`
	Style               string                   `json:"style"`
	Mood                string                   `json:"mood"`
	UseOpenAI           *bool                    `json:"use_openai"`
	UseReplicate        *bool                    `json:"use_replicate"`
	GenerateBeforeAfter bool                     `json:"generate_before_after"`
	OutputFormats       []string                 `json:"output_formats"`
	OutputSizes         []domain.SizeSpec        `json:"output_sizes"`
	Quality             int                      `json:"quality"`
	OptimizationLevel   string                   `json:"optimization_level"`
	Watermark           *domain.WatermarkOptions `json:"watermark"`
	PreserveOriginal    bool                     `json:"preserve_original"`
	GenerateThumbnails  bool                     `json:"generate_thumbnails"`
}

type settingsDTO struct {
	Concurrency     int    `json:"concurrency"`
	ContinueOnError *bool  `json:"continue_on_error"`
	OutputDirectory string `json:"output_directory"`
}

type submitBatchRequest struct {
	Projects []projectDTO `json:"projects"`
	Options  optionsDTO   `json:"options"`
	Settings settingsDTO  `json:"settings"`
}

// runOptions maps the wire options onto the pipeline configuration.
func (o optionsDTO) runOptions(outputDirectory string) batch.RunOptions {
	var disabled []string
	if o.UseOpenAI != nil && !*o.UseOpenAI {
		disabled = append(disabled, "openai")
	}
	if o.UseReplicate != nil && !*o.UseReplicate {
		disabled = append(disabled, "replicate")
	}
	formats := make([]domain.Format, 0, len(o.OutputFormats))
	for _, f := range o.OutputFormats {
		formats = append(formats, domain.Format(f))
	}
	return batch.RunOptions{
		Generation: generation.Options{
			Style:               o.Style,
			Mood:                o.Mood,
			Quantity:            o.Quantity,
			GenerateBeforeAfter: o.GenerateBeforeAfter,
			DisabledProviders:   disabled,
		},
		Processing: domain.ProcessingOptions{
			OutputDir:          outputDirectory,
			Formats:            formats,
			Sizes:              o.OutputSizes,
			Quality:            o.Quality,
			Watermark:          o.Watermark,
			OptimizationLevel:  domain.OptimizationLevel(o.OptimizationLevel),
			PreserveOriginal:   o.PreserveOriginal,
			GenerateThumbnails: o.GenerateThumbnails,
		},
	}
}

// SubmitBatch queues a new batch and returns its receipt.
func (a *App) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	var req submitBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Projects) == 0 {
		a.error(w, http.StatusBadRequest, "projects is required")
		return
	}

	projects := make([]domain.ProjectSpec, 0, len(req.Projects))
	for _, p := range req.Projects {
		id := p.ProjectID
		if id == "" {
			id = p.ProjectPath
		}
		if id == "" {
			a.error(w, http.StatusBadRequest, "each project needs project_id or project_path")
			return
		}
		projects = append(projects, domain.ProjectSpec{ProjectID: id, Name: p.Name})
	}

	receipt, err := a.Batches.Submit(r.Context(), batch.Submission{
		Projects:        projects,
		Options:         req.Options.runOptions(req.Settings.OutputDirectory),
		Concurrency:     req.Settings.Concurrency,
		ContinueOnError: req.Settings.ContinueOnError,
	})
	if err != nil {
		a.error(w, http.StatusBadRequest, err.Error())
		return
	}
	a.json(w, http.StatusAccepted, receipt)
}

// GetBatch returns the full job record for one batch.
func (a *App) GetBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := a.Batches.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			a.error(w, http.StatusNotFound, "batch not found")
			return
		}
		a.Logger.Error().Err(err).Str("batch", id).Msg("http: load batch")
		a.error(w, http.StatusInternalServerError, "failed to load batch")
		return
	}
	a.json(w, http.StatusOK, job)
}

type batchSummary struct {
	ID          string             `json:"id"`
	Status      domain.BatchStatus `json:"status"`
	Progress    domain.Progress    `json:"progress"`
	StartedAt   string             `json:"started_at"`
	CompletedAt string             `json:"completed_at,omitempty"`
}

// ListBatches returns a summary of every known batch.
func (a *App) ListBatches(w http.ResponseWriter, r *http.Request) {
	jobs, err := a.Batches.List(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("http: list batches")
		a.error(w, http.StatusInternalServerError, "failed to list batches")
		return
	}
	summaries := make([]batchSummary, 0, len(jobs))
	for _, job := range jobs {
		s := batchSummary{
			ID:        job.ID,
			Status:    job.Status,
			Progress:  job.Progress,
			StartedAt: job.StartedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		}
		if job.CompletedAt != nil {
			s.CompletedAt = job.CompletedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
		}
		summaries = append(summaries, s)
	}
	a.json(w, http.StatusOK, map[string]any{"batches": summaries})
}

// CancelBatch requests cooperative cancellation of a batch.
func (a *App) CancelBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := a.Batches.Cancel(r.Context(), id)
	switch {
	case err == nil:
		a.json(w, http.StatusOK, map[string]string{"batch_id": id, "status": string(domain.BatchStatusFailed)})
	case errors.Is(err, domain.ErrJobNotFound):
		a.error(w, http.StatusNotFound, "batch not found")
	case errors.Is(err, domain.ErrJobCompleted):
		a.error(w, http.StatusConflict, "completed batches cannot be cancelled")
	default:
		a.Logger.Error().Err(err).Str("batch", id).Msg("http: cancel batch")
		a.error(w, http.StatusInternalServerError, "failed to cancel batch")
	}
}

// DownloadBatch streams a zip archive of a completed batch's output tree.
func (a *App) DownloadBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := a.Batches.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			a.error(w, http.StatusNotFound, "batch not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "failed to load batch")
		return
	}
	if job.Status != domain.BatchStatusCompleted {
		a.error(w, http.StatusConflict, "batch is not completed")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=batch-%s.zip", id))
	archive := ziparc.NewArchiver(w)

	for _, res := range job.Results {
		if res.OutputPath == "" {
			continue
		}
		err := a.Files.Walk(r.Context(), res.OutputPath, func(key string, _ int64) error {
			data, err := a.Files.Read(r.Context(), key)
			if err != nil {
				return err
			}
			return archive.Add(key, data)
		})
		if err != nil {
			// Headers are gone; all we can do is log and stop.
			a.Logger.Error().Err(err).Str("batch", id).Msg("http: archive batch output")
			return
		}
	}
	if err := archive.Close(); err != nil {
		a.Logger.Error().Err(err).Str("batch", id).Msg("http: finalize batch archive")
	}
}
