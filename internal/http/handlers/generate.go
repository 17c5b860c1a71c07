package handlers

import (
	"encoding/json"
	"net/http"

	"assetgen/internal/domain"
	"assetgen/internal/pipeline"
)

type generateRequest struct {
	Name         string                    `json:"name"`
	BusinessType string                    `json:"business_type"`
	Requirements []domain.ImageRequirement `json:"requirements"`
	Options      optionsDTO                `json:"options"`
}

type generateResponse struct {
	GeneratedImages  int      `json:"generated_images"`
	ImageVariants    int      `json:"image_variants"`
	TotalCost        float64  `json:"total_cost"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
	OutputPath       string   `json:"output_path"`
	Warnings         []string `json:"warnings,omitempty"`
}

// Generate runs a single project synchronously from an inline requirement
// list.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Requirements) == 0 {
		a.error(w, http.StatusBadRequest, "requirements is required")
		return
	}
	name := req.Name
	if name == "" {
		name = "project"
	}

	doc := &pipeline.RequirementDoc{
		BusinessType: req.BusinessType,
		Requirements: req.Requirements,
	}
	report, err := a.Runner.Run(r.Context(), "", name, doc, req.Options.runOptions(""))
	if err != nil {
		a.Logger.Error().Err(err).Str("project", name).Msg("http: single project run failed")
		a.error(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	a.json(w, http.StatusOK, generateResponse{
		GeneratedImages:  report.GeneratedImages,
		ImageVariants:    report.ImageVariants,
		TotalCost:        report.Cost,
		ProcessingTimeMs: report.ProcessingTimeMs,
		OutputPath:       report.OutputPath,
		Warnings:         report.Warnings,
	})
}
