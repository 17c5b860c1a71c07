package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"assetgen/internal/batch"
	"assetgen/internal/domain"
	"assetgen/internal/generation"
	"assetgen/internal/infra"
	"assetgen/internal/variants"
)

// ServiceOptions configures a Service.
type ServiceOptions struct {
	Source       RequirementSource
	Orchestrator *generation.Orchestrator
	Processor    *variants.Processor
	Logger       infra.Logger
}

// Service is the production batch.Runner: it loads a project's requirement
// set, drives the generation orchestrator, and fans every produced image
// through the variant processor.
type Service struct {
	source       RequirementSource
	orchestrator *generation.Orchestrator
	processor    *variants.Processor
	logger       infra.Logger
}

// NewService validates the wiring and returns a service.
func NewService(opts ServiceOptions) (*Service, error) {
	if opts.Source == nil {
		return nil, errors.New("pipeline: service requires a requirement source")
	}
	if opts.Orchestrator == nil {
		return nil, errors.New("pipeline: service requires an orchestrator")
	}
	if opts.Processor == nil {
		return nil, errors.New("pipeline: service requires a variant processor")
	}
	return &Service{
		source:       opts.Source,
		orchestrator: opts.Orchestrator,
		processor:    opts.Processor,
		logger:       opts.Logger,
	}, nil
}

// EstimateProject implements batch.Runner.
func (s *Service) EstimateProject(ctx context.Context, project domain.ProjectSpec, opts batch.RunOptions) (float64, int, error) {
	doc, err := s.source.Load(ctx, project)
	if err != nil {
		return 0, 0, err
	}
	return s.orchestrator.EstimateProjectCost(doc.Requirements, opts.Generation), len(doc.Requirements), nil
}

// RunProject implements batch.Runner.
func (s *Service) RunProject(ctx context.Context, batchID string, project domain.ProjectSpec, opts batch.RunOptions) (*batch.RunReport, error) {
	doc, err := s.source.Load(ctx, project)
	if err != nil {
		return nil, err
	}
	name := project.Name
	if name == "" {
		name = project.ProjectID
	}
	return s.Run(ctx, batchID, name, doc, opts)
}

// Run executes a loaded requirement set. Exported separately so the single
// project surfaces (HTTP endpoint, CLI) can supply requirements directly.
func (s *Service) Run(ctx context.Context, batchID, projectName string, doc *RequirementDoc, opts batch.RunOptions) (*batch.RunReport, error) {
	started := time.Now()

	outcome, err := s.orchestrator.GenerateProject(ctx, doc.BusinessType, doc.Requirements, opts.Generation)
	if err != nil {
		return nil, fmt.Errorf("pipeline: generate project %q: %w", projectName, err)
	}
	if len(outcome.Images) == 0 {
		return nil, fmt.Errorf("pipeline: project %q produced no images", projectName)
	}

	outputPath := outputKey(batchID, projectName, started)
	if base := opts.Processing.OutputDir; base != "" {
		outputPath = path.Join(base, outputPath)
	}
	procOpts := opts.Processing
	procOpts.OutputDir = outputPath

	variantCount := 0
	produced := 0
	warnings := outcome.Warnings
	for _, img := range outcome.Images {
		processed, err := s.processor.Process(ctx, img, procOpts)
		if err != nil {
			// A download or decode failure drops the image, not the project.
			warnings = append(warnings, fmt.Sprintf("image %s dropped: %v", img.Filename, err))
			s.logger.Warn().Err(err).
				Str("project", projectName).
				Str("image", img.Filename).
				Msg("pipeline: image processing failed")
			continue
		}
		produced++
		variantCount += len(processed.Variants)
	}
	if produced == 0 {
		return nil, fmt.Errorf("pipeline: project %q produced no processable images", projectName)
	}

	return &batch.RunReport{
		GeneratedImages:  produced,
		ImageVariants:    variantCount,
		Cost:             outcome.Cost,
		ProcessingTimeMs: time.Since(started).Milliseconds(),
		OutputPath:       outputPath,
		Warnings:         warnings,
	}, nil
}

// outputKey lays out the output tree as batch / project / date. Single
// project runs omit the batch segment.
func outputKey(batchID, projectName string, at time.Time) string {
	segments := make([]string, 0, 3)
	if batchID != "" {
		segments = append(segments, batchID)
	}
	segments = append(segments, slugifyName(projectName), at.UTC().Format("2006-01-02"))
	return path.Join(segments...)
}

func slugifyName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "project"
	}
	var b strings.Builder
	pendingHyphen := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		default:
			pendingHyphen = true
		}
	}
	if b.Len() == 0 {
		return "project"
	}
	return b.String()
}
