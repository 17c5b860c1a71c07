// Command generate runs the full pipeline for a single project from the
// command line: load requirements, generate images, write variants.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"assetgen/internal/batch"
	"assetgen/internal/domain"
	"assetgen/internal/generation"
	"assetgen/internal/infra"
	"assetgen/internal/pipeline"
	"assetgen/internal/providers/openai"
	"assetgen/internal/providers/replicate"
	"assetgen/internal/selector"
	"assetgen/internal/storage"
	"assetgen/internal/variants"
)

func main() {
	var (
		projectFlag     string
		nameFlag        string
		quantityFlag    int
		styleFlag       string
		moodFlag        string
		formatsFlag     string
		qualityFlag     int
		beforeAfterFlag bool
		estimateFlag    bool
	)

	flag.StringVar(&projectFlag, "project", "", "project directory or requirements JSON file")
	flag.StringVar(&nameFlag, "name", "", "project name used for the output folder (defaults to the project path)")
	flag.IntVar(&quantityFlag, "quantity", 0, "override the per-requirement image quantity (0 keeps each requirement's own)")
	flag.StringVar(&styleFlag, "style", "", "global style hint (e.g. photorealistic)")
	flag.StringVar(&moodFlag, "mood", "", "global mood hint (e.g. vibrant)")
	flag.StringVar(&formatsFlag, "formats", "", "comma-separated output formats (webp,jpeg,png)")
	flag.IntVar(&qualityFlag, "quality", 0, "encoder quality 1-100 (0 uses the default)")
	flag.BoolVar(&beforeAfterFlag, "before-after", false, "also generate before/after transformation pairs")
	flag.BoolVar(&estimateFlag, "estimate", false, "print the cost estimate and exit without generating")
	flag.Parse()

	project := strings.TrimSpace(projectFlag)
	if project == "" {
		exitWithError(errors.New("-project is required"))
	}

	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		exitWithError(err)
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("cmd", "generate").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	service, err := buildService(ctx, cfg, logger)
	if err != nil {
		exitWithError(err)
	}

	spec := domain.ProjectSpec{ProjectID: project, Name: strings.TrimSpace(nameFlag)}
	opts := batch.RunOptions{
		Generation: generation.Options{
			Style:               styleFlag,
			Mood:                moodFlag,
			Quantity:            quantityFlag,
			GenerateBeforeAfter: beforeAfterFlag,
		},
		Processing: domain.ProcessingOptions{
			Formats: parseFormats(formatsFlag),
			Quality: qualityFlag,
		},
	}

	if estimateFlag {
		cost, requirements, err := service.EstimateProject(ctx, spec, opts)
		if err != nil {
			exitWithError(err)
		}
		printJSON(map[string]any{
			"requirements":   requirements,
			"estimated_cost": cost,
		})
		return
	}

	report, err := service.RunProject(ctx, "", spec, opts)
	if err != nil {
		exitWithError(err)
	}
	printJSON(report)
}

func buildService(ctx context.Context, cfg *infra.Config, logger infra.Logger) (*pipeline.Service, error) {
	openaiClient, err := openai.NewClient(openai.Options{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
		Logger:  &logger,
	})
	if err != nil {
		return nil, err
	}
	replicateClient, err := replicate.NewClient(replicate.Options{
		APIKey:  cfg.ReplicateAPIKey,
		BaseURL: cfg.ReplicateBaseURL,
		Model:   cfg.ReplicateModel,
		Logger:  &logger,
	})
	if err != nil {
		return nil, err
	}

	catalog := selector.DefaultCatalog()
	orchestrator, err := generation.NewOrchestrator(generation.OrchestratorOptions{
		Registry: generation.NewRegistry(
			generation.NewSingleImageAdapter(openaiClient, catalog.Prices, logger),
			generation.NewBatchAdapter(replicateClient, catalog.Prices, logger),
		),
		Transform: generation.NewTransformAdapter(replicateClient, catalog.Prices, logger),
		Catalog:   catalog,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	fileStore, err := storage.NewFileStore(cfg.OutputDir)
	if err != nil {
		return nil, err
	}
	var sink storage.AssetSink = fileStore
	if cfg.MirrorToObjects() {
		objects, err := storage.NewObjectStore(cfg)
		if err != nil {
			return nil, err
		}
		if err := objects.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		sink = storage.NewMirroredSink(fileStore, objects, logger)
	}

	processor, err := variants.NewProcessor(variants.ProcessorOptions{
		Sink:   sink,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	return pipeline.NewService(pipeline.ServiceOptions{
		Source:       pipeline.NewFileSource(cfg.ProjectsDir),
		Orchestrator: orchestrator,
		Processor:    processor,
		Logger:       logger,
	})
}

func parseFormats(raw string) []domain.Format {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var formats []domain.Format
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part == "" {
			continue
		}
		if part == "jpg" {
			part = "jpeg"
		}
		formats = append(formats, domain.Format(part))
	}
	return formats
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		exitWithError(err)
	}
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
