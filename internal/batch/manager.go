// Package batch supervises multi-project generation runs: fixed-size chunks
// of concurrent project executions, progress tracking, and cooperative
// cancellation at chunk boundaries.
package batch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"assetgen/internal/domain"
	"assetgen/internal/generation"
	"assetgen/internal/infra"
)

// RunOptions carries the per-batch settings handed to every project run.
type RunOptions struct {
	Generation generation.Options
	Processing domain.ProcessingOptions
}

// RunReport is what one successful project run produced.
type RunReport struct {
	GeneratedImages  int
	ImageVariants    int
	Cost             float64
	ProcessingTimeMs int64
	OutputPath       string
	Warnings         []string
}

// Runner executes and prices single project runs. The pipeline service is
// the production implementation.
type Runner interface {
	EstimateProject(ctx context.Context, project domain.ProjectSpec, opts RunOptions) (cost float64, requirements int, err error)
	RunProject(ctx context.Context, batchID string, project domain.ProjectSpec, opts RunOptions) (*RunReport, error)
}

// Submission describes one batch to run.
type Submission struct {
	Projects        []domain.ProjectSpec
	Options         RunOptions
	Concurrency     int
	ContinueOnError *bool
}

// Receipt is returned at submission time, before any work starts.
type Receipt struct {
	BatchID              string             `json:"batch_id"`
	TotalProjects        int                `json:"total_projects"`
	EstimatedCost        float64            `json:"estimated_cost"`
	EstimatedTimeMinutes int                `json:"estimated_time_minutes"`
	Status               domain.BatchStatus `json:"status"`
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	Store              domain.BatchJobStore
	Runner             Runner
	Logger             infra.Logger
	DefaultConcurrency int
	// PerProjectEstimate sizes the batch deadline: len(projects) times this
	// value. Defaults to 2 minutes.
	PerProjectEstimate time.Duration
}

// Manager owns the lifecycle of batch jobs. Each submitted batch gets one
// supervising goroutine that exclusively mutates its job record; everyone
// else reads store snapshots.
type Manager struct {
	store              domain.BatchJobStore
	runner             Runner
	logger             infra.Logger
	defaultConcurrency int
	perProjectEstimate time.Duration

	mu      sync.Mutex
	handles map[string]*jobHandle
	wg      sync.WaitGroup
}

// jobHandle is the live control surface of a running batch. Its mutex
// serializes Cancel against the supervisor's record writes so a cancellation
// can never overwrite an already-final record.
type jobHandle struct {
	mu              sync.Mutex
	cancelRequested atomic.Bool
	cancelledAt     atomic.Pointer[time.Time]
}

// NewManager validates the wiring and returns a manager.
func NewManager(opts ManagerOptions) (*Manager, error) {
	if opts.Store == nil {
		return nil, errors.New("batch: manager requires a job store")
	}
	if opts.Runner == nil {
		return nil, errors.New("batch: manager requires a project runner")
	}
	if opts.DefaultConcurrency <= 0 {
		opts.DefaultConcurrency = 2
	}
	if opts.PerProjectEstimate <= 0 {
		opts.PerProjectEstimate = 2 * time.Minute
	}
	return &Manager{
		store:              opts.Store,
		runner:             opts.Runner,
		logger:             opts.Logger,
		defaultConcurrency: opts.DefaultConcurrency,
		perProjectEstimate: opts.PerProjectEstimate,
		handles:            make(map[string]*jobHandle),
	}, nil
}

// Submit registers a batch, returns its receipt, and starts the supervisor.
func (m *Manager) Submit(ctx context.Context, sub Submission) (*Receipt, error) {
	if len(sub.Projects) == 0 {
		return nil, errors.New("batch: submission needs at least one project")
	}
	concurrency := sub.Concurrency
	if concurrency <= 0 {
		concurrency = m.defaultConcurrency
	}
	continueOnError := true
	if sub.ContinueOnError != nil {
		continueOnError = *sub.ContinueOnError
	}

	job := &domain.BatchJob{
		ID:        uuid.NewString(),
		Status:    domain.BatchStatusQueued,
		Progress:  domain.NewProgress(0, len(sub.Projects)),
		Results:   make([]domain.ProjectResult, len(sub.Projects)),
		StartedAt: time.Now(),
	}
	for i, p := range sub.Projects {
		job.Results[i] = domain.ProjectResult{
			ProjectID: p.ProjectID,
			Name:      p.Name,
			Status:    domain.ProjectStatusPending,
		}
	}
	if err := m.store.Put(ctx, job); err != nil {
		return nil, err
	}

	estimatedCost, totalRequirements := m.estimate(ctx, sub)

	handle := &jobHandle{}
	m.mu.Lock()
	m.handles[job.ID] = handle
	m.mu.Unlock()

	m.wg.Add(1)
	go m.supervise(job, handle, sub, concurrency, continueOnError)

	return &Receipt{
		BatchID:              job.ID,
		TotalProjects:        len(sub.Projects),
		EstimatedCost:        domain.RoundCost(estimatedCost),
		EstimatedTimeMinutes: estimateMinutes(totalRequirements, concurrency),
		Status:               domain.BatchStatusQueued,
	}, nil
}

// estimate prices the whole submission. Estimation failures degrade to zero
// for the affected project; they never block submission.
func (m *Manager) estimate(ctx context.Context, sub Submission) (float64, int) {
	var cost float64
	var requirements int
	for _, p := range sub.Projects {
		c, n, err := m.runner.EstimateProject(ctx, p, sub.Options)
		if err != nil {
			m.logger.Warn().Err(err).Str("project", p.ProjectID).Msg("batch: estimate failed")
			continue
		}
		cost += c
		requirements += n
	}
	return cost, requirements
}

// estimateMinutes derives the submission-time duration estimate from the
// total requirement count at roughly 30 seconds per requirement, divided by
// the concurrency ceiling.
func estimateMinutes(totalRequirements, concurrency int) int {
	if totalRequirements <= 0 {
		return 1
	}
	seconds := float64(totalRequirements) * 30 / float64(concurrency)
	minutes := int(math.Ceil(seconds / 60))
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// supervise runs the batch to completion. It is the only goroutine that
// writes the job record after submission.
func (m *Manager) supervise(job *domain.BatchJob, handle *jobHandle, sub Submission, concurrency int, continueOnError bool) {
	defer m.wg.Done()
	defer func() {
		m.mu.Lock()
		delete(m.handles, job.ID)
		m.mu.Unlock()
	}()

	deadline := time.Duration(len(sub.Projects)) * m.perProjectEstimate
	ctx, cancel := context.WithTimeout(context.Background(), deadline)
	defer cancel()

	job.Status = domain.BatchStatusProcessing
	m.put(ctx, job, handle)

	aborted := false
	for start := 0; start < len(sub.Projects); start += concurrency {
		if handle.cancelRequested.Load() || ctx.Err() != nil || aborted {
			break
		}
		end := start + concurrency
		if end > len(sub.Projects) {
			end = len(sub.Projects)
		}

		for i := start; i < end; i++ {
			job.Results[i].Status = domain.ProjectStatusProcessing
		}
		m.put(ctx, job, handle)

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(slot int) {
				defer wg.Done()
				m.runSlot(ctx, job.ID, &job.Results[slot], sub.Projects[slot], sub.Options)
			}(i)
		}
		wg.Wait()

		terminal := 0
		var totalCost float64
		totalImages := 0
		for i := range job.Results {
			if job.Results[i].Status.Terminal() {
				terminal++
			}
			totalCost += job.Results[i].Cost
			totalImages += job.Results[i].GeneratedImages
		}
		job.Progress = domain.NewProgress(terminal, len(job.Results))
		job.TotalCost = domain.RoundCost(totalCost)
		job.TotalImages = totalImages

		if !continueOnError {
			for i := start; i < end; i++ {
				if job.Results[i].Status == domain.ProjectStatusFailed {
					aborted = true
					break
				}
			}
		}
		m.put(ctx, job, handle)
	}

	m.finalize(ctx, job, handle, aborted)
}

// runSlot executes one project into its pre-allocated result slot. Distinct
// slots are written concurrently; the slice itself is never resized during a
// run.
func (m *Manager) runSlot(ctx context.Context, batchID string, slot *domain.ProjectResult, project domain.ProjectSpec, opts RunOptions) {
	report, err := m.runner.RunProject(ctx, batchID, project, opts)
	if err != nil {
		slot.Status = domain.ProjectStatusFailed
		slot.Error = err.Error()
		m.logger.Error().Err(err).
			Str("batch", batchID).
			Str("project", project.ProjectID).
			Msg("batch: project failed")
		return
	}
	slot.Status = domain.ProjectStatusCompleted
	slot.GeneratedImages = report.GeneratedImages
	slot.ImageVariants = report.ImageVariants
	slot.Cost = report.Cost
	slot.ProcessingTimeMs = report.ProcessingTimeMs
	slot.OutputPath = report.OutputPath
	slot.Warnings = report.Warnings
}

// finalize writes the terminal job record.
func (m *Manager) finalize(ctx context.Context, job *domain.BatchJob, handle *jobHandle, aborted bool) {
	now := time.Now()
	switch {
	case handle.cancelRequested.Load():
		job.Status = domain.BatchStatusFailed
	case aborted, ctx.Err() != nil:
		job.Status = domain.BatchStatusFailed
	default:
		job.Status = domain.BatchStatusCompleted
	}
	job.CompletedAt = &now
	m.put(ctx, job, handle)
	m.logger.Info().
		Str("batch", job.ID).
		Str("status", string(job.Status)).
		Int("images", job.TotalImages).
		Float64("cost", job.TotalCost).
		Msg("batch: finished")
}

// put persists the supervisor's record, re-applying any cancellation that
// arrived since the last write so a poll never loses the failed status.
func (m *Manager) put(ctx context.Context, job *domain.BatchJob, handle *jobHandle) {
	handle.mu.Lock()
	defer handle.mu.Unlock()
	if handle.cancelRequested.Load() {
		job.Status = domain.BatchStatusFailed
		job.CancelRequested = true
		if at := handle.cancelledAt.Load(); at != nil && job.CancelledAt == nil {
			job.CancelledAt = at
		}
	}
	// Store writes use a background-derived context so a batch deadline
	// never loses the final record.
	putCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := m.store.Put(putCtx, job); err != nil {
		m.logger.Error().Err(err).Str("batch", job.ID).Msg("batch: persist job record")
	}
}

// Get returns a snapshot of one batch.
func (m *Manager) Get(ctx context.Context, id string) (*domain.BatchJob, error) {
	return m.store.Get(ctx, id)
}

// List returns snapshots of all known batches, newest first.
func (m *Manager) List(ctx context.Context) ([]*domain.BatchJob, error) {
	return m.store.List(ctx)
}

// Cancel marks a batch failed. The supervisor stops launching chunks once it
// observes the flag; work already in flight finishes and its results are
// kept. Completed batches cannot be cancelled.
func (m *Manager) Cancel(ctx context.Context, id string) error {
	m.mu.Lock()
	handle := m.handles[id]
	m.mu.Unlock()

	// Holding the handle mutex keeps the supervisor from finalizing the
	// record between our read and our write; with no handle, the final
	// record is already persisted and the read below observes it.
	if handle != nil {
		handle.mu.Lock()
		defer handle.mu.Unlock()
	}

	job, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if job.Status == domain.BatchStatusCompleted {
		return fmt.Errorf("batch %s: %w", id, domain.ErrJobCompleted)
	}
	now := time.Now()
	if handle != nil {
		handle.cancelledAt.Store(&now)
		handle.cancelRequested.Store(true)
	}

	// Reflect the cancellation immediately for pollers; the supervisor
	// re-applies the same flags on every subsequent write.
	job.Status = domain.BatchStatusFailed
	job.CancelRequested = true
	if job.CancelledAt == nil {
		job.CancelledAt = &now
	}
	return m.store.Put(ctx, job)
}

// Close waits for every in-flight batch supervisor to finish.
func (m *Manager) Close() {
	m.wg.Wait()
}
