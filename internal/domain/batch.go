package domain

import (
	"math"
	"time"
)

// BatchStatus enumerates batch lifecycle states.
type BatchStatus string

const (
	BatchStatusQueued     BatchStatus = "queued"
	BatchStatusProcessing BatchStatus = "processing"
	BatchStatusCompleted  BatchStatus = "completed"
	BatchStatusFailed     BatchStatus = "failed"
)

// Terminal reports whether no further transitions are permitted.
func (s BatchStatus) Terminal() bool {
	return s == BatchStatusCompleted || s == BatchStatusFailed
}

// ProjectStatus enumerates per-project lifecycle states within a batch.
type ProjectStatus string

const (
	ProjectStatusPending    ProjectStatus = "pending"
	ProjectStatusProcessing ProjectStatus = "processing"
	ProjectStatusCompleted  ProjectStatus = "completed"
	ProjectStatusFailed     ProjectStatus = "failed"
)

// Terminal reports whether the project reached a final state.
func (s ProjectStatus) Terminal() bool {
	return s == ProjectStatusCompleted || s == ProjectStatusFailed
}

// Progress tracks how much of a batch has reached a terminal state.
// Counters are monotonically non-decreasing.
type Progress struct {
	Current    int     `json:"current"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// NewProgress derives a Progress value from terminal/total counts.
func NewProgress(current, total int) Progress {
	p := Progress{Current: current, Total: total}
	if total > 0 {
		p.Percentage = math.Round(float64(current)/float64(total)*10000) / 100
	}
	return p
}

// ProjectSpec identifies one project submitted in a batch.
type ProjectSpec struct {
	ProjectID string `json:"project_id"`
	Name      string `json:"name,omitempty"`
}

// ProjectResult is the outcome slot for one project in a batch. Its slot in
// BatchJob.Results is fixed at submission order; it transitions
// pending -> processing -> {completed|failed} exactly once.
type ProjectResult struct {
	ProjectID        string        `json:"project_id"`
	Name             string        `json:"name,omitempty"`
	Status           ProjectStatus `json:"status"`
	GeneratedImages  int           `json:"generated_images,omitempty"`
	ImageVariants    int           `json:"image_variants,omitempty"`
	Cost             float64       `json:"cost,omitempty"`
	ProcessingTimeMs int64         `json:"processing_time_ms,omitempty"`
	Error            string        `json:"error,omitempty"`
	OutputPath       string        `json:"output_path,omitempty"`
	Warnings         []string      `json:"warnings,omitempty"`
}

// BatchJob is the status record for one batch of per-project generation runs.
// It is mutated only by the supervising goroutine that owns it; all other
// callers receive read-only snapshots from the store.
type BatchJob struct {
	ID              string          `json:"id"`
	Status          BatchStatus     `json:"status"`
	Progress        Progress        `json:"progress"`
	Results         []ProjectResult `json:"results"`
	TotalCost       float64         `json:"total_cost"`
	TotalImages     int             `json:"total_images"`
	StartedAt       time.Time       `json:"started_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	CancelRequested bool            `json:"cancel_requested,omitempty"`
	CancelledAt     *time.Time      `json:"cancelled_at,omitempty"`
}

// Clone returns a deep copy so store snapshots never alias supervisor state.
func (j *BatchJob) Clone() *BatchJob {
	if j == nil {
		return nil
	}
	out := *j
	out.Results = make([]ProjectResult, len(j.Results))
	copy(out.Results, j.Results)
	for i := range out.Results {
		if w := j.Results[i].Warnings; len(w) > 0 {
			out.Results[i].Warnings = append([]string(nil), w...)
		}
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		out.CompletedAt = &t
	}
	if j.CancelledAt != nil {
		t := *j.CancelledAt
		out.CancelledAt = &t
	}
	return &out
}

// RoundCost rounds a money amount to two decimal places. Aggregate costs are
// rounded exactly once, at reporting time.
func RoundCost(v float64) float64 {
	return math.Round(v*100) / 100
}
