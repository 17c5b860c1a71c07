package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"assetgen/internal/domain"
)

func TestMemoryStorePutGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	job := &domain.BatchJob{
		ID:        "batch-1",
		Status:    domain.BatchStatusProcessing,
		StartedAt: time.Now(),
		Results: []domain.ProjectResult{
			{ProjectID: "p1", Status: domain.ProjectStatusPending},
		},
	}
	if err := store.Put(ctx, job); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get(ctx, "batch-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != "batch-1" || got.Status != domain.BatchStatusProcessing {
		t.Fatalf("unexpected job %+v", got)
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, domain.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestMemoryStoreSnapshotsDoNotAlias(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	job := &domain.BatchJob{
		ID:        "batch-1",
		Status:    domain.BatchStatusProcessing,
		StartedAt: time.Now(),
		Results:   []domain.ProjectResult{{ProjectID: "p1", Status: domain.ProjectStatusPending}},
	}
	if err := store.Put(ctx, job); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Mutating the supervisor's copy after Put must not leak into reads.
	job.Results[0].Status = domain.ProjectStatusCompleted
	job.Status = domain.BatchStatusCompleted

	got, err := store.Get(ctx, "batch-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != domain.BatchStatusProcessing {
		t.Fatalf("stored status mutated: %s", got.Status)
	}
	if got.Results[0].Status != domain.ProjectStatusPending {
		t.Fatalf("stored result mutated: %s", got.Results[0].Status)
	}

	// Mutating a returned snapshot must not change the store either.
	got.Results[0].Status = domain.ProjectStatusFailed
	again, err := store.Get(ctx, "batch-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if again.Results[0].Status != domain.ProjectStatusPending {
		t.Fatalf("snapshot aliased store state: %s", again.Results[0].Status)
	}
}

func TestMemoryStoreListNewestFirst(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "mid", "new"} {
		job := &domain.BatchJob{ID: id, Status: domain.BatchStatusCompleted, StartedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := store.Put(ctx, job); err != nil {
			t.Fatalf("Put %s: %v", id, err)
		}
	}

	jobs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(jobs))
	}
	if jobs[0].ID != "new" || jobs[2].ID != "old" {
		t.Fatalf("wrong order: %s, %s, %s", jobs[0].ID, jobs[1].ID, jobs[2].ID)
	}
}
