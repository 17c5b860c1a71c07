package generation

import (
	"context"
	"sync"
	"testing"
	"time"

	"assetgen/internal/domain"
	"assetgen/internal/infra"
	"assetgen/internal/selector"
)

func TestPacerSpacesConsecutiveCalls(t *testing.T) {
	clock := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	p := newPacer(750 * time.Millisecond)
	p.now = func() time.Time { return clock }

	if d := p.reserve(); d != 0 {
		t.Fatalf("first call should be unpaced, got %v", d)
	}
	if d := p.reserve(); d != 750*time.Millisecond {
		t.Fatalf("expected 750ms wait on immediate second call, got %v", d)
	}
	// The second call claimed the 750ms slot, so a third immediate call
	// queues behind it.
	if d := p.reserve(); d != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s wait on immediate third call, got %v", d)
	}

	clock = clock.Add(5 * time.Second)
	if d := p.reserve(); d != 0 {
		t.Fatalf("expected no wait after the interval has long passed, got %v", d)
	}
}

type recordingSleep struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *recordingSleep) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waits = append(r.waits, d)
	return nil
}

func TestBatchAdapterPacesAcrossGenerateInvocations(t *testing.T) {
	client := &fakeBatchClient{}
	rec := &recordingSleep{}
	a := NewBatchAdapter(client, selector.DefaultCatalog().Prices, infra.NopLogger())
	a.sleep = rec.sleep

	req := []domain.GenerationRequest{{Prompt: "storefront", Width: 1024, Height: 1024, Quantity: 1}}
	a.Generate(context.Background(), req)
	a.Generate(context.Background(), req)

	if len(rec.waits) == 0 {
		t.Fatal("expected the second invocation's call to be paced")
	}
	for _, d := range rec.waits {
		if d <= 0 {
			t.Fatalf("expected a positive pacing wait, got %v", d)
		}
	}
}
