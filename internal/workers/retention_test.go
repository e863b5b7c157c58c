package workers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/vaultkeeper/vaultkeeper/internal/config"
	"github.com/vaultkeeper/vaultkeeper/internal/logger"
	"github.com/vaultkeeper/vaultkeeper/internal/store"
	"github.com/vaultkeeper/vaultkeeper/models"

	"github.com/google/uuid"
)

// sweepRecorder implements the purge slice of store.SecretRepository and
// records the cutoffs it was called with.
type sweepRecorder struct {
	mu      sync.Mutex
	cutoffs []time.Time
	purged  int64
}

func (r *sweepRecorder) PurgeDeletedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cutoffs = append(r.cutoffs, cutoff)
	return r.purged, nil
}

func (r *sweepRecorder) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cutoffs)
}

func (r *sweepRecorder) lastCutoff() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cutoffs[len(r.cutoffs)-1]
}

func (r *sweepRecorder) Create(context.Context, models.Secret, uuid.UUID) (models.Secret, error) {
	return models.Secret{}, nil
}
func (r *sweepRecorder) FindByID(context.Context, uuid.UUID) (models.Secret, error) {
	return models.Secret{}, nil
}
func (r *sweepRecorder) List(context.Context, models.SecretFilter) ([]models.Secret, error) {
	return nil, nil
}
func (r *sweepRecorder) Update(context.Context, uuid.UUID, models.SecretUpdate, uuid.UUID) (models.Secret, error) {
	return models.Secret{}, nil
}
func (r *sweepRecorder) TouchAccess(context.Context, uuid.UUID) error       { return nil }
func (r *sweepRecorder) SetArchived(context.Context, uuid.UUID, bool) error { return nil }
func (r *sweepRecorder) SoftDelete(context.Context, uuid.UUID, time.Time) error {
	return nil
}
func (r *sweepRecorder) Restore(context.Context, uuid.UUID) error { return nil }
func (r *sweepRecorder) Delete(context.Context, uuid.UUID) error  { return nil }
func (r *sweepRecorder) Move(context.Context, uuid.UUID, uuid.UUID, string) error {
	return nil
}
func (r *sweepRecorder) Versions(context.Context, uuid.UUID) ([]models.SecretVersion, error) {
	return nil, nil
}

var _ store.SecretRepository = (*sweepRecorder)(nil)

func testWorkersConfig() config.Workers {
	return config.Workers{
		RetentionWindow: 30 * 24 * time.Hour,
		SweepInterval:   5 * time.Millisecond,
	}
}

func TestRetentionSweeper_SweepsImmediatelyAndOnTicks(t *testing.T) {
	recorder := &sweepRecorder{purged: 2}
	sweeper := NewRetentionSweeper(recorder, testWorkersConfig(), logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	deadline := time.After(time.Second)
	for recorder.calls() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 3 sweeps, got %d", recorder.calls())
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on context cancellation")
	}
}

func TestRetentionSweeper_CutoffHonoursRetentionWindow(t *testing.T) {
	recorder := &sweepRecorder{}
	cfg := testWorkersConfig()
	sweeper := NewRetentionSweeper(recorder, cfg, logger.Nop())

	sweeper.sweep(context.Background())

	want := time.Now().Add(-cfg.RetentionWindow)
	got := recorder.lastCutoff()
	if diff := want.Sub(got); diff < -time.Second || diff > time.Second {
		t.Fatalf("cutoff %v not within a second of %v", got, want)
	}
}

func TestWorkers_StopWaitsForWorkers(t *testing.T) {
	recorder := &sweepRecorder{}
	w := &Workers{workers: []Worker{NewRetentionSweeper(recorder, testWorkersConfig(), logger.Nop())}}

	ctx, cancel := context.WithCancel(context.Background())
	w.Run(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after cancellation")
	}
}
