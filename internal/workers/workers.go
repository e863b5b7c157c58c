// Package workers provides the application's background workers and an
// aggregate to run them with a shared lifecycle. Workers stop when the
// context passed to Run is cancelled.
package workers

import (
	"context"
	"sync"

	"github.com/vaultkeeper/vaultkeeper/internal/config"
	"github.com/vaultkeeper/vaultkeeper/internal/logger"
	"github.com/vaultkeeper/vaultkeeper/internal/store"
)

// Worker is one background worker. Run is expected to block until ctx is
// cancelled.
type Worker interface {
	Run(ctx context.Context)
}

// Workers runs a set of workers and waits for all of them on Stop.
type Workers struct {
	workers []Worker

	wg sync.WaitGroup
}

// NewWorkers assembles the server's background workers.
func NewWorkers(storages *store.Storages, cfg config.Workers, logger *logger.Logger) *Workers {
	return &Workers{
		workers: []Worker{
			NewRetentionSweeper(storages.Secrets, cfg, logger),
		},
	}
}

// Run launches every worker in its own goroutine. It does not block.
func (w *Workers) Run(ctx context.Context) {
	for _, worker := range w.workers {
		w.wg.Add(1)
		go func(worker Worker) {
			defer w.wg.Done()
			worker.Run(ctx)
		}(worker)
	}
}

// Stop blocks until every worker has returned. Cancellation of the context
// passed to Run is what makes them return.
func (w *Workers) Stop() {
	w.wg.Wait()
}
