package batch

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/yungbote/batchcore-backend/internal/logger"
	"github.com/yungbote/batchcore-backend/internal/types"
	"github.com/yungbote/batchcore-backend/internal/utils"
)

// Launcher runs executions asynchronously: admission is unbounded, but at
// most N pipelines run at once. Submit never blocks the trigger path.
type Launcher struct {
	log    *logger.Logger
	runner *Runner
	slots  *semaphore.Weighted
	wg     sync.WaitGroup
}

func NewLauncher(runner *Runner, baseLog *logger.Logger) *Launcher {
	log := baseLog.With("component", "JobLauncher")
	concurrency := utils.GetEnvAsInt("WORKER_CONCURRENCY", 4, baseLog)
	if concurrency < 1 {
		concurrency = 1
	}
	log.Info("Job launcher ready", "concurrency", concurrency)
	return &Launcher{
		log:    log,
		runner: runner,
		slots:  semaphore.NewWeighted(int64(concurrency)),
	}
}

func (l *Launcher) Submit(ctx context.Context, def *JobDefinition, exec *types.JobExecution) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		// Queued executions wait here; the pool itself is never full.
		if err := l.slots.Acquire(ctx, 1); err != nil {
			l.log.Warn("Launch aborted before start", "executionId", exec.ID, "error", err)
			return
		}
		defer l.slots.Release(1)
		defer func() {
			if rec := recover(); rec != nil {
				l.log.Error("Pipeline panic escaped the runner", "executionId", exec.ID, "panic", rec)
			}
		}()
		l.runner.Run(ctx, def, exec)
	}()
}

// Wait blocks until every submitted execution has finished. Used on shutdown
// and in tests.
func (l *Launcher) Wait() {
	l.wg.Wait()
}
