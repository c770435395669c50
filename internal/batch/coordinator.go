package batch

import (
	"context"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/batchcore-backend/internal/events"
	"github.com/yungbote/batchcore-backend/internal/logger"
	"github.com/yungbote/batchcore-backend/internal/repos"
	"github.com/yungbote/batchcore-backend/internal/types"
	"github.com/yungbote/batchcore-backend/internal/utils"
)

const (
	defaultQueueTimeout = 120 * time.Second
	createAttempts      = 3
	createBackoff       = 200 * time.Millisecond
	triggerScanPageSize = 100
)

// Coordinator owns the trigger path. Only execution-metadata creation runs
// under the fair lock; pipelines themselves run concurrently on the launcher.
type Coordinator struct {
	log          *logger.Logger
	registry     *Registry
	store        repos.ExecutionRepo
	launcher     *Launcher
	lock         *FairLock
	queueTimeout time.Duration
}

func NewCoordinator(registry *Registry, store repos.ExecutionRepo, publisher events.Publisher, baseLog *logger.Logger) *Coordinator {
	runner := NewRunner(store, publisher, baseLog)
	timeoutSec := utils.GetEnvAsInt("BATCH_QUEUE_TIMEOUT_SECONDS", int(defaultQueueTimeout/time.Second), baseLog)
	if timeoutSec < 1 {
		timeoutSec = int(defaultQueueTimeout / time.Second)
	}
	return &Coordinator{
		log:          baseLog.With("component", "JobCoordinator"),
		registry:     registry,
		store:        store,
		launcher:     NewLauncher(runner, baseLog),
		lock:         NewFairLock(),
		queueTimeout: time.Duration(timeoutSec) * time.Second,
	}
}

// Trigger creates and launches one execution. It returns as soon as the
// metadata exists; the pipeline runs asynchronously.
func (c *Coordinator) Trigger(ctx context.Context, jobName, triggerID string, raw map[string]string) (*types.JobExecution, error) {
	def, ok := c.registry.Lookup(jobName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobName)
	}

	params, triggerID, err := BuildParameters(def.ParameterKeys, triggerID, raw, time.Now())
	if err != nil {
		return nil, err
	}
	snapshot, err := params.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}

	c.log.Debug("Waiting for metadata lock",
		"job", jobName,
		"triggerId", triggerID,
		"queueDepth", c.lock.QueueDepth(),
	)
	if err := c.lock.Acquire(ctx, c.queueTimeout); err != nil {
		c.log.Warn("Trigger timed out in queue", "job", jobName, "triggerId", triggerID)
		return nil, err
	}

	exec, err := c.createExecution(ctx, def, params, snapshot)
	c.lock.Release()
	if err != nil {
		c.log.Error("Failed to create execution metadata", "job", jobName, "triggerId", triggerID, "error", err)
		return nil, err
	}

	c.log.Info("Job triggered", "job", jobName, "triggerId", triggerID, "executionId", exec.ID)
	c.launcher.Submit(context.WithoutCancel(ctx), def, exec)
	return exec, nil
}

func (c *Coordinator) createExecution(ctx context.Context, def *JobDefinition, params JobParameters, snapshot datatypes.JSON) (*types.JobExecution, error) {
	var lastErr error
	for attempt := 1; attempt <= createAttempts; attempt++ {
		instance, err := c.store.FindOrCreateInstance(ctx, nil, def.Name, params.InstanceKey())
		if err == nil {
			var exec *types.JobExecution
			exec, err = c.store.CreateExecution(ctx, nil, instance, snapshot)
			if err == nil {
				return exec, nil
			}
		}
		lastErr = err
		c.log.Warn("Metadata creation attempt failed", "job", def.Name, "attempt", attempt, "error", err)
		if attempt < createAttempts {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrStorage, ctx.Err())
			case <-time.After(createBackoff * time.Duration(attempt)):
			}
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrStorage, lastErr)
}

// Stop requests a cooperative stop. True means the execution was running and
// is now STOPPING; false means it had already reached a terminal state.
func (c *Coordinator) Stop(ctx context.Context, executionID int64) (bool, error) {
	if _, err := c.store.GetExecution(ctx, nil, executionID); err != nil {
		return false, err
	}
	changed, err := c.store.MarkStatusIf(ctx, nil, executionID, types.RunningStatuses, types.StatusStopping)
	if err != nil {
		return false, err
	}
	if changed {
		c.log.Info("Stop requested", "executionId", executionID)
	}
	return changed, nil
}

func (c *Coordinator) FindExecution(ctx context.Context, executionID int64) (*types.JobExecution, error) {
	return c.store.GetExecution(ctx, nil, executionID)
}

// FindByTriggerID scans recent instances of every registered job and matches
// the trigger id recorded in each execution's parameter snapshot.
func (c *Coordinator) FindByTriggerID(ctx context.Context, triggerID string) (*types.JobExecution, error) {
	if triggerID == "" {
		return nil, repos.ErrExecutionNotFound
	}
	for _, jobName := range c.registry.Names() {
		instances, err := c.store.RecentInstances(ctx, nil, jobName, 0, triggerScanPageSize)
		if err != nil {
			return nil, err
		}
		for _, instance := range instances {
			execs, err := c.store.ExecutionsForInstance(ctx, nil, instance.ID)
			if err != nil {
				return nil, err
			}
			for _, exec := range execs {
				if TriggerID(exec.Parameters) == triggerID {
					return exec, nil
				}
			}
		}
	}
	return nil, repos.ErrExecutionNotFound
}

func (c *Coordinator) QueueDepth() int {
	return c.lock.QueueDepth()
}

func (c *Coordinator) Registry() *Registry {
	return c.registry
}

// Drain waits for in-flight pipelines. Called on shutdown.
func (c *Coordinator) Drain() {
	c.launcher.Wait()
}
