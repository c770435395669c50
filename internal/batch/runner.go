package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yungbote/batchcore-backend/internal/events"
	"github.com/yungbote/batchcore-backend/internal/logger"
	"github.com/yungbote/batchcore-backend/internal/repos"
	"github.com/yungbote/batchcore-backend/internal/types"
)

// Runner executes one pipeline: steps strictly in order, execution status
// re-read between steps for cooperative stop, context snapshot persisted
// after every step, all step events published before the terminal event.
type Runner struct {
	log    *logger.Logger
	store  repos.ExecutionRepo
	events events.Publisher
}

func NewRunner(store repos.ExecutionRepo, publisher events.Publisher, baseLog *logger.Logger) *Runner {
	return &Runner{
		log:    baseLog.With("component", "JobRunner"),
		store:  store,
		events: publisher,
	}
}

func (r *Runner) Run(ctx context.Context, def *JobDefinition, exec *types.JobExecution) {
	runLog := r.log.With("job", def.Name, "executionId", exec.ID)

	params, err := ParamsFromSnapshot(exec.Parameters)
	if err != nil {
		runLog.Error("Corrupt parameter snapshot", "error", err)
		r.finish(ctx, exec, types.StatusFailed, types.ExitFailed, fmt.Sprintf("corrupt parameter snapshot: %v", err))
		return
	}
	ec, err := ContextFromSnapshot(exec.Context)
	if err != nil {
		runLog.Error("Corrupt context snapshot", "error", err)
		r.finish(ctx, exec, types.StatusFailed, types.ExitFailed, fmt.Sprintf("corrupt context snapshot: %v", err))
		return
	}
	ec.PutLong("totalSteps", int64(len(def.Steps)))

	// Guarded transition: if a stop already landed, the execution is
	// STOPPING and nothing may run.
	started, err := r.store.MarkStatusIf(ctx, nil, exec.ID, []types.BatchStatus{types.StatusStarting}, types.StatusStarted)
	if err != nil {
		runLog.Error("Failed to mark execution started", "error", err)
		r.finish(ctx, exec, types.StatusFailed, types.ExitFailed, fmt.Sprintf("start transition failed: %v", err))
		return
	}
	if !started {
		runLog.Info("Stop requested before start, abandoning all steps")
		r.abandonRemaining(ctx, runLog, exec.ID, def.Steps)
		r.finish(ctx, exec, types.StatusStopped, types.ExitStopped, "stop requested")
		return
	}

	now := time.Now()
	exec.Status = types.StatusStarted
	exec.StartTime = &now
	r.persist(ctx, runLog, exec, ec)
	r.events.JobStarted(ctx, exec, nil)
	runLog.Info("Job execution started", "steps", len(def.Steps))

	total := len(def.Steps)
	completed := 0
	stopped := false
	var stepErr error

	stopCheck := func() bool {
		status, err := r.store.ExecutionStatus(ctx, nil, exec.ID)
		if err != nil {
			runLog.Warn("Stop check failed", "error", err)
			return false
		}
		return status == types.StatusStopping
	}

	for i, stepDef := range def.Steps {
		if stopCheck() {
			stopped = true
			r.abandonRemaining(ctx, runLog, exec.ID, def.Steps[i:])
			break
		}

		step, err := r.store.CreateStepExecution(ctx, nil, exec.ID, stepDef.Name, types.StatusStarted)
		if err != nil {
			runLog.Error("Failed to create step execution", "step", stepDef.Name, "error", err)
			stepErr = err
			break
		}

		sc := &StepContext{
			Ctx:           ctx,
			Log:           runLog.With("step", stepDef.Name),
			Execution:     exec,
			Params:        params,
			ec:            ec,
			step:          step,
			stopRequested: stopCheck,
		}

		runErr := runStep(stepDef, sc)
		end := time.Now()
		step.EndTime = &end
		r.persist(ctx, runLog, exec, ec)

		switch {
		case errors.Is(runErr, ErrStopped):
			step.Status = types.StatusStopped
			step.ExitCode = types.ExitStopped
			if err := r.store.UpdateStepExecution(ctx, nil, step); err != nil {
				runLog.Warn("Failed to update step execution", "step", stepDef.Name, "error", err)
			}
			stopped = true
			r.abandonRemaining(ctx, runLog, exec.ID, def.Steps[i+1:])
		case runErr != nil:
			step.Status = types.StatusFailed
			step.ExitCode = types.ExitFailed
			step.ExitDescription = runErr.Error()
			if err := r.store.UpdateStepExecution(ctx, nil, step); err != nil {
				runLog.Warn("Failed to update step execution", "step", stepDef.Name, "error", err)
			}
			stepErr = runErr
			runLog.Error("Step failed", "step", stepDef.Name, "error", runErr)
		default:
			step.Status = types.StatusCompleted
			step.ExitCode = types.ExitCompleted
			if err := r.store.UpdateStepExecution(ctx, nil, step); err != nil {
				runLog.Warn("Failed to update step execution", "step", stepDef.Name, "error", err)
			}
			completed++
			progress := completed * 100 / total
			steps, _ := r.store.StepExecutions(ctx, nil, exec.ID)
			r.events.StepCompleted(ctx, exec, steps, stepDef.Name, progress)
			runLog.Debug("Step completed", "step", stepDef.Name, "progress", progress)
			continue
		}
		break
	}

	end := time.Now()
	exec.EndTime = &end
	switch {
	case stopped:
		exec.Status = types.StatusStopped
		exec.ExitCode = types.ExitStopped
		exec.ExitDescription = "stop requested"
	case stepErr != nil:
		exec.Status = types.StatusFailed
		exec.ExitCode = types.ExitFailed
		exec.ExitDescription = stepErr.Error()
	default:
		exec.Status = types.StatusCompleted
		exec.ExitCode = types.ExitCompleted
	}
	if snapshot, err := ec.Snapshot(); err == nil {
		exec.Context = snapshot
	}
	if err := r.store.FinishExecution(ctx, nil, exec); err != nil {
		runLog.Warn("Failed to persist execution", "error", err)
	}

	steps, _ := r.store.StepExecutions(ctx, nil, exec.ID)
	switch exec.Status {
	case types.StatusStopped:
		r.events.JobStopped(ctx, exec, steps)
	case types.StatusFailed:
		r.events.JobFailed(ctx, exec, steps)
	default:
		r.events.JobCompleted(ctx, exec, steps)
	}
	runLog.Info("Job execution finished", "status", exec.Status, "exitCode", exec.ExitCode)
}

func runStep(def StepDefinition, sc *StepContext) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("step %s panicked: %v", def.Name, rec)
		}
	}()
	return def.Handler(sc)
}

// abandonRemaining records the steps a stop prevented from running. They get
// ABANDONED rows with no start time.
func (r *Runner) abandonRemaining(ctx context.Context, log *logger.Logger, execID int64, remaining []StepDefinition) {
	for _, stepDef := range remaining {
		if _, err := r.store.CreateStepExecution(ctx, nil, execID, stepDef.Name, types.StatusAbandoned); err != nil {
			log.Warn("Failed to record abandoned step", "step", stepDef.Name, "error", err)
		}
	}
}

// persist writes context and timing only. Status is deliberately left alone
// so a concurrent STOPPING transition is never overwritten mid-pipeline.
func (r *Runner) persist(ctx context.Context, log *logger.Logger, exec *types.JobExecution, ec *ExecutionContext) {
	snapshot, err := ec.Snapshot()
	if err != nil {
		log.Warn("Failed to snapshot execution context", "error", err)
	} else {
		exec.Context = snapshot
	}
	if err := r.store.UpdateExecutionProgress(ctx, nil, exec); err != nil {
		log.Warn("Failed to persist execution", "error", err)
	}
}

func (r *Runner) finish(ctx context.Context, exec *types.JobExecution, status types.BatchStatus, exit types.ExitCode, desc string) {
	now := time.Now()
	exec.Status = status
	exec.ExitCode = exit
	exec.ExitDescription = desc
	exec.EndTime = &now
	if err := r.store.FinishExecution(ctx, nil, exec); err != nil {
		r.log.Warn("Failed to persist execution", "executionId", exec.ID, "error", err)
	}
	steps, _ := r.store.StepExecutions(ctx, nil, exec.ID)
	switch status {
	case types.StatusFailed:
		r.events.JobFailed(ctx, exec, steps)
	case types.StatusStopped:
		r.events.JobStopped(ctx, exec, steps)
	}
}
