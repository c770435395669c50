package batch

import (
	"context"

	"github.com/yungbote/batchcore-backend/internal/logger"
	"github.com/yungbote/batchcore-backend/internal/types"
)

// StepContext is what a step handler sees: the request context, the typed
// parameters, the mutable execution context and its own counters. Handlers
// poll StopRequested at natural checkpoints and return ErrStopped to unwind.
type StepContext struct {
	Ctx       context.Context
	Log       *logger.Logger
	Execution *types.JobExecution
	Params    JobParameters

	ec            *ExecutionContext
	step          *types.StepExecution
	stopRequested func() bool
}

func (sc *StepContext) Context() *ExecutionContext {
	return sc.ec
}

func (sc *StepContext) StepName() string {
	return sc.step.StepName
}

// StopRequested reports whether the execution has been asked to stop. The
// check hits the store, so callers should poll per chunk, not per record.
func (sc *StepContext) StopRequested() bool {
	if sc.stopRequested == nil {
		return false
	}
	return sc.stopRequested()
}

func (sc *StepContext) IncrementRead(n int64)  { sc.step.ReadCount += n }
func (sc *StepContext) IncrementWrite(n int64) { sc.step.WriteCount += n }
func (sc *StepContext) IncrementSkip(n int64)  { sc.step.SkipCount += n }
