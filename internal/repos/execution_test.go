package repos

import (
	"context"
	"testing"

	"gorm.io/datatypes"

	"github.com/yungbote/batchcore-backend/internal/repos/testutil"
	"github.com/yungbote/batchcore-backend/internal/types"
)

func TestExecutionLifecycle(t *testing.T) {
	db := testutil.SQLiteDB(t)
	repo := NewExecutionRepo(db, testutil.Logger(t))
	ctx := context.Background()

	instance, err := repo.FindOrCreateInstance(ctx, nil, "paymentFileGenerationJob", "key-1")
	if err != nil {
		t.Fatalf("FindOrCreateInstance: %v", err)
	}
	if instance.ID == 0 {
		t.Fatalf("expected instance id to be assigned")
	}

	again, err := repo.FindOrCreateInstance(ctx, nil, "paymentFileGenerationJob", "key-1")
	if err != nil {
		t.Fatalf("FindOrCreateInstance (again): %v", err)
	}
	if again.ID != instance.ID {
		t.Fatalf("expected same instance for same key, got %d and %d", instance.ID, again.ID)
	}

	other, err := repo.FindOrCreateInstance(ctx, nil, "paymentFileGenerationJob", "key-2")
	if err != nil {
		t.Fatalf("FindOrCreateInstance (other key): %v", err)
	}
	if other.ID == instance.ID {
		t.Fatalf("expected a fresh instance for a different key")
	}

	exec, err := repo.CreateExecution(ctx, nil, instance, datatypes.JSON([]byte(`{"triggerId":{"value":"t-1","type":"STRING","identifying":true}}`)))
	if err != nil {
		t.Fatalf("CreateExecution: %v", err)
	}
	if exec.Status != types.StatusStarting {
		t.Fatalf("expected STARTING, got %s", exec.Status)
	}

	status, err := repo.ExecutionStatus(ctx, nil, exec.ID)
	if err != nil {
		t.Fatalf("ExecutionStatus: %v", err)
	}
	if status != types.StatusStarting {
		t.Fatalf("expected STARTING, got %s", status)
	}

	if _, err := repo.ExecutionStatus(ctx, nil, exec.ID+999); err != ErrExecutionNotFound {
		t.Fatalf("expected ErrExecutionNotFound, got %v", err)
	}
}

func TestMarkStatusIfGuardsTerminalStates(t *testing.T) {
	db := testutil.SQLiteDB(t)
	repo := NewExecutionRepo(db, testutil.Logger(t))
	ctx := context.Background()

	instance, err := repo.FindOrCreateInstance(ctx, nil, "warrantStatusUpdateJob", "key-1")
	if err != nil {
		t.Fatalf("FindOrCreateInstance: %v", err)
	}
	exec, err := repo.CreateExecution(ctx, nil, instance, datatypes.JSON([]byte(`{}`)))
	if err != nil {
		t.Fatalf("CreateExecution: %v", err)
	}

	changed, err := repo.MarkStatusIf(ctx, nil, exec.ID, types.RunningStatuses, types.StatusStopping)
	if err != nil {
		t.Fatalf("MarkStatusIf: %v", err)
	}
	if !changed {
		t.Fatalf("expected running execution to transition to STOPPING")
	}

	exec.Status = types.StatusCompleted
	exec.ExitCode = types.ExitCompleted
	if err := repo.FinishExecution(ctx, nil, exec); err != nil {
		t.Fatalf("FinishExecution: %v", err)
	}

	changed, err = repo.MarkStatusIf(ctx, nil, exec.ID, types.RunningStatuses, types.StatusStopping)
	if err != nil {
		t.Fatalf("MarkStatusIf (terminal): %v", err)
	}
	if changed {
		t.Fatalf("terminal execution must not transition to STOPPING")
	}
}

func TestProgressUpdateKeepsStoppingStatus(t *testing.T) {
	db := testutil.SQLiteDB(t)
	repo := NewExecutionRepo(db, testutil.Logger(t))
	ctx := context.Background()

	instance, err := repo.FindOrCreateInstance(ctx, nil, "computeIntensiveFileJob", "key-1")
	if err != nil {
		t.Fatalf("FindOrCreateInstance: %v", err)
	}
	exec, err := repo.CreateExecution(ctx, nil, instance, datatypes.JSON([]byte(`{}`)))
	if err != nil {
		t.Fatalf("CreateExecution: %v", err)
	}

	// a stop lands while the pipeline is mid-step
	if _, err := repo.MarkStatusIf(ctx, nil, exec.ID, types.RunningStatuses, types.StatusStopping); err != nil {
		t.Fatalf("MarkStatusIf: %v", err)
	}

	// the runner's post-step persist carries a stale in-memory status
	exec.Status = types.StatusStarted
	exec.Context = datatypes.JSON([]byte(`{"recordsParsed":100}`))
	if err := repo.UpdateExecutionProgress(ctx, nil, exec); err != nil {
		t.Fatalf("UpdateExecutionProgress: %v", err)
	}

	status, err := repo.ExecutionStatus(ctx, nil, exec.ID)
	if err != nil {
		t.Fatalf("ExecutionStatus: %v", err)
	}
	if status != types.StatusStopping {
		t.Fatalf("progress persist must not overwrite STOPPING, got %s", status)
	}
	reloaded, err := repo.GetExecution(ctx, nil, exec.ID)
	if err != nil {
		t.Fatalf("GetExecution: %v", err)
	}
	if string(reloaded.Context) != `{"recordsParsed":100}` {
		t.Fatalf("context not persisted: %s", reloaded.Context)
	}
}

func TestFinishExecutionKeepsTerminalRowsTerminal(t *testing.T) {
	db := testutil.SQLiteDB(t)
	repo := NewExecutionRepo(db, testutil.Logger(t))
	ctx := context.Background()

	instance, err := repo.FindOrCreateInstance(ctx, nil, "quickJob", "key-1")
	if err != nil {
		t.Fatalf("FindOrCreateInstance: %v", err)
	}
	exec, err := repo.CreateExecution(ctx, nil, instance, datatypes.JSON([]byte(`{}`)))
	if err != nil {
		t.Fatalf("CreateExecution: %v", err)
	}

	exec.Status = types.StatusStopped
	exec.ExitCode = types.ExitStopped
	if err := repo.FinishExecution(ctx, nil, exec); err != nil {
		t.Fatalf("FinishExecution: %v", err)
	}

	exec.Status = types.StatusCompleted
	exec.ExitCode = types.ExitCompleted
	if err := repo.FinishExecution(ctx, nil, exec); err != nil {
		t.Fatalf("FinishExecution (second): %v", err)
	}

	status, err := repo.ExecutionStatus(ctx, nil, exec.ID)
	if err != nil {
		t.Fatalf("ExecutionStatus: %v", err)
	}
	if status != types.StatusStopped {
		t.Fatalf("terminal STOPPED row was rewritten to %s", status)
	}
}

func TestStepExecutionCountsAndOrder(t *testing.T) {
	db := testutil.SQLiteDB(t)
	repo := NewExecutionRepo(db, testutil.Logger(t))
	ctx := context.Background()

	instance, err := repo.FindOrCreateInstance(ctx, nil, "largeFileProcessingJob", "key-1")
	if err != nil {
		t.Fatalf("FindOrCreateInstance: %v", err)
	}
	exec, err := repo.CreateExecution(ctx, nil, instance, datatypes.JSON([]byte(`{}`)))
	if err != nil {
		t.Fatalf("CreateExecution: %v", err)
	}

	first, err := repo.CreateStepExecution(ctx, nil, exec.ID, "generateFile", types.StatusStarted)
	if err != nil {
		t.Fatalf("CreateStepExecution: %v", err)
	}
	if first.StartTime == nil {
		t.Fatalf("started step must carry a start time")
	}
	first.Status = types.StatusCompleted
	first.ExitCode = types.ExitCompleted
	first.WriteCount = 42
	if err := repo.UpdateStepExecution(ctx, nil, first); err != nil {
		t.Fatalf("UpdateStepExecution: %v", err)
	}

	abandoned, err := repo.CreateStepExecution(ctx, nil, exec.ID, "processFile", types.StatusAbandoned)
	if err != nil {
		t.Fatalf("CreateStepExecution (abandoned): %v", err)
	}
	if abandoned.StartTime != nil {
		t.Fatalf("abandoned step must not carry a start time")
	}

	steps, err := repo.StepExecutions(ctx, nil, exec.ID)
	if err != nil {
		t.Fatalf("StepExecutions: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	if steps[0].StepName != "generateFile" || steps[1].StepName != "processFile" {
		t.Fatalf("steps out of order: %s, %s", steps[0].StepName, steps[1].StepName)
	}
	if steps[0].WriteCount != 42 {
		t.Fatalf("expected write count 42, got %d", steps[0].WriteCount)
	}
}

func TestRecentInstancesNewestFirst(t *testing.T) {
	db := testutil.SQLiteDB(t)
	repo := NewExecutionRepo(db, testutil.Logger(t))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		key := string(rune('a' + i))
		if _, err := repo.FindOrCreateInstance(ctx, nil, "countyDailyReportJob", key); err != nil {
			t.Fatalf("FindOrCreateInstance: %v", err)
		}
	}

	instances, err := repo.RecentInstances(ctx, nil, "countyDailyReportJob", 0, 3)
	if err != nil {
		t.Fatalf("RecentInstances: %v", err)
	}
	if len(instances) != 3 {
		t.Fatalf("expected page of 3, got %d", len(instances))
	}
	for i := 1; i < len(instances); i++ {
		if instances[i].CreatedAt.After(instances[i-1].CreatedAt) {
			t.Fatalf("instances not ordered newest first")
		}
	}
}
