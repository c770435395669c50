package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/batchcore-backend/internal/repos"
	"github.com/yungbote/batchcore-backend/internal/types"
)

// fakeStore is an in-memory repos.ExecutionRepo for runtime tests.
type fakeStore struct {
	mu           sync.Mutex
	instances    map[int64]*types.JobInstance
	execs        map[int64]*types.JobExecution
	steps        map[int64]*types.StepExecution
	nextInstance int64
	nextExec     int64
	nextStep     int64

	failCreates int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		instances: map[int64]*types.JobInstance{},
		execs:     map[int64]*types.JobExecution{},
		steps:     map[int64]*types.StepExecution{},
	}
}

func (s *fakeStore) FindOrCreateInstance(ctx context.Context, tx *gorm.DB, jobName, jobKey string) (*types.JobInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, instance := range s.instances {
		if instance.JobName == jobName && instance.JobKey == jobKey {
			copied := *instance
			return &copied, nil
		}
	}
	s.nextInstance++
	instance := &types.JobInstance{
		ID:        s.nextInstance,
		JobName:   jobName,
		JobKey:    jobKey,
		CreatedAt: time.Now(),
	}
	s.instances[instance.ID] = instance
	copied := *instance
	return &copied, nil
}

func (s *fakeStore) CreateExecution(ctx context.Context, tx *gorm.DB, instance *types.JobInstance, params datatypes.JSON) (*types.JobExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreates > 0 {
		s.failCreates--
		return nil, fmt.Errorf("injected storage failure")
	}
	s.nextExec++
	exec := &types.JobExecution{
		ID:            s.nextExec,
		JobInstanceID: instance.ID,
		JobName:       instance.JobName,
		Status:        types.StatusStarting,
		ExitCode:      types.ExitUnknown,
		Parameters:    params,
		Context:       datatypes.JSON([]byte(`{}`)),
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	s.execs[exec.ID] = exec
	copied := *exec
	return &copied, nil
}

func (s *fakeStore) UpdateExecutionProgress(ctx context.Context, tx *gorm.DB, exec *types.JobExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.execs[exec.ID]
	if !ok {
		return repos.ErrExecutionNotFound
	}
	// status stays untouched, matching the real store
	stored.StartTime = exec.StartTime
	stored.EndTime = exec.EndTime
	stored.Context = exec.Context
	stored.UpdatedAt = time.Now()
	return nil
}

func (s *fakeStore) FinishExecution(ctx context.Context, tx *gorm.DB, exec *types.JobExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.execs[exec.ID]
	if !ok {
		return repos.ErrExecutionNotFound
	}
	if !stored.Status.IsRunning() {
		return nil
	}
	stored.Status = exec.Status
	stored.ExitCode = exec.ExitCode
	stored.ExitDescription = exec.ExitDescription
	stored.StartTime = exec.StartTime
	stored.EndTime = exec.EndTime
	stored.Context = exec.Context
	stored.UpdatedAt = time.Now()
	return nil
}

func (s *fakeStore) MarkStatusIf(ctx context.Context, tx *gorm.DB, id int64, from []types.BatchStatus, to types.BatchStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.execs[id]
	if !ok {
		return false, nil
	}
	for _, status := range from {
		if stored.Status == status {
			stored.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) GetExecution(ctx context.Context, tx *gorm.DB, id int64) (*types.JobExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.execs[id]
	if !ok {
		return nil, repos.ErrExecutionNotFound
	}
	copied := *stored
	return &copied, nil
}

func (s *fakeStore) ExecutionStatus(ctx context.Context, tx *gorm.DB, id int64) (types.BatchStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.execs[id]
	if !ok {
		return "", repos.ErrExecutionNotFound
	}
	return stored.Status, nil
}

func (s *fakeStore) CreateStepExecution(ctx context.Context, tx *gorm.DB, execID int64, stepName string, status types.BatchStatus) (*types.StepExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextStep++
	now := time.Now()
	step := &types.StepExecution{
		ID:             s.nextStep,
		JobExecutionID: execID,
		StepName:       stepName,
		Status:         status,
		ExitCode:       types.ExitUnknown,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if status == types.StatusStarted {
		step.StartTime = &now
	}
	s.steps[step.ID] = step
	copied := *step
	return &copied, nil
}

func (s *fakeStore) UpdateStepExecution(ctx context.Context, tx *gorm.DB, step *types.StepExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.steps[step.ID]
	if !ok {
		return fmt.Errorf("step %d not found", step.ID)
	}
	*stored = *step
	stored.UpdatedAt = time.Now()
	return nil
}

func (s *fakeStore) StepExecutions(ctx context.Context, tx *gorm.DB, execID int64) ([]*types.StepExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.StepExecution
	for id := int64(1); id <= s.nextStep; id++ {
		step, ok := s.steps[id]
		if ok && step.JobExecutionID == execID {
			copied := *step
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *fakeStore) RecentInstances(ctx context.Context, tx *gorm.DB, jobName string, page, size int) ([]*types.JobInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.JobInstance
	for id := s.nextInstance; id >= 1; id-- {
		instance, ok := s.instances[id]
		if ok && instance.JobName == jobName {
			copied := *instance
			out = append(out, &copied)
		}
		if len(out) >= size {
			break
		}
	}
	return out, nil
}

func (s *fakeStore) ExecutionsForInstance(ctx context.Context, tx *gorm.DB, instanceID int64) ([]*types.JobExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.JobExecution
	for id := s.nextExec; id >= 1; id-- {
		exec, ok := s.execs[id]
		if ok && exec.JobInstanceID == instanceID {
			copied := *exec
			out = append(out, &copied)
		}
	}
	return out, nil
}

// fakePublisher records event order.
type fakePublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *fakePublisher) record(event string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *fakePublisher) recorded() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	copy(out, p.events)
	return out
}

func (p *fakePublisher) JobStarted(ctx context.Context, exec *types.JobExecution, steps []*types.StepExecution) {
	p.record("JOB_STARTED")
}

func (p *fakePublisher) StepCompleted(ctx context.Context, exec *types.JobExecution, steps []*types.StepExecution, stepName string, progress int) {
	p.record(fmt.Sprintf("STEP_COMPLETED:%s:%d", stepName, progress))
}

func (p *fakePublisher) JobCompleted(ctx context.Context, exec *types.JobExecution, steps []*types.StepExecution) {
	p.record("JOB_COMPLETED")
}

func (p *fakePublisher) JobFailed(ctx context.Context, exec *types.JobExecution, steps []*types.StepExecution) {
	p.record("JOB_FAILED")
}

func (p *fakePublisher) JobStopped(ctx context.Context, exec *types.JobExecution, steps []*types.StepExecution) {
	p.record("JOB_STOPPED")
}

func (p *fakePublisher) Close() error { return nil }
