package repos

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/batchcore-backend/internal/logger"
	"github.com/yungbote/batchcore-backend/internal/types"
)

var ErrExecutionNotFound = errors.New("job execution not found")

type ExecutionRepo interface {
	FindOrCreateInstance(ctx context.Context, tx *gorm.DB, jobName, jobKey string) (*types.JobInstance, error)
	CreateExecution(ctx context.Context, tx *gorm.DB, instance *types.JobInstance, params datatypes.JSON) (*types.JobExecution, error)
	UpdateExecutionProgress(ctx context.Context, tx *gorm.DB, exec *types.JobExecution) error
	FinishExecution(ctx context.Context, tx *gorm.DB, exec *types.JobExecution) error
	MarkStatusIf(ctx context.Context, tx *gorm.DB, id int64, from []types.BatchStatus, to types.BatchStatus) (bool, error)
	GetExecution(ctx context.Context, tx *gorm.DB, id int64) (*types.JobExecution, error)
	ExecutionStatus(ctx context.Context, tx *gorm.DB, id int64) (types.BatchStatus, error)
	CreateStepExecution(ctx context.Context, tx *gorm.DB, execID int64, stepName string, status types.BatchStatus) (*types.StepExecution, error)
	UpdateStepExecution(ctx context.Context, tx *gorm.DB, step *types.StepExecution) error
	StepExecutions(ctx context.Context, tx *gorm.DB, execID int64) ([]*types.StepExecution, error)
	RecentInstances(ctx context.Context, tx *gorm.DB, jobName string, page, size int) ([]*types.JobInstance, error)
	ExecutionsForInstance(ctx context.Context, tx *gorm.DB, instanceID int64) ([]*types.JobExecution, error)
}

type executionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExecutionRepo(db *gorm.DB, baseLog *logger.Logger) ExecutionRepo {
	return &executionRepo{
		db:  db,
		log: baseLog.With("repo", "ExecutionRepo"),
	}
}

// FindOrCreateInstance is only called while the caller holds the metadata
// lock, so the select-then-insert is not racy.
func (r *executionRepo) FindOrCreateInstance(ctx context.Context, tx *gorm.DB, jobName, jobKey string) (*types.JobInstance, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var instance types.JobInstance
	err := transaction.WithContext(ctx).
		Where("job_name = ? AND job_key = ?", jobName, jobKey).
		Order("created_at DESC").
		Limit(1).
		Find(&instance).Error
	if err != nil {
		return nil, err
	}
	if instance.ID != 0 {
		return &instance, nil
	}
	instance = types.JobInstance{
		JobName:   jobName,
		JobKey:    jobKey,
		CreatedAt: time.Now(),
	}
	if err := transaction.WithContext(ctx).Create(&instance).Error; err != nil {
		return nil, err
	}
	return &instance, nil
}

func (r *executionRepo) CreateExecution(ctx context.Context, tx *gorm.DB, instance *types.JobInstance, params datatypes.JSON) (*types.JobExecution, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	exec := &types.JobExecution{
		JobInstanceID: instance.ID,
		JobName:       instance.JobName,
		Status:        types.StatusStarting,
		ExitCode:      types.ExitUnknown,
		Parameters:    params,
		Context:       datatypes.JSON([]byte(`{}`)),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := transaction.WithContext(ctx).Create(exec).Error; err != nil {
		return nil, err
	}
	return exec, nil
}

// UpdateExecutionProgress persists the execution context and timing. It never
// touches status, so a concurrent STOPPING transition survives a mid-pipeline
// persist. Status moves only through MarkStatusIf and FinishExecution.
func (r *executionRepo) UpdateExecutionProgress(ctx context.Context, tx *gorm.DB, exec *types.JobExecution) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	exec.UpdatedAt = time.Now()
	return transaction.WithContext(ctx).
		Model(&types.JobExecution{}).
		Where("id = ?", exec.ID).
		Updates(map[string]interface{}{
			"start_time": exec.StartTime,
			"end_time":   exec.EndTime,
			"context":    exec.Context,
			"updated_at": exec.UpdatedAt,
		}).Error
}

// FinishExecution writes the terminal status, exit code and description. The
// running-status guard keeps terminal rows terminal.
func (r *executionRepo) FinishExecution(ctx context.Context, tx *gorm.DB, exec *types.JobExecution) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	exec.UpdatedAt = time.Now()
	return transaction.WithContext(ctx).
		Model(&types.JobExecution{}).
		Where("id = ? AND status IN ?", exec.ID, types.RunningStatuses).
		Updates(map[string]interface{}{
			"status":           exec.Status,
			"exit_code":        exec.ExitCode,
			"exit_description": exec.ExitDescription,
			"start_time":       exec.StartTime,
			"end_time":         exec.EndTime,
			"context":          exec.Context,
			"updated_at":       exec.UpdatedAt,
		}).Error
}

// MarkStatusIf transitions id from any of the given statuses to the target
// and reports whether a row actually changed. Terminal states stay terminal.
func (r *executionRepo) MarkStatusIf(ctx context.Context, tx *gorm.DB, id int64, from []types.BatchStatus, to types.BatchStatus) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.JobExecution{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *executionRepo) GetExecution(ctx context.Context, tx *gorm.DB, id int64) (*types.JobExecution, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var exec types.JobExecution
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&exec).Error
	if err != nil {
		return nil, err
	}
	if exec.ID == 0 {
		return nil, ErrExecutionNotFound
	}
	return &exec, nil
}

func (r *executionRepo) ExecutionStatus(ctx context.Context, tx *gorm.DB, id int64) (types.BatchStatus, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row struct {
		Status types.BatchStatus
	}
	err := transaction.WithContext(ctx).
		Model(&types.JobExecution{}).
		Select("status").
		Where("id = ?", id).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return "", err
	}
	if row.Status == "" {
		return "", ErrExecutionNotFound
	}
	return row.Status, nil
}

func (r *executionRepo) CreateStepExecution(ctx context.Context, tx *gorm.DB, execID int64, stepName string, status types.BatchStatus) (*types.StepExecution, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	step := &types.StepExecution{
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
	if err := transaction.WithContext(ctx).Create(step).Error; err != nil {
		return nil, err
	}
	return step, nil
}

func (r *executionRepo) UpdateStepExecution(ctx context.Context, tx *gorm.DB, step *types.StepExecution) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	step.UpdatedAt = time.Now()
	return transaction.WithContext(ctx).
		Model(&types.StepExecution{}).
		Where("id = ?", step.ID).
		Updates(map[string]interface{}{
			"status":           step.Status,
			"exit_code":        step.ExitCode,
			"exit_description": step.ExitDescription,
			"read_count":       step.ReadCount,
			"write_count":      step.WriteCount,
			"skip_count":       step.SkipCount,
			"start_time":       step.StartTime,
			"end_time":         step.EndTime,
			"updated_at":       step.UpdatedAt,
		}).Error
}

func (r *executionRepo) StepExecutions(ctx context.Context, tx *gorm.DB, execID int64) ([]*types.StepExecution, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.StepExecution
	if err := transaction.WithContext(ctx).
		Where("job_execution_id = ?", execID).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *executionRepo) RecentInstances(ctx context.Context, tx *gorm.DB, jobName string, page, size int) ([]*types.JobInstance, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if size <= 0 {
		size = 100
	}
	var out []*types.JobInstance
	if err := transaction.WithContext(ctx).
		Where("job_name = ?", jobName).
		Order("created_at DESC").
		Offset(page * size).
		Limit(size).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *executionRepo) ExecutionsForInstance(ctx context.Context, tx *gorm.DB, instanceID int64) ([]*types.JobExecution, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.JobExecution
	if err := transaction.WithContext(ctx).
		Where("job_instance_id = ?", instanceID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
