package repos

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/batchcore-backend/internal/logger"
	"github.com/yungbote/batchcore-backend/internal/types"
)

type AggregationRepo interface {
	UpsertBatch(ctx context.Context, tx *gorm.DB, rows []*types.Aggregation) error
	GetByKey(ctx context.Context, tx *gorm.DB, execID int64, aggType, groupKey string) (*types.Aggregation, error)
	ListByType(ctx context.Context, tx *gorm.DB, execID int64, aggType string) ([]*types.Aggregation, error)
	CountDistinctGroups(ctx context.Context, tx *gorm.DB, execID int64, aggType string) (int64, error)
	TotalRecordCount(ctx context.Context, tx *gorm.DB, execID int64) (int64, error)
	DeleteByExecution(ctx context.Context, tx *gorm.DB, execID int64) error
}

type aggregationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAggregationRepo(db *gorm.DB, baseLog *logger.Logger) AggregationRepo {
	return &aggregationRepo{
		db:  db,
		log: baseLog.With("repo", "AggregationRepo"),
	}
}

// UpsertBatch accumulates into existing groups: counts and totals are added,
// min/max salary fold with LEAST/GREATEST. Flushing the same group twice
// therefore converges to the single-pass result.
func (r *aggregationRepo) UpsertBatch(ctx context.Context, tx *gorm.DB, rows []*types.Aggregation) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	now := time.Now()
	for _, row := range rows {
		row.CreatedAt = now
		row.UpdatedAt = now
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "job_execution_id"},
				{Name: "aggregation_type"},
				{Name: "group_key"},
			},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"record_count": gorm.Expr("batch_aggregation.record_count + EXCLUDED.record_count"),
				"total_salary": gorm.Expr("batch_aggregation.total_salary + EXCLUDED.total_salary"),
				"total_hours":  gorm.Expr("batch_aggregation.total_hours + EXCLUDED.total_hours"),
				"total_bonus":  gorm.Expr("batch_aggregation.total_bonus + EXCLUDED.total_bonus"),
				"min_salary":   gorm.Expr("LEAST(batch_aggregation.min_salary, EXCLUDED.min_salary)"),
				"max_salary":   gorm.Expr("GREATEST(batch_aggregation.max_salary, EXCLUDED.max_salary)"),
				"updated_at":   now,
			}),
		}).
		Create(&rows).Error
}

func (r *aggregationRepo) GetByKey(ctx context.Context, tx *gorm.DB, execID int64, aggType, groupKey string) (*types.Aggregation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.Aggregation
	err := transaction.WithContext(ctx).
		Where("job_execution_id = ? AND aggregation_type = ? AND group_key = ?", execID, aggType, groupKey).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *aggregationRepo) ListByType(ctx context.Context, tx *gorm.DB, execID int64, aggType string) ([]*types.Aggregation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Aggregation
	if err := transaction.WithContext(ctx).
		Where("job_execution_id = ? AND aggregation_type = ?", execID, aggType).
		Order("group_key ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *aggregationRepo) CountDistinctGroups(ctx context.Context, tx *gorm.DB, execID int64, aggType string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	err := transaction.WithContext(ctx).
		Model(&types.Aggregation{}).
		Where("job_execution_id = ? AND aggregation_type = ?", execID, aggType).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// TotalRecordCount sums record_count over the BY_DEPARTMENT rows, which
// together see every record exactly once.
func (r *aggregationRepo) TotalRecordCount(ctx context.Context, tx *gorm.DB, execID int64) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row struct {
		Total int64
	}
	err := transaction.WithContext(ctx).
		Model(&types.Aggregation{}).
		Select("COALESCE(SUM(record_count), 0) AS total").
		Where("job_execution_id = ? AND aggregation_type = ?", execID, types.AggregationByDepartment).
		Find(&row).Error
	if err != nil {
		return 0, err
	}
	return row.Total, nil
}

func (r *aggregationRepo) DeleteByExecution(ctx context.Context, tx *gorm.DB, execID int64) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("job_execution_id = ?", execID).
		Delete(&types.Aggregation{}).Error
}
