package repos

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/batchcore-backend/internal/logger"
	"github.com/yungbote/batchcore-backend/internal/types"
)

type TimesheetRepo interface {
	ListByStatus(ctx context.Context, tx *gorm.DB, status types.TimesheetStatus, limit int) ([]*types.Timesheet, error)
	MarkProcessed(ctx context.Context, tx *gorm.DB, ids []int64, fileReference string) (int64, error)
	CountByCountyAndStatus(ctx context.Context, tx *gorm.DB, county string, status types.TimesheetStatus) (int64, error)
	SummaryByCounty(ctx context.Context, tx *gorm.DB, status types.TimesheetStatus) ([]CountySummary, error)
}

type CountySummary struct {
	County      string  `json:"county"`
	Timesheets  int64   `json:"timesheets"`
	TotalHours  float64 `json:"total_hours"`
	TotalAmount float64 `json:"total_amount"`
}

type timesheetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTimesheetRepo(db *gorm.DB, baseLog *logger.Logger) TimesheetRepo {
	return &timesheetRepo{
		db:  db,
		log: baseLog.With("repo", "TimesheetRepo"),
	}
}

func (r *timesheetRepo) ListByStatus(ctx context.Context, tx *gorm.DB, status types.TimesheetStatus, limit int) ([]*types.Timesheet, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).
		Where("status = ?", status).
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*types.Timesheet
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// MarkProcessed only touches rows still in APPROVED, so a concurrent rerun
// cannot double-dispatch a timesheet.
func (r *timesheetRepo) MarkProcessed(ctx context.Context, tx *gorm.DB, ids []int64, fileReference string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return 0, nil
	}
	now := time.Now()
	res := transaction.WithContext(ctx).
		Model(&types.Timesheet{}).
		Where("id IN ? AND status = ?", ids, types.TimesheetApproved).
		Updates(map[string]interface{}{
			"status":         types.TimesheetProcessed,
			"file_reference": fileReference,
			"processed_at":   now,
			"updated_at":     now,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *timesheetRepo) CountByCountyAndStatus(ctx context.Context, tx *gorm.DB, county string, status types.TimesheetStatus) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	err := transaction.WithContext(ctx).
		Model(&types.Timesheet{}).
		Where("county = ? AND status = ?", county, status).
		Count(&count).Error
	return count, err
}

func (r *timesheetRepo) SummaryByCounty(ctx context.Context, tx *gorm.DB, status types.TimesheetStatus) ([]CountySummary, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []CountySummary
	err := transaction.WithContext(ctx).
		Model(&types.Timesheet{}).
		Select("county, COUNT(*) AS timesheets, COALESCE(SUM(hours_worked), 0) AS total_hours, COALESCE(SUM(amount), 0) AS total_amount").
		Where("status = ?", status).
		Group("county").
		Order("county ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
