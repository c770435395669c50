package repos

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/batchcore-backend/internal/logger"
	"github.com/yungbote/batchcore-backend/internal/types"
)

type WarrantRepo interface {
	GetByNumber(ctx context.Context, tx *gorm.DB, warrantNumber string) (*types.Warrant, error)
	Upsert(ctx context.Context, tx *gorm.DB, warrants []*types.Warrant) error
	CountByStatus(ctx context.Context, tx *gorm.DB, status types.WarrantStatus) (int64, error)
	CountByCountySince(ctx context.Context, tx *gorm.DB, county string, since time.Time) (int64, error)
}

type warrantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWarrantRepo(db *gorm.DB, baseLog *logger.Logger) WarrantRepo {
	return &warrantRepo{
		db:  db,
		log: baseLog.With("repo", "WarrantRepo"),
	}
}

func (r *warrantRepo) GetByNumber(ctx context.Context, tx *gorm.DB, warrantNumber string) (*types.Warrant, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if warrantNumber == "" {
		return nil, nil
	}
	var row types.Warrant
	err := transaction.WithContext(ctx).
		Where("warrant_number = ?", warrantNumber).
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

// Upsert keys on warrant_number; a re-imported warrant overwrites status,
// amount and paid date.
func (r *warrantRepo) Upsert(ctx context.Context, tx *gorm.DB, warrants []*types.Warrant) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(warrants) == 0 {
		return nil
	}
	now := time.Now()
	for _, w := range warrants {
		w.CreatedAt = now
		w.UpdatedAt = now
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "warrant_number"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "amount", "paid_date", "updated_at",
			}),
		}).
		Create(&warrants).Error
}

func (r *warrantRepo) CountByStatus(ctx context.Context, tx *gorm.DB, status types.WarrantStatus) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	err := transaction.WithContext(ctx).
		Model(&types.Warrant{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}

func (r *warrantRepo) CountByCountySince(ctx context.Context, tx *gorm.DB, county string, since time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	err := transaction.WithContext(ctx).
		Model(&types.Warrant{}).
		Where("county = ? AND updated_at >= ?", county, since).
		Count(&count).Error
	return count, err
}
