package types

import "time"

const (
	AggregationByDepartment             = "BY_DEPARTMENT"
	AggregationByRegion                 = "BY_REGION"
	AggregationByStatus                 = "BY_STATUS"
	AggregationByDepartmentRegion       = "BY_DEPARTMENT_REGION"
	AggregationByDepartmentRegionStatus = "BY_DEPARTMENT_REGION_STATUS"
)

// Aggregation is one accumulated group for one execution. Rows are written by
// ON CONFLICT upserts, so a group flushed multiple times converges to the
// same sums a single pass would produce.
type Aggregation struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	JobExecutionID  int64     `gorm:"column:job_execution_id;not null;uniqueIndex:uq_batch_aggregation_group,priority:1" json:"job_execution_id"`
	AggregationType string    `gorm:"column:aggregation_type;not null;uniqueIndex:uq_batch_aggregation_group,priority:2" json:"aggregation_type"`
	GroupKey        string    `gorm:"column:group_key;not null;uniqueIndex:uq_batch_aggregation_group,priority:3" json:"group_key"`
	RecordCount     int64     `gorm:"column:record_count;not null;default:0" json:"record_count"`
	TotalSalary     float64   `gorm:"column:total_salary;not null;default:0" json:"total_salary"`
	TotalHours      float64   `gorm:"column:total_hours;not null;default:0" json:"total_hours"`
	TotalBonus      float64   `gorm:"column:total_bonus;not null;default:0" json:"total_bonus"`
	MinSalary       float64   `gorm:"column:min_salary;not null;default:0" json:"min_salary"`
	MaxSalary       float64   `gorm:"column:max_salary;not null;default:0" json:"max_salary"`
	CreatedAt       time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null" json:"updated_at"`
}

func (Aggregation) TableName() string { return "batch_aggregation" }
