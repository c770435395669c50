package types

import (
	"time"

	"gorm.io/datatypes"
)

type BatchStatus string

const (
	StatusStarting  BatchStatus = "STARTING"
	StatusStarted   BatchStatus = "STARTED"
	StatusStopping  BatchStatus = "STOPPING"
	StatusStopped   BatchStatus = "STOPPED"
	StatusCompleted BatchStatus = "COMPLETED"
	StatusFailed    BatchStatus = "FAILED"
	StatusAbandoned BatchStatus = "ABANDONED"
)

// RunningStatuses are the states a stop request can act on.
var RunningStatuses = []BatchStatus{StatusStarting, StatusStarted, StatusStopping}

func (s BatchStatus) IsRunning() bool {
	return s == StatusStarting || s == StatusStarted || s == StatusStopping
}

func (s BatchStatus) IsTerminal() bool {
	switch s {
	case StatusStopped, StatusCompleted, StatusFailed, StatusAbandoned:
		return true
	}
	return false
}

type ExitCode string

const (
	ExitCompleted ExitCode = "COMPLETED"
	ExitFailed    ExitCode = "FAILED"
	ExitStopped   ExitCode = "STOPPED"
	ExitUnknown   ExitCode = "UNKNOWN"
)

// JobInstance is one logical run identity: a job name plus the hash of its
// identifying parameters. Trigger id and timestamp are identifying, so every
// trigger creates a fresh instance.
type JobInstance struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	JobName   string    `gorm:"column:job_name;not null;index:idx_job_instance_name" json:"job_name"`
	JobKey    string    `gorm:"column:job_key;not null" json:"job_key"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (JobInstance) TableName() string { return "batch_job_instance" }

type JobExecution struct {
	ID              int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	JobInstanceID   int64          `gorm:"column:job_instance_id;not null;index" json:"job_instance_id"`
	JobName         string         `gorm:"column:job_name;not null;index" json:"job_name"`
	Status          BatchStatus    `gorm:"column:status;not null;index" json:"status"`
	ExitCode        ExitCode       `gorm:"column:exit_code;not null" json:"exit_code"`
	ExitDescription string         `gorm:"column:exit_description" json:"exit_description,omitempty"`
	StartTime       *time.Time     `gorm:"column:start_time" json:"start_time,omitempty"`
	EndTime         *time.Time     `gorm:"column:end_time" json:"end_time,omitempty"`
	Parameters      datatypes.JSON `gorm:"column:parameters;type:jsonb" json:"parameters"`
	Context         datatypes.JSON `gorm:"column:context;type:jsonb" json:"context"`
	CreatedAt       time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
}

func (JobExecution) TableName() string { return "batch_job_execution" }

type StepExecution struct {
	ID              int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	JobExecutionID  int64       `gorm:"column:job_execution_id;not null;index" json:"job_execution_id"`
	StepName        string      `gorm:"column:step_name;not null" json:"step_name"`
	Status          BatchStatus `gorm:"column:status;not null" json:"status"`
	ExitCode        ExitCode    `gorm:"column:exit_code;not null" json:"exit_code"`
	ExitDescription string      `gorm:"column:exit_description" json:"exit_description,omitempty"`
	ReadCount       int64       `gorm:"column:read_count;not null;default:0" json:"read_count"`
	WriteCount      int64       `gorm:"column:write_count;not null;default:0" json:"write_count"`
	SkipCount       int64       `gorm:"column:skip_count;not null;default:0" json:"skip_count"`
	StartTime       *time.Time  `gorm:"column:start_time" json:"start_time,omitempty"`
	EndTime         *time.Time  `gorm:"column:end_time" json:"end_time,omitempty"`
	CreatedAt       time.Time   `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time   `gorm:"not null" json:"updated_at"`
}

func (StepExecution) TableName() string { return "batch_step_execution" }
