package types

import "time"

type TimesheetStatus string

const (
	TimesheetSubmitted TimesheetStatus = "SUBMITTED"
	TimesheetApproved  TimesheetStatus = "APPROVED"
	TimesheetProcessed TimesheetStatus = "PROCESSED"
	TimesheetPaid      TimesheetStatus = "PAID"
	TimesheetRejected  TimesheetStatus = "REJECTED"
)

type Timesheet struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ProviderID    string          `gorm:"column:provider_id;not null;index" json:"provider_id"`
	RecipientID   string          `gorm:"column:recipient_id;not null;index" json:"recipient_id"`
	County        string          `gorm:"column:county;not null;index" json:"county"`
	PayPeriod     string          `gorm:"column:pay_period;not null" json:"pay_period"`
	HoursWorked   float64         `gorm:"column:hours_worked;not null;default:0" json:"hours_worked"`
	HourlyRate    float64         `gorm:"column:hourly_rate;not null;default:0" json:"hourly_rate"`
	Amount        float64         `gorm:"column:amount;not null;default:0" json:"amount"`
	Status        TimesheetStatus `gorm:"column:status;not null;index" json:"status"`
	FileReference string          `gorm:"column:file_reference" json:"file_reference,omitempty"`
	ProcessedAt   *time.Time      `gorm:"column:processed_at" json:"processed_at,omitempty"`
	CreatedAt     time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null" json:"updated_at"`
}

func (Timesheet) TableName() string { return "timesheet" }

type WarrantStatus string

const (
	WarrantIssued WarrantStatus = "ISSUED"
	WarrantPaid   WarrantStatus = "PAID"
	WarrantVoided WarrantStatus = "VOIDED"
	WarrantStale  WarrantStatus = "STALE"
)

// Warrant mirrors the paid-warrant feed from the treasury file gateway.
type Warrant struct {
	ID            int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	WarrantNumber string        `gorm:"column:warrant_number;not null;uniqueIndex" json:"warrant_number"`
	ProviderID    string        `gorm:"column:provider_id;index" json:"provider_id"`
	County        string        `gorm:"column:county;index" json:"county"`
	Amount        float64       `gorm:"column:amount;not null;default:0" json:"amount"`
	Status        WarrantStatus `gorm:"column:status;not null;index" json:"status"`
	IssueDate     *time.Time    `gorm:"column:issue_date" json:"issue_date,omitempty"`
	PaidDate      *time.Time    `gorm:"column:paid_date" json:"paid_date,omitempty"`
	CreatedAt     time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"not null" json:"updated_at"`
}

func (Warrant) TableName() string { return "warrant" }
