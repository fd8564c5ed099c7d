package models

import "time"

const (
	EMAIL_TRIGGER_INGEST    = "ingest"
	EMAIL_TRIGGER_EXISTING  = "existing"
	EMAIL_TRIGGER_SWEEP     = "sweep"
	EMAIL_TRIGGER_CRON      = "cron"
	EMAIL_TRIGGER_SCHEDULER = "scheduler"
	EMAIL_TRIGGER_MANUAL    = "manual"
)

// EmailAttempt is an append-only log row written for every confirmation
// email send, automatic or manual. Orders only keep the latest error.
type EmailAttempt struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	OrderID    uint       `gorm:"not null;index" json:"orderId"`
	Reference  string     `gorm:"type:varchar(100);not null;index" json:"reference"`
	Attempt    int        `gorm:"not null;default:0" json:"attempt"` // counter value after the claim, 0 for manual resends
	Trigger    string     `gorm:"type:varchar(20);not null" json:"trigger"`
	Recipient  string     `gorm:"type:varchar(200)" json:"recipient"`
	Success    bool       `gorm:"not null;default:false" json:"success"`
	Error      string     `gorm:"type:text" json:"error,omitempty"`
	StartedAt  time.Time  `gorm:"not null" json:"startedAt"`
	FinishedAt *time.Time `gorm:"type:timestamp;default:null" json:"finishedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}
