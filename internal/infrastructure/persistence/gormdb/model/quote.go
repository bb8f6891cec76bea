package model

import "time"

type Quote struct {
	ID           string    `gorm:"column:id;type:varchar(36);primaryKey"`
	JobID        string    `gorm:"column:job_id;type:varchar(36);not null;uniqueIndex:idx_quotes_job_contractor,priority:1;index:idx_quotes_one_accepted,unique,where:status = 'accepted'"`
	ContractorID string    `gorm:"column:contractor_id;type:varchar(36);not null;uniqueIndex:idx_quotes_job_contractor,priority:2;index"`
	AmountCents  int64     `gorm:"column:amount_cents;not null"`
	Availability string    `gorm:"column:availability;type:text;not null;default:''"`
	Message      string    `gorm:"column:message;type:text;not null;default:''"`
	Status       string    `gorm:"column:status;type:varchar(16);not null;index"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null"`
}

func (Quote) TableName() string {
	return "quotes"
}
