package model

import "time"

type Job struct {
	ID            string     `gorm:"column:id;type:varchar(36);primaryKey"`
	HomeownerID   string     `gorm:"column:homeowner_id;type:varchar(64);not null;index"`
	Category      string     `gorm:"column:category;type:varchar(40);not null;index:idx_jobs_category_zip,priority:1"`
	Title         string     `gorm:"column:title;type:text;not null"`
	Description   string     `gorm:"column:description;type:text;not null"`
	Zip           string     `gorm:"column:zip;type:varchar(10);not null;index:idx_jobs_category_zip,priority:2"`
	Address       string     `gorm:"column:address;type:text;not null;default:''"`
	Urgency       string     `gorm:"column:urgency;type:varchar(16);not null"`
	Status        string     `gorm:"column:status;type:varchar(16);not null;index"`
	PriceMinCents int64      `gorm:"column:price_min_cents;not null;default:0"`
	PriceMaxCents int64      `gorm:"column:price_max_cents;not null;default:0"`
	CreatedAt     time.Time  `gorm:"column:created_at;not null;index"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;not null"`
	CompletedAt   *time.Time `gorm:"column:completed_at;index"`
}

func (Job) TableName() string {
	return "jobs"
}
