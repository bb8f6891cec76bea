package model

import "time"

type Rating struct {
	ID                      string    `gorm:"column:id;type:varchar(36);primaryKey"`
	JobID                   string    `gorm:"column:job_id;type:varchar(36);not null;uniqueIndex:idx_ratings_job_role,priority:1"`
	RaterRole               string    `gorm:"column:rater_role;type:varchar(16);not null;uniqueIndex:idx_ratings_job_role,priority:2"`
	HomeownerID             string    `gorm:"column:homeowner_id;type:varchar(64);not null;index"`
	ContractorID            string    `gorm:"column:contractor_id;type:varchar(36);not null;index"`
	Stars                   int       `gorm:"column:stars;not null"`
	OnTime                  *bool     `gorm:"column:on_time"`
	PriceAccurate           *bool     `gorm:"column:price_accurate"`
	WouldHireAgain          *bool     `gorm:"column:would_hire_again"`
	ClearInstructions       *bool     `gorm:"column:clear_instructions"`
	PaymentSmooth           *bool     `gorm:"column:payment_smooth"`
	ProfessionalInteraction *bool     `gorm:"column:professional_interaction"`
	Comment                 string    `gorm:"column:comment;type:text;not null;default:''"`
	CreatedAt               time.Time `gorm:"column:created_at;not null"`
}

func (Rating) TableName() string {
	return "ratings"
}
