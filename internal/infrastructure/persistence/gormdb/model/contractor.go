package model

import "time"

type Contractor struct {
	ID                 string    `gorm:"column:id;type:varchar(36);primaryKey"`
	UserID             string    `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex"`
	FullName           string    `gorm:"column:full_name;type:text;not null"`
	Bio                string    `gorm:"column:bio;type:text;not null;default:''"`
	PrimaryTrade       string    `gorm:"column:primary_trade;type:varchar(40);not null"`
	Verification       string    `gorm:"column:verification_status;type:varchar(16);not null;default:'pending'"`
	RatingAvg          *float64  `gorm:"column:rating_avg"`
	RatingCount        int       `gorm:"column:rating_count;not null;default:0"`
	TotalEarningsCents int64     `gorm:"column:total_earnings_cents;not null;default:0"`
	CreatedAt          time.Time `gorm:"column:created_at;not null;index"`
	UpdatedAt          time.Time `gorm:"column:updated_at;not null"`
}

func (Contractor) TableName() string {
	return "contractors"
}

type ContractorTrade struct {
	ContractorID string `gorm:"column:contractor_id;type:varchar(36);not null;primaryKey"`
	Trade        string `gorm:"column:trade;type:varchar(40);not null;primaryKey;index"`
	Position     int    `gorm:"column:position;not null;default:0"`
}

func (ContractorTrade) TableName() string {
	return "contractor_trades"
}

type ContractorZip struct {
	ContractorID string `gorm:"column:contractor_id;type:varchar(36);not null;primaryKey"`
	Zip          string `gorm:"column:zip;type:varchar(10);not null;primaryKey;index"`
	Position     int    `gorm:"column:position;not null;default:0"`
}

func (ContractorZip) TableName() string {
	return "contractor_zips"
}
