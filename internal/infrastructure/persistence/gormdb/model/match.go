package model

import (
	"time"

	"gorm.io/datatypes"
)

type Match struct {
	ID           string    `gorm:"column:id;type:varchar(36);primaryKey"`
	JobID        string    `gorm:"column:job_id;type:varchar(36);not null;uniqueIndex:idx_matches_job_slot,priority:1;uniqueIndex:idx_matches_job_contractor,priority:1"`
	ContractorID string    `gorm:"column:contractor_id;type:varchar(36);not null;uniqueIndex:idx_matches_job_contractor,priority:2;index"`
	Slot         int       `gorm:"column:slot;not null;uniqueIndex:idx_matches_job_slot,priority:2"`
	Reason       string    `gorm:"column:reason;type:text;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
}

func (Match) TableName() string {
	return "matches"
}

type MatchRun struct {
	ID             string            `gorm:"column:id;type:varchar(36);primaryKey"`
	JobID          string            `gorm:"column:job_id;type:varchar(36);not null;index"`
	Outcome        string            `gorm:"column:outcome;type:varchar(16);not null"`
	Reason         string            `gorm:"column:reason;type:text;not null;default:''"`
	CandidateCount int               `gorm:"column:candidate_count;not null;default:0"`
	Trace          datatypes.JSONMap `gorm:"column:trace"`
	CreatedAt      time.Time         `gorm:"column:created_at;not null;index"`
}

func (MatchRun) TableName() string {
	return "match_runs"
}
