// Package marketplace holds the entities and rules of the job/quote
// marketplace.
//
// Job status graph:
//
//	open ──► matched ──► active ──► completed
//	  │         ├──────────────────────▲
//	  │         ▼
//	  └────► cancelled
//
// completed and cancelled are terminal.
package marketplace

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

type JobStatus string

const (
	JobOpen      JobStatus = "open"
	JobMatched   JobStatus = "matched"
	JobActive    JobStatus = "active"
	JobCompleted JobStatus = "completed"
	JobCancelled JobStatus = "cancelled"
)

var jobTransitions = map[JobStatus][]JobStatus{
	JobOpen:    {JobMatched, JobCancelled},
	JobMatched: {JobActive, JobCompleted, JobCancelled},
	JobActive:  {JobCompleted},
}

func ParseJobStatus(s string) (JobStatus, error) {
	st := JobStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case JobOpen, JobMatched, JobActive, JobCompleted, JobCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown job status %q", s)
}

// CanTransition reports whether from → to is an edge of the job graph.
func CanTransition(from, to JobStatus) bool {
	for _, s := range jobTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobCancelled
}

type Urgency string

const (
	UrgencyASAP     Urgency = "asap"
	UrgencyThisWeek Urgency = "this_week"
	UrgencyFlexible Urgency = "flexible"
)

func ParseUrgency(s string) (Urgency, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	switch Urgency(normalized) {
	case UrgencyASAP, UrgencyThisWeek, UrgencyFlexible:
		return Urgency(normalized), nil
	case "thisweek":
		return UrgencyThisWeek, nil
	case "":
		return UrgencyFlexible, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidUrgency, s)
}

type Job struct {
	ID            string     `json:"id" yaml:"id"`
	HomeownerID   string     `json:"homeowner_id" yaml:"homeowner_id"`
	Category      string     `json:"category" yaml:"category"`
	Title         string     `json:"title" yaml:"title"`
	Description   string     `json:"description" yaml:"description"`
	Zip           string     `json:"zip" yaml:"zip"`
	Address       string     `json:"address,omitempty" yaml:"address,omitempty"`
	Urgency       Urgency    `json:"urgency" yaml:"urgency"`
	Status        JobStatus  `json:"status" yaml:"status"`
	PriceMinCents int64      `json:"price_min_cents" yaml:"price_min_cents"`
	PriceMaxCents int64      `json:"price_max_cents" yaml:"price_max_cents"`
	CreatedAt     time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" yaml:"updated_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

var zipPattern = regexp.MustCompile(`^[0-9]{5}$`)

func ValidZip(zip string) bool {
	return zipPattern.MatchString(zip)
}

func ValidatePriceRange(minCents, maxCents int64) error {
	if minCents < 0 || maxCents < 0 || minCents > maxCents {
		return fmt.Errorf("%w: min=%d max=%d", ErrInvalidPriceRange, minCents, maxCents)
	}
	return nil
}
