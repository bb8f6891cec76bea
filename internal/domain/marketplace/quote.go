package marketplace

import (
	"fmt"
	"strings"
	"time"
)

type QuoteStatus string

const (
	QuotePending  QuoteStatus = "pending"
	QuoteAccepted QuoteStatus = "accepted"
	QuoteRejected QuoteStatus = "rejected"
)

func ParseQuoteStatus(s string) (QuoteStatus, error) {
	st := QuoteStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case QuotePending, QuoteAccepted, QuoteRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown quote status %q", s)
}

// MaxQuoteAmountCents keeps amount*bps inside int64 for any fee rate.
const MaxQuoteAmountCents int64 = 1_000_000_000_000

func ValidateQuoteAmount(cents int64) error {
	if cents <= 0 || cents > MaxQuoteAmountCents {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, cents)
	}
	return nil
}

type Quote struct {
	ID           string      `json:"id" yaml:"id"`
	JobID        string      `json:"job_id" yaml:"job_id"`
	ContractorID string      `json:"contractor_id" yaml:"contractor_id"`
	AmountCents  int64       `json:"amount_cents" yaml:"amount_cents"`
	Availability string      `json:"availability,omitempty" yaml:"availability,omitempty"`
	Message      string      `json:"message,omitempty" yaml:"message,omitempty"`
	Status       QuoteStatus `json:"status" yaml:"status"`
	CreatedAt    time.Time   `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" yaml:"updated_at"`
}

// Match is one "matched for you" slot. Slot 1 is shown first.
type Match struct {
	ID           string    `json:"id" yaml:"id"`
	JobID        string    `json:"job_id" yaml:"job_id"`
	ContractorID string    `json:"contractor_id" yaml:"contractor_id"`
	Slot         int       `json:"slot" yaml:"slot"`
	Reason       string    `json:"reason" yaml:"reason"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
}

type MatchOutcome string

const (
	MatchOutcomeAccepted MatchOutcome = "accepted"
	MatchOutcomeSkipped  MatchOutcome = "skipped"
	MatchOutcomeFailed   MatchOutcome = "failed"
)

// MatchRun audits one matching attempt for a job.
type MatchRun struct {
	ID             string         `json:"id" yaml:"id"`
	JobID          string         `json:"job_id" yaml:"job_id"`
	Outcome        MatchOutcome   `json:"outcome" yaml:"outcome"`
	Reason         string         `json:"reason,omitempty" yaml:"reason,omitempty"`
	CandidateCount int            `json:"candidate_count" yaml:"candidate_count"`
	Trace          map[string]any `json:"trace,omitempty" yaml:"trace,omitempty"`
	CreatedAt      time.Time      `json:"created_at" yaml:"created_at"`
}

// Event names published after a committed change.
const (
	EventQuoteSubmitted = "quote.submitted"
	EventQuoteAccepted  = "quote.accepted"
	EventJobCompleted   = "job.completed"
	EventMatchCreated   = "match.created"
	EventJobCancelled   = "job.cancelled"
)

type Event struct {
	Name       string         `json:"name"`
	JobID      string         `json:"job_id"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}
