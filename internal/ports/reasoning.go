package ports

import (
	"context"
	"errors"
)

var ErrCompleterNotConfigured = errors.New("completer not configured")

type CompletionRequest struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Completer sends one prompt to an external language model and returns the
// raw text answer.
type Completer interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

type RankCandidate struct {
	ContractorID string
	FullName     string
	Trades       []string
	RatingAvg    *float64
	RatingCount  int
	Bio          string
	Emerging     bool
}

type RankRequest struct {
	JobID       string
	Category    string
	Description string
	Urgency     string
	Zip         string
	Picks       int
	Candidates  []RankCandidate
}

type RankedPick struct {
	ContractorID string
	Reason       string
}

type RankResult struct {
	Picks []RankedPick
	// Trace carries diagnostic material (prompt, raw response) for auditing.
	Trace map[string]any
}

// MatchReasoner ranks candidates for a job.
type MatchReasoner interface {
	Rank(ctx context.Context, req RankRequest) (RankResult, error)
}
