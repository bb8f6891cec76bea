package matching

import (
	"context"

	"homematch/internal/domain/marketplace"
	"homematch/internal/errs"
	"homematch/internal/ports"
)

const (
	DefaultPoolSize = 10
	// minLocalCandidates triggers the trade-only widening when the local
	// pool is smaller.
	minLocalCandidates = 3
)

// CandidateSelector builds the ordered candidate pool for a job.
type CandidateSelector struct {
	contractors ports.ContractorRepository
	poolSize    int
}

func NewCandidateSelector(contractors ports.ContractorRepository, poolSize int) *CandidateSelector {
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	return &CandidateSelector{contractors: contractors, poolSize: poolSize}
}

// Select returns contractors serving the job's trade and zip first, then
// trade-only extras when fewer than three local ones exist. The result has
// no duplicates and at most poolSize entries. An empty pool is not an error.
func (s *CandidateSelector) Select(ctx context.Context, job marketplace.Job) ([]marketplace.Contractor, error) {
	local, err := s.contractors.ListContractorsByTradeAndZip(ctx, job.Category, job.Zip)
	if err != nil {
		return nil, errs.Wrap(err, "list contractors by trade and zip")
	}

	pool := make([]marketplace.Contractor, 0, len(local))
	seen := make(map[string]struct{}, len(local))
	for _, c := range local {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		pool = append(pool, c)
	}

	if len(pool) < minLocalCandidates {
		wider, err := s.contractors.ListContractorsByTrade(ctx, job.Category)
		if err != nil {
			return nil, errs.Wrap(err, "list contractors by trade")
		}
		for _, c := range wider {
			if _, ok := seen[c.ID]; ok {
				continue
			}
			seen[c.ID] = struct{}{}
			pool = append(pool, c)
		}
	}

	if len(pool) > s.poolSize {
		pool = pool[:s.poolSize]
	}
	return pool, nil
}
