package matching

import (
	"homematch/internal/domain/marketplace"
	"homematch/internal/ports"
)

// FirstEmerging returns the id of the first pool member below the review
// threshold, or "" when every candidate is established.
func FirstEmerging(pool []marketplace.Contractor, threshold int) string {
	for _, c := range pool {
		if marketplace.IsEmerging(c, threshold) {
			return c.ID
		}
	}
	return ""
}

// SanitizePicks keeps picks that name a pool member, drops repeats, and
// caps the list at limit while preserving the reasoner's order.
func SanitizePicks(picks []ports.RankedPick, pool []marketplace.Contractor, limit int) []ports.RankedPick {
	inPool := make(map[string]struct{}, len(pool))
	for _, c := range pool {
		inPool[c.ID] = struct{}{}
	}

	out := make([]ports.RankedPick, 0, limit)
	seen := make(map[string]struct{}, limit)
	for _, p := range picks {
		if len(out) == limit {
			break
		}
		if _, ok := inPool[p.ContractorID]; !ok {
			continue
		}
		if _, ok := seen[p.ContractorID]; ok {
			continue
		}
		seen[p.ContractorID] = struct{}{}
		out = append(out, p)
	}
	return out
}

// EnforceEmergingSlot moves the emerging pick, if chosen, to the last slot.
// The relative order of the other picks is unchanged. When the emerging
// contractor was not picked the list is returned as is.
func EnforceEmergingSlot(picks []ports.RankedPick, emergingID string) []ports.RankedPick {
	out := make([]ports.RankedPick, 0, len(picks))
	var emerging *ports.RankedPick
	for i := range picks {
		if emergingID != "" && picks[i].ContractorID == emergingID && emerging == nil {
			p := picks[i]
			emerging = &p
			continue
		}
		out = append(out, picks[i])
	}
	if emerging != nil {
		out = append(out, *emerging)
	}
	return out
}

func rankCandidates(pool []marketplace.Contractor, emergingID string) []ports.RankCandidate {
	out := make([]ports.RankCandidate, 0, len(pool))
	for _, c := range pool {
		out = append(out, ports.RankCandidate{
			ContractorID: c.ID,
			FullName:     c.FullName,
			Trades:       c.TradeTypes,
			RatingAvg:    c.RatingAvg,
			RatingCount:  c.RatingCount,
			Bio:          c.Bio,
			Emerging:     c.ID == emergingID,
		})
	}
	return out
}
