package marketplace

import (
	"fmt"
	"strings"
	"time"
)

// DefaultEmergingThreshold is the review count below which a contractor is
// treated as emerging.
const DefaultEmergingThreshold = 5

const MaxServiceZips = 5

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

func ParseVerificationStatus(s string) (VerificationStatus, error) {
	st := VerificationStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case VerificationPending, VerificationVerified, VerificationRejected:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidVerification, s)
}

type Contractor struct {
	ID                 string             `json:"id" yaml:"id"`
	UserID             string             `json:"user_id" yaml:"user_id"`
	FullName           string             `json:"full_name" yaml:"full_name"`
	Bio                string             `json:"bio,omitempty" yaml:"bio,omitempty"`
	PrimaryTrade       string             `json:"primary_trade" yaml:"primary_trade"`
	TradeTypes         []string           `json:"trade_types" yaml:"trade_types"`
	ServiceZips        []string           `json:"service_zip_codes" yaml:"service_zip_codes"`
	Verification       VerificationStatus `json:"verification_status" yaml:"verification_status"`
	RatingAvg          *float64           `json:"rating_avg,omitempty" yaml:"rating_avg,omitempty"`
	RatingCount        int                `json:"rating_count" yaml:"rating_count"`
	TotalEarningsCents int64              `json:"total_earnings_cents" yaml:"total_earnings_cents"`
	CreatedAt          time.Time          `json:"created_at" yaml:"created_at"`
}

// IsEmerging is evaluated on every read, never stored.
func IsEmerging(c Contractor, threshold int) bool {
	if threshold <= 0 {
		threshold = DefaultEmergingThreshold
	}
	return c.RatingCount < threshold
}

func (c Contractor) HasTrade(trade string) bool {
	for _, t := range c.TradeTypes {
		if t == trade {
			return true
		}
	}
	return false
}

func (c Contractor) ServesZip(zip string) bool {
	for _, z := range c.ServiceZips {
		if z == zip {
			return true
		}
	}
	return false
}

// NormalizeTags trims, lowercases and dedupes tags, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// NextRatingAverage folds one more star value into a running average.
func NextRatingAverage(avg *float64, count int, stars int) (float64, int) {
	if avg == nil || count <= 0 {
		return float64(stars), 1
	}
	total := *avg*float64(count) + float64(stars)
	count++
	return total / float64(count), count
}

type Badge string

const (
	BadgeTopRated    Badge = "top_rated"
	BadgeVerified    Badge = "verified"
	BadgeNewPro      Badge = "new_pro"
	BadgeExperienced Badge = "experienced"
)

const (
	TopRatedMinCount = 10
	TopRatedMinAvg   = 4.5
)

// Badges lists the profile badges in display order. Exactly one of new_pro
// and experienced is always present.
func Badges(c Contractor) []Badge {
	out := make([]Badge, 0, 3)
	if c.RatingCount >= TopRatedMinCount && c.RatingAvg != nil && *c.RatingAvg >= TopRatedMinAvg {
		out = append(out, BadgeTopRated)
	}
	if c.Verification == VerificationVerified {
		out = append(out, BadgeVerified)
	}
	if IsEmerging(c, DefaultEmergingThreshold) {
		out = append(out, BadgeNewPro)
	} else {
		out = append(out, BadgeExperienced)
	}
	return out
}
