package marketplace

import (
	"errors"
	"testing"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to JobStatus
		want     bool
	}{
		{JobOpen, JobMatched, true},
		{JobOpen, JobCancelled, true},
		{JobOpen, JobActive, false},
		{JobOpen, JobCompleted, false},
		{JobMatched, JobActive, true},
		{JobMatched, JobCompleted, true},
		{JobMatched, JobCancelled, true},
		{JobMatched, JobOpen, false},
		{JobActive, JobCompleted, true},
		{JobActive, JobCancelled, false},
		{JobCompleted, JobOpen, false},
		{JobCompleted, JobCancelled, false},
		{JobCancelled, JobOpen, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
	if !JobCompleted.Terminal() || !JobCancelled.Terminal() || JobActive.Terminal() {
		t.Fatalf("Terminal() mismatch")
	}
}

func TestParseUrgency(t *testing.T) {
	for in, want := range map[string]Urgency{
		"ASAP":      UrgencyASAP,
		"This Week": UrgencyThisWeek,
		"this-week": UrgencyThisWeek,
		"ThisWeek":  UrgencyThisWeek,
		"flexible":  UrgencyFlexible,
		"":          UrgencyFlexible,
	} {
		got, err := ParseUrgency(in)
		if err != nil || got != want {
			t.Fatalf("ParseUrgency(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseUrgency("tomorrow"); !errors.Is(err, ErrInvalidUrgency) {
		t.Fatalf("ParseUrgency() error = %v", err)
	}
}

func TestValidZipAndPriceRange(t *testing.T) {
	if !ValidZip("94110") || ValidZip("9411") || ValidZip("94110-1234") || ValidZip("abcde") {
		t.Fatalf("ValidZip mismatch")
	}
	if err := ValidatePriceRange(0, 0); err != nil {
		t.Fatalf("ValidatePriceRange(0,0) error = %v", err)
	}
	if err := ValidatePriceRange(500, 100); !errors.Is(err, ErrInvalidPriceRange) {
		t.Fatalf("ValidatePriceRange() error = %v", err)
	}
	if err := ValidatePriceRange(-1, 100); !errors.Is(err, ErrInvalidPriceRange) {
		t.Fatalf("ValidatePriceRange() error = %v", err)
	}
}

func TestIsEmerging(t *testing.T) {
	if !IsEmerging(Contractor{RatingCount: 4}, 0) {
		t.Fatalf("4 reviews should be emerging")
	}
	if IsEmerging(Contractor{RatingCount: 5}, DefaultEmergingThreshold) {
		t.Fatalf("5 reviews should not be emerging")
	}
	if !IsEmerging(Contractor{RatingCount: 9}, 10) {
		t.Fatalf("custom threshold ignored")
	}
}

func TestBadges(t *testing.T) {
	avg := func(v float64) *float64 { return &v }
	cases := []struct {
		name string
		c    Contractor
		want []Badge
	}{
		{name: "new", c: Contractor{}, want: []Badge{BadgeNewPro}},
		{name: "verified new", c: Contractor{Verification: VerificationVerified, RatingCount: 2, RatingAvg: avg(5)}, want: []Badge{BadgeVerified, BadgeNewPro}},
		{name: "experienced", c: Contractor{RatingCount: 5, RatingAvg: avg(4.9)}, want: []Badge{BadgeExperienced}},
		{name: "top rated", c: Contractor{Verification: VerificationVerified, RatingCount: 10, RatingAvg: avg(4.5)}, want: []Badge{BadgeTopRated, BadgeVerified, BadgeExperienced}},
		{name: "avg too low", c: Contractor{RatingCount: 40, RatingAvg: avg(4.49)}, want: []Badge{BadgeExperienced}},
		{name: "too few ratings", c: Contractor{RatingCount: 9, RatingAvg: avg(5)}, want: []Badge{BadgeExperienced}},
		{name: "rejected", c: Contractor{Verification: VerificationRejected}, want: []Badge{BadgeNewPro}},
	}
	for _, tc := range cases {
		got := Badges(tc.c)
		if len(got) != len(tc.want) {
			t.Fatalf("%s: Badges() = %v, want %v", tc.name, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("%s: Badges() = %v, want %v", tc.name, got, tc.want)
			}
		}
	}
}

func TestValidateQuoteAmount(t *testing.T) {
	for _, ok := range []int64{1, 15000, MaxQuoteAmountCents} {
		if err := ValidateQuoteAmount(ok); err != nil {
			t.Fatalf("ValidateQuoteAmount(%d) error = %v", ok, err)
		}
	}
	for _, bad := range []int64{0, -1, MaxQuoteAmountCents + 1, 1 << 62} {
		if err := ValidateQuoteAmount(bad); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("ValidateQuoteAmount(%d) error = %v", bad, err)
		}
	}
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" Plumbing", "hvac", "plumbing", "", "HVAC", "painting"})
	want := []string{"plumbing", "hvac", "painting"}
	if len(got) != len(want) {
		t.Fatalf("NormalizeTags() = %#v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("NormalizeTags() = %#v", got)
		}
	}
}

func TestNextRatingAverage(t *testing.T) {
	avg, count := NextRatingAverage(nil, 0, 4)
	if avg != 4 || count != 1 {
		t.Fatalf("first rating = %v/%d", avg, count)
	}
	avg, count = NextRatingAverage(&avg, count, 2)
	if avg != 3 || count != 2 {
		t.Fatalf("second rating = %v/%d", avg, count)
	}
}

func TestValidateRating(t *testing.T) {
	yes, no := true, false

	_, err := ValidateRating(RaterHomeowner, 5, Answers{OnTime: &yes, PriceAccurate: &no})
	if !errors.Is(err, ErrMissingAnswer) {
		t.Fatalf("ValidateRating() error = %v, want ErrMissingAnswer", err)
	}

	got, err := ValidateRating(RaterContractor, 4, Answers{
		OnTime:                  &yes,
		ClearInstructions:       &yes,
		PaymentSmooth:           &no,
		ProfessionalInteraction: &yes,
	})
	if err != nil {
		t.Fatalf("ValidateRating() error = %v", err)
	}
	if got.OnTime != nil {
		t.Fatalf("homeowner answers should be cleared for contractor rating")
	}
	if got.PaymentSmooth == nil || *got.PaymentSmooth {
		t.Fatalf("PaymentSmooth = %v", got.PaymentSmooth)
	}

	if _, err := ValidateRating(RaterHomeowner, 0, Answers{}); !errors.Is(err, ErrInvalidStars) {
		t.Fatalf("ValidateRating() error = %v, want ErrInvalidStars", err)
	}
	if _, err := ValidateRating("admin", 3, Answers{}); !errors.Is(err, ErrInvalidRaterRole) {
		t.Fatalf("ValidateRating() error = %v, want ErrInvalidRaterRole", err)
	}
}
