package marketplace

import "errors"

var (
	ErrInvalidCategory     = errors.New("invalid category tag")
	ErrInvalidZip          = errors.New("zip code must be 5 digits")
	ErrInvalidUrgency      = errors.New("invalid urgency")
	ErrInvalidPriceRange   = errors.New("price range requires 0 <= min <= max")
	ErrInvalidAmount       = errors.New("quote amount must be between 1 cent and $10,000,000,000.00")
	ErrTooManyServiceZips  = errors.New("contractor may list at most 5 service zip codes")
	ErrInvalidStars        = errors.New("stars must be between 1 and 5")
	ErrMissingAnswer       = errors.New("questionnaire answer is required")
	ErrInvalidRaterRole    = errors.New("invalid rater role")
	ErrInvalidVerification = errors.New("invalid verification status")
	ErrIDRequired          = errors.New("id is required")
)
