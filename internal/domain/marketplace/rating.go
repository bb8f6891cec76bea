package marketplace

import (
	"fmt"
	"strings"
	"time"
)

type RaterRole string

const (
	RaterHomeowner  RaterRole = "homeowner"
	RaterContractor RaterRole = "contractor"
)

func ParseRaterRole(s string) (RaterRole, error) {
	role := RaterRole(strings.ToLower(strings.TrimSpace(s)))
	switch role {
	case RaterHomeowner, RaterContractor:
		return role, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRaterRole, s)
}

// Answers holds both questionnaires; only the rater role's three are set.
type Answers struct {
	OnTime                  *bool `json:"on_time,omitempty" yaml:"on_time,omitempty"`
	PriceAccurate           *bool `json:"price_accurate,omitempty" yaml:"price_accurate,omitempty"`
	WouldHireAgain          *bool `json:"would_hire_again,omitempty" yaml:"would_hire_again,omitempty"`
	ClearInstructions       *bool `json:"clear_instructions,omitempty" yaml:"clear_instructions,omitempty"`
	PaymentSmooth           *bool `json:"payment_smooth,omitempty" yaml:"payment_smooth,omitempty"`
	ProfessionalInteraction *bool `json:"professional_interaction,omitempty" yaml:"professional_interaction,omitempty"`
}

type Rating struct {
	ID           string    `json:"id" yaml:"id"`
	JobID        string    `json:"job_id" yaml:"job_id"`
	RaterRole    RaterRole `json:"rater_role" yaml:"rater_role"`
	HomeownerID  string    `json:"homeowner_id" yaml:"homeowner_id"`
	ContractorID string    `json:"contractor_id" yaml:"contractor_id"`
	Stars        int       `json:"stars" yaml:"stars"`
	Answers      Answers   `json:"answers" yaml:"answers"`
	Comment      string    `json:"comment,omitempty" yaml:"comment,omitempty"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
}

// ValidateRating checks stars and that the role's questionnaire is complete.
// Answers belonging to the other role are cleared.
func ValidateRating(role RaterRole, stars int, answers Answers) (Answers, error) {
	if stars < 1 || stars > 5 {
		return Answers{}, fmt.Errorf("%w: %d", ErrInvalidStars, stars)
	}

	var required map[string]*bool
	out := Answers{}
	switch role {
	case RaterHomeowner:
		required = map[string]*bool{
			"on_time":          answers.OnTime,
			"price_accurate":   answers.PriceAccurate,
			"would_hire_again": answers.WouldHireAgain,
		}
		out.OnTime, out.PriceAccurate, out.WouldHireAgain = answers.OnTime, answers.PriceAccurate, answers.WouldHireAgain
	case RaterContractor:
		required = map[string]*bool{
			"clear_instructions":       answers.ClearInstructions,
			"payment_smooth":           answers.PaymentSmooth,
			"professional_interaction": answers.ProfessionalInteraction,
		}
		out.ClearInstructions, out.PaymentSmooth, out.ProfessionalInteraction = answers.ClearInstructions, answers.PaymentSmooth, answers.ProfessionalInteraction
	default:
		return Answers{}, fmt.Errorf("%w: %q", ErrInvalidRaterRole, role)
	}

	for name, v := range required {
		if v == nil {
			return Answers{}, fmt.Errorf("%w: %s", ErrMissingAnswer, name)
		}
	}
	return out, nil
}
