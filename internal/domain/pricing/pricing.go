package pricing

import (
	"fmt"
	"strconv"
	"strings"
)

const bpsDenominator = 10000

const (
	DefaultPlatformFeeBps   = 1500
	DefaultTaxBps           = 800
	DefaultContractorFeeBps = 1300
)

// Rates holds the fee rates in basis points. The platform fee applies to
// catalogue breakdowns; the contractor fee applies to submitted quotes.
type Rates struct {
	PlatformFeeBps   int64
	TaxBps           int64
	ContractorFeeBps int64
}

func DefaultRates() Rates {
	return Rates{
		PlatformFeeBps:   DefaultPlatformFeeBps,
		TaxBps:           DefaultTaxBps,
		ContractorFeeBps: DefaultContractorFeeBps,
	}
}

func (r Rates) Validate() error {
	for name, v := range map[string]int64{
		"platform_fee_bps":   r.PlatformFeeBps,
		"tax_bps":            r.TaxBps,
		"contractor_fee_bps": r.ContractorFeeBps,
	} {
		if v < 0 || v > bpsDenominator {
			return fmt.Errorf("%s out of range: %d", name, v)
		}
	}
	return nil
}

// Breakdown is a customer-facing price split, all values in cents.
type Breakdown struct {
	Category    string `json:"category" yaml:"category"`
	Hours       int    `json:"hours" yaml:"hours"`
	BasePrice   int64  `json:"base_price_cents" yaml:"base_price_cents"`
	HourlyTotal int64  `json:"hourly_total_cents" yaml:"hourly_total_cents"`
	Subtotal    int64  `json:"subtotal_cents" yaml:"subtotal_cents"`
	PlatformFee int64  `json:"platform_fee_cents" yaml:"platform_fee_cents"`
	Tax         int64  `json:"tax_cents" yaml:"tax_cents"`
	Total       int64  `json:"total_cents" yaml:"total_cents"`
}

// Engine is stateless once built; all methods are deterministic.
type Engine struct {
	catalogue Catalogue
	rates     Rates
}

func NewEngine(catalogue Catalogue, rates Rates) *Engine {
	if catalogue == nil {
		catalogue = DefaultCatalogue()
	}
	return &Engine{catalogue: catalogue, rates: rates}
}

func (e *Engine) Catalogue() Catalogue { return e.catalogue }
func (e *Engine) Rates() Rates         { return e.rates }

// ComputeBreakdown bills the first hour at the base price and each further
// hour at the hourly rate. Hours below 1 are clamped to 1.
func (e *Engine) ComputeBreakdown(category string, hours int, includePlatformFee bool) (Breakdown, error) {
	svc, err := e.catalogue.Lookup(category)
	if err != nil {
		return Breakdown{}, err
	}
	if hours < 1 {
		hours = 1
	}

	out := Breakdown{
		Category:    svc.Key,
		Hours:       hours,
		BasePrice:   svc.BasePriceCents,
		HourlyTotal: svc.HourlyRateCents * int64(hours-1),
	}
	out.Subtotal = out.BasePrice + out.HourlyTotal
	if includePlatformFee {
		out.PlatformFee = ApplyBps(out.Subtotal, e.rates.PlatformFeeBps)
	}
	preTax := out.Subtotal + out.PlatformFee
	out.Tax = ApplyBps(preTax, e.rates.TaxBps)
	out.Total = preTax + out.Tax
	return out, nil
}

// ContractorFee is the platform's cut of a quote amount.
func (e *Engine) ContractorFee(amountCents int64) int64 {
	return ApplyBps(amountCents, e.rates.ContractorFeeBps)
}

// ContractorPayout is what the contractor keeps; payout + fee == amount.
func (e *Engine) ContractorPayout(amountCents int64) int64 {
	return amountCents - e.ContractorFee(amountCents)
}

// ProviderPayout is what a provider nets from a catalogue subtotal after the
// platform fee. Tax is a customer-side cost and is not deducted.
func (e *Engine) ProviderPayout(subtotalCents int64) int64 {
	return subtotalCents - ApplyBps(subtotalCents, e.rates.PlatformFeeBps)
}

// QuoteLabel renders e.g. "Plumbing · 2 hrs → $180.09".
func (e *Engine) QuoteLabel(category string, hours int) (string, error) {
	b, err := e.ComputeBreakdown(category, hours, true)
	if err != nil {
		return "", err
	}
	svc, _ := e.catalogue.Lookup(category)
	hrLabel := "1 hr"
	if b.Hours != 1 {
		hrLabel = fmt.Sprintf("%d hrs", b.Hours)
	}
	return fmt.Sprintf("%s · %s → %s", svc.Label, hrLabel, FormatCents(b.Total)), nil
}

// ApplyBps returns amount*bps/10000 rounded half away from zero.
func ApplyBps(amount, bps int64) int64 {
	product := amount * bps
	if product < 0 {
		return -((-product + bpsDenominator/2) / bpsDenominator)
	}
	return (product + bpsDenominator/2) / bpsDenominator
}

// FormatCents renders cents as US currency, e.g. "$1,234.56".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	dollars := strconv.FormatInt(cents/100, 10)

	var b strings.Builder
	for i, r := range dollars {
		if i > 0 && (len(dollars)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("%s$%s.%02d", sign, b.String(), cents%100)
}
