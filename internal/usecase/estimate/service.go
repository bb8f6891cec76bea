package estimate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/tidwall/gjson"

	"homematch/internal/bootstrap/logging"
	"homematch/internal/domain/marketplace"
	"homematch/internal/domain/pricing"
	"homematch/internal/errs"
	"homematch/internal/ports"
	"homematch/internal/usecase/llmjson"
)

const (
	DefaultTTL     = 24 * time.Hour
	DefaultTimeout = 8 * time.Second

	SourceModel     = "model"
	SourceCatalogue = "catalogue"

	cacheKeyPrefix = "estimate:"
)

var ErrBadEstimate = errors.New("estimate response is unusable")

// Draft is a job the homeowner has not posted yet.
type Draft struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Zip         string `json:"zip"`
	Urgency     string `json:"urgency"`
}

type Estimate struct {
	Category string `json:"category" yaml:"category"`
	MinCents int64  `json:"min_cents" yaml:"min_cents"`
	MaxCents int64  `json:"max_cents" yaml:"max_cents"`
	Basis    string `json:"basis" yaml:"basis"`
	Source   string `json:"source" yaml:"source"`
	Cached   bool   `json:"cached" yaml:"cached"`
}

type estimateResponse struct {
	MinCents int64  `json:"min_cents" jsonschema:"description=low end of the expected price in US cents"`
	MaxCents int64  `json:"max_cents" jsonschema:"description=high end of the expected price in US cents"`
	Basis    string `json:"basis" jsonschema:"description=one sentence on how the range was reached"`
}

type Service struct {
	completer ports.Completer
	cache     ports.Cache
	pricing   *pricing.Engine
	ttl       time.Duration
	timeout   time.Duration
	schema    string
}

// NewService builds the estimator. completer and cache may be nil.
func NewService(completer ports.Completer, cache ports.Cache, engine *pricing.Engine, ttl time.Duration) *Service {
	if engine == nil {
		engine = pricing.NewEngine(pricing.DefaultCatalogue(), pricing.DefaultRates())
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		completer: completer,
		cache:     cache,
		pricing:   engine,
		ttl:       ttl,
		timeout:   DefaultTimeout,
		schema:    estimateSchema(),
	}
}

func estimateSchema() string {
	reflector := jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true}
	raw, err := json.Marshal(reflector.Reflect(&estimateResponse{}))
	if err != nil {
		return `{"type":"object"}`
	}
	return string(raw)
}

// Estimate prices a draft job. Model answers are cached per draft; without a
// model, or when it fails, the catalogue range for one to three hours is
// returned instead.
func (s *Service) Estimate(ctx context.Context, draft Draft) (Estimate, error) {
	if ctx == nil {
		return Estimate{}, errors.New("context is required")
	}
	draft, err := normalize(draft)
	if err != nil {
		return Estimate{}, err
	}
	logCtx := logging.WithAttrs(ctx, slog.String("component", "usecase.estimate"), slog.String("category", draft.Category))

	if s.completer == nil {
		return s.fromCatalogue(draft)
	}

	key := CacheKey(draft)
	if cached, ok := s.getCached(logCtx, key); ok {
		return cached, nil
	}

	out, err := s.ask(ctx, draft)
	if err != nil {
		logging.Warn(logCtx, "model estimate failed, using catalogue", slog.Any("err", errs.Loggable(err)))
		return s.fromCatalogue(draft)
	}

	s.setCacheBestEffort(logCtx, key, out)
	return out, nil
}

func normalize(d Draft) (Draft, error) {
	d.Category = strings.ToLower(strings.TrimSpace(d.Category))
	if !pricing.ValidCategoryTag(d.Category) {
		return Draft{}, errs.Validation("%v: %q", marketplace.ErrInvalidCategory, d.Category)
	}
	d.Zip = strings.TrimSpace(d.Zip)
	if d.Zip != "" && !marketplace.ValidZip(d.Zip) {
		return Draft{}, errs.Validation("%v: %q", marketplace.ErrInvalidZip, d.Zip)
	}
	urgency, err := marketplace.ParseUrgency(d.Urgency)
	if err != nil {
		return Draft{}, errs.Validation("%v", err)
	}
	d.Urgency = string(urgency)
	d.Description = strings.Join(strings.Fields(d.Description), " ")
	return d, nil
}

// CacheKey hashes the normalized draft.
func CacheKey(d Draft) string {
	raw, _ := json.Marshal(d)
	sum := sha256.Sum256(raw)
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

func (s *Service) fromCatalogue(d Draft) (Estimate, error) {
	low, err := s.pricing.ComputeBreakdown(d.Category, 1, true)
	if err != nil {
		if errors.Is(err, pricing.ErrUnknownCategory) {
			return Estimate{}, errs.NotFound(err, "no catalogue price for %q", d.Category)
		}
		return Estimate{}, errs.Wrap(err, "catalogue low estimate")
	}
	high, err := s.pricing.ComputeBreakdown(d.Category, 3, true)
	if err != nil {
		return Estimate{}, errs.Wrap(err, "catalogue high estimate")
	}
	return Estimate{
		Category: d.Category,
		MinCents: low.Total,
		MaxCents: high.Total,
		Basis:    SourceCatalogue,
		Source:   SourceCatalogue,
	}, nil
}

func (s *Service) ask(ctx context.Context, d Draft) (Estimate, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.completer.Complete(callCtx, ports.CompletionRequest{
		System:    "You estimate prices for home-service jobs in the United States. You answer with JSON only.",
		Prompt:    s.buildPrompt(d),
		MaxTokens: 256,
	})
	if err != nil {
		return Estimate{}, errs.Wrap(err, "complete estimate")
	}

	out, err := ParseEstimate(raw)
	if err != nil {
		return Estimate{}, err
	}
	out.Category = d.Category
	out.Source = SourceModel
	return out, nil
}

func (s *Service) buildPrompt(d Draft) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Category: %s\n", d.Category)
	if svc, err := s.pricing.Catalogue().Lookup(d.Category); err == nil {
		fmt.Fprintf(&b, "Reference rates: first hour %s, each extra hour %s\n",
			pricing.FormatCents(svc.BasePriceCents), pricing.FormatCents(svc.HourlyRateCents))
	}
	if d.Zip != "" {
		fmt.Fprintf(&b, "Zip code: %s\n", d.Zip)
	}
	fmt.Fprintf(&b, "Urgency: %s\n", d.Urgency)
	if d.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", d.Description)
	}
	b.WriteString("\nEstimate the total price range for this job in US cents.\n")
	b.WriteString("Reply with one JSON object matching this schema:\n")
	b.WriteString(s.schema)
	return b.String()
}

// ParseEstimate pulls min_cents, max_cents and basis out of a model reply.
func ParseEstimate(raw string) (Estimate, error) {
	obj, err := llmjson.ExtractObject(raw)
	if err != nil {
		return Estimate{}, errs.Wrap(err, "extract estimate")
	}
	parsed := gjson.Parse(obj)

	minCents, okMin := llmjson.Int64(parsed, "min_cents")
	maxCents, okMax := llmjson.Int64(parsed, "max_cents")
	if !okMin || !okMax {
		return Estimate{}, fmt.Errorf("%w: missing min_cents or max_cents", ErrBadEstimate)
	}
	if minCents <= 0 || minCents > maxCents {
		return Estimate{}, fmt.Errorf("%w: min=%d max=%d", ErrBadEstimate, minCents, maxCents)
	}
	return Estimate{
		MinCents: minCents,
		MaxCents: maxCents,
		Basis:    llmjson.String(parsed, "basis"),
	}, nil
}

func (s *Service) getCached(ctx context.Context, key string) (Estimate, bool) {
	if s.cache == nil {
		return Estimate{}, false
	}
	raw, found, err := s.cache.Get(ctx, key)
	if err != nil {
		logging.Warn(ctx, "estimate cache read failed", slog.Any("err", errs.Loggable(err)))
		return Estimate{}, false
	}
	if !found {
		return Estimate{}, false
	}
	var out Estimate
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return Estimate{}, false
	}
	out.Cached = true
	return out, true
}

func (s *Service) setCacheBestEffort(ctx context.Context, key string, value Estimate) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(raw), s.ttl); err != nil {
		logging.Warn(ctx, "estimate cache write failed", slog.Any("err", errs.Loggable(err)))
	}
}
