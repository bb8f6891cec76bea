package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"homematch/internal/domain/marketplace"
	"homematch/internal/domain/pricing"
	"homematch/internal/errs"
	"homematch/internal/usecase/estimate"
	"homematch/internal/usecase/lifecycle"
	"homematch/internal/usecase/ratinggate"
)

type postJobRequest struct {
	Category      string `json:"category"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Urgency       string `json:"urgency"`
	Zip           string `json:"zip"`
	Address       string `json:"address"`
	PriceMinCents int64  `json:"price_min_cents"`
	PriceMaxCents int64  `json:"price_max_cents"`
}

type submitQuoteRequest struct {
	AmountCents  int64  `json:"amount_cents"`
	Availability string `json:"availability"`
	Message      string `json:"message"`
}

type registerContractorRequest struct {
	FullName     string   `json:"full_name"`
	Bio          string   `json:"bio"`
	PrimaryTrade string   `json:"primary_trade"`
	TradeTypes   []string `json:"trade_types"`
	ServiceZips  []string `json:"service_zip_codes"`
}

type submitRatingRequest struct {
	Role    string              `json:"role"`
	Stars   int                 `json:"stars"`
	Answers marketplace.Answers `json:"answers"`
	Comment string              `json:"comment"`
}

type payoutResponse struct {
	AmountCents int64  `json:"amount_cents"`
	FeeCents    int64  `json:"fee_cents"`
	PayoutCents int64  `json:"payout_cents"`
	Label       string `json:"label"`
}

type contractorResponse struct {
	marketplace.Contractor
	Badges []marketplace.Badge `json:"badges"`
}

func newContractorResponse(c marketplace.Contractor) contractorResponse {
	return contractorResponse{Contractor: c, Badges: marketplace.Badges(c)}
}

type pendingRatingResponse struct {
	Pending    bool                   `json:"pending"`
	Obligation *ratinggate.Obligation `json:"obligation,omitempty"`
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) postJob(w http.ResponseWriter, r *http.Request) {
	var req postJobRequest
	if err := decodeBody(r, &req); err != nil {
		writeFailure(w, r, err)
		return
	}
	job, err := h.lifecycle.PostJob(r.Context(), lifecycle.PostJobInput{
		HomeownerID:   userID(r),
		Category:      req.Category,
		Title:         req.Title,
		Description:   req.Description,
		Urgency:       req.Urgency,
		Zip:           req.Zip,
		Address:       req.Address,
		PriceMinCents: req.PriceMinCents,
		PriceMaxCents: req.PriceMaxCents,
	})
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

// listJobs returns the caller's own jobs unless ?homeowner_id names another.
func (h *Handler) listJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	homeowner := strings.TrimSpace(query.Get("homeowner_id"))
	if homeowner == "" {
		homeowner = userID(r)
	}
	limit, err := intParam(query.Get("limit"), 0)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	jobs, err := h.lifecycle.ListJobs(r.Context(), lifecycle.ListJobsInput{
		HomeownerID: homeowner,
		Status:      query.Get("status"),
		Limit:       limit,
	})
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (h *Handler) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.lifecycle.GetJob(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *Handler) listQuotes(w http.ResponseWriter, r *http.Request) {
	quotes, err := h.lifecycle.ListQuotes(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quotes)
}

func (h *Handler) listMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := h.lifecycle.ListMatches(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

func (h *Handler) submitQuote(w http.ResponseWriter, r *http.Request) {
	var req submitQuoteRequest
	if err := decodeBody(r, &req); err != nil {
		writeFailure(w, r, err)
		return
	}
	quote, err := h.lifecycle.SubmitQuote(r.Context(), lifecycle.SubmitQuoteInput{
		JobID:        chi.URLParam(r, "jobID"),
		ActorUserID:  userID(r),
		AmountCents:  req.AmountCents,
		Availability: req.Availability,
		Message:      req.Message,
	})
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, quote)
}

func (h *Handler) acceptQuote(w http.ResponseWriter, r *http.Request) {
	result, err := h.lifecycle.AcceptQuote(r.Context(), lifecycle.AcceptQuoteInput{
		QuoteID:     chi.URLParam(r, "quoteID"),
		ActorUserID: userID(r),
	})
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) startJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.lifecycle.StartJob(r.Context(), jobAction(r))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *Handler) completeJob(w http.ResponseWriter, r *http.Request) {
	result, err := h.lifecycle.CompleteJob(r.Context(), jobAction(r))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) cancelJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.lifecycle.CancelJob(r.Context(), jobAction(r))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func jobAction(r *http.Request) lifecycle.JobActionInput {
	return lifecycle.JobActionInput{JobID: chi.URLParam(r, "jobID"), ActorUserID: userID(r)}
}

func (h *Handler) submitRating(w http.ResponseWriter, r *http.Request) {
	var req submitRatingRequest
	if err := decodeBody(r, &req); err != nil {
		writeFailure(w, r, err)
		return
	}
	rating, err := h.ratings.SubmitRating(r.Context(), ratinggate.SubmitRatingInput{
		JobID:       chi.URLParam(r, "jobID"),
		ActorUserID: userID(r),
		Role:        req.Role,
		Stars:       req.Stars,
		Answers:     req.Answers,
		Comment:     req.Comment,
	})
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rating)
}

func (h *Handler) pendingRating(w http.ResponseWriter, r *http.Request) {
	obligation, err := h.ratings.PendingRating(r.Context(), userID(r))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pendingRatingResponse{Pending: obligation != nil, Obligation: obligation})
}

func (h *Handler) registerContractor(w http.ResponseWriter, r *http.Request) {
	var req registerContractorRequest
	if err := decodeBody(r, &req); err != nil {
		writeFailure(w, r, err)
		return
	}
	contractor, err := h.lifecycle.RegisterContractor(r.Context(), lifecycle.RegisterContractorInput{
		UserID:       userID(r),
		FullName:     req.FullName,
		Bio:          req.Bio,
		PrimaryTrade: req.PrimaryTrade,
		TradeTypes:   req.TradeTypes,
		ServiceZips:  req.ServiceZips,
	})
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newContractorResponse(contractor))
}

// getContractor is readable by any signed-in user.
func (h *Handler) getContractor(w http.ResponseWriter, r *http.Request) {
	contractor, err := h.lifecycle.GetContractor(r.Context(), chi.URLParam(r, "contractorID"))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newContractorResponse(contractor))
}

func (h *Handler) contractorQuotes(w http.ResponseWriter, r *http.Request) {
	contractorID, ok := h.ownContractor(w, r)
	if !ok {
		return
	}
	quotes, err := h.lifecycle.ContractorQuotes(r.Context(), contractorID)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quotes)
}

func (h *Handler) contractorActiveJobs(w http.ResponseWriter, r *http.Request) {
	contractorID, ok := h.ownContractor(w, r)
	if !ok {
		return
	}
	jobs, err := h.lifecycle.ContractorActiveJobs(r.Context(), contractorID)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (h *Handler) contractorFeed(w http.ResponseWriter, r *http.Request) {
	contractorID, ok := h.ownContractor(w, r)
	if !ok {
		return
	}
	items, err := h.lifecycle.ContractorFeed(r.Context(), contractorID)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) contractorEarnings(w http.ResponseWriter, r *http.Request) {
	contractorID, ok := h.ownContractor(w, r)
	if !ok {
		return
	}
	earnings, err := h.lifecycle.Earnings(r.Context(), contractorID)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, earnings)
}

// ownContractor resolves {contractorID} and checks it belongs to the caller.
func (h *Handler) ownContractor(w http.ResponseWriter, r *http.Request) (string, bool) {
	contractor, err := h.lifecycle.GetContractor(r.Context(), chi.URLParam(r, "contractorID"))
	if err != nil {
		writeFailure(w, r, err)
		return "", false
	}
	if contractor.UserID != userID(r) {
		writeFailure(w, r, errs.Forbidden("contractor %s belongs to another user", contractor.ID))
		return "", false
	}
	return contractor.ID, true
}

func (h *Handler) priceBreakdown(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	hours, err := intParam(query.Get("hours"), 1)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	withFee := true
	if raw := query.Get("platform_fee"); raw != "" {
		withFee, err = strconv.ParseBool(raw)
		if err != nil {
			writeFailure(w, r, errs.Validation("platform_fee must be a boolean: %q", raw))
			return
		}
	}
	breakdown, err := h.pricing.ComputeBreakdown(query.Get("category"), hours, withFee)
	if err != nil {
		writeFailure(w, r, pricingError(err, query.Get("category")))
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}

func (h *Handler) pricePayout(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("amount_cents")
	amount, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || amount < 0 || amount > marketplace.MaxQuoteAmountCents {
		writeFailure(w, r, errs.Validation("amount_cents must be an integer between 0 and %d: %q", marketplace.MaxQuoteAmountCents, raw))
		return
	}
	payout := h.pricing.ContractorPayout(amount)
	writeJSON(w, http.StatusOK, payoutResponse{
		AmountCents: amount,
		FeeCents:    h.pricing.ContractorFee(amount),
		PayoutCents: payout,
		Label:       pricing.FormatCents(payout),
	})
}

func (h *Handler) priceEstimate(w http.ResponseWriter, r *http.Request) {
	if h.estimator == nil {
		writeError(w, http.StatusServiceUnavailable, "EstimateUnavailable", "estimates are not configured")
		return
	}
	var draft estimate.Draft
	if err := decodeBody(r, &draft); err != nil {
		writeFailure(w, r, err)
		return
	}
	out, err := h.estimator.Estimate(r.Context(), draft)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func pricingError(err error, category string) error {
	if errors.Is(err, pricing.ErrUnknownCategory) {
		return errs.NotFound(err, "no catalogue entry for %q", category)
	}
	return err
}

func intParam(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errs.Validation("expected an integer, got %q", raw)
	}
	return v, nil
}
