// Package httpapi exposes the marketplace operations over HTTP. The caller is
// identified by the X-User-ID header; authenticating that header is left to
// whatever sits in front of this server.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"homematch/internal/bootstrap/logging"
	"homematch/internal/domain/marketplace"
	"homematch/internal/domain/pricing"
	"homematch/internal/usecase/estimate"
	"homematch/internal/usecase/lifecycle"
	"homematch/internal/usecase/ratinggate"
)

const UserHeader = "X-User-ID"

type LifecycleService interface {
	PostJob(ctx context.Context, input lifecycle.PostJobInput) (marketplace.Job, error)
	GetJob(ctx context.Context, jobID string) (marketplace.Job, error)
	ListJobs(ctx context.Context, input lifecycle.ListJobsInput) ([]marketplace.Job, error)
	ListQuotes(ctx context.Context, jobID string) ([]marketplace.Quote, error)
	ListMatches(ctx context.Context, jobID string) ([]marketplace.Match, error)
	SubmitQuote(ctx context.Context, input lifecycle.SubmitQuoteInput) (marketplace.Quote, error)
	AcceptQuote(ctx context.Context, input lifecycle.AcceptQuoteInput) (lifecycle.AcceptResult, error)
	StartJob(ctx context.Context, input lifecycle.JobActionInput) (marketplace.Job, error)
	CompleteJob(ctx context.Context, input lifecycle.JobActionInput) (lifecycle.CompleteResult, error)
	CancelJob(ctx context.Context, input lifecycle.JobActionInput) (marketplace.Job, error)
	RegisterContractor(ctx context.Context, input lifecycle.RegisterContractorInput) (marketplace.Contractor, error)
	GetContractor(ctx context.Context, contractorID string) (marketplace.Contractor, error)
	ContractorFeed(ctx context.Context, contractorID string) ([]lifecycle.FeedItem, error)
	Earnings(ctx context.Context, contractorID string) (lifecycle.Earnings, error)
	ContractorQuotes(ctx context.Context, contractorID string) ([]lifecycle.ContractorQuote, error)
	ContractorActiveJobs(ctx context.Context, contractorID string) ([]marketplace.Job, error)
}

type RatingService interface {
	PendingRating(ctx context.Context, userID string) (*ratinggate.Obligation, error)
	SubmitRating(ctx context.Context, input ratinggate.SubmitRatingInput) (marketplace.Rating, error)
}

type Estimator interface {
	Estimate(ctx context.Context, draft estimate.Draft) (estimate.Estimate, error)
}

type Handler struct {
	lifecycle LifecycleService
	ratings   RatingService
	estimator Estimator
	pricing   *pricing.Engine
}

func NewHandler(lc LifecycleService, ratings RatingService, estimator Estimator, engine *pricing.Engine) *Handler {
	if engine == nil {
		engine = pricing.NewEngine(pricing.DefaultCatalogue(), pricing.DefaultRates())
	}
	return &Handler{
		lifecycle: lc,
		ratings:   ratings,
		estimator: estimator,
		pricing:   engine,
	}
}

// Routes builds the router. Every route except /health and /pricing/* needs
// an X-User-ID.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)

	r.Route("/pricing", func(r chi.Router) {
		r.Get("/breakdown", h.priceBreakdown)
		r.Get("/payout", h.pricePayout)
		r.Post("/estimate", h.priceEstimate)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireUser)

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", h.postJob)
			r.Get("/", h.listJobs)
			r.Route("/{jobID}", func(r chi.Router) {
				r.Get("/", h.getJob)
				r.Get("/quotes", h.listQuotes)
				r.Post("/quotes", h.submitQuote)
				r.Get("/matches", h.listMatches)
				r.Post("/start", h.startJob)
				r.Post("/complete", h.completeJob)
				r.Post("/cancel", h.cancelJob)
				r.Post("/ratings", h.submitRating)
			})
		})

		r.Post("/quotes/{quoteID}/accept", h.acceptQuote)

		r.Route("/contractors", func(r chi.Router) {
			r.Post("/", h.registerContractor)
			r.Get("/{contractorID}", h.getContractor)
			r.Get("/{contractorID}/feed", h.contractorFeed)
			r.Get("/{contractorID}/earnings", h.contractorEarnings)
			r.Get("/{contractorID}/quotes", h.contractorQuotes)
			r.Get("/{contractorID}/active-jobs", h.contractorActiveJobs)
		})

		r.Get("/me/pending-rating", h.pendingRating)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithRequest(r.Context(), middleware.GetReqID(r.Context()), userID(r))
		ctx = logging.WithComponent(ctx, "transport.httpapi")

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r.WithContext(ctx))

		logging.Info(ctx, "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("elapsed", time.Since(started)),
		)
	})
}

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID(r) == "" {
			writeError(w, http.StatusUnauthorized, "Unauthenticated", UserHeader+" header is required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
