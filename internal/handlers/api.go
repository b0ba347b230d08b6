package handlers

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"agri-dashboard/internal/crops"
	"agri-dashboard/internal/errors"
	"agri-dashboard/internal/models"
	"agri-dashboard/internal/observability"
	"agri-dashboard/internal/query"
	"agri-dashboard/internal/services"
)

const pingTimeout = 2 * time.Second

type APIHandlers struct {
	reports *services.Reports
	logger  *slog.Logger
}

func NewAPIHandlers(reports *services.Reports, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		reports: reports,
		logger:  logger,
	}
}

type yearlyTotalsResponse struct {
	Filter query.Filter          `json:"filter"`
	Years  []models.YearlyTotals `json:"years"`
}

type topVillagesResponse struct {
	Crop     string                `json:"crop"`
	Villages []models.VillageTotal `json:"villages"`
}

// HandleYearlyTotals returns the yearly totals for the aggregate filter
// params in the query string.
func (h *APIHandlers) HandleYearlyTotals(w http.ResponseWriter, r *http.Request) {
	f := query.FromValues(r.URL.Query(), AggregateParams...)
	if err := f.Validate(); err != nil {
		requestID := observability.GetRequestID(r.Context())
		errors.WriteJSONError(w, h.logger, errors.ValidationWrap(err, err.Error()), requestID)
		return
	}

	totals, err := h.reports.YearlySummary(r.Context(), f)
	if err != nil {
		requestID := observability.GetRequestID(r.Context())
		errors.WriteJSONError(w, observability.RequestLogger(r.Context(), h.logger),
			errors.InternalWrap(err, "Could not aggregate records"), requestID)
		return
	}
	if totals == nil {
		totals = []models.YearlyTotals{}
	}

	errors.WriteSuccess(w, http.StatusOK, yearlyTotalsResponse{Filter: f, Years: totals})
}

func (h *APIHandlers) HandleTopVillages(w http.ResponseWriter, r *http.Request) {
	logger := observability.RequestLogger(r.Context(), h.logger)
	requestID := observability.GetRequestID(r.Context())

	c, ranking, err := h.reports.TopVillages(r.Context(), mux.Vars(r)["crop"])
	if stderrors.Is(err, crops.ErrUnknownCrop) {
		errors.WriteJSONError(w, logger, errors.NotFound("Unknown crop"), requestID)
		return
	}
	if err != nil {
		errors.WriteJSONError(w, logger, errors.InternalWrap(err, "Could not rank villages"), requestID)
		return
	}
	if ranking == nil {
		ranking = []models.VillageTotal{}
	}

	errors.WriteSuccess(w, http.StatusOK, topVillagesResponse{Crop: c.Key, Villages: ranking})
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	if err := h.reports.Ping(ctx); err != nil {
		requestID := observability.GetRequestID(r.Context())
		errors.WriteJSONError(w, observability.RequestLogger(r.Context(), h.logger),
			errors.ServiceUnavailableWrap(err, "Database unreachable"), requestID)
		return
	}

	errors.WriteSuccess(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"database":  "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
