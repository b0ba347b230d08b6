package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/gorilla/mux"
	"github.com/starfederation/datastar-go/datastar"

	"agri-dashboard/internal/crops"
	"agri-dashboard/internal/errors"
	"agri-dashboard/internal/models"
	"agri-dashboard/internal/observability"
	"agri-dashboard/internal/query"
	"agri-dashboard/internal/services"
	"agri-dashboard/internal/ui/templates"
)

// SSEHandlers serve Datastar fragments that refresh parts of a page
// without reloading it.
type SSEHandlers struct {
	reports *services.Reports
	logger  *slog.Logger
}

func NewSSEHandlers(reports *services.Reports, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		reports: reports,
		logger:  logger,
	}
}

func renderString(ctx context.Context, c templ.Component) (string, error) {
	var buf strings.Builder
	err := c.Render(ctx, &buf)
	return buf.String(), err
}

// HandleTopVillages re-runs the ranking for the crop in the path and patches
// the ranking table. Unknown crops are rejected before the stream opens.
func (h *SSEHandlers) HandleTopVillages(w http.ResponseWriter, r *http.Request) {
	logger := observability.RequestLogger(r.Context(), h.logger)
	key := mux.Vars(r)["crop"]

	c, ranking, err := h.reports.TopVillages(r.Context(), key)
	if err != nil {
		requestID := observability.GetRequestID(r.Context())
		if stderrors.Is(err, crops.ErrUnknownCrop) {
			errors.WriteError(w, r, logger, errors.Validation("Unknown crop"), requestID)
			return
		}
		errors.WriteError(w, r, logger, errors.InternalWrap(err, "Could not rank villages"), requestID)
		return
	}

	html, err := renderString(r.Context(), templates.RankingTable(c, ranking))
	if err != nil {
		logger.Error("render ranking table", "crop", c.Key, "error", err)
		return
	}

	sse := datastar.NewSSE(w, r)
	if err := sse.PatchElements(html); err != nil {
		logger.Warn("patch ranking table", "error", err)
	}
}

// HandleAnalysis re-runs the analysis for the query's filter, patches the
// chart summary signal and replaces the totals table.
func (h *SSEHandlers) HandleAnalysis(w http.ResponseWriter, r *http.Request) {
	logger := observability.RequestLogger(r.Context(), h.logger)
	f := query.FromValues(r.URL.Query(), AnalysisParams...)
	if err := f.Validate(); err != nil {
		requestID := observability.GetRequestID(r.Context())
		errors.WriteError(w, r, logger, errors.ValidationWrap(err, err.Error()), requestID)
		return
	}

	totals, summary, err := h.reports.Analysis(r.Context(), f)
	if err != nil && !stderrors.Is(err, services.ErrNoRecords) {
		requestID := observability.GetRequestID(r.Context())
		errors.WriteError(w, r, logger, errors.InternalWrap(err, "Could not analyze records"), requestID)
		return
	}

	var signal *models.ChartSummary
	if len(totals) > 0 {
		signal = &summary
	}
	signals, err := json.Marshal(map[string]any{"summary": signal})
	if err != nil {
		logger.Error("marshal analysis signals", "error", err)
		return
	}

	html, err := renderString(r.Context(), templates.AnalysisTable(totals))
	if err != nil {
		logger.Error("render analysis table", "error", err)
		return
	}

	sse := datastar.NewSSE(w, r)
	if err := sse.PatchSignals(signals); err != nil {
		logger.Warn("patch analysis signals", "error", err)
		return
	}
	if err := sse.PatchElements(html); err != nil {
		logger.Warn("patch analysis table", "error", err)
	}
}
