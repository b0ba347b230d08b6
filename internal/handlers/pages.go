package handlers

import (
	"bytes"
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/a-h/templ"
	"github.com/gorilla/mux"

	"agri-dashboard/internal/crops"
	"agri-dashboard/internal/errors"
	"agri-dashboard/internal/models"
	"agri-dashboard/internal/observability"
	"agri-dashboard/internal/query"
	"agri-dashboard/internal/services"
	"agri-dashboard/internal/ui/templates"
)

const (
	renderTimeout = 10 * time.Second

	noticeCookie      = "agri_notice"
	noticeMaxAge      = 60
	unknownCropNotice = "Unknown crop"
)

// Form params accepted by each filterable page.
var (
	FilterParams    = []string{query.ParamDistrict, query.ParamBlock, query.ParamVillage}
	AggregateParams = []string{query.ParamDistrict, query.ParamBlock, query.ParamState}
	AnalysisParams  = []string{query.ParamDistrict, query.ParamBlock}
)

type PageHandlers struct {
	reports *services.Reports
	logger  *slog.Logger
}

func NewPageHandlers(reports *services.Reports, logger *slog.Logger) *PageHandlers {
	return &PageHandlers{
		reports: reports,
		logger:  logger,
	}
}

func (h *PageHandlers) render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(ctx, w); err != nil {
		observability.RequestLogger(r.Context(), h.logger).Error("render page", "path", r.URL.Path, "error", err)
	}
}

func (h *PageHandlers) fail(w http.ResponseWriter, r *http.Request, err error, message string) {
	requestID := observability.GetRequestID(r.Context())
	errors.WriteError(w, r, observability.RequestLogger(r.Context(), h.logger), errors.InternalWrap(err, message), requestID)
}

// parseFilter reads the page's params from the query string and, for
// POST, the form body. submitted is true for POST and for GET requests
// carrying any of the params.
func (h *PageHandlers) parseFilter(w http.ResponseWriter, r *http.Request, params []string) (f query.Filter, submitted bool, ok bool) {
	logger := observability.RequestLogger(r.Context(), h.logger)
	requestID := observability.GetRequestID(r.Context())
	if err := r.ParseForm(); err != nil {
		errors.WriteError(w, r, logger, errors.BadRequestWrap(err, "Invalid form data"), requestID)
		return query.Filter{}, false, false
	}
	f = query.FromValues(r.Form, params...)
	if err := f.Validate(); err != nil {
		errors.WriteError(w, r, logger, errors.ValidationWrap(err, err.Error()), requestID)
		return query.Filter{}, false, false
	}
	submitted = r.Method == http.MethodPost || query.Submitted(r.Form, params...)
	return f, submitted, true
}

func (h *PageHandlers) form(ctx context.Context, action string, params []string, f query.Filter) (templates.FilterForm, error) {
	fields := make([]string, len(params))
	for i, p := range params {
		fields[i] = query.StoredField(p)
	}
	opts, err := h.reports.Options(ctx, fields...)
	if err != nil {
		return templates.FilterForm{}, err
	}
	return templates.FilterForm{Action: action, Params: params, Filter: f, Options: opts}, nil
}

// HandleIndex lists the first records and shows any pending notice once.
// The notice survives a failed listing so the next attempt still shows it.
func (h *PageHandlers) HandleIndex(w http.ResponseWriter, r *http.Request) {
	message, pending := readNotice(r)

	records, err := h.reports.Listing(r.Context())
	if err != nil {
		h.fail(w, r, err, "Could not load records")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	var buf bytes.Buffer
	if err := templates.IndexPage(records, message).Render(ctx, &buf); err != nil {
		h.fail(w, r, err, "Could not render records")
		return
	}
	if pending {
		clearNotice(w)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		observability.RequestLogger(r.Context(), h.logger).Error("write page", "path", r.URL.Path, "error", err)
	}
}

func (h *PageHandlers) HandleFilter(w http.ResponseWriter, r *http.Request) {
	f, submitted, ok := h.parseFilter(w, r, FilterParams)
	if !ok {
		return
	}

	form, err := h.form(r.Context(), "/filter", FilterParams, f)
	if err != nil {
		h.fail(w, r, err, "Could not load filter options")
		return
	}

	var records []models.YieldRecord
	if submitted {
		records, err = h.reports.Filtered(r.Context(), f)
		if err != nil {
			h.fail(w, r, err, "Could not filter records")
			return
		}
	}
	h.render(w, r, templates.FilterPage(form, records, submitted))
}

func (h *PageHandlers) HandleAggregate(w http.ResponseWriter, r *http.Request) {
	f, _, ok := h.parseFilter(w, r, AggregateParams)
	if !ok {
		return
	}

	form, err := h.form(r.Context(), "/aggregate", AggregateParams, f)
	if err != nil {
		h.fail(w, r, err, "Could not load filter options")
		return
	}

	totals, err := h.reports.YearlySummary(r.Context(), f)
	if err != nil {
		h.fail(w, r, err, "Could not aggregate records")
		return
	}
	h.render(w, r, templates.AggregatePage(form, totals))
}

func (h *PageHandlers) HandleAnalysis(w http.ResponseWriter, r *http.Request) {
	f, _, ok := h.parseFilter(w, r, AnalysisParams)
	if !ok {
		return
	}

	form, err := h.form(r.Context(), "/analysis", AnalysisParams, f)
	if err != nil {
		h.fail(w, r, err, "Could not load filter options")
		return
	}

	totals, summary, err := h.reports.Analysis(r.Context(), f)
	if err != nil && !stderrors.Is(err, services.ErrNoRecords) {
		h.fail(w, r, err, "Could not analyze records")
		return
	}
	h.render(w, r, templates.AnalysisPage(form, totals, summary))
}

// HandleTopVillages ranks villages for the crop in the path. An unknown crop
// redirects to the listing with a notice.
func (h *PageHandlers) HandleTopVillages(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["crop"]

	c, ranking, err := h.reports.TopVillages(r.Context(), key)
	if stderrors.Is(err, crops.ErrUnknownCrop) {
		observability.RequestLogger(r.Context(), h.logger).Warn("unknown crop requested", "crop", key)
		setNotice(w, unknownCropNotice)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	if err != nil {
		h.fail(w, r, err, "Could not rank villages")
		return
	}
	h.render(w, r, templates.TopVillagesPage(c, ranking))
}

func setNotice(w http.ResponseWriter, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     noticeCookie,
		Value:    url.QueryEscape(message),
		Path:     "/",
		MaxAge:   noticeMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// readNotice returns the pending notice. pending reports whether a notice
// cookie was present, even one that failed to decode.
func readNotice(r *http.Request) (message string, pending bool) {
	cookie, err := r.Cookie(noticeCookie)
	if err != nil {
		return "", false
	}
	message, err = url.QueryUnescape(cookie.Value)
	if err != nil {
		return "", true
	}
	return message, true
}

func clearNotice(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     noticeCookie,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
