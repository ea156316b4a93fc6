package holidayhandler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"paycalc/internal/domain/audit"
	"paycalc/internal/domain/auth"
	"paycalc/internal/domain/holiday"
	"paycalc/internal/platform/metrics"
	"paycalc/internal/requestctx"
	"paycalc/internal/transport/http/api"
	"paycalc/internal/transport/http/middleware"
	"paycalc/internal/transport/http/shared"
)

type Handler struct {
	Calendar *holiday.Calendar
	Perms    middleware.PermissionStore
	Audit    audit.Recorder
	Metrics  *metrics.Collector
}

func NewHandler(calendar *holiday.Calendar, perms middleware.PermissionStore, recorder audit.Recorder, collector *metrics.Collector) *Handler {
	return &Handler{Calendar: calendar, Perms: perms, Audit: recorder, Metrics: collector}
}

type yearsResponse struct {
	Years    []int `json:"years"`
	Writable bool  `json:"writable"`
}

type holidayPayload struct {
	Name     string `json:"name"`
	Observed bool   `json:"observed"`
	// NewYear must be set to add a holiday in a year the table does not cover.
	NewYear bool `json:"newYear"`
}

type reloadResponse struct {
	Years    []int `json:"years"`
	Holidays int   `json:"holidays"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/holidays", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/years", h.handleYears)
		r.With(middleware.RequirePermission(auth.PermHolidaysWrite, h.Perms)).Post("/reload", h.handleReload)
		r.With(middleware.RequirePermission(auth.PermHolidaysWrite, h.Perms)).Put("/{date}", h.handleUpsert)
		r.With(middleware.RequirePermission(auth.PermHolidaysWrite, h.Perms)).Delete("/{date}", h.handleDelete)
	})
}

func (h *Handler) handleYears(w http.ResponseWriter, r *http.Request) {
	years := h.Calendar.Current().Years()
	if years == nil {
		years = []int{}
	}
	api.Success(w, yearsResponse{Years: years, Writable: h.Calendar.Writable()}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())
	table := h.Calendar.Current()

	raw := r.URL.Query().Get("year")
	if raw == "" {
		api.Success(w, nonNil(table.All()), requestID)
		return
	}
	v := shared.NewValidator()
	year, _ := v.Year("year", raw)
	if v.Reject(w, requestID) {
		return
	}
	if !table.Supports(year) {
		api.Fail(w, http.StatusNotFound, "unsupported_year", "no holiday data for year "+raw, requestID)
		return
	}
	api.Success(w, nonNil(table.ForYear(year)), requestID)
}

func (h *Handler) handleUpsert(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())
	v := shared.NewValidator()
	day, ok := parseDay(v, chi.URLParam(r, "date"))

	var payload holidayPayload
	if err := api.Decode(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	v.Required("name", payload.Name, "is required")
	if v.Reject(w, requestID) || !ok {
		return
	}

	entry := holiday.Holiday{Date: day, Name: strings.TrimSpace(payload.Name), Observed: payload.Observed}
	write := h.Calendar.Upsert
	if payload.NewYear {
		write = h.Calendar.StartYear
	}
	if err := write(r.Context(), entry); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.record(r, audit.ActionHolidayUpsert, day.String(), entry)
	api.Success(w, entry, requestID)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())
	v := shared.NewValidator()
	day, ok := parseDay(v, chi.URLParam(r, "date"))
	if v.Reject(w, requestID) || !ok {
		return
	}
	if err := h.Calendar.Delete(r.Context(), day); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.record(r, audit.ActionHolidayDelete, day.String(), nil)
	api.Success(w, map[string]string{"deleted": day.String()}, requestID)
}

func (h *Handler) handleReload(w http.ResponseWriter, r *http.Request) {
	err := h.Calendar.Reload(r.Context())
	h.Metrics.RecordHolidayReload(err != nil)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	table := h.Calendar.Current()
	h.record(r, audit.ActionHolidayReload, "", nil)
	api.Success(w, reloadResponse{Years: table.Years(), Holidays: table.Len()}, requestctx.GetRequestID(r.Context()))
}

func parseDay(v *shared.Validator, raw string) (holiday.Day, bool) {
	day, err := holiday.ParseDay(raw)
	if err != nil {
		v.Add("date", "must be a valid date in YYYY-MM-DD format")
		return holiday.Day{}, false
	}
	return day, true
}

func nonNil(list []holiday.Holiday) []holiday.Holiday {
	if list == nil {
		return []holiday.Holiday{}
	}
	return list
}

func (h *Handler) record(r *http.Request, action, entityID string, details any) {
	if h.Audit == nil {
		return
	}
	user, _ := middleware.GetUser(r.Context())
	err := h.Audit.Record(r.Context(), audit.Entry{
		ActorID:    user.UserID,
		Action:     action,
		EntityType: "public_holiday",
		EntityID:   entityID,
		RequestID:  requestctx.GetRequestID(r.Context()),
		IP:         shared.ClientIP(r),
		Details:    details,
	})
	if err != nil {
		requestctx.Logger(r.Context()).Warn("audit record failed", zap.String("action", action), zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := requestctx.GetRequestID(r.Context())
	switch {
	case errors.Is(err, holiday.ErrReadOnly):
		api.Fail(w, http.StatusConflict, "holidays_read_only", "holiday table is read only without a database", requestID)
	case errors.Is(err, holiday.ErrUnsupportedYear):
		api.Fail(w, http.StatusUnprocessableEntity, "unsupported_year", "year has no holiday table; set newYear to start one", requestID)
	case errors.Is(err, holiday.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "holiday_not_found", "holiday not found", requestID)
	default:
		requestctx.Logger(r.Context()).Error("holiday request failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "holidays_failed", "holiday request failed", requestID)
	}
}
