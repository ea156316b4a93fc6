package payrollhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"paycalc/internal/domain/audit"
	"paycalc/internal/domain/auth"
	"paycalc/internal/domain/payroll"
	"paycalc/internal/platform/jobs"
	"paycalc/internal/platform/metrics"
	"paycalc/internal/requestctx"
	"paycalc/internal/transport/http/api"
	"paycalc/internal/transport/http/middleware"
	"paycalc/internal/transport/http/shared"
)

const (
	contentTypePDF  = "application/pdf"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	createPayslipEndpoint = "payroll.payslips.create"
	emailJobTimeout       = time.Minute
)

// Enqueuer hands work to the background job worker.
type Enqueuer interface {
	Enqueue(jobType, key string, run func(context.Context) error) bool
}

type Handler struct {
	Service     *payroll.Service
	Perms       middleware.PermissionStore
	Jobs        Enqueuer
	Audit       audit.Recorder
	Idempotency middleware.IdempotencyKeys
	Metrics     *metrics.Collector
}

func NewHandler(service *payroll.Service, perms middleware.PermissionStore, jobQueue Enqueuer, recorder audit.Recorder, idem middleware.IdempotencyKeys, collector *metrics.Collector) *Handler {
	return &Handler{
		Service:     service,
		Perms:       perms,
		Jobs:        jobQueue,
		Audit:       recorder,
		Idempotency: idem,
		Metrics:     collector,
	}
}

type workDayPayload struct {
	Date            string   `json:"date"`
	HoursWorked     *float64 `json:"hoursWorked"`
	IsPublicHoliday bool     `json:"isPublicHoliday"`
}

type calculatePayload struct {
	MonthlyBaseSalary *float64         `json:"monthlyBaseSalary"`
	WorkDays          []workDayPayload `json:"workDays"`
}

type createPayslipPayload struct {
	calculatePayload
	EmployeeName  string `json:"employeeName"`
	EmployeeEmail string `json:"employeeEmail"`
	PeriodLabel   string `json:"periodLabel"`
	Currency      string `json:"currency"`
}

type emailQueuedResponse struct {
	PayslipID string `json:"payslipId"`
	Queued    bool   `json:"queued"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/payroll", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermPayrollCalculate, h.Perms)).Post("/calculate", h.handleCalculate)
		r.With(middleware.RequirePermission(auth.PermPayrollWrite, h.Perms)).Post("/payslips", h.handleCreatePayslip)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/payslips", h.handleListPayslips)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/payslips/export", h.handleExportRegister)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/payslips/{payslipID}", h.handleGetPayslip)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/payslips/{payslipID}/pdf", h.handleDownloadPDF)
		r.With(middleware.RequirePermission(auth.PermPayrollWrite, h.Perms)).Post("/payslips/{payslipID}/email", h.handleEmailPayslip)
	})
}

// toRequest converts the wire payload, recording field problems that the
// domain cannot see, such as unparseable dates or missing numbers.
func (p calculatePayload) toRequest(v *shared.Validator) payroll.CalculateRequest {
	req := payroll.CalculateRequest{WorkDays: make([]payroll.WorkDay, 0, len(p.WorkDays))}
	if p.MonthlyBaseSalary == nil {
		v.Add("monthlyBaseSalary", "is required")
	} else {
		req.MonthlyBaseSalary = *p.MonthlyBaseSalary
	}
	for i, day := range p.WorkDays {
		date, _ := v.Date(fmt.Sprintf("workDays[%d].date", i), day.Date)
		hours := 0.0
		if day.HoursWorked == nil {
			v.Add(fmt.Sprintf("workDays[%d].hoursWorked", i), "is required")
		} else {
			hours = *day.HoursWorked
		}
		req.WorkDays = append(req.WorkDays, payroll.WorkDay{
			Date:            date,
			HoursWorked:     hours,
			IsPublicHoliday: day.IsPublicHoliday,
		})
	}
	return req
}

func (h *Handler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())
	var payload calculatePayload
	if !decodePayload(w, r, &payload) {
		return
	}

	v := shared.NewValidator()
	req := payload.toRequest(v)
	if v.Reject(w, requestID) {
		h.Metrics.RecordCalculation(true)
		return
	}

	calc, err := h.Service.Calculate(r.Context(), req)
	if err != nil {
		h.Metrics.RecordCalculation(isValidation(err))
		writeServiceError(w, r, err)
		return
	}
	h.Metrics.RecordCalculation(false)
	api.Success(w, calc, requestID)
}

func (h *Handler) handleCreatePayslip(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		failBody(w, err, requestID)
		return
	}
	idemKey := r.Header.Get(middleware.IdempotencyHeader)
	requestHash := middleware.RequestHash(body)
	keyed := idemKey != "" && h.Idempotency != nil
	if keyed {
		stored, found, err := h.Idempotency.Reserve(r.Context(), user.UserID, createPayslipEndpoint, idemKey, requestHash)
		switch {
		case errors.Is(err, middleware.ErrIdempotencyConflict):
			api.Fail(w, http.StatusConflict, "idempotency_conflict", "idempotency key was used with a different payload", requestID)
			return
		case errors.Is(err, middleware.ErrIdempotencyInProgress):
			api.Fail(w, http.StatusConflict, "idempotency_in_progress", "a request with this idempotency key is still running", requestID)
			return
		case err != nil:
			requestctx.Logger(r.Context()).Error("idempotency reserve failed", zap.Error(err))
			api.Fail(w, http.StatusInternalServerError, "idempotency_failed", "failed to check idempotency key", requestID)
			return
		case found:
			w.Header().Set("Idempotent-Replay", "true")
			api.Created(w, stored, requestID)
			return
		}
	}
	saved := false
	defer func() {
		if !keyed || saved {
			return
		}
		if err := h.Idempotency.Release(context.WithoutCancel(r.Context()), user.UserID, createPayslipEndpoint, idemKey); err != nil {
			requestctx.Logger(r.Context()).Warn("idempotency release failed", zap.Error(err))
		}
	}()

	var payload createPayslipPayload
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}

	v := shared.NewValidator()
	calcReq := payload.toRequest(v)
	v.Required("employeeName", payload.EmployeeName, "is required")
	v.Email("employeeEmail", payload.EmployeeEmail)
	if v.Reject(w, requestID) {
		return
	}

	payslip, err := h.Service.CreatePayslip(r.Context(), user.UserID, payroll.CreatePayslipRequest{
		CalculateRequest: calcReq,
		EmployeeName:     payload.EmployeeName,
		EmployeeEmail:    payload.EmployeeEmail,
		PeriodLabel:      payload.PeriodLabel,
		Currency:         payload.Currency,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if keyed {
		encoded, err := json.Marshal(payslip)
		if err == nil {
			err = h.Idempotency.Save(r.Context(), user.UserID, createPayslipEndpoint, idemKey, requestHash, encoded)
		}
		if err != nil {
			requestctx.Logger(r.Context()).Warn("idempotency save failed", zap.Error(err))
		} else {
			saved = true
		}
	}
	h.record(r, user, audit.ActionPayslipCreate, payslip.ID, map[string]any{
		"periodLabel": payslip.PeriodLabel,
		"totalPay":    payslip.Calculation.TotalPay,
	})
	api.Created(w, payslip, requestID)
}

func (h *Handler) handleListPayslips(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())
	page := shared.ParsePagination(r, 25, 100)
	payslips, total, err := h.Service.ListPayslips(r.Context(), page.Limit, page.Offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if payslips == nil {
		payslips = []payroll.Payslip{}
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, payslips, requestID)
}

func (h *Handler) handleGetPayslip(w http.ResponseWriter, r *http.Request) {
	payslip, err := h.Service.GetPayslip(r.Context(), chi.URLParam(r, "payslipID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	api.Success(w, payslip, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleDownloadPDF(w http.ResponseWriter, r *http.Request) {
	payslip, err := h.Service.GetPayslip(r.Context(), chi.URLParam(r, "payslipID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := payroll.RenderPDF(payslip, &buf); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeAttachment(w, r, contentTypePDF, payroll.PDFFileName(payslip), buf.Bytes())
}

func (h *Handler) handleExportRegister(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.Service.ExportRegister(r.Context(), &buf); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeAttachment(w, r, contentTypeXLSX, "payslip-register.xlsx", buf.Bytes())
}

func (h *Handler) handleEmailPayslip(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}
	payslip, err := h.Service.GetPayslip(r.Context(), chi.URLParam(r, "payslipID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if payslip.EmployeeEmail == "" {
		writeServiceError(w, r, payroll.ErrNoRecipient)
		return
	}

	id := payslip.ID
	queued := h.Jobs.Enqueue(jobs.JobPayslipEmail, id, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, emailJobTimeout)
		defer cancel()
		return h.Service.EmailPayslip(ctx, id)
	})
	if !queued {
		api.Fail(w, http.StatusServiceUnavailable, "queue_full", "email queue is full, retry later", requestID)
		return
	}
	h.record(r, user, audit.ActionPayslipEmail, id, map[string]any{"to": payslip.EmployeeEmail})
	api.Accepted(w, emailQueuedResponse{PayslipID: id, Queued: true}, requestID)
}

func (h *Handler) record(r *http.Request, user auth.UserContext, action, entityID string, details any) {
	if h.Audit == nil {
		return
	}
	err := h.Audit.Record(r.Context(), audit.Entry{
		ActorID:    user.UserID,
		Action:     action,
		EntityType: "payslip",
		EntityID:   entityID,
		RequestID:  requestctx.GetRequestID(r.Context()),
		IP:         shared.ClientIP(r),
		Details:    details,
	})
	if err != nil {
		requestctx.Logger(r.Context()).Warn("audit record failed", zap.String("action", action), zap.Error(err))
	}
}

func decodePayload(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := api.Decode(r, dst); err != nil {
		failBody(w, err, requestctx.GetRequestID(r.Context()))
		return false
	}
	return true
}

func failBody(w http.ResponseWriter, err error, requestID string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", requestID)
		return
	}
	api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
}

func writeAttachment(w http.ResponseWriter, r *http.Request, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		requestctx.Logger(r.Context()).Warn("attachment write failed", zap.String("file", filename), zap.Error(err))
	}
}

func isValidation(err error) bool {
	var verr *payroll.ValidationError
	return errors.As(err, &verr)
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := requestctx.GetRequestID(r.Context())
	var verr *payroll.ValidationError
	switch {
	case errors.As(err, &verr):
		issues := make([]shared.ValidationIssue, 0, len(verr.Issues))
		for _, issue := range verr.Issues {
			issues = append(issues, shared.ValidationIssue{Field: issue.Field, Reason: issue.Err.Error()})
		}
		shared.FailValidation(w, requestID, issues)
	case errors.Is(err, payroll.ErrPayslipNotFound):
		api.Fail(w, http.StatusNotFound, "payslip_not_found", "payslip not found", requestID)
	case errors.Is(err, payroll.ErrNoRecipient):
		api.Fail(w, http.StatusUnprocessableEntity, "no_recipient", "payslip has no employee email", requestID)
	default:
		requestctx.Logger(r.Context()).Error("payroll request failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "payroll_failed", "payroll request failed", requestID)
	}
}
