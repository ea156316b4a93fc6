package payrollhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"paycalc/internal/domain/audit"
	"paycalc/internal/domain/auth"
	"paycalc/internal/domain/holiday"
	"paycalc/internal/domain/payroll"
	"paycalc/internal/platform/metrics"
	"paycalc/internal/transport/http/middleware"
	"paycalc/internal/transport/http/shared"
)

const testSecret = "payroll-handler-secret"

type queuedJob struct {
	jobType, key string
	run          func(context.Context) error
}

type manualQueue struct {
	mu   sync.Mutex
	jobs []queuedJob
	full bool
}

func (q *manualQueue) Enqueue(jobType, key string, run func(context.Context) error) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.full {
		return false
	}
	q.jobs = append(q.jobs, queuedJob{jobType: jobType, key: key, run: run})
	return true
}

type sentMail struct {
	to   string
	name string
}

type memoryMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *memoryMailer) Send(_ context.Context, to, _, _, name string, _ []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: to, name: name})
	return nil
}

type harness struct {
	router  http.Handler
	queue   *manualQueue
	mailer  *memoryMailer
	audit   *audit.MemoryLog
	metrics *metrics.Collector
	idem    *middleware.MemoryIdempotencyStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	base, err := holiday.Default()
	require.NoError(t, err)
	calendar := holiday.NewCalendar(base, nil, nil)

	h := &harness{
		queue:   &manualQueue{},
		mailer:  &memoryMailer{},
		audit:   audit.NewMemoryLog(),
		metrics: metrics.New(),
		idem:    middleware.NewMemoryIdempotencyStore(),
	}
	svc := payroll.NewService(payroll.NewMemoryStore(), calendar, h.mailer, nil)
	handler := NewHandler(svc, auth.StaticPermissions{}, h.queue, h.audit, h.idem, h.metrics)

	r := chi.NewRouter()
	r.Use(middleware.Auth(testSecret))
	handler.RegisterRoutes(r)
	h.router = r
	return h
}

func token(t *testing.T, role string) string {
	t.Helper()
	tok, err := auth.GenerateToken(testSecret, auth.Claims{UserID: "user-" + role, Email: role + "@example.com", Role: role}, time.Hour)
	require.NoError(t, err)
	return tok
}

func (h *harness) do(t *testing.T, method, path, role, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, role))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Details struct {
			Fields []shared.ValidationIssue `json:"fields"`
		} `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

const calculateBody = `{
  "monthlyBaseSalary": 16800,
  "workDays": [
    {"date": "2025-03-03", "hoursWorked": 10},
    {"date": "2025-03-08", "hoursWorked": 4},
    {"date": "2025-03-09", "hoursWorked": 4},
    {"date": "2025-03-21", "hoursWorked": 8}
  ]
}`

func TestCalculate(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/payroll/calculate", auth.RoleViewer, calculateBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var calc payroll.PayslipCalculation
	env := decode(t, rec, &calc)
	assert.True(t, env.Success)
	assert.Equal(t, 100.0, calc.HourlyRate)
	assert.Equal(t, 8.0, calc.RegularHours)
	assert.Equal(t, payroll.OvertimeBreakdown{Saturday: 6, Sunday: 4, PublicHoliday: 8}, calc.OvertimeHours)
	assert.Equal(t, payroll.OvertimeBreakdown{Saturday: 900, Sunday: 800, PublicHoliday: 1600}, calc.OvertimePay)
	assert.Equal(t, 4100.0, calc.TotalPay)
	assert.Equal(t, 4, calc.TotalDays)
	assert.Equal(t, uint64(1), h.metrics.Snapshot()["calculationsTotal"])
}

func TestCalculateValidationErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantFields []string
	}{
		{
			name:       "missing salary and hours",
			body:       `{"workDays":[{"date":"2025-03-03"}]}`,
			wantFields: []string{"monthlyBaseSalary", "workDays[0].hoursWorked"},
		},
		{
			name:       "bad date",
			body:       `{"monthlyBaseSalary":16800,"workDays":[{"date":"03/03/2025","hoursWorked":8}]}`,
			wantFields: []string{"workDays[0].date"},
		},
		{
			name:       "domain rules",
			body:       `{"monthlyBaseSalary":-5,"workDays":[{"date":"2025-03-03","hoursWorked":25},{"date":"2031-01-06","hoursWorked":8}]}`,
			wantFields: []string{"monthlyBaseSalary", "workDays[0].hoursWorked", "workDays[1].date"},
		},
		{
			name:       "salary too large to pay",
			body:       `{"monthlyBaseSalary":1.7e308,"workDays":[{"date":"2025-03-02","hoursWorked":24},{"date":"2025-03-09","hoursWorked":24},{"date":"2025-03-16","hoursWorked":24},{"date":"2025-03-23","hoursWorked":24},{"date":"2025-03-30","hoursWorked":24}]}`,
			wantFields: []string{"monthlyBaseSalary"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			rec := h.do(t, http.MethodPost, "/payroll/calculate", auth.RoleViewer, tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			env := decode(t, rec, nil)
			require.NotNil(t, env.Error)
			assert.Equal(t, "validation_error", env.Error.Code)
			var fields []string
			for _, issue := range env.Error.Details.Fields {
				fields = append(fields, issue.Field)
			}
			assert.ElementsMatch(t, tc.wantFields, fields)
			assert.Equal(t, uint64(1), h.metrics.Snapshot()["calculationsRejectedTotal"])
		})
	}
}

func TestCalculateRejectsUnknownFieldsAndAnonymous(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/payroll/calculate", auth.RoleViewer, `{"monthlyBaseSalary":1,"bonus":5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_payload", decode(t, rec, nil).Error.Code)

	rec = h.do(t, http.MethodPost, "/payroll/calculate", "", calculateBody)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

const payslipBody = `{
  "monthlyBaseSalary": 16800,
  "employeeName": "Thandi Mokoena",
  "employeeEmail": "thandi@example.com",
  "workDays": [
    {"date": "2025-03-03", "hoursWorked": 10},
    {"date": "2025-03-08", "hoursWorked": 4}
  ]
}`

func TestCreatePayslipFlow(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/payroll/payslips", auth.RoleViewer, payslipBody)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, http.MethodPost, "/payroll/payslips", auth.RolePayroll, payslipBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created payroll.Payslip
	decode(t, rec, &created)
	assert.Equal(t, "Thandi Mokoena", created.EmployeeName)
	assert.Equal(t, "2025-03", created.PeriodLabel)
	assert.Equal(t, "user-payroll", created.CreatedBy)
	assert.Equal(t, 1700.0, created.Calculation.TotalPay)

	rec = h.do(t, http.MethodGet, "/payroll/payslips/"+created.ID, auth.RoleViewer, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var fetched payroll.Payslip
	decode(t, rec, &fetched)
	assert.Equal(t, created.ID, fetched.ID)

	rec = h.do(t, http.MethodGet, "/payroll/payslips?limit=10", auth.RoleViewer, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Total-Count"))

	events, err := h.audit.List(context.Background(), audit.Filter{Action: audit.ActionPayslipCreate}, 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, created.ID, events[0].EntityID)
}

func TestCreatePayslipValidation(t *testing.T) {
	h := newHarness(t)

	body := `{"monthlyBaseSalary":16800,"employeeName":" ","employeeEmail":"nope","workDays":[]}`
	rec := h.do(t, http.MethodPost, "/payroll/payslips", auth.RolePayroll, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	env := decode(t, rec, nil)
	var fields []string
	for _, issue := range env.Error.Details.Fields {
		fields = append(fields, issue.Field)
	}
	assert.Equal(t, []string{"employeeEmail", "employeeName"}, fields)
}

func TestCreatePayslipIdempotency(t *testing.T) {
	h := newHarness(t)

	first := h.do(t, http.MethodPost, "/payroll/payslips", auth.RolePayroll, payslipBody, "Idempotency-Key", "key-1")
	require.Equal(t, http.StatusCreated, first.Code)
	var a payroll.Payslip
	decode(t, first, &a)

	replay := h.do(t, http.MethodPost, "/payroll/payslips", auth.RolePayroll, payslipBody, "Idempotency-Key", "key-1")
	require.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replay"))
	var b payroll.Payslip
	decode(t, replay, &b)
	assert.Equal(t, a.ID, b.ID)

	conflict := h.do(t, http.MethodPost, "/payroll/payslips", auth.RolePayroll,
		`{"monthlyBaseSalary":20000,"employeeName":"Other","workDays":[]}`, "Idempotency-Key", "key-1")
	assert.Equal(t, http.StatusConflict, conflict.Code)

	list := h.do(t, http.MethodGet, "/payroll/payslips", auth.RoleViewer, "")
	assert.Equal(t, "1", list.Header().Get("X-Total-Count"))
}

func TestCreatePayslipKeyHeldByRunningRequest(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.idem.Reserve(context.Background(), "user-"+auth.RolePayroll, createPayslipEndpoint, "key-1", middleware.RequestHash([]byte(payslipBody)))
	require.NoError(t, err)

	rec := h.do(t, http.MethodPost, "/payroll/payslips", auth.RolePayroll, payslipBody, "Idempotency-Key", "key-1")
	require.Equal(t, http.StatusConflict, rec.Code)
	env := decode(t, rec, nil)
	assert.Equal(t, "idempotency_in_progress", env.Error.Code)

	list := h.do(t, http.MethodGet, "/payroll/payslips", auth.RoleViewer, "")
	assert.Equal(t, "0", list.Header().Get("X-Total-Count"))
}

func TestCreatePayslipConcurrentSameKeyCreatesOnce(t *testing.T) {
	h := newHarness(t)

	const callers = 8
	bearer := "Bearer " + token(t, auth.RolePayroll)
	codes := make(chan int, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/payroll/payslips", bytes.NewBufferString(payslipBody))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", bearer)
			req.Header.Set("Idempotency-Key", "key-1")
			rec := httptest.NewRecorder()
			h.router.ServeHTTP(rec, req)
			codes <- rec.Code
		}()
	}
	wg.Wait()
	close(codes)
	for code := range codes {
		assert.Contains(t, []int{http.StatusCreated, http.StatusConflict}, code)
	}

	list := h.do(t, http.MethodGet, "/payroll/payslips", auth.RoleViewer, "")
	assert.Equal(t, "1", list.Header().Get("X-Total-Count"))
}

func TestCreatePayslipReleasesKeyOnFailure(t *testing.T) {
	h := newHarness(t)

	bad := h.do(t, http.MethodPost, "/payroll/payslips", auth.RolePayroll, `{"monthlyBaseSalary":16800,"workDays":[]}`, "Idempotency-Key", "key-1")
	require.Equal(t, http.StatusBadRequest, bad.Code)

	retry := h.do(t, http.MethodPost, "/payroll/payslips", auth.RolePayroll, payslipBody, "Idempotency-Key", "key-1")
	assert.Equal(t, http.StatusCreated, retry.Code)
	assert.Empty(t, retry.Header().Get("Idempotent-Replay"))
}

func TestPayslipNotFound(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/payroll/payslips/missing", auth.RoleViewer, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "payslip_not_found", decode(t, rec, nil).Error.Code)
}

func TestPayslipDocuments(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodPost, "/payroll/payslips", auth.RolePayroll, payslipBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created payroll.Payslip
	decode(t, rec, &created)

	pdf := h.do(t, http.MethodGet, "/payroll/payslips/"+created.ID+"/pdf", auth.RoleViewer, "")
	require.Equal(t, http.StatusOK, pdf.Code)
	assert.Equal(t, contentTypePDF, pdf.Header().Get("Content-Type"))
	assert.Contains(t, pdf.Header().Get("Content-Disposition"), payroll.PDFFileName(created))
	assert.True(t, bytes.HasPrefix(pdf.Body.Bytes(), []byte("%PDF")))

	xlsx := h.do(t, http.MethodGet, "/payroll/payslips/export", auth.RoleViewer, "")
	require.Equal(t, http.StatusOK, xlsx.Code)
	assert.Equal(t, contentTypeXLSX, xlsx.Header().Get("Content-Type"))
	book, err := excelize.OpenReader(bytes.NewReader(xlsx.Body.Bytes()))
	require.NoError(t, err)
	defer book.Close()
	rows, err := book.GetRows(book.GetSheetList()[0])
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestEmailPayslipQueuesJob(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodPost, "/payroll/payslips", auth.RolePayroll, payslipBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created payroll.Payslip
	decode(t, rec, &created)

	rec = h.do(t, http.MethodPost, "/payroll/payslips/"+created.ID+"/email", auth.RolePayroll, "")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	require.Len(t, h.queue.jobs, 1)
	assert.Equal(t, created.ID, h.queue.jobs[0].key)

	require.NoError(t, h.queue.jobs[0].run(context.Background()))
	require.Len(t, h.mailer.sent, 1)
	assert.Equal(t, "thandi@example.com", h.mailer.sent[0].to)

	h.queue.full = true
	rec = h.do(t, http.MethodPost, "/payroll/payslips/"+created.ID+"/email", auth.RolePayroll, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestEmailPayslipWithoutRecipient(t *testing.T) {
	h := newHarness(t)
	body := `{"monthlyBaseSalary":16800,"employeeName":"No Mail","workDays":[{"date":"2025-03-03","hoursWorked":8}]}`
	rec := h.do(t, http.MethodPost, "/payroll/payslips", auth.RolePayroll, body)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created payroll.Payslip
	decode(t, rec, &created)

	rec = h.do(t, http.MethodPost, "/payroll/payslips/"+created.ID+"/email", auth.RolePayroll, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, h.queue.jobs)
}
