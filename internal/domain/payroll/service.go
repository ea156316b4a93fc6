package payroll

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"paycalc/internal/domain/holiday"
)

// Holidays supplies the holiday table in force for a calculation.
type Holidays interface {
	Current() *holiday.Table
}

// Mailer delivers a payslip document to an employee.
type Mailer interface {
	Send(ctx context.Context, to, subject, body, attachmentName string, attachment []byte) error
}

type Service struct {
	store    StoreAPI
	holidays Holidays
	mailer   Mailer
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(store StoreAPI, holidays Holidays, mailer Mailer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		holidays: holidays,
		mailer:   mailer,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) lookup() HolidayLookup {
	if s.holidays == nil {
		return nil
	}
	return s.holidays.Current()
}

func (s *Service) Calculate(ctx context.Context, req CalculateRequest) (PayslipCalculation, error) {
	calc, err := Calculate(req.WorkDays, req.MonthlyBaseSalary, s.lookup())
	if err != nil {
		return PayslipCalculation{}, err
	}
	s.logger.Debug("payslip calculated",
		zap.Int("days", calc.TotalDays),
		zap.Float64("totalPay", calc.TotalPay))
	return calc, nil
}

func (s *Service) CreatePayslip(ctx context.Context, actorID string, req CreatePayslipRequest) (Payslip, error) {
	name := strings.TrimSpace(req.EmployeeName)
	calc, err := Calculate(req.WorkDays, req.MonthlyBaseSalary, s.lookup())
	if name == "" {
		verr := &ValidationError{}
		if err != nil && !errors.As(err, &verr) {
			return Payslip{}, err
		}
		verr.add("employeeName", ErrMissingEmployee)
		return Payslip{}, verr
	}
	if err != nil {
		return Payslip{}, err
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	period := strings.TrimSpace(req.PeriodLabel)
	if period == "" {
		period = periodFromDays(req.WorkDays)
	}

	payslip := Payslip{
		ID:                uuid.NewString(),
		EmployeeName:      name,
		EmployeeEmail:     strings.TrimSpace(req.EmployeeEmail),
		PeriodLabel:       period,
		Currency:          currency,
		MonthlyBaseSalary: req.MonthlyBaseSalary,
		WorkDays:          req.WorkDays,
		Calculation:       calc,
		CreatedBy:         actorID,
		CreatedAt:         s.now().UTC(),
	}
	if err := s.store.CreatePayslip(ctx, payslip); err != nil {
		return Payslip{}, fmt.Errorf("store payslip: %w", err)
	}
	s.logger.Info("payslip created",
		zap.String("payslipId", payslip.ID),
		zap.String("period", payslip.PeriodLabel),
		zap.Float64("totalPay", calc.TotalPay))
	return payslip, nil
}

func (s *Service) GetPayslip(ctx context.Context, id string) (Payslip, error) {
	return s.store.GetPayslip(ctx, id)
}

func (s *Service) ListPayslips(ctx context.Context, limit, offset int) ([]Payslip, int, error) {
	total, err := s.store.CountPayslips(ctx)
	if err != nil {
		return nil, 0, err
	}
	payslips, err := s.store.ListPayslips(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return payslips, total, nil
}

// EmailPayslip renders the payslip PDF and mails it to the employee.
func (s *Service) EmailPayslip(ctx context.Context, id string) error {
	payslip, err := s.store.GetPayslip(ctx, id)
	if err != nil {
		return err
	}
	if payslip.EmployeeEmail == "" {
		return ErrNoRecipient
	}
	if s.mailer == nil {
		return fmt.Errorf("no mailer configured")
	}

	var doc bytes.Buffer
	if err := RenderPDF(payslip, &doc); err != nil {
		return fmt.Errorf("render payslip: %w", err)
	}
	subject := fmt.Sprintf("Payslip %s", payslip.PeriodLabel)
	body := fmt.Sprintf("Hello %s,\n\nYour payslip for %s is attached. Total pay: %s.\n",
		payslip.EmployeeName, payslip.PeriodLabel, formatMoney(payslip.Calculation.TotalPay, payslip.Currency))
	if err := s.mailer.Send(ctx, payslip.EmployeeEmail, subject, body, PDFFileName(payslip), doc.Bytes()); err != nil {
		return fmt.Errorf("send payslip: %w", err)
	}
	s.logger.Info("payslip emailed", zap.String("payslipId", payslip.ID))
	return nil
}

// periodFromDays labels a payslip by the month of its earliest day.
func periodFromDays(days []WorkDay) string {
	var first time.Time
	for _, day := range days {
		if first.IsZero() || day.Date.Before(first) {
			first = day.Date
		}
	}
	if first.IsZero() {
		return ""
	}
	return first.Format("2006-01")
}
