package payroll

import (
	"context"
	"io"

	"github.com/xuri/excelize/v2"
)

const registerSheet = "Sheet1"

var registerHeader = []string{
	"Payslip ID", "Employee", "Email", "Period", "Currency", "Base salary", "Hourly rate",
	"Days", "Regular hours", "Saturday hours", "Sunday hours", "Holiday hours",
	"Basic salary", "Saturday pay", "Sunday pay", "Holiday pay", "Total pay", "Created at",
}

// WriteRegister writes one spreadsheet row per payslip.
func WriteRegister(payslips []Payslip, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	for col, title := range registerHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(registerSheet, cell, title); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(registerSheet, "A1", "R1", boldStyle); err != nil {
		return err
	}
	if err := f.SetColWidth(registerSheet, "A", "B", 30); err != nil {
		return err
	}

	for i, p := range payslips {
		c := p.Calculation
		values := []any{
			p.ID, p.EmployeeName, p.EmployeeEmail, p.PeriodLabel, p.Currency, p.MonthlyBaseSalary, c.HourlyRate,
			c.TotalDays, c.RegularHours, c.OvertimeHours.Saturday, c.OvertimeHours.Sunday, c.OvertimeHours.PublicHoliday,
			c.BasicSalary, c.OvertimePay.Saturday, c.OvertimePay.Sunday, c.OvertimePay.PublicHoliday, c.TotalPay,
			p.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(registerSheet, cell, value); err != nil {
				return err
			}
		}
	}

	return f.Write(w)
}

// ExportRegister writes every stored payslip, newest first.
func (s *Service) ExportRegister(ctx context.Context, w io.Writer) error {
	total, err := s.store.CountPayslips(ctx)
	if err != nil {
		return err
	}
	payslips, err := s.store.ListPayslips(ctx, total, 0)
	if err != nil {
		return err
	}
	return WriteRegister(payslips, w)
}
