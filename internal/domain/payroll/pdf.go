package payroll

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

func PDFFileName(p Payslip) string {
	return fmt.Sprintf("payslip-%s.pdf", p.ID)
}

// RenderPDF writes a one page payslip with the hours and pay breakdown.
func RenderPDF(p Payslip, w io.Writer) error {
	return payslipPDF(p).Output(w)
}

// payslipPDF lays out the document. The core fonts are cp1252, so free text
// is translated from UTF-8 before it is drawn.
func payslipPDF(p Payslip) *gofpdf.Fpdf {
	calc := p.Calculation

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	p.EmployeeName = tr(p.EmployeeName)
	p.EmployeeEmail = tr(p.EmployeeEmail)
	p.PeriodLabel = tr(p.PeriodLabel)
	p.Currency = tr(p.Currency)

	pdf.SetTitle("Payslip "+p.PeriodLabel, false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Payslip")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s", p.EmployeeName))
	pdf.Ln(7)
	if p.EmployeeEmail != "" {
		pdf.Cell(0, 8, fmt.Sprintf("Email: %s", p.EmployeeEmail))
		pdf.Ln(7)
	}
	pdf.Cell(0, 8, fmt.Sprintf("Period: %s", p.PeriodLabel))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Monthly base salary: %s", formatMoney(p.MonthlyBaseSalary, p.Currency)))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Hourly rate: %s  (days worked: %d)", formatMoney(calc.HourlyRate, p.Currency), calc.TotalDays))
	pdf.Ln(12)

	header := []string{"Category", "Hours", "Multiplier", "Amount"}
	widths := []float64{70, 30, 30, 50}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(230, 230, 230)
	for i, title := range header {
		pdf.CellFormat(widths[i], 8, title, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 11)
	lines := []struct {
		label      string
		hours      float64
		multiplier float64
		amount     float64
	}{
		{"Regular", calc.RegularHours, 1, calc.BasicSalary},
		{"Overtime (Saturday / weekday)", calc.OvertimeHours.Saturday, SaturdayMultiplier, calc.OvertimePay.Saturday},
		{"Overtime (Sunday)", calc.OvertimeHours.Sunday, SundayMultiplier, calc.OvertimePay.Sunday},
		{"Overtime (Public holiday)", calc.OvertimeHours.PublicHoliday, PublicHolidayMultiplier, calc.OvertimePay.PublicHoliday},
	}
	for _, line := range lines {
		pdf.CellFormat(widths[0], 8, line.label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 8, fmt.Sprintf("%.2f", line.hours), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 8, fmt.Sprintf("%.1fx", line.multiplier), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 8, formatMoney(line.amount, p.Currency), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(widths[0]+widths[1]+widths[2], 8, "Total pay", "1", 0, "L", true, 0, "")
	pdf.CellFormat(widths[3], 8, formatMoney(calc.TotalPay, p.Currency), "1", 0, "R", true, 0, "")
	pdf.Ln(14)

	if len(p.WorkDays) > 0 {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.Cell(0, 8, "Logged days")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 10)
		for _, day := range p.WorkDays {
			note := ""
			if day.IsPublicHoliday {
				note = " (public holiday)"
			}
			pdf.Cell(0, 6, fmt.Sprintf("%s %s  %.2fh%s",
				day.Date.Format("2006-01-02"), day.Date.Weekday().String()[:3], day.HoursWorked, note))
			pdf.Ln(5)
		}
	}

	return pdf
}

func formatMoney(amount float64, currency string) string {
	return fmt.Sprintf("%.2f %s", amount, currency)
}
