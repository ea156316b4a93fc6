package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"paycalc/internal/domain/holiday"
	"paycalc/internal/domain/payroll"
)

type dayEntry struct {
	Date            string   `json:"date"`
	HoursWorked     *float64 `json:"hoursWorked"`
	IsPublicHoliday bool     `json:"isPublicHoliday"`
}

func calculateCmd(loadTable func() (*holiday.Table, error)) *cobra.Command {
	var (
		salary   float64
		daysFile string
		pdfOut   string
		asJSON   bool
		employee string
		period   string
	)

	cmd := &cobra.Command{
		Use:   "calculate",
		Short: "Calculate pay for a month of logged work days",
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := loadTable()
			if err != nil {
				return fmt.Errorf("load holidays: %w", err)
			}
			days, err := readDays(daysFile)
			if err != nil {
				return err
			}

			calc, err := payroll.Calculate(days, salary, table)
			if err != nil {
				var verr *payroll.ValidationError
				if errors.As(err, &verr) {
					for _, issue := range verr.Issues {
						fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", issue.Error())
					}
				}
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(calc); err != nil {
					return err
				}
			} else if err := printBreakdown(out, calc); err != nil {
				return err
			}

			if pdfOut != "" {
				slip := payroll.Payslip{
					ID:                "local",
					EmployeeName:      employee,
					PeriodLabel:       period,
					Currency:          payroll.DefaultCurrency,
					MonthlyBaseSalary: salary,
					WorkDays:          days,
					Calculation:       calc,
				}
				if err := writePDF(pdfOut, slip); err != nil {
					return err
				}
				if !asJSON {
					fmt.Fprintf(out, "Payslip written to %s\n", pdfOut)
				}
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&salary, "salary", 0, "Monthly base salary")
	cmd.Flags().StringVar(&daysFile, "days", "", "JSON file with the work days (use - for stdin)")
	cmd.Flags().StringVar(&pdfOut, "pdf", "", "Write a payslip PDF to this path")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the calculation as JSON")
	cmd.Flags().StringVar(&employee, "employee", "Employee", "Employee name printed on the PDF")
	cmd.Flags().StringVar(&period, "period", "", "Pay period label printed on the PDF")
	_ = cmd.MarkFlagRequired("salary")
	_ = cmd.MarkFlagRequired("days")
	return cmd
}

// readDays accepts either a bare array of days or an object with a workDays
// field, so a saved API request body can be fed back in.
func readDays(path string) ([]payroll.WorkDay, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read days: %w", err)
	}

	var entries []dayEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		var wrapped struct {
			WorkDays []dayEntry `json:"workDays"`
		}
		if err2 := json.Unmarshal(raw, &wrapped); err2 != nil {
			return nil, fmt.Errorf("parse days: %w", err)
		}
		entries = wrapped.WorkDays
	}

	days := make([]payroll.WorkDay, 0, len(entries))
	for i, entry := range entries {
		day, err := holiday.ParseDay(entry.Date)
		if err != nil {
			return nil, fmt.Errorf("day %d: %w", i, err)
		}
		if entry.HoursWorked == nil {
			return nil, fmt.Errorf("day %d (%s): hoursWorked is required", i, entry.Date)
		}
		days = append(days, payroll.WorkDay{
			Date:            day.Time(),
			HoursWorked:     *entry.HoursWorked,
			IsPublicHoliday: entry.IsPublicHoliday,
		})
	}
	return days, nil
}

func printBreakdown(w io.Writer, calc payroll.PayslipCalculation) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Category\tHours\tRate\tAmount\t\n")
	fmt.Fprintf(tw, "Regular\t%.2f\t%.2f\t%.2f\t\n", calc.RegularHours, calc.HourlyRate, calc.BasicSalary)
	fmt.Fprintf(tw, "Saturday\t%.2f\t%.2f\t%.2f\t\n", calc.OvertimeHours.Saturday, calc.HourlyRate*payroll.SaturdayMultiplier, calc.OvertimePay.Saturday)
	fmt.Fprintf(tw, "Sunday\t%.2f\t%.2f\t%.2f\t\n", calc.OvertimeHours.Sunday, calc.HourlyRate*payroll.SundayMultiplier, calc.OvertimePay.Sunday)
	fmt.Fprintf(tw, "Public holiday\t%.2f\t%.2f\t%.2f\t\n", calc.OvertimeHours.PublicHoliday, calc.HourlyRate*payroll.PublicHolidayMultiplier, calc.OvertimePay.PublicHoliday)
	fmt.Fprintf(tw, "Total (%d days)\t\t\t%.2f\t\n", calc.TotalDays, calc.TotalPay)
	return tw.Flush()
}

func writePDF(path string, slip payroll.Payslip) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create pdf: %w", err)
	}
	if err := payroll.RenderPDF(slip, f); err != nil {
		_ = f.Close()
		return fmt.Errorf("render pdf: %w", err)
	}
	return f.Close()
}
