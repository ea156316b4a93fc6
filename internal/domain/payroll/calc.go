package payroll

import (
	"errors"
	"math"
	"time"

	"paycalc/internal/domain/holiday"
)

// HolidayLookup reports whether a date is a public holiday. It fails for
// dates outside the years it covers.
type HolidayLookup interface {
	IsHoliday(date time.Time) (bool, error)
}

func HourlyRate(monthlyBaseSalary float64) float64 {
	return monthlyBaseSalary / (RegularHoursPerDay * WorkingDaysPerMonth)
}

// Calculate turns logged work days and a monthly salary into a pay
// breakdown. Input is validated in full before any arithmetic runs. A nil
// holidays lookup means only the explicit IsPublicHoliday flags count.
func Calculate(workDays []WorkDay, monthlyBaseSalary float64, holidays HolidayLookup) (PayslipCalculation, error) {
	flags, err := resolve(workDays, monthlyBaseSalary, holidays)
	if err != nil {
		return PayslipCalculation{}, err
	}
	calc := compute(workDays, monthlyBaseSalary, flags)
	if !calc.finite() {
		verr := &ValidationError{}
		verr.add("monthlyBaseSalary", ErrPayOverflow)
		return PayslipCalculation{}, verr
	}
	return calc, nil
}

func Validate(workDays []WorkDay, monthlyBaseSalary float64, holidays HolidayLookup) error {
	_, err := Calculate(workDays, monthlyBaseSalary, holidays)
	return err
}

// resolve validates the input and returns the holiday status of every day.
func resolve(workDays []WorkDay, monthlyBaseSalary float64, holidays HolidayLookup) ([]bool, error) {
	verr := &ValidationError{}
	if !(monthlyBaseSalary > 0) || math.IsInf(monthlyBaseSalary, 1) {
		verr.add("monthlyBaseSalary", ErrInvalidSalary)
	}

	flags := make([]bool, len(workDays))
	seen := make(map[holiday.Day]int, len(workDays))
	for i, day := range workDays {
		h := day.HoursWorked
		if math.IsNaN(h) || h < 0 || h > MaxHoursPerDay {
			verr.add(workDayField(i, "hoursWorked"), ErrInvalidHours)
		}
		if day.Date.IsZero() {
			verr.add(workDayField(i, "date"), ErrMissingDate)
			continue
		}

		key := holiday.DayOf(day.Date)
		if _, dup := seen[key]; dup {
			verr.add(workDayField(i, "date"), ErrDuplicateDay)
		}
		seen[key] = i

		flags[i] = day.IsPublicHoliday
		if holidays == nil {
			continue
		}
		listed, err := holidays.IsHoliday(day.Date)
		if err != nil {
			if !errors.Is(err, ErrUnsupportedYear) {
				return nil, err
			}
			verr.add(workDayField(i, "date"), err)
			continue
		}
		flags[i] = flags[i] || listed
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return flags, nil
}

// compute assigns every day's hours to exactly one bucket. Weekday hours
// beyond the regular allotment are billed at the Saturday rate.
func compute(workDays []WorkDay, monthlyBaseSalary float64, holidayFlags []bool) PayslipCalculation {
	rate := HourlyRate(monthlyBaseSalary)

	var regular float64
	var overtime OvertimeBreakdown
	for i, day := range workDays {
		hours := day.HoursWorked
		switch weekday := day.Date.Weekday(); {
		case holidayFlags[i]:
			overtime.PublicHoliday += hours
		case weekday == time.Saturday:
			overtime.Saturday += hours
		case weekday == time.Sunday:
			overtime.Sunday += hours
		case hours > RegularHoursPerDay:
			regular += RegularHoursPerDay
			overtime.Saturday += hours - RegularHoursPerDay
		default:
			regular += hours
		}
	}

	basic := regular * rate
	pay := OvertimeBreakdown{
		Saturday:      overtime.Saturday * rate * SaturdayMultiplier,
		Sunday:        overtime.Sunday * rate * SundayMultiplier,
		PublicHoliday: overtime.PublicHoliday * rate * PublicHolidayMultiplier,
	}

	return PayslipCalculation{
		HourlyRate:    rate,
		RegularHours:  regular,
		OvertimeHours: overtime,
		TotalDays:     len(workDays),
		BasicSalary:   basic,
		OvertimePay:   pay,
		TotalPay:      basic + pay.Saturday + pay.Sunday + pay.PublicHoliday,
	}
}

func (c PayslipCalculation) finite() bool {
	for _, v := range []float64{
		c.HourlyRate, c.BasicSalary, c.TotalPay,
		c.OvertimePay.Saturday, c.OvertimePay.Sunday, c.OvertimePay.PublicHoliday,
	} {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return false
		}
	}
	return true
}
