package payroll

const (
	// RegularHoursPerDay caps ordinary weekday hours; anything above is overtime.
	RegularHoursPerDay = 8.0
	// WorkingDaysPerMonth is a fixed assumption and does not follow the calendar.
	WorkingDaysPerMonth = 21.0
	MaxHoursPerDay      = 24.0

	SaturdayMultiplier      = 1.5
	SundayMultiplier        = 2.0
	PublicHolidayMultiplier = 2.0

	DefaultCurrency = "ZAR"
)
