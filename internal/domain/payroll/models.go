package payroll

import "time"

// WorkDay is one calendar day of logged hours. When IsPublicHoliday is false
// the date is still checked against the holiday table.
type WorkDay struct {
	Date            time.Time `json:"date"`
	HoursWorked     float64   `json:"hoursWorked"`
	IsPublicHoliday bool      `json:"isPublicHoliday"`
}

type OvertimeBreakdown struct {
	Saturday      float64 `json:"saturday"`
	Sunday        float64 `json:"sunday"`
	PublicHoliday float64 `json:"publicHoliday"`
}

func (b OvertimeBreakdown) Total() float64 {
	return b.Saturday + b.Sunday + b.PublicHoliday
}

// PayslipCalculation is the pay breakdown for one set of work days.
type PayslipCalculation struct {
	HourlyRate    float64           `json:"hourlyRate"`
	RegularHours  float64           `json:"regularHours"`
	OvertimeHours OvertimeBreakdown `json:"overtimeHours"`
	TotalDays     int               `json:"totalDays"`
	BasicSalary   float64           `json:"basicSalary"`
	OvertimePay   OvertimeBreakdown `json:"overtimePay"`
	TotalPay      float64           `json:"totalPay"`
}

type CalculateRequest struct {
	MonthlyBaseSalary float64   `json:"monthlyBaseSalary"`
	WorkDays          []WorkDay `json:"workDays"`
}

type CreatePayslipRequest struct {
	CalculateRequest
	EmployeeName  string `json:"employeeName"`
	EmployeeEmail string `json:"employeeEmail"`
	PeriodLabel   string `json:"periodLabel"`
	Currency      string `json:"currency"`
}

type Payslip struct {
	ID                string             `json:"id"`
	EmployeeName      string             `json:"employeeName"`
	EmployeeEmail     string             `json:"employeeEmail,omitempty"`
	PeriodLabel       string             `json:"periodLabel"`
	Currency          string             `json:"currency"`
	MonthlyBaseSalary float64            `json:"monthlyBaseSalary"`
	WorkDays          []WorkDay          `json:"workDays"`
	Calculation       PayslipCalculation `json:"calculation"`
	CreatedBy         string             `json:"createdBy,omitempty"`
	CreatedAt         time.Time          `json:"createdAt"`
}
