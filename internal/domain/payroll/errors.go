package payroll

import (
	"errors"
	"fmt"
	"strings"

	"paycalc/internal/domain/holiday"
)

var (
	ErrInvalidSalary   = errors.New("monthly base salary must be positive")
	ErrInvalidHours    = errors.New("hours worked must be between 0 and 24")
	ErrPayOverflow     = errors.New("monthly base salary is too large to calculate pay")
	ErrUnsupportedYear = holiday.ErrUnsupportedYear
	ErrMissingDate     = errors.New("work day date is required")
	ErrDuplicateDay    = errors.New("work day listed more than once")
	ErrMissingEmployee = errors.New("employee name is required")

	ErrPayslipNotFound = errors.New("payslip not found")
	ErrNoRecipient     = errors.New("payslip has no employee email")
)

// FieldError ties one validation failure to the input field that caused it.
type FieldError struct {
	Field string
	Err   error
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e FieldError) Unwrap() error {
	return e.Err
}

// ValidationError collects every problem found in one validation pass.
// errors.Is matches any of the underlying sentinels.
type ValidationError struct {
	Issues []FieldError
}

func (e *ValidationError) add(field string, err error) {
	e.Issues = append(e.Issues, FieldError{Field: field, Err: err})
}

func (e *ValidationError) orNil() error {
	if len(e.Issues) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Error())
	}
	return "invalid payroll input: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() []error {
	out := make([]error, 0, len(e.Issues))
	for _, issue := range e.Issues {
		out = append(out, issue)
	}
	return out
}

func workDayField(index int, name string) string {
	return fmt.Sprintf("workDays[%d].%s", index, name)
}
