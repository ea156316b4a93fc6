package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paycalc/internal/domain/holiday"
	"paycalc/internal/domain/payroll"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestCalculateJSON(t *testing.T) {
	days := writeFile(t, "days.json", `[
  {"date": "2025-03-03", "hoursWorked": 10},
  {"date": "2025-03-08", "hoursWorked": 4},
  {"date": "2025-03-09", "hoursWorked": 4},
  {"date": "2025-03-21", "hoursWorked": 8}
]`)

	stdout, _, err := run(t, "calculate", "--salary", "16800", "--days", days, "--json")
	require.NoError(t, err)

	var calc payroll.PayslipCalculation
	require.NoError(t, json.Unmarshal([]byte(stdout), &calc))
	assert.Equal(t, 4100.0, calc.TotalPay)
	assert.Equal(t, 4, calc.TotalDays)
}

func TestCalculateAcceptsRequestBody(t *testing.T) {
	days := writeFile(t, "body.json", `{"monthlyBaseSalary": 1, "workDays": [{"date": "2025-03-08", "hoursWorked": 4}]}`)

	stdout, _, err := run(t, "calculate", "--salary", "16800", "--days", days)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Saturday")
	assert.Contains(t, stdout, "600.00")
}

func TestCalculateWritesPDF(t *testing.T) {
	days := writeFile(t, "days.json", `[{"date": "2025-03-03", "hoursWorked": 8}]`)
	out := filepath.Join(t.TempDir(), "slip.pdf")

	stdout, _, err := run(t, "calculate", "--salary", "16800", "--days", days, "--pdf", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Payslip written to")

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF")))
}

func TestCalculateRejectsInvalidInput(t *testing.T) {
	days := writeFile(t, "days.json", `[{"date": "2031-01-06", "hoursWorked": 30}]`)

	_, stderr, err := run(t, "calculate", "--salary", "16800", "--days", days)
	require.Error(t, err)
	assert.ErrorIs(t, err, payroll.ErrInvalidHours)
	assert.ErrorIs(t, err, payroll.ErrUnsupportedYear)
	assert.Contains(t, stderr, "workDays[0]")
}

func TestCalculateRequiresHoursPerDay(t *testing.T) {
	days := writeFile(t, "days.json", `[{"date": "2025-03-03", "hoursWorked": 8}, {"date": "2025-03-04"}]`)

	stdout, _, err := run(t, "calculate", "--salary", "16800", "--days", days)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hoursWorked is required")
	assert.Empty(t, stdout)
}

func TestCalculateRequiresFlags(t *testing.T) {
	_, _, err := run(t, "calculate", "--salary", "100")
	assert.Error(t, err)
}

func TestHolidaysForYear(t *testing.T) {
	stdout, _, err := run(t, "holidays", "--year", "2025")
	require.NoError(t, err)
	assert.Contains(t, stdout, "2025-04-28")
	assert.Contains(t, stdout, "(observed)")
	assert.NotContains(t, stdout, "2024-")
}

func TestHolidaysFromFile(t *testing.T) {
	file := writeFile(t, "holidays.yaml", `
version: "test"
country: "ZZ"
years:
  2030:
    - date: "2030-01-01"
      name: "New Year"
`)

	stdout, _, err := run(t, "holidays", "--holidays", file)
	require.NoError(t, err)
	assert.Contains(t, stdout, "New Year")

	_, _, err = run(t, "holidays", "--holidays", file, "--year", "2025")
	assert.ErrorIs(t, err, holiday.ErrUnsupportedYear)
}
