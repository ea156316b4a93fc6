package payroll

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) CreatePayslip(ctx context.Context, p Payslip) error {
	workDaysJSON, err := json.Marshal(p.WorkDays)
	if err != nil {
		return err
	}
	calcJSON, err := json.Marshal(p.Calculation)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
    INSERT INTO payslips (id, employee_name, employee_email, period_label, currency,
                          monthly_base_salary, total_pay, work_days_json, calculation_json,
                          created_by, created_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
  `, p.ID, p.EmployeeName, nullIfEmpty(p.EmployeeEmail), p.PeriodLabel, p.Currency,
		p.MonthlyBaseSalary, p.Calculation.TotalPay, workDaysJSON, calcJSON,
		nullIfEmpty(p.CreatedBy), p.CreatedAt)
	return err
}

const payslipColumns = `
    id, employee_name, COALESCE(employee_email, ''), period_label, currency,
    monthly_base_salary, work_days_json, calculation_json, COALESCE(created_by, ''), created_at`

func (s *Store) GetPayslip(ctx context.Context, id string) (Payslip, error) {
	row := s.DB.QueryRow(ctx, "SELECT "+payslipColumns+" FROM payslips WHERE id = $1", id)
	p, err := scanPayslip(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Payslip{}, ErrPayslipNotFound
	}
	return p, err
}

func (s *Store) CountPayslips(ctx context.Context) (int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM payslips").Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) ListPayslips(ctx context.Context, limit, offset int) ([]Payslip, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+payslipColumns+`
    FROM payslips
    ORDER BY created_at DESC, id
    LIMIT $1 OFFSET $2
  `, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payslips []Payslip
	for rows.Next() {
		p, err := scanPayslip(rows)
		if err != nil {
			return nil, err
		}
		payslips = append(payslips, p)
	}
	return payslips, rows.Err()
}

func scanPayslip(row pgx.Row) (Payslip, error) {
	var p Payslip
	var workDaysJSON, calcJSON []byte
	if err := row.Scan(&p.ID, &p.EmployeeName, &p.EmployeeEmail, &p.PeriodLabel, &p.Currency,
		&p.MonthlyBaseSalary, &workDaysJSON, &calcJSON, &p.CreatedBy, &p.CreatedAt); err != nil {
		return Payslip{}, err
	}
	if err := json.Unmarshal(workDaysJSON, &p.WorkDays); err != nil {
		return Payslip{}, err
	}
	if err := json.Unmarshal(calcJSON, &p.Calculation); err != nil {
		return Payslip{}, err
	}
	return p, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
