package payroll

import "context"

type StoreAPI interface {
	CreatePayslip(ctx context.Context, payslip Payslip) error
	GetPayslip(ctx context.Context, id string) (Payslip, error)
	CountPayslips(ctx context.Context) (int, error)
	ListPayslips(ctx context.Context, limit, offset int) ([]Payslip, error)
}
