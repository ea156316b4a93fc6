package auth

import "context"

const (
	RoleAdmin   = "admin"
	RolePayroll = "payroll"
	RoleViewer  = "viewer"
)

const (
	PermPayrollCalculate = "payroll.calculate"
	PermPayrollRead      = "payroll.read"
	PermPayrollWrite     = "payroll.write"
	PermHolidaysWrite    = "holidays.write"
	PermAuditRead        = "audit.read"
)

var DefaultPermissions = []string{
	PermPayrollCalculate,
	PermPayrollRead,
	PermPayrollWrite,
	PermHolidaysWrite,
	PermAuditRead,
}

var RolePermissions = map[string][]string{
	RoleViewer: {
		PermPayrollCalculate,
		PermPayrollRead,
	},
	RolePayroll: {
		PermPayrollCalculate,
		PermPayrollRead,
		PermPayrollWrite,
	},
	RoleAdmin: {
		PermPayrollCalculate,
		PermPayrollRead,
		PermPayrollWrite,
		PermHolidaysWrite,
		PermAuditRead,
	},
}

func ValidRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}

// StaticPermissions resolves permissions from RolePermissions.
type StaticPermissions struct{}

func (StaticPermissions) HasPermission(_ context.Context, role, permission string) (bool, error) {
	for _, perm := range RolePermissions[role] {
		if perm == permission {
			return true, nil
		}
	}
	return false, nil
}
