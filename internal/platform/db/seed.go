package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"paycalc/internal/domain/auth"
	"paycalc/internal/domain/holiday"
	"paycalc/internal/platform/config"
)

// Seed creates the bootstrap admin account and copies the base holiday table
// into public_holidays for years that have no rows yet.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config, base *holiday.Table) error {
	if err := ensureAdminUser(ctx, auth.NewStore(pool), cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
		return err
	}
	if base == nil {
		return nil
	}
	store := holiday.NewStore(pool)
	existing, err := store.ListHolidays(ctx)
	if err != nil {
		return err
	}
	return store.SeedHolidays(ctx, unseededYears(base, existing))
}

type userSeeder interface {
	EnsureUser(ctx context.Context, email, role, passwordHash string) error
}

func ensureAdminUser(ctx context.Context, users userSeeder, email, password string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return users.EnsureUser(ctx, strings.ToLower(strings.TrimSpace(email)), auth.RoleAdmin, hash)
}

// unseededYears keeps the base entries whose year has no stored rows, so
// holidays deleted through the API stay deleted across restarts.
func unseededYears(base *holiday.Table, existing []holiday.Holiday) *holiday.Table {
	stored := map[int]struct{}{}
	for _, h := range existing {
		stored[h.Date.Year] = struct{}{}
	}
	var keep []holiday.Holiday
	for _, h := range base.All() {
		if _, ok := stored[h.Date.Year]; !ok {
			keep = append(keep, h)
		}
	}
	return holiday.NewTable(nil, keep...)
}
