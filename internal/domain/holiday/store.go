package holiday

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type StoreAPI interface {
	ListHolidays(ctx context.Context) ([]Holiday, error)
	UpsertHoliday(ctx context.Context, h Holiday) error
	DeleteHoliday(ctx context.Context, day Day) (bool, error)
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) ListHolidays(ctx context.Context) ([]Holiday, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT holiday_date, name, observed
    FROM public_holidays
    ORDER BY holiday_date
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holidays []Holiday
	for rows.Next() {
		var date time.Time
		var h Holiday
		if err := rows.Scan(&date, &h.Name, &h.Observed); err != nil {
			return nil, err
		}
		h.Date = DayOf(date)
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

func (s *Store) UpsertHoliday(ctx context.Context, h Holiday) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO public_holidays (holiday_date, name, observed)
    VALUES ($1,$2,$3)
    ON CONFLICT (holiday_date)
    DO UPDATE SET name = EXCLUDED.name, observed = EXCLUDED.observed, updated_at = now()
  `, h.Date.Time(), h.Name, h.Observed)
	return err
}

func (s *Store) DeleteHoliday(ctx context.Context, day Day) (bool, error) {
	tag, err := s.DB.Exec(ctx, "DELETE FROM public_holidays WHERE holiday_date = $1", day.Time())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SeedHolidays copies every entry of table into the store without touching
// rows that already exist.
func (s *Store) SeedHolidays(ctx context.Context, table *Table) error {
	for _, h := range table.All() {
		if _, err := s.DB.Exec(ctx, `
      INSERT INTO public_holidays (holiday_date, name, observed)
      VALUES ($1,$2,$3)
      ON CONFLICT (holiday_date) DO NOTHING
    `, h.Date.Time(), h.Name, h.Observed); err != nil {
			return err
		}
	}
	return nil
}
