package holiday

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Calendar holds the holiday table currently in force. Reads never block on
// a reload; a reload swaps the whole table.
type Calendar struct {
	mu      sync.RWMutex
	base    *Table
	current *Table
	store   StoreAPI
	logger  *zap.Logger
}

// NewCalendar starts from base. A nil store makes the calendar read only.
func NewCalendar(base *Table, store StoreAPI, logger *zap.Logger) *Calendar {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calendar{
		base:    base,
		current: base,
		store:   store,
		logger:  logger,
	}
}

func (c *Calendar) Current() *Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

func (c *Calendar) Replace(table *Table) {
	c.mu.Lock()
	c.current = table
	c.mu.Unlock()
}

func (c *Calendar) Writable() bool {
	return c.store != nil
}

// Reload rebuilds the table from base overlaid with the stored rows.
func (c *Calendar) Reload(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	rows, err := c.store.ListHolidays(ctx)
	if err != nil {
		return fmt.Errorf("load holidays: %w", err)
	}
	table := Overlay(c.base, rows)
	c.Replace(table)
	c.logger.Info("holiday table reloaded",
		zap.Ints("years", table.Years()),
		zap.Int("holidays", table.Len()))
	return nil
}

// Upsert adds or renames a holiday in a year the calendar already covers.
// A year outside the table is refused; use StartYear to begin one.
func (c *Calendar) Upsert(ctx context.Context, h Holiday) error {
	if c.store == nil {
		return ErrReadOnly
	}
	if !c.Current().Supports(h.Date.Year) {
		return fmt.Errorf("%w %d", ErrUnsupportedYear, h.Date.Year)
	}
	return c.write(ctx, h)
}

// StartYear stores h and with it brings h's year into the table. Every
// other holiday of that year must then be added before pay in that year is
// trustworthy, since unlisted dates count as ordinary days.
func (c *Calendar) StartYear(ctx context.Context, h Holiday) error {
	if c.store == nil {
		return ErrReadOnly
	}
	return c.write(ctx, h)
}

func (c *Calendar) write(ctx context.Context, h Holiday) error {
	if err := c.store.UpsertHoliday(ctx, h); err != nil {
		return err
	}
	return c.Reload(ctx)
}

func (c *Calendar) Delete(ctx context.Context, day Day) error {
	if c.store == nil {
		return ErrReadOnly
	}
	deleted, err := c.store.DeleteHoliday(ctx, day)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return c.Reload(ctx)
}
