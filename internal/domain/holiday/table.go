package holiday

import (
	"fmt"
	"sort"
	"time"
)

// Table is an immutable public holiday lookup scoped to a set of supported years.
// A year can be supported with no holidays in it.
type Table struct {
	years map[int]struct{}
	days  map[Day]Holiday
}

// NewTable builds a table supporting the given years plus every year that
// appears in holidays. Later entries for the same date win.
func NewTable(years []int, holidays ...Holiday) *Table {
	t := &Table{
		years: make(map[int]struct{}, len(years)),
		days:  make(map[Day]Holiday, len(holidays)),
	}
	for _, year := range years {
		t.years[year] = struct{}{}
	}
	for _, h := range holidays {
		t.years[h.Date.Year] = struct{}{}
		t.days[h.Date] = h
	}
	return t
}

func (t *Table) Supports(year int) bool {
	if t == nil {
		return false
	}
	_, ok := t.years[year]
	return ok
}

func (t *Table) Years() []int {
	if t == nil {
		return nil
	}
	out := make([]int, 0, len(t.years))
	for year := range t.years {
		out = append(out, year)
	}
	sort.Ints(out)
	return out
}

func (t *Table) Lookup(date time.Time) (Holiday, bool) {
	if t == nil {
		return Holiday{}, false
	}
	h, ok := t.days[DayOf(date)]
	return h, ok
}

// IsHoliday reports whether date is a public holiday. Dates in years the
// table does not cover fail with ErrUnsupportedYear instead of reading as
// ordinary days.
func (t *Table) IsHoliday(date time.Time) (bool, error) {
	if !t.Supports(date.Year()) {
		return false, fmt.Errorf("%w %d", ErrUnsupportedYear, date.Year())
	}
	_, ok := t.days[DayOf(date)]
	return ok, nil
}

func (t *Table) ForYear(year int) []Holiday {
	if t == nil {
		return nil
	}
	var out []Holiday
	for day, h := range t.days {
		if day.Year == year {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

func (t *Table) All() []Holiday {
	var out []Holiday
	for _, year := range t.Years() {
		out = append(out, t.ForYear(year)...)
	}
	return out
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.days)
}

// Overlay returns a table where every year present in rows replaces that
// year of base entirely. Years only in base are carried over unchanged.
func Overlay(base *Table, rows []Holiday) *Table {
	overridden := map[int]struct{}{}
	for _, h := range rows {
		overridden[h.Date.Year] = struct{}{}
	}

	years := base.Years()
	holidays := make([]Holiday, 0, base.Len()+len(rows))
	for _, h := range base.All() {
		if _, ok := overridden[h.Date.Year]; ok {
			continue
		}
		holidays = append(holidays, h)
	}
	holidays = append(holidays, rows...)
	return NewTable(years, holidays...)
}
