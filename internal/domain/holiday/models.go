package holiday

import (
	"fmt"
	"time"
)

const dayLayout = "2006-01-02"

// Day is a calendar date with no time of day or zone attached.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day{Year: y, Month: m, Day: d}
}

func ParseDay(value string) (Day, error) {
	parsed, err := time.Parse(dayLayout, value)
	if err != nil {
		return Day{}, fmt.Errorf("invalid holiday date %q: %w", value, err)
	}
	return DayOf(parsed), nil
}

func (d Day) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Day) String() string {
	return d.Time().Format(dayLayout)
}

func (d Day) Before(other Day) bool {
	return d.Time().Before(other.Time())
}

func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Day) UnmarshalText(text []byte) error {
	parsed, err := ParseDay(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

type Holiday struct {
	Date Day    `json:"date"`
	Name string `json:"name"`
	// Observed marks a substitute day granted because the holiday fell on a Sunday.
	Observed bool `json:"observed"`
}
