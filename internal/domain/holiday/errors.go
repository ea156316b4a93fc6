package holiday

import "errors"

var (
	ErrUnsupportedYear = errors.New("no public holiday table for year")
	ErrReadOnly        = errors.New("holiday table is read only")
	ErrNotFound        = errors.New("holiday not found")
)
