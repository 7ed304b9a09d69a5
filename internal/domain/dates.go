package domain

import (
	"time"

	"github.com/cockroachdb/errors"
)

// DateLayout is the wire and storage format for booking dates.
const DateLayout = "2006-01-02"

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(ErrInvalidArgument, "invalid date %q", s)
	}
	return t, nil
}

// EnumerateDates returns every calendar day from start to end inclusive.
func EnumerateDates(start, end string) ([]string, error) {
	from, err := ParseDate(start)
	if err != nil {
		return nil, err
	}
	to, err := ParseDate(end)
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, errors.Wrapf(ErrInvalidArgument, "end date %s before start date %s", end, start)
	}
	var dates []string
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(DateLayout))
	}
	return dates, nil
}
