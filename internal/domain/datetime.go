package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// TripDate is a calendar date with no timezone. The backend exchanges dates as
// ISO8601 date strings; parsing splits on separators instead of going through
// time.Parse so an offset can never shift the calendar day.
type TripDate struct {
	Year  int
	Month int
	Day   int
}

// ParseTripDate accepts "2006-01-02" as well as full timestamps such as
// "2006-01-02T15:04:05.000Z"; anything after the date part is ignored.
func ParseTripDate(s string) (TripDate, error) {
	datePart := strings.TrimSpace(s)
	if i := strings.IndexAny(datePart, "T "); i >= 0 {
		datePart = datePart[:i]
	}
	parts := strings.Split(datePart, "-")
	if len(parts) != 3 {
		return TripDate{}, errors.Wrapf(ErrValidation, "malformed date %q", s)
	}
	year, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	day, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return TripDate{}, errors.Wrapf(ErrValidation, "malformed date %q", s)
	}
	if month < 1 || month > 12 || day < 1 || day > daysInMonth(year, month) {
		return TripDate{}, errors.Wrapf(ErrValidation, "date %q out of range", s)
	}
	return TripDate{Year: year, Month: month, Day: day}, nil
}

func daysInMonth(year, month int) int {
	switch month {
	case 4, 6, 9, 11:
		return 30
	case 2:
		if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
			return 29
		}
		return 28
	default:
		return 31
	}
}

// String renders the wire form, "2006-01-02".
func (d TripDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Display renders "02/01/2006" for passenger-facing output.
func (d TripDate) Display() string {
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, d.Month, d.Year)
}

func (d TripDate) IsZero() bool {
	return d == TripDate{}
}

// ClockTime is a 24-hour wall clock time, exchanged as "HH:MM:SS".
type ClockTime struct {
	Hour   int
	Minute int
	Second int
}

// ParseClockTime accepts "HH:MM" or "HH:MM:SS".
func ParseClockTime(s string) (ClockTime, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return ClockTime{}, errors.Wrapf(ErrValidation, "malformed time %q", s)
	}
	var t ClockTime
	var err error
	if t.Hour, err = strconv.Atoi(parts[0]); err != nil {
		return ClockTime{}, errors.Wrapf(ErrValidation, "malformed time %q", s)
	}
	if t.Minute, err = strconv.Atoi(parts[1]); err != nil {
		return ClockTime{}, errors.Wrapf(ErrValidation, "malformed time %q", s)
	}
	if len(parts) == 3 {
		if t.Second, err = strconv.Atoi(parts[2]); err != nil {
			return ClockTime{}, errors.Wrapf(ErrValidation, "malformed time %q", s)
		}
	}
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 || t.Second < 0 || t.Second > 59 {
		return ClockTime{}, errors.Wrapf(ErrValidation, "time %q out of range", s)
	}
	return t, nil
}

// String renders the wire form, "15:04:05".
func (t ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// Display renders "15:04" for passenger-facing output.
func (t ClockTime) Display() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}
