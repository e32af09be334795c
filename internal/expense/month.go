package expense

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

var ErrInvalidMonthYear = errors.New("monthYear must be in YYYY-MM format")

var monthYearPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ValidMonthYear reports whether s is a YYYY-MM month identifier.
func ValidMonthYear(s string) bool {
	return monthYearPattern.MatchString(s)
}

// MonthWindow returns the first and last calendar day of monthYear, in UTC.
func MonthWindow(monthYear string) (time.Time, time.Time, error) {
	if !ValidMonthYear(monthYear) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMonthYear, monthYear)
	}
	start, err := time.Parse("2006-01", monthYear)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMonthYear, monthYear)
	}
	end := start.AddDate(0, 1, -1)
	return start, end, nil
}

// MonthYearOf formats the calendar month of t.
func MonthYearOf(t time.Time) string {
	return t.Format("2006-01")
}
