package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var monthKeyPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// MonthKey identifies a calendar month as "YYYY-MM". The zero value is invalid.
type MonthKey string

// ParseMonthKey validates and returns a MonthKey from its string form.
func ParseMonthKey(s string) (MonthKey, error) {
	if !monthKeyPattern.MatchString(s) {
		return "", fmt.Errorf("invalid month key %q, want YYYY-MM", s)
	}
	return MonthKey(s), nil
}

// MonthKeyOf returns the MonthKey containing the given instant.
func MonthKeyOf(t time.Time) MonthKey {
	return MonthKey(t.UTC().Format("2006-01"))
}

// Valid reports whether the key is well formed.
func (m MonthKey) Valid() bool {
	return monthKeyPattern.MatchString(string(m))
}

// Year returns the calendar year component.
func (m MonthKey) Year() int {
	y, _ := strconv.Atoi(string(m)[:4])
	return y
}

// Month returns the calendar month component (1..12).
func (m MonthKey) Month() int {
	mm, _ := strconv.Atoi(string(m)[5:])
	return mm
}

// Before reports whether m precedes other in calendar order. The string
// representation is lexicographically ordered, so this is a plain compare.
func (m MonthKey) Before(other MonthKey) bool {
	return strings.Compare(string(m), string(other)) < 0
}

// Next returns the month immediately after m.
func (m MonthKey) Next() MonthKey {
	y, mm := m.Year(), m.Month()
	if mm == 12 {
		y, mm = y+1, 1
	} else {
		mm++
	}
	return MonthKey(fmt.Sprintf("%04d-%02d", y, mm))
}

// Range returns n consecutive months starting at m, oldest first.
func (m MonthKey) Range(n int) []MonthKey {
	if n <= 0 {
		return nil
	}
	months := make([]MonthKey, 0, n)
	cur := m
	for i := 0; i < n; i++ {
		months = append(months, cur)
		cur = cur.Next()
	}
	return months
}

// FirstDay returns midnight UTC on the first day of the month.
func (m MonthKey) FirstDay() time.Time {
	t, _ := time.Parse("2006-01", string(m))
	return t
}

// String implements fmt.Stringer.
func (m MonthKey) String() string {
	return string(m)
}
