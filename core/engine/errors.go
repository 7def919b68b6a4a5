package engine

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNoBasePlan is returned by operations that need an entered plan.
	ErrNoBasePlan = errors.New("engine: no base plan entered")
	// ErrInvalidInput wraps every validation failure at the session boundary.
	ErrInvalidInput = errors.New("engine: invalid input")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// CheckPower rejects NaN, infinite and negative powers.
func CheckPower(name string, mw float64) error {
	if math.IsNaN(mw) || math.IsInf(mw, 0) {
		return invalid("%s must be a finite number", name)
	}
	if mw < 0 {
		return invalid("%s must not be negative", name)
	}
	return nil
}

// ParsePower parses an operator entered MW value.
func ParsePower(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, invalid("%s %q is not a number", name, s)
	}
	if err := CheckPower(name, v); err != nil {
		return 0, err
	}
	return v, nil
}

// ParseClock parses HH:MM or HH:MM:SS on the calendar day of ref, in ref's
// location.
func ParseClock(s string, ref time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	var t time.Time
	var err error
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err = time.Parse(layout, s); err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, invalid("time %q must be HH:MM or HH:MM:SS", s)
	}
	y, m, d := ref.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, ref.Location()), nil
}

// ParseMinutes parses a non negative minute count. An empty string is zero.
func ParseMinutes(name, s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, invalid("%s %q must be a non negative integer", name, s)
	}
	return v, nil
}
