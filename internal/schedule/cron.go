package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ValidationError is a cron expression rejected before it reaches the
// backend. Message is shown to the operator as is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ErrEmpty is returned for an empty expression.
var ErrEmpty = &ValidationError{Message: "Please select or enter a schedule"}

type field struct {
	name     string
	min, max int
}

var fields = []field{
	{"minute", 0, 59},
	{"hour", 0, 23},
	{"day of month", 1, 31},
	{"month", 1, 12},
	{"day of week", 0, 6},
}

// Validate checks a five-field cron expression. Each field is "*", "*/N" or
// a comma-separated list of values in range. The first violated rule is
// returned.
func Validate(expr string) error {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return ErrEmpty
	}

	parts := strings.Fields(expr)
	if len(parts) != len(fields) {
		return &ValidationError{
			Message: fmt.Sprintf("Cron expression must have exactly 5 fields (minute hour day month weekday), got %d", len(parts)),
		}
	}

	for i, part := range parts {
		if err := validateField(fields[i], part); err != nil {
			return err
		}
	}
	return nil
}

func validateField(f field, s string) error {
	if s == "*" {
		return nil
	}

	if step, ok := strings.CutPrefix(s, "*/"); ok {
		n, err := strconv.Atoi(step)
		if err != nil || n < 1 || n > f.max {
			return &ValidationError{
				Field:   f.name,
				Message: fmt.Sprintf("Invalid %s step %q: must be a number between 1 and %d", f.name, s, f.max),
			}
		}
		return nil
	}

	for _, v := range strings.Split(s, ",") {
		n, err := strconv.Atoi(v)
		if err != nil || !isDigits(v) {
			return &ValidationError{
				Field:   f.name,
				Message: fmt.Sprintf("Invalid %s %q: use *, */N or comma-separated numbers", f.name, s),
			}
		}
		if n < f.min || n > f.max {
			return &ValidationError{
				Field:   f.name,
				Message: fmt.Sprintf("Invalid %s %q: values must be between %d and %d", f.name, v, f.min, f.max),
			}
		}
	}
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// NextRuns returns the next n fire times of expr after from.
func NextRuns(expr string, from time.Time, n int) ([]time.Time, error) {
	if err := Validate(expr); err != nil {
		return nil, err
	}
	sched, err := cron.ParseStandard(strings.TrimSpace(expr))
	if err != nil {
		return nil, fmt.Errorf("parse cron expression: %w", err)
	}

	runs := make([]time.Time, 0, n)
	t := from
	for i := 0; i < n; i++ {
		t = sched.Next(t)
		if t.IsZero() {
			break
		}
		runs = append(runs, t)
	}
	return runs, nil
}
