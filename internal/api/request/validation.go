package request

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

var jobIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.:-]{0,127}$`)

func init() {
	validate.RegisterValidation("job_id", func(fl validator.FieldLevel) bool {
		return jobIDRegex.MatchString(fl.Field().String())
	})
}

func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	return nil
}

// Validate checks v against its validate tags.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	return nil
}

func RequireID(s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("missing required ID")
	}
	return s, nil
}

// RequireIntID parses a positive numeric path ID.
func RequireIntID(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("missing required ID")
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid ID %q", s)
	}
	return n, nil
}

// RequireJobID checks a backend job id such as "script_7".
func RequireJobID(s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("missing required ID")
	}
	if err := validate.Var(s, "job_id"); err != nil {
		return "", fmt.Errorf("invalid job ID %q", s)
	}
	return s, nil
}
