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

// Logical bucket names follow S3 naming rules before tenant-prefix resolution.
var bucketNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func init() {
	validate.RegisterValidation("bucketname", func(fl validator.FieldLevel) bool {
		return bucketNameRegex.MatchString(fl.Field().String())
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

func RequireID(s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("missing required ID")
	}
	return s, nil
}

// RequireTenantID parses a numeric tenant identifier from a path segment.
func RequireTenantID(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("missing required tenant ID")
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid tenant ID %q", s)
	}
	return id, nil
}
