package config

import (
	"fmt"
	"net/url"
	"time"
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult holds the result of config validation.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// validFilters mirrors the filter set of the alert model; config cannot import it.
var validFilters = map[string]bool{
	"all":          true,
	"prime":        true,
	"sharpshooter": true,
	"opportunist":  true,
	"sell":         true,
}

// Validate checks the config for invalid values.
func (c *Config) Validate() ValidationResult {
	var errors []ValidationError

	errors = append(errors, validateBackend(&c.Backend)...)
	errors = append(errors, validatePolling(&c.Polling)...)
	errors = append(errors, validateDashboard(&c.Dashboard)...)

	return ValidationResult{
		Valid:  len(errors) == 0,
		Errors: errors,
	}
}

func validateBackend(b *BackendConfig) []ValidationError {
	var errors []ValidationError

	u, err := url.Parse(b.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "backend.base_url",
			Message: "must be an absolute URL",
		})
	}

	if b.RequestTimeout < 100*time.Millisecond {
		errors = append(errors, ValidationError{
			Field:   "backend.request_timeout",
			Message: "must be at least 100 milliseconds",
		})
	}

	if b.ClearMethod != "post" && b.ClearMethod != "delete" {
		errors = append(errors, ValidationError{
			Field:   "backend.clear_method",
			Message: fmt.Sprintf("must be post or delete, got %q", b.ClearMethod),
		})
	}

	return errors
}

func validatePolling(p *PollingConfig) []ValidationError {
	var errors []ValidationError

	if p.AlertsInterval < 1*time.Second {
		errors = append(errors, ValidationError{
			Field:   "polling.alerts_interval",
			Message: "must be at least 1 second",
		})
	}

	if p.StatusInterval < 1*time.Second {
		errors = append(errors, ValidationError{
			Field:   "polling.status_interval",
			Message: "must be at least 1 second",
		})
	}

	return errors
}

func validateDashboard(d *DashboardConfig) []ValidationError {
	var errors []ValidationError

	if d.Port < 1 || d.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "dashboard.port",
			Message: fmt.Sprintf("must be between 1 and 65535, got %d", d.Port),
		})
	}

	if d.Timezone != "" {
		if _, err := time.LoadLocation(d.Timezone); err != nil {
			errors = append(errors, ValidationError{
				Field:   "dashboard.timezone",
				Message: fmt.Sprintf("unknown timezone %q", d.Timezone),
			})
		}
	}

	if !validFilters[d.DefaultFilter] {
		errors = append(errors, ValidationError{
			Field:   "dashboard.default_filter",
			Message: fmt.Sprintf("unknown filter %q", d.DefaultFilter),
		})
	}

	return errors
}
