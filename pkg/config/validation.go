package config

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// mountNamePattern keeps mount names usable as URL path segments and CLI
// prefixes ("docs:/a/b").
var mountNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("mountname", func(fl validator.FieldLevel) bool {
			return mountNamePattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// Validate checks the configuration. Struct tags are checked first, then
// rules spanning several fields.
func Validate(cfg *Config) error {
	if err := getValidator().Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry.endpoint is required when telemetry is enabled")
	}
	if cfg.Telemetry.Profiling.Enabled && cfg.Telemetry.Profiling.Endpoint == "" {
		return fmt.Errorf("telemetry.profiling.endpoint is required when profiling is enabled")
	}
	if cfg.Metrics.Enabled && cfg.API.IsEnabled() && cfg.Metrics.Port == cfg.API.Port {
		return fmt.Errorf("metrics.port and api.port must differ (both %d)", cfg.API.Port)
	}

	seen := make(map[string]struct{}, len(cfg.Mounts))
	for i, m := range cfg.Mounts {
		if _, dup := seen[m.Name]; dup {
			return fmt.Errorf("mounts[%d]: duplicate mount name %q", i, m.Name)
		}
		seen[m.Name] = struct{}{}
	}

	if cfg.DefaultMount != "" {
		if _, ok := seen[cfg.DefaultMount]; !ok {
			return fmt.Errorf("default_mount %q does not name a configured mount", cfg.DefaultMount)
		}
	}

	return nil
}

// formatValidationError flattens validator errors into one message naming
// each failing field and rule.
func formatValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed '%s=%s' (value: %v)", field, fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed '%s'", field, fe.Tag()))
		}
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}
