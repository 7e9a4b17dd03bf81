// env.go: environment variable overrides and their validation
package conf

import (
	"fmt"
	"net/mail"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding maps an environment variable onto a viper key.
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings lists every supported environment override.
func getEnvBindings() []envBinding {
	return []envBinding{
		// Email
		{"notification.email.enabled", "EMAIL_NOTIFICATIONS_ENABLED", validateEnvBool},
		{"notification.email.smtp_host", "EMAIL_SMTP_HOST", nil},
		{"notification.email.smtp_port", "EMAIL_SMTP_PORT", validateEnvPort},
		{"notification.email.smtp_user", "EMAIL_SMTP_USER", nil},
		{"notification.email.smtp_password", "EMAIL_SMTP_PASSWORD", nil},
		{"notification.email.from_email", "EMAIL_FROM", validateEnvEmail},
		{"notification.email.use_tls", "EMAIL_USE_TLS", validateEnvBool},

		// Push
		{"notification.push.enabled", "PUSH_NOTIFICATIONS_ENABLED", validateEnvBool},
		{"notification.push.fcm_api_key", "FCM_API_KEY", nil},
		{"notification.push.fcm_url", "FCM_URL", validateEnvURL},

		// Web push
		{"notification.web.enabled", "WEB_NOTIFICATIONS_ENABLED", validateEnvBool},
		{"notification.web.vapid_public_key", "VAPID_PUBLIC_KEY", nil},
		{"notification.web.vapid_private_key", "VAPID_PRIVATE_KEY", nil},
		{"notification.web.vapid_subject", "VAPID_SUBJECT", nil},

		// Service
		{"database.type", "MICROTRAX_DB_TYPE", validateEnvDatabaseType},
		{"database.sqlite.path", "MICROTRAX_DB_PATH", nil},
		{"webserver.listen", "MICROTRAX_LISTEN", nil},
		{"admin.email", "MICROTRAX_ADMIN_EMAIL", validateEnvEmail},
		{"sentry.dsn", "SENTRY_DSN", validateEnvURL},
	}
}

// bindEnvVars binds the overrides and validates any values that are set.
// All problems are collected into one error.
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value: %v", binding.EnvVar, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f", value)
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

func validateEnvEmail(value string) error {
	if _, err := mail.ParseAddress(value); err != nil {
		return fmt.Errorf("invalid email address: %w", err)
	}
	return nil
}

func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("URL must be absolute")
	}
	return nil
}

func validateEnvDatabaseType(value string) error {
	switch value {
	case "sqlite", "mysql":
		return nil
	}
	return fmt.Errorf("must be one of: sqlite, mysql")
}
