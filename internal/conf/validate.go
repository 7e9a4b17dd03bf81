package conf

import (
	"fmt"
	"net"
	"net/mail"
	"strings"
	"time"

	"github.com/microtrax/microtrax/internal/logger"
)

// ValidationError collects every problem found in a Settings value.
type ValidationError struct {
	Errors []string
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings checks cross-field constraints that defaults cannot
// express. Provider credentials are not checked here; the notification
// providers report missing fields themselves when they are enabled.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateMainSettings(&settings.Main); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateLoggingSettings(&settings.Logging); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateWebServerSettings(&settings.WebServer); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateDatabaseSettings(&settings.Database); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateEmailSettings(&settings.Notification.Email); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		ve.Errors = append(ve.Errors, "sentry is enabled but no DSN is configured")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateMainSettings(settings *MainSettings) error {
	switch settings.Timezone {
	case "", "Local", "UTC":
		return nil
	}
	if _, err := time.LoadLocation(settings.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", settings.Timezone, err)
	}
	return nil
}

func validateLoggingSettings(settings *logger.LoggingConfig) error {
	valid := []string{"trace", "debug", "info", "warn", "error"}
	check := func(field, level string) error {
		if level == "" {
			return nil
		}
		for _, v := range valid {
			if strings.EqualFold(level, v) {
				return nil
			}
		}
		return fmt.Errorf("%s must be one of %s, got %q", field, strings.Join(valid, ", "), level)
	}

	if err := check("logging.default_level", settings.DefaultLevel); err != nil {
		return err
	}
	if settings.Console != nil {
		if err := check("logging.console.level", settings.Console.Level); err != nil {
			return err
		}
	}
	if settings.FileOutput != nil {
		if err := check("logging.file_output.level", settings.FileOutput.Level); err != nil {
			return err
		}
	}
	for module, level := range settings.ModuleLevels {
		if err := check("logging.module_levels."+module, level); err != nil {
			return err
		}
	}
	return nil
}

func validateWebServerSettings(settings *WebServerSettings) error {
	if _, _, err := net.SplitHostPort(settings.Listen); err != nil {
		return fmt.Errorf("invalid webserver.listen %q: %w", settings.Listen, err)
	}
	if settings.TestRate < 0 {
		return fmt.Errorf("webserver.test_rate must be non-negative, got %d", settings.TestRate)
	}
	return nil
}

func validateDatabaseSettings(settings *DatabaseSettings) error {
	switch settings.Type {
	case "sqlite":
		if settings.SQLite.Path == "" {
			return fmt.Errorf("database.sqlite.path is required for sqlite")
		}
	case "mysql":
		if settings.MySQL.Host == "" || settings.MySQL.Database == "" {
			return fmt.Errorf("database.mysql.host and database.mysql.database are required for mysql")
		}
		if settings.MySQL.Port < 1 || settings.MySQL.Port > 65535 {
			return fmt.Errorf("database.mysql.port must be between 1 and 65535, got %d", settings.MySQL.Port)
		}
	default:
		return fmt.Errorf("database.type must be sqlite or mysql, got %q", settings.Type)
	}
	return nil
}

func validateEmailSettings(settings *EmailSettings) error {
	if settings.SMTPPort < 0 || settings.SMTPPort > 65535 {
		return fmt.Errorf("notification.email.smtp_port must be between 1 and 65535, got %d", settings.SMTPPort)
	}
	if settings.FromEmail != "" {
		if _, err := mail.ParseAddress(settings.FromEmail); err != nil {
			return fmt.Errorf("invalid notification.email.from_email: %w", err)
		}
	}
	return nil
}
