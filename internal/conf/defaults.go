// defaults.go: default values for configuration keys
package conf

import (
	"github.com/spf13/viper"

	"github.com/microtrax/microtrax/internal/logger"
)

const (
	// DefaultFCMURL is the legacy FCM HTTP endpoint.
	DefaultFCMURL = "https://fcm.googleapis.com/fcm/send"

	// DefaultVAPIDSubject is used for web push when no contact is configured.
	DefaultVAPIDSubject = "mailto:admin@example.com"

	// DefaultTestRate limits test notifications per client and minute.
	DefaultTestRate = 10
)

// setDefaultConfig registers default values with viper. Values present in
// the config file or environment take precedence.
func setDefaultConfig() {
	viper.SetDefault("main.name", "microtrax")
	viper.SetDefault("main.debug", false)
	viper.SetDefault("main.timezone", "Local")

	viper.SetDefault("logging.default_level", logger.DefaultLogLevel)
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", logger.DefaultLogLevel)
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", logger.DefaultLogPath)
	viper.SetDefault("logging.file_output.level", logger.DefaultLogLevel)

	viper.SetDefault("webserver.listen", ":8080")
	viper.SetDefault("webserver.debug", false)
	viper.SetDefault("webserver.test_rate", DefaultTestRate)

	viper.SetDefault("database.type", "sqlite")
	viper.SetDefault("database.sqlite.path", "microtrax.db")
	viper.SetDefault("database.mysql.host", "localhost")
	viper.SetDefault("database.mysql.port", 3306)
	viper.SetDefault("database.mysql.username", "microtrax")
	viper.SetDefault("database.mysql.password", "")
	viper.SetDefault("database.mysql.database", "microtrax")

	viper.SetDefault("admin.email", "")

	viper.SetDefault("notification.email.enabled", false)
	viper.SetDefault("notification.email.smtp_host", "")
	viper.SetDefault("notification.email.smtp_port", 587)
	viper.SetDefault("notification.email.smtp_user", "")
	viper.SetDefault("notification.email.smtp_password", "")
	viper.SetDefault("notification.email.from_email", "noreply@microtrax.example.com")
	viper.SetDefault("notification.email.use_tls", true)
	viper.SetDefault("notification.email.use_ssl", false)

	viper.SetDefault("notification.push.enabled", false)
	viper.SetDefault("notification.push.fcm_api_key", "")
	viper.SetDefault("notification.push.fcm_url", DefaultFCMURL)

	viper.SetDefault("notification.web.enabled", false)
	viper.SetDefault("notification.web.vapid_public_key", "")
	viper.SetDefault("notification.web.vapid_private_key", "")
	viper.SetDefault("notification.web.vapid_subject", DefaultVAPIDSubject)

	viper.SetDefault("notification.chat.enabled", false)
	viper.SetDefault("notification.chat.urls", []string{})
	viper.SetDefault("notification.chat.types", []string{"system_alert"})

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.environment", "production")

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
}
