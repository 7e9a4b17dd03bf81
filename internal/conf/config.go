// config.go: settings for the microtrax backend and functions to load and save them.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/microtrax/microtrax/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// MainSettings holds process-wide options.
type MainSettings struct {
	Name     string `mapstructure:"name" yaml:"name"`
	Debug    bool   `mapstructure:"debug" yaml:"debug"`
	Timezone string `mapstructure:"timezone" yaml:"timezone"` // "Local", "UTC" or an IANA name
}

// WebServerSettings configures the HTTP API.
type WebServerSettings struct {
	Listen   string `mapstructure:"listen" yaml:"listen"`
	Debug    bool   `mapstructure:"debug" yaml:"debug"`
	TestRate int    `mapstructure:"test_rate" yaml:"test_rate"` // test notifications per minute per client
}

// SQLiteSettings locates the sqlite database file.
type SQLiteSettings struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// MySQLSettings holds the MySQL connection details.
type MySQLSettings struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	Database string `mapstructure:"database" yaml:"database"`
}

// DatabaseSettings selects and configures the datastore backend.
type DatabaseSettings struct {
	Type   string         `mapstructure:"type" yaml:"type"` // sqlite or mysql
	SQLite SQLiteSettings `mapstructure:"sqlite" yaml:"sqlite"`
	MySQL  MySQLSettings  `mapstructure:"mysql" yaml:"mysql"`
}

// AdminSettings identifies the team whose settings record drives notifications.
type AdminSettings struct {
	Email string `mapstructure:"email" yaml:"email"`
}

// EmailSettings is the startup fallback for the email provider.
type EmailSettings struct {
	Enabled      bool   `mapstructure:"enabled" yaml:"enabled"`
	SMTPHost     string `mapstructure:"smtp_host" yaml:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port" yaml:"smtp_port"`
	SMTPUser     string `mapstructure:"smtp_user" yaml:"smtp_user"`
	SMTPPassword string `mapstructure:"smtp_password" yaml:"smtp_password"`
	FromEmail    string `mapstructure:"from_email" yaml:"from_email"`
	UseTLS       bool   `mapstructure:"use_tls" yaml:"use_tls"`
	UseSSL       bool   `mapstructure:"use_ssl" yaml:"use_ssl"`
}

// PushSettings is the startup fallback for the FCM push provider.
type PushSettings struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	FCMAPIKey string `mapstructure:"fcm_api_key" yaml:"fcm_api_key"`
	FCMURL    string `mapstructure:"fcm_url" yaml:"fcm_url"`
}

// WebPushSettings is the startup fallback for the web-push provider.
type WebPushSettings struct {
	Enabled         bool   `mapstructure:"enabled" yaml:"enabled"`
	VAPIDPublicKey  string `mapstructure:"vapid_public_key" yaml:"vapid_public_key"`
	VAPIDPrivateKey string `mapstructure:"vapid_private_key" yaml:"vapid_private_key"`
	VAPIDSubject    string `mapstructure:"vapid_subject" yaml:"vapid_subject"`
}

// ChatSettings configures the ops chat channel provider.
type ChatSettings struct {
	Enabled bool     `mapstructure:"enabled" yaml:"enabled"`
	URLs    []string `mapstructure:"urls" yaml:"urls"`
	Types   []string `mapstructure:"types" yaml:"types"`
}

// NotificationSettings holds provider settings used when no settings record exists.
type NotificationSettings struct {
	Email EmailSettings   `mapstructure:"email" yaml:"email"`
	Push  PushSettings    `mapstructure:"push" yaml:"push"`
	Web   WebPushSettings `mapstructure:"web" yaml:"web"`
	Chat  ChatSettings    `mapstructure:"chat" yaml:"chat"`
}

// ProviderConfigs renders the settings as raw provider configuration keyed
// by provider name.
func (n *NotificationSettings) ProviderConfigs() map[string]map[string]any {
	return map[string]map[string]any{
		"email": {
			"enabled":       n.Email.Enabled,
			"smtp_host":     n.Email.SMTPHost,
			"smtp_port":     n.Email.SMTPPort,
			"smtp_user":     n.Email.SMTPUser,
			"smtp_password": n.Email.SMTPPassword,
			"from_email":    n.Email.FromEmail,
			"use_tls":       n.Email.UseTLS,
			"use_ssl":       n.Email.UseSSL,
		},
		"push": {
			"enabled":     n.Push.Enabled,
			"fcm_api_key": n.Push.FCMAPIKey,
			"fcm_url":     n.Push.FCMURL,
		},
		"web": {
			"enabled":           n.Web.Enabled,
			"vapid_public_key":  n.Web.VAPIDPublicKey,
			"vapid_private_key": n.Web.VAPIDPrivateKey,
			"vapid_subject":     n.Web.VAPIDSubject,
		},
		"chat": {
			"enabled": n.Chat.Enabled,
			"urls":    n.Chat.URLs,
			"types":   n.Chat.Types,
		},
	}
}

// SentrySettings enables error reporting.
type SentrySettings struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	DSN         string `mapstructure:"dsn" yaml:"dsn"`
	Environment string `mapstructure:"environment" yaml:"environment"`
}

// MetricsSettings toggles the Prometheus endpoint.
type MetricsSettings struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// Settings is the root of config.yaml.
type Settings struct {
	Main         MainSettings         `mapstructure:"main" yaml:"main"`
	Logging      logger.LoggingConfig `mapstructure:"logging" yaml:"logging"`
	WebServer    WebServerSettings    `mapstructure:"webserver" yaml:"webserver"`
	Database     DatabaseSettings     `mapstructure:"database" yaml:"database"`
	Admin        AdminSettings        `mapstructure:"admin" yaml:"admin"`
	Notification NotificationSettings `mapstructure:"notification" yaml:"notification"`
	Sentry       SentrySettings       `mapstructure:"sentry" yaml:"sentry"`
	Metrics      MetricsSettings      `mapstructure:"metrics" yaml:"metrics"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads config.yaml from the default search paths, creating it with
// defaults when none exists, and applies environment overrides.
func Load() (*Settings, error) {
	return load("")
}

// LoadFile reads settings from an explicit config file path.
func LoadFile(path string) (*Settings, error) {
	return load(path)
}

func load(path string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(path); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	// Env problems are reported but do not stop startup
	envErr := bindEnvVars()

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	if envErr != nil {
		return settings, &EnvWarning{Err: envErr}
	}
	return settings, nil
}

// EnvWarning wraps environment variable problems found during Load. The
// returned settings are still usable.
type EnvWarning struct {
	Err error
}

func (w *EnvWarning) Error() string { return w.Err.Error() }
func (w *EnvWarning) Unwrap() error { return w.Err }

// IsEnvWarning reports whether err only carries environment warnings.
func IsEnvWarning(err error) bool {
	var w *EnvWarning
	return errors.As(err, &w)
}

func initViper(path string) error {
	setDefaultConfig()

	if path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return createConfigAt(path)
			}
			return fmt.Errorf("fatal error reading config file: %w", err)
		}
		return nil
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, p := range configPaths {
		viper.AddConfigPath(p)
	}

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}
	return nil
}

func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	return createConfigAt(filepath.Join(configPaths[0], "config.yaml"))
}

func createConfigAt(configPath string) error {
	defaultConfig, err := getDefaultConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o600); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	getLogger().Info("created default config file", logger.String("path", configPath))
	viper.SetConfigFile(configPath)
	return viper.ReadInConfig()
}

// getDefaultConfig reads the embedded default config.yaml.
func getDefaultConfig() (string, error) {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return "", fmt.Errorf("error reading embedded config: %w", err)
	}
	return string(data), nil
}

// GetSettings returns the most recently loaded settings, or nil.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// ConfigFileUsed returns the path of the config file viper read.
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}

// SaveYAMLConfig writes settings to configPath atomically. Comments and
// layout of the existing file are not preserved.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		// cross-device rename, fall back to copy
		if err := moveFile(tempFileName, configPath); err != nil {
			return fmt.Errorf("error copying config file: %w", err)
		}
	}
	return nil
}
