// Package secrets resolves credentials for notification providers from
// environment references and mounted secret files (Docker/Kubernetes secrets).
// Secret values are never logged.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	// maxSecretFileSize limits secret file reads; secrets are tokens and keys, not documents
	maxSecretFileSize = 64 * 1024

	// FileSuffix marks a config key whose value is a path to the secret, e.g. smtp_password_file
	FileSuffix = "_file"
)

// envRef matches a value that is exactly one ${VAR} or ${VAR:-default}
// reference. Anything else is a literal, so passwords may contain '$'.
var envRef = regexp.MustCompile(`^\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}$`)

// ExpandString resolves s when the whole value is a ${VAR} or ${VAR:-default}
// reference and returns any other value unchanged. A reference without a
// default whose variable is unset or empty is an error.
func ExpandString(s string) (string, error) {
	m := envRef.FindStringSubmatch(s)
	if m == nil {
		return s, nil
	}

	name, hasFallback, fallback := m[1], m[2] != "", m[3]
	if value := os.Getenv(name); value != "" {
		return value, nil
	}
	if hasFallback {
		return fallback, nil
	}
	return "", fmt.Errorf("missing required environment variable(s): %s", name)
}

// ReadFile reads a secret from path, trimming trailing newlines.
// Files readable by group or other are still accepted.
func ReadFile(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("secret file path is empty")
	}

	cleanPath := filepath.Clean(path)
	info, err := os.Stat(cleanPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("secret file not found: %s", cleanPath)
		}
		return "", fmt.Errorf("failed to stat secret file %s: %w", cleanPath, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("secret path is not a regular file: %s", cleanPath)
	}
	if info.Size() > maxSecretFileSize {
		return "", fmt.Errorf("secret file too large (max %d bytes): %s", maxSecretFileSize, cleanPath)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file %s: %w", cleanPath, err)
	}

	secret := strings.TrimRight(string(data), "\r\n")
	if secret == "" {
		return "", fmt.Errorf("secret file is empty: %s", cleanPath)
	}
	return secret, nil
}

// Resolve returns the secret from filePath when set, otherwise the expanded value.
func Resolve(filePath, value string) (string, error) {
	if filePath != "" {
		secret, err := ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("failed to read secret from file: %w", err)
		}
		return secret, nil
	}
	return ExpandString(value)
}

// ResolveConfig resolves the named secret keys of a provider config map in place.
// For each key, a sibling "<key>_file" entry takes precedence over the inline value;
// the _file entry is removed after resolution. Keys absent from cfg are left alone.
func ResolveConfig(cfg map[string]any, keys ...string) error {
	for _, key := range keys {
		fileKey := key + FileSuffix
		path, _ := cfg[fileKey].(string)
		value, _ := cfg[key].(string)

		if path == "" && value == "" {
			delete(cfg, fileKey)
			continue
		}

		secret, err := Resolve(path, value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		cfg[key] = secret
		delete(cfg, fileKey)
	}
	return nil
}
