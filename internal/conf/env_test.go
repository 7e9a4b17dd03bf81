package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEnvBool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value   string
		wantErr bool
	}{
		{"true", false},
		{"false", false},
		{"1", false},
		{"0", false},
		{"TRUE", false},
		{"maybe", true},
		{"yes", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Parallel()
			err := validateEnvBool(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid boolean value")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEnvValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		validate func(string) error
		value    string
		wantErr  bool
	}{
		{"port ok", validateEnvPort, "587", false},
		{"port zero", validateEnvPort, "0", true},
		{"port too large", validateEnvPort, "70000", true},
		{"port not a number", validateEnvPort, "smtp", true},
		{"email ok", validateEnvEmail, "ops@example.com", false},
		{"email named", validateEnvEmail, "Ops <ops@example.com>", false},
		{"email bad", validateEnvEmail, "ops.example.com", true},
		{"url ok", validateEnvURL, "https://fcm.googleapis.com/fcm/send", false},
		{"url relative", validateEnvURL, "/fcm/send", true},
		{"db sqlite", validateEnvDatabaseType, "sqlite", false},
		{"db mysql", validateEnvDatabaseType, "mysql", false},
		{"db other", validateEnvDatabaseType, "postgres", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.validate(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEnvBindingsAreUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for _, b := range getEnvBindings() {
		assert.False(t, seen[b.EnvVar], "duplicate binding for %s", b.EnvVar)
		seen[b.EnvVar] = true
		assert.NotEmpty(t, b.ConfigKey)
	}
}
