package privacy

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScrubMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		input       string
		contains    []string
		notContains []string
	}{
		{
			name:        "push gateway URL",
			input:       "post https://fcm.googleapis.com/fcm/send?x=1 failed",
			contains:    []string{"post url-", "failed"},
			notContains: []string{"googleapis.com", "x=1"},
		},
		{
			name:        "email address keeps domain",
			input:       "send to buyer@example.com failed",
			contains:    []string{"@example.com"},
			notContains: []string{"buyer@"},
		},
		{
			name:        "inline password",
			input:       "auth failed password=hunter2",
			contains:    []string{"password=[REDACTED]"},
			notContains: []string{"hunter2"},
		},
		{
			name:        "fcm authorization header",
			input:       "header Authorization: key=AAAAabcdefgh1234",
			notContains: []string{"AAAAabcdefgh1234"},
		},
		{
			name:     "plain message untouched",
			input:    "no recipients",
			contains: []string{"no recipients"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ScrubMessage(tt.input)
			for _, s := range tt.contains {
				assert.Contains(t, got, s)
			}
			for _, s := range tt.notContains {
				assert.NotContains(t, got, s)
			}
		})
	}
}

func TestAnonymizeURLIsStable(t *testing.T) {
	t.Parallel()

	a := AnonymizeURL("https://push.example.com/endpoint/abc")
	b := AnonymizeURL("https://push.example.com/endpoint/abc")
	c := AnonymizeURL("https://push.example.com/endpoint/xyz")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "url-"))
}

func TestRedactToken(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abcdef...", RedactToken("abcdefghijkl"))
	assert.Equal(t, "***", RedactToken("abc"))
}

func TestWrapErrorPreservesChain(t *testing.T) {
	t.Parallel()

	assert.NoError(t, WrapError(nil))

	base := errors.New("dial smtp://mail.example.com:587 failed for ops@example.com")
	wrapped := WrapError(base)
	require.Error(t, wrapped)

	assert.ErrorIs(t, wrapped, base)
	assert.NotContains(t, wrapped.Error(), "mail.example.com")
	assert.NotContains(t, wrapped.Error(), "ops@")

	var scrubbed *ScrubbedError
	require.ErrorAs(t, wrapped, &scrubbed)
}

func TestWrapErrorRedactsProviderSecrets(t *testing.T) {
	t.Parallel()

	base := errors.New("535 authentication failed: bad credentials Pa$5word (token tk-9f8e7d, flag on)")
	wrapped := WrapError(base, "Pa$5word", "tk-9f8e7d", "on", "")

	msg := wrapped.Error()
	assert.NotContains(t, msg, "Pa$5word")
	assert.NotContains(t, msg, "tk-9f8e7d")
	assert.Contains(t, msg, "flag on")
	assert.Contains(t, msg, "[REDACTED]")
	assert.ErrorIs(t, wrapped, base)
}
