package privacy

import "strings"

// minSecretLength keeps short values such as "1" or "on" from being blanked
// out of every error that happens to contain them.
const minSecretLength = 4

// ScrubbedError is a provider failure whose text is safe to put in logs,
// result maps and telemetry. The original error stays reachable through
// Unwrap.
type ScrubbedError struct {
	err error
	msg string
}

func (e *ScrubbedError) Error() string { return e.msg }

func (e *ScrubbedError) Unwrap() error { return e.err }

// WrapError scrubs err with ScrubMessage after removing every literal
// occurrence of the given secrets, such as the SMTP password or a chat
// service URL that embeds its token. Returns nil for a nil err.
func WrapError(err error, secrets ...string) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	for _, s := range secrets {
		if len(s) >= minSecretLength {
			msg = strings.ReplaceAll(msg, s, "[REDACTED]")
		}
	}
	return &ScrubbedError{err: err, msg: ScrubMessage(msg)}
}
