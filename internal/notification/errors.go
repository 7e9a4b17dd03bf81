package notification

import (
	"fmt"
	"strings"

	"github.com/microtrax/microtrax/internal/errors"
)

// NotificationError is a delivery-stage failure reported by a provider.
type NotificationError struct {
	Provider string
	Message  string
	Err      error
}

func (e *NotificationError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

// ErrorCategory implements errors.CategorizedError.
func (e *NotificationError) ErrorCategory() errors.ErrorCategory {
	return errors.CategoryNotification
}

// ProviderNotConfiguredError is returned from Configure when required fields
// are missing or the config cannot be decoded. The provider stays disabled.
type ProviderNotConfiguredError struct {
	Provider string
	Missing  []string
	Err      error
}

func (e *ProviderNotConfiguredError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("%s provider configuration is missing required fields: %s",
			e.Provider, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("%s provider configuration is invalid: %v", e.Provider, e.Err)
}

func (e *ProviderNotConfiguredError) Unwrap() error { return e.Err }

// ErrorCategory implements errors.CategorizedError.
func (e *ProviderNotConfiguredError) ErrorCategory() errors.ErrorCategory {
	return errors.CategoryConfiguration
}

// ProviderNotAvailableError reports an explicitly requested provider that is
// not registered or not enabled.
type ProviderNotAvailableError struct {
	Provider string
	Reason   string
}

func (e *ProviderNotAvailableError) Error() string {
	return fmt.Sprintf("provider %q is not available: %s", e.Provider, e.Reason)
}

// ErrorCategory implements errors.CategorizedError.
func (e *ProviderNotAvailableError) ErrorCategory() errors.ErrorCategory {
	return errors.CategoryNotFound
}

// RecipientError reports that a provider found no eligible recipient.
type RecipientError struct {
	Provider       string
	NotificationID string
}

func (e *RecipientError) Error() string {
	return fmt.Sprintf("no valid %s recipients found in notification %s", e.Provider, e.NotificationID)
}

// ErrorCategory implements errors.CategorizedError.
func (e *RecipientError) ErrorCategory() errors.ErrorCategory {
	return errors.CategoryRecipient
}
