// Package notification formats and delivers platform events through
// pluggable providers (email, FCM push, web push, webhooks and chat). A
// Manager holds the provider registry, applies configuration and fans each
// notification out to the eligible providers, isolating their failures.
package notification

import (
	"strings"
)

// Type is the closed set of events the platform notifies about.
type Type string

const (
	TypeTransactionCreated   Type = "transaction_created"
	TypeTransactionCompleted Type = "transaction_completed"
	TypeTransactionFailed    Type = "transaction_failed"
	TypeProductCreated       Type = "product_created"
	TypeProductUpdated       Type = "product_updated"
	TypeProductDeleted       Type = "product_deleted"
	TypeWeeklyReport         Type = "weekly_report"
	TypeSystemAlert          Type = "system_alert"
)

// AllTypes lists every notification type in declaration order.
var AllTypes = []Type{
	TypeTransactionCreated,
	TypeTransactionCompleted,
	TypeTransactionFailed,
	TypeProductCreated,
	TypeProductUpdated,
	TypeProductDeleted,
	TypeWeeklyReport,
	TypeSystemAlert,
}

// typeLookup is keyed by lower-cased input. The wire value
// ("transaction_completed") and the constant-style name
// ("TRANSACTION_COMPLETED") share a key.
var typeLookup = map[string]Type{
	"transaction_created":   TypeTransactionCreated,
	"transaction_completed": TypeTransactionCompleted,
	"transaction_failed":    TypeTransactionFailed,
	"product_created":       TypeProductCreated,
	"product_updated":       TypeProductUpdated,
	"product_deleted":       TypeProductDeleted,
	"weekly_report":         TypeWeeklyReport,
	"system_alert":          TypeSystemAlert,
}

// ParseType resolves s case-insensitively. Unknown or empty input yields
// TypeSystemAlert with ok=false.
func ParseType(s string) (t Type, ok bool) {
	t, ok = typeLookup[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return TypeSystemAlert, false
	}
	return t, true
}

// Valid reports whether t is one of the enumerated types.
func (t Type) Valid() bool {
	_, ok := typeLookup[string(t)]
	return ok
}

func (t Type) String() string { return string(t) }

// Recipient type tags. An empty tag means the ID is interpreted by heuristics.
const (
	RecipientEmail  = "email"
	RecipientDevice = "device"

	devicePrefix = "device:"
)

// Recipient identifies one destination: an email address, a device token,
// or a user id matched against web-push subscribers.
type Recipient struct {
	ID   string         `json:"id"`
	Type string         `json:"type,omitempty"`
	Data map[string]any `json:"data,omitempty"`
}

// Bare wraps plain strings as untagged recipients.
func Bare(ids ...string) []Recipient {
	out := make([]Recipient, 0, len(ids))
	for _, id := range ids {
		out = append(out, Recipient{ID: id})
	}
	return out
}

// EmailAddress returns the address when r is addressable by email.
func (r Recipient) EmailAddress() (string, bool) {
	switch r.Type {
	case RecipientEmail:
		return r.ID, r.ID != ""
	case "":
		return r.ID, strings.Contains(r.ID, "@")
	default:
		return "", false
	}
}

// DeviceToken returns the push token when r is a device recipient.
func (r Recipient) DeviceToken() (string, bool) {
	if r.Type != RecipientDevice && (r.Type != "" || !strings.HasPrefix(r.ID, devicePrefix)) {
		return "", false
	}
	token := strings.TrimPrefix(r.ID, devicePrefix)
	return token, token != ""
}

// Content is the formatted message shared by every provider in one dispatch.
type Content struct {
	Subject  string         `json:"subject"`
	Body     string         `json:"body"`
	HTMLBody string         `json:"html_body,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// Notification is the unit of dispatch built once per Notify call.
type Notification struct {
	ID         string         `json:"id"`
	Type       Type           `json:"type"`
	Content    Content        `json:"content"`
	Recipients []Recipient    `json:"recipients"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// MetadataTest marks a diagnostic send. Recipient errors degrade to skipped results.
const MetadataTest = "test"

// IsTest reports whether the notification carries metadata test=true.
func (n *Notification) IsTest() bool {
	if n == nil {
		return false
	}
	switch v := n.Metadata[MetadataTest].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	default:
		return false
	}
}
