// Package settings stores per-team application settings and keeps the
// notification manager configured from them.
package settings

import (
	"github.com/microtrax/microtrax/internal/notification"
)

// CompanySettings identifies the publisher.
type CompanySettings struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Website string `json:"website"`
}

// WebhookSettings are callback URLs for purchase outcomes. An empty URL
// disables that webhook.
type WebhookSettings struct {
	PurchaseSuccess string `json:"purchaseSuccess"`
	PurchaseFailed  string `json:"purchaseFailed"`
}

// EventSettings switch individual notification events on or off.
type EventSettings struct {
	PurchaseConfirmation bool `json:"purchaseConfirmation"`
	FailedTransactions   bool `json:"failedTransactions"`
	WeeklyReports        bool `json:"weeklyReports"`
	NewProductReleases   bool `json:"newProductReleases"`
}

// EmailProviderSettings configures SMTP delivery.
type EmailProviderSettings struct {
	Enabled      bool   `json:"enabled"`
	SMTPHost     string `json:"smtpHost"`
	SMTPPort     int    `json:"smtpPort"`
	SMTPUser     string `json:"smtpUser"`
	SMTPPassword string `json:"smtpPassword"`
	FromEmail    string `json:"fromEmail"`
	UseTLS       *bool  `json:"useTls,omitempty"` // nil means true
}

// PushProviderSettings configures FCM delivery.
type PushProviderSettings struct {
	Enabled   bool   `json:"enabled"`
	FCMAPIKey string `json:"fcmApiKey"`
	FCMURL    string `json:"fcmUrl"`
}

// WebProviderSettings configures browser push delivery.
type WebProviderSettings struct {
	Enabled         bool                      `json:"enabled"`
	Subscribers     []notification.Subscriber `json:"subscribers"`
	VAPIDPublicKey  string                    `json:"vapidPublicKey"`
	VAPIDPrivateKey string                    `json:"vapidPrivateKey"`
}

// ProviderSettings groups the per-channel provider settings.
type ProviderSettings struct {
	Email EmailProviderSettings `json:"email"`
	Push  PushProviderSettings  `json:"push"`
	Web   WebProviderSettings   `json:"web"`
}

// AppSettings is the settings document stored per team.
type AppSettings struct {
	Company               CompanySettings  `json:"company"`
	Webhooks              WebhookSettings  `json:"webhooks"`
	Notifications         EventSettings    `json:"notifications"`
	NotificationProviders ProviderSettings `json:"notificationProviders"`
}

// UpdateRequest replaces the sections that are present.
type UpdateRequest struct {
	Company               *CompanySettings  `json:"company,omitempty"`
	Webhooks              *WebhookSettings  `json:"webhooks,omitempty"`
	Notifications         *EventSettings    `json:"notifications,omitempty"`
	NotificationProviders *ProviderSettings `json:"notificationProviders,omitempty"`
}

// TestRequest asks for a diagnostic notification.
type TestRequest struct {
	Subject          string   `json:"subject"`
	Message          string   `json:"message"`
	NotificationType string   `json:"notification_type"`
	ProviderTypes    []string `json:"provider_types"`
}

// User is the authenticated caller a test notification is addressed to.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}
