package settings

import (
	"github.com/microtrax/microtrax/internal/conf"
	"github.com/microtrax/microtrax/internal/notification"
)

const (
	defaultSMTPPort = 587

	// Registry names of the purchase webhooks.
	WebhookSuccessProvider = "webhook_success"
	WebhookFailedProvider  = "webhook_failed"
)

// Defaults derives settings from the config file and environment. It is used
// until a team saves its own settings.
func Defaults(cfg *conf.Settings) AppSettings {
	n := cfg.Notification
	useTLS := n.Email.UseTLS
	return AppSettings{
		Company: CompanySettings{Name: cfg.Main.Name, Email: cfg.Admin.Email},
		Notifications: EventSettings{
			PurchaseConfirmation: true,
			FailedTransactions:   true,
		},
		NotificationProviders: ProviderSettings{
			Email: EmailProviderSettings{
				Enabled:      n.Email.Enabled,
				SMTPHost:     n.Email.SMTPHost,
				SMTPPort:     n.Email.SMTPPort,
				SMTPUser:     n.Email.SMTPUser,
				SMTPPassword: n.Email.SMTPPassword,
				FromEmail:    n.Email.FromEmail,
				UseTLS:       &useTLS,
			},
			Push: PushProviderSettings{
				Enabled:   n.Push.Enabled,
				FCMAPIKey: n.Push.FCMAPIKey,
				FCMURL:    n.Push.FCMURL,
			},
			Web: WebProviderSettings{
				Enabled:         n.Web.Enabled,
				VAPIDPublicKey:  n.Web.VAPIDPublicKey,
				VAPIDPrivateKey: n.Web.VAPIDPrivateKey,
			},
		},
	}
}

// ProviderConfig renders s as notification manager configuration. Settings
// the document does not carry (SMTP implicit TLS, VAPID subject, chat) come
// from base.
func ProviderConfig(s AppSettings, base *conf.NotificationSettings) notification.Config {
	p := s.NotificationProviders

	port := p.Email.SMTPPort
	if port == 0 {
		port = defaultSMTPPort
	}
	useTLS := true
	if p.Email.UseTLS != nil {
		useTLS = *p.Email.UseTLS
	}
	fcmURL := p.Push.FCMURL
	if fcmURL == "" {
		fcmURL = conf.DefaultFCMURL
	}
	subject := conf.DefaultVAPIDSubject
	if base != nil && base.Web.VAPIDSubject != "" {
		subject = base.Web.VAPIDSubject
	}

	providers := map[string]notification.ProviderConfig{
		notification.EmailProviderName: {
			"enabled":       p.Email.Enabled,
			"smtp_host":     p.Email.SMTPHost,
			"smtp_port":     port,
			"smtp_user":     p.Email.SMTPUser,
			"smtp_password": p.Email.SMTPPassword,
			"from_email":    p.Email.FromEmail,
			"use_tls":       useTLS,
			"use_ssl":       base != nil && base.Email.UseSSL,
		},
		notification.PushProviderName: {
			"enabled":     p.Push.Enabled,
			"fcm_api_key": p.Push.FCMAPIKey,
			"fcm_url":     fcmURL,
		},
		notification.WebPushProviderName: {
			"enabled":           p.Web.Enabled,
			"subscribers":       p.Web.Subscribers,
			"vapid_public_key":  p.Web.VAPIDPublicKey,
			"vapid_private_key": p.Web.VAPIDPrivateKey,
			"vapid_subject":     subject,
		},
		WebhookSuccessProvider: webhookConfig(s.Webhooks.PurchaseSuccess, notification.TypeTransactionCompleted),
		WebhookFailedProvider:  webhookConfig(s.Webhooks.PurchaseFailed, notification.TypeTransactionFailed),
	}

	if base != nil {
		providers[notification.ChatProviderName] = notification.ProviderConfig{
			"enabled": base.Chat.Enabled,
			"urls":    base.Chat.URLs,
			"types":   base.Chat.Types,
		}
	}

	return notification.Config{Providers: providers}
}

func webhookConfig(url string, t notification.Type) notification.ProviderConfig {
	return notification.ProviderConfig{
		"enabled": url != "",
		"url":     url,
		"types":   []string{t.String()},
	}
}

// merge applies the present sections of req onto s.
func merge(s AppSettings, req UpdateRequest) AppSettings {
	if req.Company != nil {
		s.Company = *req.Company
	}
	if req.Webhooks != nil {
		s.Webhooks = *req.Webhooks
	}
	if req.Notifications != nil {
		s.Notifications = *req.Notifications
	}
	if req.NotificationProviders != nil {
		s.NotificationProviders = *req.NotificationProviders
	}
	return s
}
