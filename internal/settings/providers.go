package settings

import (
	"github.com/microtrax/microtrax/internal/httpclient"
	"github.com/microtrax/microtrax/internal/notification"
)

// RegisterProviders registers every provider the settings document can
// configure: email, push and web push, the two purchase webhooks and the
// chat channel. The HTTP based providers share client.
func RegisterProviders(m *notification.Manager, client *httpclient.Client) {
	for _, p := range notification.StandardProviders(client) {
		m.Register(p)
	}
	m.Register(notification.NewWebhookProvider(WebhookSuccessProvider, client))
	m.Register(notification.NewWebhookProvider(WebhookFailedProvider, client))
	m.Register(notification.NewChatProvider())
}
