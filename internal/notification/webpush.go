package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/microtrax/microtrax/internal/httpclient"
	"github.com/microtrax/microtrax/internal/logger"
	"github.com/microtrax/microtrax/internal/privacy"
)

// WebPushProviderName is the registry key of the browser push provider.
const WebPushProviderName = "web"

const (
	defaultVAPIDSubject = "mailto:admin@example.com"
	defaultWebPushTTL   = 86400

	notificationIcon  = "/static/img/notification-icon.png"
	notificationBadge = "/static/img/notification-badge.png"
	tagPrefix         = "microtrax-notification-"
)

// SubscriptionKeys are the browser-generated encryption keys of a push subscription.
type SubscriptionKeys struct {
	P256dh string `mapstructure:"p256dh" json:"p256dh"`
	Auth   string `mapstructure:"auth" json:"auth"`
}

// SubscriptionInfo is a PushSubscription as serialized by the browser.
type SubscriptionInfo struct {
	Endpoint string           `mapstructure:"endpoint" json:"endpoint"`
	Keys     SubscriptionKeys `mapstructure:"keys" json:"keys"`
}

// Subscriber ties a browser subscription to the user that registered it.
type Subscriber struct {
	UserID           string            `mapstructure:"user_id" json:"user_id"`
	SubscriptionInfo *SubscriptionInfo `mapstructure:"subscription_info" json:"subscription_info,omitempty"`
}

// WebPushOptions carries the VAPID identity used to sign one message.
type WebPushOptions struct {
	Subject    string
	PublicKey  string
	PrivateKey string
	TTL        int
}

// WebPushSender encrypts and delivers one push message, returning the push
// service status code and a short response body.
type WebPushSender interface {
	SendWebPush(ctx context.Context, payload []byte, sub *SubscriptionInfo, opts WebPushOptions) (int, string, error)
}

type webConfig struct {
	VAPIDPublicKey  string       `mapstructure:"vapid_public_key"`
	VAPIDPrivateKey string       `mapstructure:"vapid_private_key"`
	VAPIDSubject    string       `mapstructure:"vapid_subject"`
	TTL             int          `mapstructure:"ttl"`
	Subscribers     []Subscriber `mapstructure:"subscribers"`
}

// WebPushProvider sends VAPID-signed push messages to configured subscribers.
type WebPushProvider struct {
	base
	cfg    webConfig
	sender WebPushSender
	now    func() time.Time
}

// WebPushOption customizes a WebPushProvider.
type WebPushOption func(*WebPushProvider)

// WithWebPushSender replaces the push transport. A nil sender models a build
// without web-push support.
func WithWebPushSender(s WebPushSender) WebPushOption {
	return func(p *WebPushProvider) { p.sender = s }
}

// NewWebPushProvider returns a disabled web-push provider. When the binary
// is built without web-push support the provider can never be enabled.
func NewWebPushProvider(client *httpclient.Client, opts ...WebPushOption) *WebPushProvider {
	if client == nil {
		client = httpclient.New(nil)
	}
	p := &WebPushProvider{
		sender: newLibraryWebPushSender(client),
		now:    time.Now,
	}
	p.init(WebPushProviderName)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Available reports whether a push transport is compiled in.
func (p *WebPushProvider) Available() bool {
	return p.sender != nil
}

// Configure replaces the VAPID identity and subscriber list.
func (p *WebPushProvider) Configure(cfg ProviderConfig) error {
	log := p.logger()

	var c webConfig
	var enabled bool
	var err error
	if p.sender == nil {
		// Without a transport nothing is validated and the provider stays off.
		_ = decode(cfg, &c)
		if enabledFlag(cfg["enabled"]) {
			log.Warn("web notifications are enabled but web push support is not available in this build")
		}
	} else {
		enabled, err = decodeConfig(p.name, cfg, &c, configSpec{
			required: []string{"vapid_public_key", "vapid_private_key"},
			secrets:  []string{"vapid_private_key"},
		})
	}
	if c.VAPIDSubject == "" {
		c.VAPIDSubject = defaultVAPIDSubject
	}
	if c.TTL <= 0 {
		c.TTL = defaultWebPushTTL
	}
	if enabled && len(c.Subscribers) == 0 {
		log.Warn("web notification provider is enabled but has no subscribers")
	}

	p.mu.Lock()
	p.cfg = c
	p.enabled = enabled
	p.mu.Unlock()

	return err
}

func (p *WebPushProvider) snapshot() (webConfig, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg, p.enabled
}

// Subscribers returns a copy of the configured subscriber list.
func (p *WebPushProvider) Subscribers() []Subscriber {
	cfg, _ := p.snapshot()
	out := make([]Subscriber, len(cfg.Subscribers))
	copy(out, cfg.Subscribers)
	return out
}

type webPushPayload struct {
	Title              string         `json:"title"`
	Body               string         `json:"body"`
	Icon               string         `json:"icon"`
	Badge              string         `json:"badge"`
	Data               map[string]any `json:"data"`
	Tag                string         `json:"tag"`
	RequireInteraction bool           `json:"requireInteraction"`
	Actions            []any          `json:"actions"`
}

// Send delivers n to every matching subscriber. Per-subscriber failures are
// recorded in the results without aborting the batch.
func (p *WebPushProvider) Send(ctx context.Context, n *Notification) (*Result, error) {
	if p.sender == nil {
		return Skipped(ReasonWebPushNotAvailable), nil
	}
	cfg, enabled := p.snapshot()
	if !enabled {
		return Skipped(ReasonProviderDisabled), nil
	}
	log := p.logger().With(logger.String("notification_id", n.ID), logger.String("type", n.Type.String()))

	targets := matchSubscribers(cfg.Subscribers, n.Recipients)
	if len(targets) == 0 {
		if n.IsTest() {
			log.Warn("no matching web notification subscribers found for test notification")
			return Skipped(ReasonNoRecipients), nil
		}
		return nil, &RecipientError{Provider: p.name, NotificationID: n.ID}
	}

	payload, err := json.Marshal(p.payload(n))
	if err != nil {
		return nil, &NotificationError{Provider: p.name, Message: "Failed to send web notification", Err: err}
	}

	opts := WebPushOptions{
		Subject:    cfg.VAPIDSubject,
		PublicKey:  cfg.VAPIDPublicKey,
		PrivateKey: cfg.VAPIDPrivateKey,
		TTL:        cfg.TTL,
	}

	results := make([]RecipientResult, 0, len(targets))
	sent := 0
	for _, sub := range targets {
		if sub.SubscriptionInfo == nil || sub.SubscriptionInfo.Endpoint == "" {
			continue
		}
		res := RecipientResult{UserID: sub.UserID, Status: StatusError}
		status, body, err := p.sender.SendWebPush(ctx, payload, sub.SubscriptionInfo, opts)
		switch {
		case err != nil:
			res.Error = privacy.ScrubMessage(err.Error())
		case status >= 400:
			res.Error = strings.TrimSpace(fmt.Sprintf("HTTP %d: %s", status, body))
		default:
			res.Status = StatusSuccess
			sent++
		}
		if res.Status != StatusSuccess {
			log.Warn("failed to send web notification to subscriber",
				logger.String("user_id", sub.UserID),
				logger.String("error", res.Error))
		}
		results = append(results, res)
	}

	return Delivered(sent, len(targets), results), nil
}

func (p *WebPushProvider) payload(n *Notification) webPushPayload {
	tag := fmt.Sprintf("%s%d", tagPrefix, p.now().Unix())
	if n.IsTest() {
		tag = "test-" + tag
	}
	data := n.Content.Data
	if data == nil {
		data = map[string]any{}
	}
	return webPushPayload{
		Title:              n.Content.Subject,
		Body:               n.Content.Body,
		Icon:               notificationIcon,
		Badge:              notificationBadge,
		Data:               data,
		Tag:                tag,
		RequireInteraction: true,
		Actions:            []any{},
	}
}

// matchSubscribers keeps subscribers whose user id appears among the
// recipient ids. No recipients at all targets every subscriber.
func matchSubscribers(subs []Subscriber, recipients []Recipient) []Subscriber {
	if len(recipients) == 0 {
		return subs
	}
	ids := make(map[string]struct{}, len(recipients))
	for _, r := range recipients {
		if r.ID != "" {
			ids[r.ID] = struct{}{}
		}
	}
	var out []Subscriber
	for _, sub := range subs {
		if _, ok := ids[sub.UserID]; ok {
			out = append(out, sub)
		}
	}
	return out
}
