package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/microtrax/microtrax/internal/httpclient"
	"github.com/microtrax/microtrax/internal/logger"
	"github.com/microtrax/microtrax/internal/privacy"
)

// PushProviderName is the registry key of the FCM gateway provider.
const PushProviderName = "push"

// DefaultFCMURL is the legacy FCM HTTP endpoint.
const DefaultFCMURL = "https://fcm.googleapis.com/fcm/send"

// maxGatewayResponse bounds how much of a gateway reply is decoded.
const maxGatewayResponse = 64 * 1024

type pushConfig struct {
	FCMAPIKey string `mapstructure:"fcm_api_key"`
	FCMURL    string `mapstructure:"fcm_url"`
}

// PushProvider posts one FCM message per device token.
type PushProvider struct {
	base
	cfg    pushConfig
	client *httpclient.Client
}

// NewPushProvider returns a disabled push provider using client for
// gateway calls. A nil client gets the package defaults.
func NewPushProvider(client *httpclient.Client) *PushProvider {
	if client == nil {
		client = httpclient.New(nil)
	}
	p := &PushProvider{client: client}
	p.init(PushProviderName, TypeWeeklyReport)
	return p
}

// Configure replaces the gateway settings. fcm_api_key and fcm_url are
// required when enabled.
func (p *PushProvider) Configure(cfg ProviderConfig) error {
	var c pushConfig
	enabled, err := decodeConfig(p.name, cfg, &c, configSpec{
		required: []string{"fcm_api_key", "fcm_url"},
		secrets:  []string{"fcm_api_key"},
	})

	p.mu.Lock()
	p.cfg = c
	p.enabled = enabled
	p.mu.Unlock()

	return err
}

func (p *PushProvider) snapshot() (pushConfig, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg, p.enabled
}

type fcmMessage struct {
	To           string          `json:"to"`
	Notification fcmNotification `json:"notification"`
	Data         map[string]any  `json:"data"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Send posts to every device token in order. A token succeeds only on a 2xx
// answer whose body reports success == 1.
func (p *PushProvider) Send(ctx context.Context, n *Notification) (*Result, error) {
	cfg, enabled := p.snapshot()
	if !enabled {
		return Skipped(ReasonProviderDisabled), nil
	}

	tokens := deviceTokens(n.Recipients)
	if len(tokens) == 0 {
		return nil, &RecipientError{Provider: p.name, NotificationID: n.ID}
	}
	log := p.logger().With(logger.String("notification_id", n.ID), logger.String("type", n.Type.String()))

	headers := map[string]string{"Authorization": "key=" + cfg.FCMAPIKey}
	data := n.Content.Data
	if data == nil {
		data = map[string]any{}
	}

	results := make([]RecipientResult, 0, len(tokens))
	sent := 0
	for _, token := range tokens {
		msg := fcmMessage{
			To:           token,
			Notification: fcmNotification{Title: n.Content.Subject, Body: n.Content.Body},
			Data:         data,
		}
		res := p.sendOne(ctx, cfg.FCMURL, headers, msg)
		if res.Status == StatusSuccess {
			sent++
		} else {
			log.Warn("push delivery failed",
				logger.String("token", privacy.RedactToken(token)),
				logger.String("error", res.Error))
		}
		results = append(results, res)
	}

	return Delivered(sent, len(tokens), results), nil
}

func (p *PushProvider) sendOne(ctx context.Context, url string, headers map[string]string, msg fcmMessage) RecipientResult {
	res := RecipientResult{Token: msg.To, Status: StatusError}

	resp, err := p.client.PostJSON(ctx, url, msg, headers)
	if err != nil {
		res.Error = privacy.ScrubMessage(err.Error())
		return res
	}
	defer httpclient.DrainAndClose(resp)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxGatewayResponse))
	if err != nil {
		res.Error = fmt.Sprintf("failed to read gateway response: %v", err)
		return res
	}

	var reply map[string]any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &reply); err != nil {
			res.Error = fmt.Sprintf("HTTP %d: invalid gateway response", resp.StatusCode)
			return res
		}
	}
	res.Response = reply

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		res.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
		return res
	}
	if !gatewayAccepted(reply) {
		res.Error = "gateway did not accept the message"
		return res
	}
	res.Status = StatusSuccess
	return res
}

// gatewayAccepted reads the FCM "success" counter.
func gatewayAccepted(reply map[string]any) bool {
	switch v := reply["success"].(type) {
	case float64:
		return v == 1
	case json.Number:
		i, err := v.Int64()
		return err == nil && i == 1
	default:
		return false
	}
}

func deviceTokens(recipients []Recipient) []string {
	var out []string
	for _, r := range recipients {
		if token, ok := r.DeviceToken(); ok {
			out = append(out, token)
		}
	}
	return out
}
