package notification

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/microtrax/microtrax/internal/errors"
	"github.com/microtrax/microtrax/internal/httpclient"
	"github.com/microtrax/microtrax/internal/logger"
	"github.com/microtrax/microtrax/internal/privacy"
)

const (
	// SignatureHeader carries the HMAC of the request body when a secret is set.
	SignatureHeader = "X-Microtrax-Signature"

	// maxErrorBodySize limits how much of a failed response ends up in the error.
	maxErrorBodySize = 512
)

type webhookConfig struct {
	URL         string            `mapstructure:"url"`
	Method      string            `mapstructure:"method"`
	Secret      string            `mapstructure:"secret"`
	BearerToken string            `mapstructure:"bearer_token"`
	Types       []string          `mapstructure:"types"`
	Headers     map[string]string `mapstructure:"headers"`
}

// WebhookProvider posts every notification as one JSON document to a URL.
// Recipients are carried in the payload but not used for routing.
type WebhookProvider struct {
	base
	cfg    webhookConfig
	types  map[Type]struct{}
	client *httpclient.Client
	now    func() time.Time
}

// NewWebhookProvider returns a disabled webhook provider registered as name.
func NewWebhookProvider(name string, client *httpclient.Client) *WebhookProvider {
	if client == nil {
		client = httpclient.New(nil)
	}
	w := &WebhookProvider{client: client, now: time.Now}
	w.init(name)
	return w
}

// Configure replaces the endpoint. url is required when enabled. An empty
// types list accepts every notification type.
func (w *WebhookProvider) Configure(cfg ProviderConfig) error {
	var c webhookConfig
	enabled, err := decodeConfig(w.name, cfg, &c, configSpec{
		required: []string{"url"},
		secrets:  []string{"secret", "bearer_token"},
	})
	if err == nil && enabled {
		err = validateWebhookConfig(w.name, &c)
		if err != nil {
			enabled = false
		}
	}

	var types map[Type]struct{}
	if len(c.Types) > 0 {
		types = make(map[Type]struct{}, len(c.Types))
		for _, s := range c.Types {
			if t, ok := ParseType(s); ok {
				types[t] = struct{}{}
			}
		}
	}

	w.mu.Lock()
	w.cfg = c
	w.types = types
	w.enabled = enabled
	w.mu.Unlock()

	return err
}

func validateWebhookConfig(name string, c *webhookConfig) error {
	u, err := url.Parse(c.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return &ProviderNotConfiguredError{
			Provider: name,
			Err:      errors.Newf("url must be an absolute http(s) URL").Component("notification").Category(errors.CategoryValidation).Build(),
		}
	}
	c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
	switch c.Method {
	case "":
		c.Method = http.MethodPost
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return &ProviderNotConfiguredError{
			Provider: name,
			Err:      errors.Newf("unsupported method %q", c.Method).Component("notification").Category(errors.CategoryValidation).Build(),
		}
	}
	return nil
}

// SupportsType honours the configured types filter.
func (w *WebhookProvider) SupportsType(t Type) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.types == nil {
		return true
	}
	_, ok := w.types[t]
	return ok
}

type webhookPayload struct {
	ID         string         `json:"id"`
	Type       Type           `json:"type"`
	Subject    string         `json:"subject"`
	Body       string         `json:"body"`
	Data       map[string]any `json:"data"`
	Recipients []string       `json:"recipients"`
	Test       bool           `json:"test"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Send posts the payload. Any non-2xx answer is returned as an error that
// includes the start of the response body.
func (w *WebhookProvider) Send(ctx context.Context, n *Notification) (*Result, error) {
	w.mu.RLock()
	cfg, enabled := w.cfg, w.enabled
	w.mu.RUnlock()
	if !enabled {
		return Skipped(ReasonProviderDisabled), nil
	}

	recipients := make([]string, 0, len(n.Recipients))
	for _, r := range n.Recipients {
		recipients = append(recipients, r.ID)
	}
	data := n.Content.Data
	if data == nil {
		data = map[string]any{}
	}
	payload, err := json.Marshal(webhookPayload{
		ID:         n.ID,
		Type:       n.Type,
		Subject:    n.Content.Subject,
		Body:       n.Content.Body,
		Data:       data,
		Recipients: recipients,
		Test:       n.IsTest(),
		Timestamp:  w.now().UTC(),
	})
	if err != nil {
		return nil, &NotificationError{Provider: w.name, Message: "failed to encode webhook payload", Err: err}
	}

	if err := w.post(ctx, cfg, payload); err != nil {
		return nil, &NotificationError{Provider: w.name, Message: "webhook delivery failed", Err: privacy.WrapError(err, cfg.BearerToken, cfg.Secret)}
	}

	w.logger().Debug("webhook delivered",
		logger.String("notification_id", n.ID),
		logger.String("endpoint", privacy.AnonymizeURL(cfg.URL)))
	return Delivered(1, 1, nil), nil
}

func (w *WebhookProvider) post(ctx context.Context, cfg webhookConfig, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, cfg.Method, cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}
	if cfg.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.BearerToken)
	}
	if cfg.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(cfg.Secret, payload))
	}

	resp, err := w.client.Do(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			return fmt.Errorf("request cancelled: %w", err)
		case errors.Is(err, context.DeadlineExceeded):
			return fmt.Errorf("request timed out: %w", err)
		default:
			return fmt.Errorf("request failed: %w", err)
		}
	}
	defer httpclient.DrainAndClose(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// Sign returns the signature header value for body: "sha256=" followed by
// the hex HMAC-SHA256 under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
