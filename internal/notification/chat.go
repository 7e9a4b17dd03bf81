package notification

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/microtrax/microtrax/internal/errors"
	"github.com/microtrax/microtrax/internal/logger"
	"github.com/microtrax/microtrax/internal/privacy"
)

// ChatProviderName is the registry key of the shoutrrr provider.
const ChatProviderName = "chat"

const defaultChatTimeout = 10 * time.Second

type chatConfig struct {
	URLs    []string      `mapstructure:"urls"`
	Types   []string      `mapstructure:"types"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ChatProvider broadcasts the subject and body to shoutrrr service URLs
// (Slack, Discord, Telegram, ...). It ignores recipients.
type ChatProvider struct {
	base
	cfg    chatConfig
	types  map[Type]struct{}
	sender *router.ServiceRouter
}

// NewChatProvider returns a disabled chat provider.
func NewChatProvider() *ChatProvider {
	p := &ChatProvider{}
	p.init(ChatProviderName)
	return p
}

// Configure builds one shoutrrr router for all URLs. An unparsable URL is a
// configuration error.
func (c *ChatProvider) Configure(cfg ProviderConfig) error {
	var cc chatConfig
	enabled, err := decodeConfig(c.name, cfg, &cc, configSpec{required: []string{"urls"}})
	if cc.Timeout <= 0 {
		cc.Timeout = defaultChatTimeout
	}

	var sender *router.ServiceRouter
	if err == nil && enabled {
		sender, err = shoutrrr.CreateSender(cc.URLs...)
		if err != nil {
			err = &ProviderNotConfiguredError{Provider: c.name, Err: privacy.WrapError(err, cc.URLs...)}
			enabled = false
			sender = nil
		} else {
			sender.Timeout = cc.Timeout
			// shoutrrr logs through the standard logger by default
			sender.SetLogger(log.New(io.Discard, "", 0))
		}
	}

	var types map[Type]struct{}
	if len(cc.Types) > 0 {
		types = make(map[Type]struct{}, len(cc.Types))
		for _, s := range cc.Types {
			if t, ok := ParseType(s); ok {
				types[t] = struct{}{}
			}
		}
	}

	c.mu.Lock()
	c.cfg = cc
	c.types = types
	c.sender = sender
	c.enabled = enabled
	c.mu.Unlock()

	return err
}

// SupportsType honours the configured types filter.
func (c *ChatProvider) SupportsType(t Type) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.types == nil {
		return true
	}
	_, ok := c.types[t]
	return ok
}

// Send delivers to every URL. It fails only when no URL accepted the message.
func (c *ChatProvider) Send(ctx context.Context, n *Notification) (*Result, error) {
	c.mu.RLock()
	sender, urls, enabled := c.sender, len(c.cfg.URLs), c.enabled
	c.mu.RUnlock()
	if !enabled {
		return Skipped(ReasonProviderDisabled), nil
	}
	if sender == nil {
		return nil, &NotificationError{Provider: c.name, Message: "shoutrrr sender not initialized"}
	}
	if err := ctx.Err(); err != nil {
		return nil, &NotificationError{Provider: c.name, Message: "chat delivery cancelled", Err: err}
	}

	params := stypes.Params{}
	if n.Content.Subject != "" {
		params.SetTitle(n.Content.Subject)
	}
	body := n.Content.Body
	if n.IsTest() {
		body = testSubjectTag + body
	}

	// the router applies its own timeout per service
	errs := sender.Send(body, &params)

	var failures []string
	for i, err := range errs {
		if err != nil {
			failures = append(failures, fmt.Sprintf("service %d: %s", i, privacy.ScrubMessage(err.Error())))
		}
	}
	sent := urls - len(failures)
	if sent <= 0 {
		return nil, &NotificationError{
			Provider: c.name,
			Message:  "chat delivery failed",
			Err:      errors.NewStd(strings.Join(failures, "; ")),
		}
	}
	if len(failures) > 0 {
		c.logger().Warn("chat delivery partially failed",
			logger.String("notification_id", n.ID),
			logger.Strings("failures", failures))
	}
	return Delivered(sent, urls, nil), nil
}
