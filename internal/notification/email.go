package notification

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/k3a/html2text"
	mail "gopkg.in/mail.v2"

	"github.com/microtrax/microtrax/internal/logger"
	"github.com/microtrax/microtrax/internal/privacy"
)

// EmailProviderName is the registry key of the SMTP provider.
const EmailProviderName = "email"

const (
	defaultSMTPPort = 587
	implicitTLSPort = 465
	testSubjectTag  = "[TEST] "
)

type emailConfig struct {
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUser     string `mapstructure:"smtp_user"`
	SMTPPassword string `mapstructure:"smtp_password"`
	FromEmail    string `mapstructure:"from_email"`
	UseTLS       bool   `mapstructure:"use_tls"`
	UseSSL       bool   `mapstructure:"use_ssl"`
}

// MailDialer opens one SMTP session. *mail.Dialer satisfies it.
type MailDialer interface {
	Dial() (mail.SendCloser, error)
}

// DialerFactory builds the SMTP dialer for a configuration snapshot.
type DialerFactory func(host string, port int, username, password string, implicitTLS, startTLS bool) MailDialer

// newMailDialer maps the TLS flags onto one of three connection modes:
// implicit TLS, mandatory STARTTLS, or plain SMTP that never upgrades even
// when the server offers STARTTLS.
func newMailDialer(host string, port int, username, password string, implicitTLS, startTLS bool) MailDialer {
	d := mail.NewDialer(host, port, username, password)
	d.SSL = implicitTLS || port == implicitTLSPort
	switch {
	case d.SSL:
		d.TLSConfig = &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
	case startTLS:
		d.StartTLSPolicy = mail.MandatoryStartTLS
		d.TLSConfig = &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
	default:
		d.StartTLSPolicy = mail.NoStartTLS
	}
	return d
}

// EmailProvider delivers one SMTP message per resolved address over a
// single connection.
type EmailProvider struct {
	base
	cfg    emailConfig
	dialer DialerFactory
}

// EmailOption customizes an EmailProvider.
type EmailOption func(*EmailProvider)

// WithDialerFactory replaces the SMTP dialer, mainly for tests.
func WithDialerFactory(f DialerFactory) EmailOption {
	return func(p *EmailProvider) { p.dialer = f }
}

// NewEmailProvider returns a disabled email provider.
func NewEmailProvider(opts ...EmailOption) *EmailProvider {
	p := &EmailProvider{dialer: newMailDialer}
	p.init(EmailProviderName)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Configure replaces the SMTP settings. smtp_host, smtp_port and from_email
// are required when enabled.
func (p *EmailProvider) Configure(cfg ProviderConfig) error {
	var c emailConfig
	enabled, err := decodeConfig(p.name, cfg, &c, configSpec{
		required: []string{"smtp_host", "smtp_port", "from_email"},
		secrets:  []string{"smtp_password"},
	})
	if c.SMTPPort == 0 {
		c.SMTPPort = defaultSMTPPort
	}

	p.mu.Lock()
	p.cfg = c
	p.enabled = enabled
	p.mu.Unlock()

	return err
}

func (p *EmailProvider) snapshot() (emailConfig, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg, p.enabled
}

// Send delivers n to every email recipient. Per-address failures are logged
// and excluded from the sent count; the report is a success even when no
// address accepted the message.
func (p *EmailProvider) Send(ctx context.Context, n *Notification) (*Result, error) {
	cfg, enabled := p.snapshot()
	if !enabled {
		return Skipped(ReasonProviderDisabled), nil
	}
	log := p.logger().With(logger.String("notification_id", n.ID), logger.String("type", n.Type.String()))

	recipients := p.recipients(n)
	if len(recipients) == 0 {
		if n.IsTest() {
			log.Warn("no valid email recipients found for test notification")
			return Skipped(ReasonNoRecipients), nil
		}
		return nil, &RecipientError{Provider: p.name, NotificationID: n.ID}
	}

	if err := ctx.Err(); err != nil {
		return nil, &NotificationError{Provider: p.name, Message: "Failed to send email notification", Err: err}
	}

	// Auth is only attempted with a complete credential pair.
	username, password := cfg.SMTPUser, cfg.SMTPPassword
	if username == "" || password == "" {
		username, password = "", ""
	}

	dialer := p.dialer(cfg.SMTPHost, cfg.SMTPPort, username, password, cfg.UseSSL, cfg.UseTLS)
	sender, err := dialer.Dial()
	if err != nil {
		return nil, &NotificationError{
			Provider: p.name,
			Message:  "Failed to send email notification",
			Err:      privacy.WrapError(err, cfg.SMTPPassword),
		}
	}
	defer func() {
		if cerr := sender.Close(); cerr != nil {
			log.Warn("failed to close SMTP connection", logger.Error(cerr))
		}
	}()

	subject := n.Content.Subject
	if n.IsTest() {
		subject = testSubjectTag + subject
	}

	sent := 0
	for _, to := range recipients {
		if err := ctx.Err(); err != nil {
			log.Warn("email dispatch cancelled", logger.Error(err), logger.Int("sent", sent))
			break
		}
		msg := buildMessage(cfg.FromEmail, to, subject, n.Content)
		if err := mail.Send(sender, msg); err != nil {
			log.Error("failed to send email",
				logger.String("recipient", privacy.AnonymizeEmail(to)),
				logger.String("error", privacy.ScrubMessage(err.Error())))
			continue
		}
		sent++
	}

	log.Info("email notification dispatched", logger.Int("sent", sent), logger.Int("total", len(recipients)))
	return Reported(sent, len(recipients), nil), nil
}

// recipients resolves addresses in order. Test sends fall back to the
// triggering user's address in content data.
func (p *EmailProvider) recipients(n *Notification) []string {
	var out []string
	for _, r := range n.Recipients {
		if addr, ok := r.EmailAddress(); ok {
			out = append(out, addr)
		}
	}
	if len(out) == 0 && n.IsTest() {
		if addr := nestedString(n.Content.Data, "user", "email"); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

func buildMessage(from, to, subject string, content Content) *mail.Message {
	m := mail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)

	if content.HTMLBody == "" {
		m.SetBody("text/plain", content.Body)
		return m
	}

	plain := content.Body
	if strings.TrimSpace(plain) == "" {
		plain = html2text.HTML2Text(content.HTMLBody)
	}
	m.SetBody("text/plain", plain)
	m.AddAlternative("text/html", content.HTMLBody)
	return m
}

// String describes the provider without credentials.
func (p *EmailProvider) String() string {
	cfg, enabled := p.snapshot()
	return fmt.Sprintf("email(host=%s port=%d enabled=%t)", cfg.SMTPHost, cfg.SMTPPort, enabled)
}
