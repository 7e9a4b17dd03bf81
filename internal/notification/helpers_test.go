package notification

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/microtrax/microtrax/internal/logger"
)

func quietLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
}

// stubProvider records what it was asked to send.
type stubProvider struct {
	base
	sendFn func(ctx context.Context, n *Notification) (*Result, error)

	callsMu sync.Mutex
	calls   []*Notification
	configs []ProviderConfig
	subject string
}

func newStubProvider(name string, unsupported ...Type) *stubProvider {
	p := &stubProvider{}
	p.init(name, unsupported...)
	p.log = quietLogger()
	return p
}

func (s *stubProvider) Configure(cfg ProviderConfig) error {
	var c struct {
		Token string `mapstructure:"token"`
	}
	enabled, err := decodeConfig(s.name, cfg, &c, configSpec{required: []string{"token"}})
	s.callsMu.Lock()
	s.configs = append(s.configs, cfg)
	s.callsMu.Unlock()

	s.mu.Lock()
	s.enabled = enabled
	s.mu.Unlock()
	return err
}

func (s *stubProvider) FormatNotification(t Type, data map[string]any) Content {
	c := FormatDefault(t, data)
	if s.subject != "" {
		c.Subject = s.subject
	}
	return c
}

func (s *stubProvider) Send(ctx context.Context, n *Notification) (*Result, error) {
	s.callsMu.Lock()
	s.calls = append(s.calls, n)
	s.callsMu.Unlock()
	if s.sendFn != nil {
		return s.sendFn(ctx, n)
	}
	return Delivered(1, 1, nil), nil
}

func (s *stubProvider) sent() []*Notification {
	s.callsMu.Lock()
	defer s.callsMu.Unlock()
	return append([]*Notification(nil), s.calls...)
}

func enabledStub() ProviderConfig {
	return ProviderConfig{"enabled": true, "token": "secret"}
}

// recordingMetrics implements MetricsRecorder.
type recordingMetrics struct {
	mu         sync.Mutex
	deliveries map[string]string
	errors     map[string]string
	enabled    map[string]bool
	dispatched int
	skipped    int
	recipients map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		deliveries: map[string]string{},
		errors:     map[string]string{},
		enabled:    map[string]bool{},
		recipients: map[string]int{},
	}
}

func (r *recordingMetrics) RecordDelivery(provider, _, status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries[provider] = status
}

func (r *recordingMetrics) RecordDeliveryError(provider, _, category string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors[provider] = category
}

func (r *recordingMetrics) RecordRecipientsSent(provider string, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recipients[provider] += count
}

func (r *recordingMetrics) SetProviderEnabled(provider string, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled[provider] = enabled
}

func (r *recordingMetrics) IncrementDispatchTotal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatched++
}

func (r *recordingMetrics) IncrementSkipped() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skipped++
}
