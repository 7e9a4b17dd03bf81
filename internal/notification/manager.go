package notification

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/microtrax/microtrax/internal/errors"
	"github.com/microtrax/microtrax/internal/logger"
	"github.com/microtrax/microtrax/internal/privacy"
)

// MetricsRecorder receives dispatch measurements. *metrics.NotificationMetrics
// satisfies it.
type MetricsRecorder interface {
	RecordDelivery(provider, notificationType, status string, duration time.Duration)
	RecordDeliveryError(provider, notificationType, errorCategory string)
	RecordRecipientsSent(provider string, count int)
	SetProviderEnabled(provider string, enabled bool)
	IncrementDispatchTotal()
	IncrementSkipped()
}

// Config is the per-provider configuration applied by Initialize, keyed by
// provider name.
type Config struct {
	Providers map[string]ProviderConfig `json:"providers" yaml:"providers"`
}

// Manager is the provider registry and dispatcher. Construct one per process
// and share it; all methods are safe for concurrent use.
type Manager struct {
	mu          sync.RWMutex
	order       []string
	providers   map[string]Provider
	initialized bool

	log     logger.Logger
	metrics MetricsRecorder
	newID   func() string
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(l logger.Logger) ManagerOption {
	return func(m *Manager) { m.log = l }
}

// WithMetrics records per-provider delivery metrics.
func WithMetrics(r MetricsRecorder) ManagerOption {
	return func(m *Manager) { m.metrics = r }
}

// WithIDGenerator replaces uuid.NewString for notification ids.
func WithIDGenerator(f func() string) ManagerOption {
	return func(m *Manager) { m.newID = f }
}

// NewManager returns an empty, uninitialized manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		providers: make(map[string]Provider),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = getLogger()
	}
	return m
}

// Register adds p under its name. Registering a name again replaces the
// provider in place, keeping its position.
func (m *Manager) Register(p Provider) {
	name := p.GetName()

	m.mu.Lock()
	if _, exists := m.providers[name]; !exists {
		m.order = append(m.order, name)
	}
	m.providers[name] = p
	m.mu.Unlock()

	m.log.Info("registered notification provider", logger.String("provider", name))
}

// Registered returns provider names in registration order.
func (m *Manager) Registered() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.order)
}

// Provider looks up a registered provider by name.
func (m *Manager) Provider(name string) (Provider, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.providers[name]
	return p, ok
}

// Initialized reports whether the last Initialize call completed.
func (m *Manager) Initialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialized
}

// Initialize configures every registered provider in registration order. A
// provider without an entry gets an empty config and ends up disabled. The
// first configuration error aborts the call and is returned as is.
func (m *Manager) Initialize(cfg Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, name := range m.order {
		p := m.providers[name]
		pc := cfg.Providers[name]
		if pc == nil {
			pc = ProviderConfig{}
		}
		if err := p.Configure(pc); err != nil {
			m.setEnabledGauge(name, false)
			m.log.Error("notification provider configuration failed",
				logger.String("provider", name),
				logger.Error(err))
			return err
		}
		m.setEnabledGauge(name, p.IsEnabled())
		m.log.Debug("configured notification provider",
			logger.String("provider", name),
			logger.Bool("enabled", p.IsEnabled()))
	}

	m.initialized = true
	return nil
}

func (m *Manager) setEnabledGauge(name string, enabled bool) {
	if m.metrics != nil {
		m.metrics.SetProviderEnabled(name, enabled)
	}
}

// GetProvidersForType returns enabled providers that accept t, in
// registration order.
func (m *Manager) GetProvidersForType(t Type) []Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.providersForTypeLocked(t)
}

func (m *Manager) providersForTypeLocked(t Type) []Provider {
	var out []Provider
	for _, name := range m.order {
		p := m.providers[name]
		if p.IsEnabled() && p.SupportsType(t) {
			out = append(out, p)
		}
	}
	return out
}

type notifyOptions struct {
	providers []string
	explicit  bool
	metadata  map[string]any
}

// NotifyOption adjusts one Notify call.
type NotifyOption func(*notifyOptions)

// WithProviders restricts dispatch to the named providers, in the given
// order, bypassing type eligibility. Unknown or disabled names are dropped.
func WithProviders(names ...string) NotifyOption {
	return func(o *notifyOptions) {
		o.providers = names
		o.explicit = len(names) > 0
	}
}

// WithMetadata attaches free-form metadata. The "test" key marks a
// diagnostic send.
func WithMetadata(md map[string]any) NotifyOption {
	return func(o *notifyOptions) { o.metadata = md }
}

// Notify formats one notification and sends it through every selected
// provider in turn. Send errors and panics become {error} entries for the
// provider; nothing is returned as an error. Before Initialize, or when no
// provider is selected, the map is empty.
func (m *Manager) Notify(ctx context.Context, t Type, data map[string]any, recipients []Recipient, opts ...NotifyOption) map[string]*Result {
	var o notifyOptions
	for _, opt := range opts {
		opt(&o)
	}

	results := make(map[string]*Result)
	selected, ok := m.selectProviders(t, o)
	if !ok {
		return results
	}
	if len(selected) == 0 {
		m.log.Debug("no notification providers selected", logger.String("type", t.String()))
		if m.metrics != nil {
			m.metrics.IncrementSkipped()
		}
		return results
	}

	metadata := maps.Clone(o.metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}
	n := &Notification{
		ID:         m.newID(),
		Type:       t,
		Content:    m.format(selected[0], t, data),
		Recipients: slices.Clone(recipients),
		Metadata:   metadata,
	}
	if m.metrics != nil {
		m.metrics.IncrementDispatchTotal()
	}

	failed := 0
	for _, p := range selected {
		res := m.dispatch(ctx, p, n)
		if res.Status == "" || res.Status == StatusError {
			failed++
		}
		results[p.GetName()] = res
	}

	if failed == len(selected) {
		m.log.Error("notification delivery failed on every provider",
			logger.String("notification_id", n.ID),
			logger.String("type", t.String()),
			logger.Int("providers", len(selected)))
	}
	return results
}

// selectProviders returns false when the manager is not initialized.
func (m *Manager) selectProviders(t Type, o notifyOptions) ([]Provider, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.initialized {
		return nil, false
	}
	if !o.explicit {
		return m.providersForTypeLocked(t), true
	}

	var out []Provider
	seen := make(map[string]struct{}, len(o.providers))
	for _, name := range o.providers {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		p, ok := m.providers[name]
		switch {
		case !ok:
			m.log.Warn("requested notification provider skipped",
				logger.Error(&ProviderNotAvailableError{Provider: name, Reason: "not registered"}))
		case !p.IsEnabled():
			m.log.Warn("requested notification provider skipped",
				logger.Error(&ProviderNotAvailableError{Provider: name, Reason: "not enabled"}))
		default:
			out = append(out, p)
		}
	}
	return out, true
}

// format renders the shared content with the first selected provider,
// falling back to the default templates if the provider panics.
func (m *Manager) format(p Provider, t Type, data map[string]any) (content Content) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("notification formatting panicked",
				logger.String("provider", p.GetName()),
				logger.Any("panic", r))
			content = FormatDefault(t, data)
		}
	}()
	return p.FormatNotification(t, data)
}

func (m *Manager) dispatch(ctx context.Context, p Provider, n *Notification) (res *Result) {
	name := p.GetName()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			res = m.failure(name, n, fmt.Errorf("provider %s panicked: %v", name, r))
		}
		m.recordMetrics(name, n.Type, res, time.Since(start))
	}()

	result, err := p.Send(ctx, n)
	switch {
	case err != nil:
		return m.failure(name, n, err)
	case result == nil:
		return m.failure(name, n, fmt.Errorf("provider %s returned no result", name))
	default:
		return result
	}
}

// failure logs a send error with its category and converts it to a result
// entry. The typed error stays reachable for telemetry through the builder.
func (m *Manager) failure(name string, n *Notification, err error) *Result {
	ee := errors.New(err).
		Component("notification").
		Context("provider", name).
		Context("notification_type", n.Type.String()).
		Context("notification_id", n.ID).
		Build()

	msg := privacy.ScrubMessage(err.Error())
	m.log.Error("notification provider send failed",
		logger.String("provider", name),
		logger.String("notification_id", n.ID),
		logger.String("category", string(ee.Category)),
		logger.String("error", msg))

	if m.metrics != nil {
		m.metrics.RecordDeliveryError(name, n.Type.String(), string(ee.Category))
	}
	return &Result{Error: msg}
}

func (m *Manager) recordMetrics(name string, t Type, res *Result, d time.Duration) {
	if m.metrics == nil || res == nil {
		return
	}
	status := string(res.Status)
	if status == "" {
		status = string(StatusError)
	}
	m.metrics.RecordDelivery(name, t.String(), status, d)
	m.metrics.RecordRecipientsSent(name, res.SentCount)
}
