// Package metrics provides custom Prometheus metrics for notification operations.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// NotificationMetrics contains the Prometheus metrics for provider dispatch.
type NotificationMetrics struct {
	ProviderDeliveriesTotal  *prometheus.CounterVec   // dispatch outcomes by provider, type, status
	ProviderDeliveryDuration *prometheus.HistogramVec // provider send latency by provider and type
	ProviderDeliveryErrors   *prometheus.CounterVec   // failed sends by provider, type, error category
	RecipientsSentTotal      *prometheus.CounterVec   // individual messages delivered by provider
	ProviderEnabled          *prometheus.GaugeVec     // 1 when the provider is enabled after Initialize

	NotificationDispatchTotal prometheus.Counter // Notify calls that reached at least one provider
	NotificationSkippedTotal  prometheus.Counter // Notify calls with no eligible provider or before Initialize
}

// NewNotificationMetrics creates and registers the notification metrics.
func NewNotificationMetrics(registry prometheus.Registerer) (*NotificationMetrics, error) {
	m := &NotificationMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register notification metrics: %w", err)
	}
	return m, nil
}

func (m *NotificationMetrics) initMetrics() {
	m.ProviderDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_provider_deliveries_total",
			Help: "Total number of provider dispatches by provider, notification type, and status",
		},
		[]string{"provider", "notification_type", "status"}, // status: success, skipped, error
	)

	m.ProviderDeliveryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_provider_delivery_duration_seconds",
			Help:    "Time taken by a provider send by provider and notification type",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
		},
		[]string{"provider", "notification_type"},
	)

	m.ProviderDeliveryErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_provider_delivery_errors_total",
			Help: "Total number of provider send errors by provider, type, and error category",
		},
		[]string{"provider", "notification_type", "error_category"},
	)

	m.RecipientsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_recipients_sent_total",
			Help: "Total number of individual messages accepted by the transport, by provider",
		},
		[]string{"provider"},
	)

	m.ProviderEnabled = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "notification_provider_enabled",
			Help: "Whether the provider is enabled after the last configuration (1=enabled, 0=disabled)",
		},
		[]string{"provider"},
	)

	m.NotificationDispatchTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notification_dispatch_total",
		Help: "Total number of notifications dispatched to at least one provider",
	})

	m.NotificationSkippedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notification_dispatch_skipped_total",
		Help: "Total number of notify calls that selected no provider",
	})
}

// RecordDelivery records one provider dispatch outcome and its duration.
func (m *NotificationMetrics) RecordDelivery(provider, notificationType, status string, duration time.Duration) {
	m.ProviderDeliveriesTotal.WithLabelValues(provider, notificationType, status).Inc()
	m.ProviderDeliveryDuration.WithLabelValues(provider, notificationType).Observe(duration.Seconds())
}

// RecordDeliveryError records a failed provider send.
func (m *NotificationMetrics) RecordDeliveryError(provider, notificationType, errorCategory string) {
	m.ProviderDeliveryErrors.WithLabelValues(provider, notificationType, errorCategory).Inc()
}

// RecordRecipientsSent adds the number of messages a provider delivered.
func (m *NotificationMetrics) RecordRecipientsSent(provider string, count int) {
	if count > 0 {
		m.RecipientsSentTotal.WithLabelValues(provider).Add(float64(count))
	}
}

// SetProviderEnabled updates the enabled gauge for a provider.
func (m *NotificationMetrics) SetProviderEnabled(provider string, enabled bool) {
	value := 0.0
	if enabled {
		value = 1.0
	}
	m.ProviderEnabled.WithLabelValues(provider).Set(value)
}

// IncrementDispatchTotal counts a notification that reached at least one provider.
func (m *NotificationMetrics) IncrementDispatchTotal() {
	m.NotificationDispatchTotal.Inc()
}

// IncrementSkipped counts a notify call that selected no provider.
func (m *NotificationMetrics) IncrementSkipped() {
	m.NotificationSkippedTotal.Inc()
}

// Collect implements the prometheus.Collector interface.
func (m *NotificationMetrics) Collect(ch chan<- prometheus.Metric) {
	m.ProviderDeliveriesTotal.Collect(ch)
	m.ProviderDeliveryDuration.Collect(ch)
	m.ProviderDeliveryErrors.Collect(ch)
	m.RecipientsSentTotal.Collect(ch)
	m.ProviderEnabled.Collect(ch)
	m.NotificationDispatchTotal.Collect(ch)
	m.NotificationSkippedTotal.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *NotificationMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.ProviderDeliveriesTotal.Describe(ch)
	m.ProviderDeliveryDuration.Describe(ch)
	m.ProviderDeliveryErrors.Describe(ch)
	m.RecipientsSentTotal.Describe(ch)
	m.ProviderEnabled.Describe(ch)
	m.NotificationDispatchTotal.Describe(ch)
	m.NotificationSkippedTotal.Describe(ch)
}
