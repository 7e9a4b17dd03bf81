package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// outboundErrorCode labels outbound requests that got no response.
const outboundErrorCode = "error"

// HTTPMetrics tracks API requests served by the echo controller and the
// outbound calls providers make to push gateways and webhooks.
type HTTPMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	OutboundRequestsTotal   *prometheus.CounterVec
	OutboundRequestDuration *prometheus.HistogramVec
}

// NewHTTPMetrics creates and registers the API request metrics.
func NewHTTPMetrics(registry prometheus.Registerer) (*HTTPMetrics, error) {
	m := &HTTPMetrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "api_requests_total",
				Help: "Total number of API requests by route, method and status code",
			},
			[]string{"route", "method", "code"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "api_request_duration_seconds",
				Help:    "API request latency by route and method",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		OutboundRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outbound_requests_total",
				Help: "Total number of outbound provider requests by host and status code",
			},
			[]string{"host", "code"},
		),
		OutboundRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "outbound_request_duration_seconds",
				Help:    "Outbound provider request latency by host",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"host"},
		),
	}

	for _, c := range []prometheus.Collector{
		m.RequestsTotal, m.RequestDuration,
		m.OutboundRequestsTotal, m.OutboundRequestDuration,
	} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register http metrics: %w", err)
		}
	}
	return m, nil
}

// RecordRequest records one served request.
func (m *HTTPMetrics) RecordRequest(route, method string, code int, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.RequestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// ObserveOutbound records one outbound round trip. Only the host is used as
// a label so paths carrying tokens never reach the registry. Its signature
// matches httpclient.RequestObserver.
func (m *HTTPMetrics) ObserveOutbound(req *http.Request, resp *http.Response, err error, elapsed time.Duration) {
	code := outboundErrorCode
	if err == nil && resp != nil {
		code = strconv.Itoa(resp.StatusCode)
	}
	host := req.URL.Hostname()
	m.OutboundRequestsTotal.WithLabelValues(host, code).Inc()
	m.OutboundRequestDuration.WithLabelValues(host).Observe(elapsed.Seconds())
}
