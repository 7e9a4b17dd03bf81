// Package api serves the /api/v2 HTTP endpoints.
package api

import (
	"crypto/rand"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/microtrax/microtrax/internal/conf"
	"github.com/microtrax/microtrax/internal/errors"
	"github.com/microtrax/microtrax/internal/logger"
	"github.com/microtrax/microtrax/internal/notification"
	"github.com/microtrax/microtrax/internal/observability"
	"github.com/microtrax/microtrax/internal/privacy"
	"github.com/microtrax/microtrax/internal/settings"
	"github.com/microtrax/microtrax/internal/transactions"
)

// Controller owns the v2 route group and its dependencies.
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	Settings *conf.Settings

	settings     *settings.Service
	transactions *transactions.Service
	manager      *notification.Manager
	metrics      *observability.Metrics
	logger       logger.Logger
	startTime    time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithMetrics records request metrics and serves /metrics when enabled.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithLogger replaces the module logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// New registers the v2 routes on e.
func New(e *echo.Echo, cfg *conf.Settings, settingsSvc *settings.Service, txSvc *transactions.Service, manager *notification.Manager, opts ...Option) *Controller {
	c := &Controller{
		Echo:         e,
		Settings:     cfg,
		settings:     settingsSvc,
		transactions: txSvc,
		manager:      manager,
		logger:       logger.Global().Module("api"),
		startTime:    time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.Group = e.Group("/api/v2")
	c.Group.Use(middleware.Recover())
	c.Group.Use(middleware.BodyLimit("1M"))
	c.Group.Use(c.LoggingMiddleware())

	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)

	c.Group.GET("/settings", c.GetSettings)
	c.Group.PUT("/settings", c.UpdateSettings)

	c.SetupNotificationRoutes()

	c.Group.POST("/transactions", c.CreateTransaction)
	c.Group.GET("/transactions/:id", c.GetTransaction)
	c.Group.POST("/transactions/:id/complete", c.CompleteTransaction)
	c.Group.POST("/transactions/:id/fail", c.FailTransaction)

	if c.metrics != nil && c.Settings.Metrics.Enabled {
		path := c.Settings.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		c.Echo.GET(path, echo.WrapHandler(c.metrics.Handler()))
	}
}

// LoggingMiddleware logs each request and records its latency.
func (c *Controller) LoggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)
			if err != nil {
				ctx.Error(err)
			}

			req := ctx.Request()
			status := ctx.Response().Status
			duration := time.Since(start)

			if c.metrics != nil {
				c.metrics.HTTP.RecordRequest(ctx.Path(), req.Method, status, duration)
			}
			c.logger.Debug("api request",
				logger.String("method", req.Method),
				logger.String("path", req.URL.Path),
				logger.Int("status", status),
				logger.Duration("duration", duration),
				logger.String("ip", ctx.RealIP()))
			// the error was already written
			return nil
		}
	}
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// NewErrorResponse builds an error body. Error text is scrubbed of
// addresses and credentials.
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = privacy.ScrubMessage(err.Error())
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}
}

func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "ERR-RAND"
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// HandleError logs err and writes an ErrorResponse with code.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := NewErrorResponse(err, message, code)
	c.logger.Error("API error",
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("message", message),
		logger.String("error", resp.Error),
		logger.Int("code", code),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("method", ctx.Request().Method))
	return ctx.JSON(code, resp)
}

// statusFor maps error categories to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.IsCategory(err, errors.CategoryValidation):
		return http.StatusBadRequest
	case errors.IsCategory(err, errors.CategoryNotFound):
		return http.StatusNotFound
	case errors.IsCategory(err, errors.CategoryConflict):
		return http.StatusConflict
	case errors.IsCategory(err, errors.CategoryConfiguration):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// HealthCheck reports liveness and provider state.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	enabled := []string{}
	for _, name := range c.manager.Registered() {
		if p, ok := c.manager.Provider(name); ok && p.IsEnabled() {
			enabled = append(enabled, name)
		}
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"status":                    "healthy",
		"uptime_seconds":            int64(time.Since(c.startTime).Seconds()),
		"notifications_initialized": c.manager.Initialized(),
		"enabled_providers":         enabled,
	})
}
