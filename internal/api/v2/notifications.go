package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/microtrax/microtrax/internal/conf"
	"github.com/microtrax/microtrax/internal/notification"
	"github.com/microtrax/microtrax/internal/settings"
)

const testRateWindow = time.Minute

// SetupNotificationRoutes registers the notification endpoints. Test sends
// are rate limited per client IP.
func (c *Controller) SetupNotificationRoutes() {
	perMinute := c.Settings.WebServer.TestRate
	if perMinute <= 0 {
		perMinute = conf.DefaultTestRate
	}

	rateLimiterConfig := middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(float64(perMinute) / testRateWindow.Seconds()),
				Burst:     perMinute,
				ExpiresIn: 3 * testRateWindow,
			},
		),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(ctx echo.Context, err error) error {
			return c.HandleError(ctx, err, "Rate limiter could not identify the client", http.StatusForbidden)
		},
		DenyHandler: func(ctx echo.Context, _ string, err error) error {
			return c.HandleError(ctx, err, "Too many test notifications, please wait before trying again", http.StatusTooManyRequests)
		},
	}

	c.Group.POST("/notifications/test", c.SendTestNotification, middleware.RateLimiterWithConfig(rateLimiterConfig))
	c.Group.POST("/notifications/vapid-keys", c.GenerateVAPIDKeys)
	c.Group.GET("/notifications/providers", c.ListProviders)
}

// TestNotificationResponse carries the per-provider results of a test send.
type TestNotificationResponse struct {
	Message string                          `json:"message"`
	Results map[string]*notification.Result `json:"results"`
}

// SendTestNotification handles POST /api/v2/notifications/test.
func (c *Controller) SendTestNotification(ctx echo.Context) error {
	var req settings.TestRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid test notification payload", http.StatusBadRequest)
	}
	if !c.manager.Initialized() {
		return c.HandleError(ctx, nil, "Notification providers are not configured", http.StatusServiceUnavailable)
	}

	results := c.settings.SendTest(ctx.Request().Context(), req, c.currentUser(ctx))
	return ctx.JSON(http.StatusOK, TestNotificationResponse{
		Message: "Test notification sent",
		Results: results,
	})
}

// GenerateVAPIDKeys handles POST /api/v2/notifications/vapid-keys. The keys
// are returned but not stored.
func (c *Controller) GenerateVAPIDKeys(ctx echo.Context) error {
	keys, err := c.settings.GenerateVAPIDKeys()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to generate VAPID keys", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, keys)
}

// ProviderInfo describes one registered provider.
type ProviderInfo struct {
	Name    string   `json:"name"`
	Enabled bool     `json:"enabled"`
	Types   []string `json:"types"`
}

// ListProviders handles GET /api/v2/notifications/providers.
func (c *Controller) ListProviders(ctx echo.Context) error {
	out := []ProviderInfo{}
	for _, name := range c.manager.Registered() {
		p, ok := c.manager.Provider(name)
		if !ok {
			continue
		}
		info := ProviderInfo{Name: name, Enabled: p.IsEnabled(), Types: []string{}}
		for _, t := range notification.AllTypes {
			if p.SupportsType(t) {
				info.Types = append(info.Types, t.String())
			}
		}
		out = append(out, info)
	}
	return ctx.JSON(http.StatusOK, out)
}
