package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/microtrax/microtrax/internal/errors"
	"github.com/microtrax/microtrax/internal/settings"
)

// GetSettings handles GET /api/v2/settings.
func (c *Controller) GetSettings(ctx echo.Context) error {
	current, err := c.settings.Get(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to load settings", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, current)
}

// UpdateSettings handles PUT /api/v2/settings. Sections missing from the
// body are left unchanged. A provider configuration error is reported with
// 422 after the settings have been stored.
func (c *Controller) UpdateSettings(ctx echo.Context) error {
	var req settings.UpdateRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid settings payload", http.StatusBadRequest)
	}

	updated, err := c.settings.Update(ctx.Request().Context(), req)
	if err != nil {
		if errors.IsCategory(err, errors.CategoryConfiguration) {
			return c.HandleError(ctx, err, "Settings saved but notification providers could not be configured", http.StatusUnprocessableEntity)
		}
		return c.HandleError(ctx, err, "Failed to update settings", statusFor(err))
	}
	return ctx.JSON(http.StatusOK, updated)
}
