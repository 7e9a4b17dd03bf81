package api

import (
	"github.com/labstack/echo/v4"

	"github.com/microtrax/microtrax/internal/settings"
)

// Identity headers set by the gateway in front of the API.
const (
	HeaderUserID    = "X-Microtrax-User-Id"
	HeaderUserEmail = "X-Microtrax-User-Email"
	HeaderUserName  = "X-Microtrax-User-Name"
)

// currentUser reads the caller identity. Without gateway headers the admin
// account is assumed.
func (c *Controller) currentUser(ctx echo.Context) settings.User {
	h := ctx.Request().Header
	u := settings.User{
		ID:    h.Get(HeaderUserID),
		Email: h.Get(HeaderUserEmail),
		Name:  h.Get(HeaderUserName),
	}
	if u.ID == "" && u.Email == "" {
		u.ID = c.Settings.Admin.Email
		u.Email = c.Settings.Admin.Email
	}
	return u
}
