package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/microtrax/microtrax/internal/transactions"
)

// CreateTransaction handles POST /api/v2/transactions.
func (c *Controller) CreateTransaction(ctx echo.Context) error {
	var req transactions.CreateRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid transaction payload", http.StatusBadRequest)
	}
	tx, err := c.transactions.Create(ctx.Request().Context(), req)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to create transaction", statusFor(err))
	}
	return ctx.JSON(http.StatusCreated, tx)
}

// GetTransaction handles GET /api/v2/transactions/:id.
func (c *Controller) GetTransaction(ctx echo.Context) error {
	tx, err := c.transactions.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err, "Transaction not available", statusFor(err))
	}
	return ctx.JSON(http.StatusOK, tx)
}

// CompleteTransaction handles POST /api/v2/transactions/:id/complete.
func (c *Controller) CompleteTransaction(ctx echo.Context) error {
	tx, err := c.transactions.Complete(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err, "Failed to complete transaction", statusFor(err))
	}
	return ctx.JSON(http.StatusOK, tx)
}

type failRequest struct {
	Reason string `json:"reason"`
}

// FailTransaction handles POST /api/v2/transactions/:id/fail.
func (c *Controller) FailTransaction(ctx echo.Context) error {
	var req failRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid payload", http.StatusBadRequest)
	}
	tx, err := c.transactions.Fail(ctx.Request().Context(), ctx.Param("id"), req.Reason)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to mark transaction as failed", statusFor(err))
	}
	return ctx.JSON(http.StatusOK, tx)
}
