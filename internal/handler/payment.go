package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/StenSOn27/online-cinema-api/internal/service"
)

// PaymentHandler exposes the settlement callback and payment history.
type PaymentHandler struct {
	Payments service.PaymentService
	Users    userGetter
}

func NewPaymentHandler(payments service.PaymentService, users userGetter) *PaymentHandler {
	return &PaymentHandler{Payments: payments, Users: users}
}

// Success is the checkout return endpoint. It verifies the provider session
// and settles the order, idempotently.
func (h *PaymentHandler) Success(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "session_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	user, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}

	payment, err := h.Payments.Settle(ctx, sessionID, user)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, payment)
}

// History returns the caller's payments, newest first.
func (h *PaymentHandler) History(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Payments.History(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"payments": items})
}
