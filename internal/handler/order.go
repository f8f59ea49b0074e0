package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/StenSOn27/online-cinema-api/internal/service"
)

// OrderHandler exposes order assembly, listing, cancellation and the
// checkout bridge.
type OrderHandler struct {
	Orders   service.OrderService
	Payments service.PaymentService
	Users    userGetter
}

func NewOrderHandler(orders service.OrderService, payments service.PaymentService, users userGetter) *OrderHandler {
	return &OrderHandler{Orders: orders, Payments: payments, Users: users}
}

// Create assembles an order from the caller's cart.
func (h *OrderHandler) Create(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	user, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}

	res, err := h.Orders.CreateFromCart(ctx, user)
	if err != nil {
		return respondError(c, err)
	}
	if !res.Created {
		return c.JSON(http.StatusOK, res)
	}
	return c.JSON(http.StatusCreated, res)
}

// List returns the caller's orders with their items.
func (h *OrderHandler) List(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	orders, err := h.Orders.List(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": orders})
}

// Cancel voids a pending order. The order id comes from the path on the
// API route and from the order_id query param on the checkout cancel
// redirect.
func (h *OrderHandler) Cancel(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID, err := cancelOrderID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Orders.Cancel(ctx, orderID, uid); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Order canceled."})
}

// Confirm creates a hosted checkout session for a pending order and returns
// the redirect URL.
func (h *OrderHandler) Confirm(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	url, err := h.Payments.Checkout(ctx, orderID, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"checkout_url": url})
}

func cancelOrderID(c echo.Context) (uint64, error) {
	if p := c.Param("id"); p != "" {
		return strconv.ParseUint(p, 10, 64)
	}
	return strconv.ParseUint(c.QueryParam("order_id"), 10, 64)
}
