package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/StenSOn27/online-cinema-api/internal/model"
	"github.com/StenSOn27/online-cinema-api/internal/service"
)

func TestOrderCreateResponseFieldNames(t *testing.T) {
	orders := new(mockOrderService)
	users := new(mockUserGetter)
	h := NewOrderHandler(orders, nil, users)

	user := model.User{ID: 7, Email: "viewer@example.com", Role: model.RoleUser, RegionCode: "US", IsActive: true}
	users.On("GetByID", mock.Anything, uint64(7)).Return(user, nil)
	orders.On("CreateFromCart", mock.Anything, user).Return(service.OrderCreateResult{
		Created:     true,
		OrderID:     42,
		TotalAmount: decimal.RequireFromString("9.99"),
		Message:     "All movies included.",
	}, nil)

	c, rec := newTestContext(t, http.MethodPost, "/v1/orders", 7)
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body, "order_created")
	require.NotContains(t, body, "created")
	require.Equal(t, "true", string(body["order_created"]))
	require.Equal(t, `"9.99"`, string(body["total_amount"]))
}

func TestOrderCreateNothingAvailable(t *testing.T) {
	orders := new(mockOrderService)
	users := new(mockUserGetter)
	h := NewOrderHandler(orders, nil, users)

	user := model.User{ID: 7, RegionCode: "US"}
	users.On("GetByID", mock.Anything, uint64(7)).Return(user, nil)
	orders.On("CreateFromCart", mock.Anything, user).Return(service.OrderCreateResult{
		Created:             false,
		UnavailableMovieIDs: []uint64{3},
		Message:             "All movies are unavailable or already purchased",
	}, nil)

	c, rec := newTestContext(t, http.MethodPost, "/v1/orders", 7)
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"order_created":false`)
}

func TestOrderListHandler(t *testing.T) {
	orders := new(mockOrderService)
	h := NewOrderHandler(orders, nil, nil)

	orders.On("List", mock.Anything, uint64(7)).Return([]service.OrderView{
		{
			ID:          42,
			Status:      model.OrderPaid,
			TotalAmount: decimal.NewNullDecimal(decimal.RequireFromString("9.99")),
			CreatedAt:   time.Now().UTC(),
			Items: []service.OrderItemView{
				{ID: 1, MovieID: 11, MovieName: "Heat", PriceAtOrder: decimal.RequireFromString("9.99")},
			},
		},
	}, nil)

	c, rec := newTestContext(t, http.MethodGet, "/v1/orders", 7)
	require.NoError(t, h.List(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Orders []struct {
			ID          uint64 `json:"id"`
			Status      string `json:"status"`
			TotalAmount string `json:"total_amount"`
		} `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Orders, 1)
	require.Equal(t, uint64(42), body.Orders[0].ID)
	require.Equal(t, "PAID", body.Orders[0].Status)
	require.Equal(t, "9.99", body.Orders[0].TotalAmount)
}

func TestOrderCancelByPath(t *testing.T) {
	orders := new(mockOrderService)
	h := NewOrderHandler(orders, nil, nil)
	orders.On("Cancel", mock.Anything, uint64(42), uint64(7)).Return(nil)

	c, rec := newTestContext(t, http.MethodPost, "/v1/orders/42/cancel", 7)
	c.SetParamNames("id")
	c.SetParamValues("42")
	require.NoError(t, h.Cancel(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Order canceled.")
}

func TestOrderCancelByQueryParam(t *testing.T) {
	orders := new(mockOrderService)
	h := NewOrderHandler(orders, nil, nil)
	orders.On("Cancel", mock.Anything, uint64(42), uint64(7)).Return(nil)

	c, rec := newTestContext(t, http.MethodGet, "/v1/orders/cancel?order_id=42", 7)
	require.NoError(t, h.Cancel(c))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestOrderCancelPaidOrder(t *testing.T) {
	orders := new(mockOrderService)
	h := NewOrderHandler(orders, nil, nil)
	orders.On("Cancel", mock.Anything, uint64(42), uint64(7)).Return(model.ErrOrderPaid)

	c, rec := newTestContext(t, http.MethodPost, "/v1/orders/42/cancel", 7)
	c.SetParamNames("id")
	c.SetParamValues("42")
	require.NoError(t, h.Cancel(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), model.ErrOrderPaid.Error())
}

func TestOrderCancelInvalidID(t *testing.T) {
	h := NewOrderHandler(new(mockOrderService), nil, nil)

	c, rec := newTestContext(t, http.MethodGet, "/v1/orders/cancel?order_id=abc", 7)
	require.NoError(t, h.Cancel(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrderConfirmReturnsCheckoutURL(t *testing.T) {
	payments := new(mockPaymentService)
	h := NewOrderHandler(new(mockOrderService), payments, nil)
	payments.On("Checkout", mock.Anything, uint64(42), uint64(7)).
		Return("https://pay.example.com/cs_123", nil)

	c, rec := newTestContext(t, http.MethodPost, "/v1/orders/42/confirm", 7)
	c.SetParamNames("id")
	c.SetParamValues("42")
	require.NoError(t, h.Confirm(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "https://pay.example.com/cs_123", body["checkout_url"])
}

func TestOrderConfirmNotFound(t *testing.T) {
	payments := new(mockPaymentService)
	h := NewOrderHandler(new(mockOrderService), payments, nil)
	payments.On("Checkout", mock.Anything, uint64(99), uint64(7)).
		Return("", model.ErrOrderNotFound)

	c, rec := newTestContext(t, http.MethodPost, "/v1/orders/99/confirm", 7)
	c.SetParamNames("id")
	c.SetParamValues("99")
	require.NoError(t, h.Confirm(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
