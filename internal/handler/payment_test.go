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

func TestPaymentSuccessRequiresSessionID(t *testing.T) {
	h := NewPaymentHandler(new(mockPaymentService), nil)

	c, rec := newTestContext(t, http.MethodGet, "/v1/payment/success", 7)
	require.NoError(t, h.Success(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "session_id required")
}

func TestPaymentHistoryHandler(t *testing.T) {
	payments := new(mockPaymentService)
	h := NewPaymentHandler(payments, nil)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	payments.On("History", mock.Anything, uint64(7)).Return([]service.PaymentHistoryItem{
		{CreatedAt: now, Amount: decimal.RequireFromString("14.49"), Status: model.PaymentSuccessful},
	}, nil)

	c, rec := newTestContext(t, http.MethodGet, "/v1/payment/history", 7)
	require.NoError(t, h.History(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Payments []struct {
			Amount string `json:"amount"`
			Status string `json:"status"`
		} `json:"payments"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Payments, 1)
	require.Equal(t, "14.49", body.Payments[0].Amount)
	require.Equal(t, "SUCCESSFUL", body.Payments[0].Status)
}

func TestPaymentHistoryUnauthorized(t *testing.T) {
	h := NewPaymentHandler(new(mockPaymentService), nil)

	c, rec := newTestContext(t, http.MethodGet, "/v1/payment/history", 7)
	c.Set("user_id", nil)
	require.NoError(t, h.History(c))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
