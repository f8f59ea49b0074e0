// Package handler contains the HTTP handlers for the API.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/StenSOn27/online-cinema-api/internal/model"
	"github.com/StenSOn27/online-cinema-api/internal/repository"
)

// userGetter loads a user profile by id. Satisfied by *repository.UserRepo.
type userGetter interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// getUserID extracts the authenticated user id stored in the context by the
// JWT middleware. JWT numeric claims decode as float64, so several shapes
// are accepted.
func getUserID(c echo.Context) (uint64, bool) {
	switch v := c.Get("user_id").(type) {
	case float64:
		return uint64(v), true
	case int64:
		return uint64(v), true
	case int:
		return uint64(v), true
	case uint64:
		return v, true
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// respondError maps domain errors to HTTP responses. Unknown errors are
// logged by echo's recover path and reported as 500.
func respondError(c echo.Context, err error) error {
	var verr *model.PaymentVerificationError
	var perr *model.PaymentProviderError
	switch {
	case errors.Is(err, model.ErrOrderNotFound),
		errors.Is(err, model.ErrMovieNotFound),
		errors.Is(err, model.ErrRegionNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, model.ErrOrderForbidden),
		errors.Is(err, model.ErrNotActivated):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, model.ErrPaymentRecordMissing),
		errors.Is(err, model.ErrEmailExists),
		errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, model.ErrEmptyCart),
		errors.Is(err, model.ErrAlreadyPurchased),
		errors.Is(err, model.ErrAllPending),
		errors.Is(err, model.ErrOrderCanceled),
		errors.Is(err, model.ErrOrderPaid),
		errors.Is(err, model.ErrMovieInCart),
		errors.Is(err, model.ErrMoviePurchased),
		errors.Is(err, model.ErrPaymentExists),
		errors.Is(err, model.ErrTokenInvalid),
		errors.As(err, &verr),
		errors.As(err, &perr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}
