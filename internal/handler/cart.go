package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/StenSOn27/online-cinema-api/internal/model"
	"github.com/StenSOn27/online-cinema-api/internal/repository"
)

// CartHandler exposes the shopping cart endpoints.
type CartHandler struct {
	Carts  *repository.CartRepo
	Movies *repository.MovieRepo
	Orders *repository.OrderRepo
}

func NewCartHandler(carts *repository.CartRepo, movies *repository.MovieRepo, orders *repository.OrderRepo) *CartHandler {
	return &CartHandler{Carts: carts, Movies: movies, Orders: orders}
}

type addItemReq struct {
	MovieID uint64 `json:"movie_id"`
}

// Add puts a movie into the caller's cart. Duplicates and already purchased
// movies are rejected.
func (h *CartHandler) Add(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req addItemReq
	if err := c.Bind(&req); err != nil || req.MovieID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "movie_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Movies.GetByID(ctx, req.MovieID); err != nil {
		return respondError(c, err)
	}

	purchased, err := h.Orders.MovieIDsByStatusTx(ctx, h.Orders.DB, uid, model.OrderPaid)
	if err != nil {
		return respondError(c, err)
	}
	for _, id := range purchased {
		if id == req.MovieID {
			return respondError(c, model.ErrMoviePurchased)
		}
	}

	cart, err := h.Carts.GetOrCreate(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.Carts.AddItem(ctx, cart.ID, req.MovieID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "Movie added to cart."})
}

// List returns the movies currently in the caller's cart.
func (h *CartHandler) List(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	movies, err := h.Carts.ListMovies(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	if movies == nil {
		movies = []model.Movie{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": movies})
}

// Remove deletes one movie from the cart.
func (h *CartHandler) Remove(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	movieID, err := pathID(c, "movie_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cart, err := h.Carts.GetOrCreate(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.Carts.RemoveItem(ctx, cart.ID, movieID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not in cart"})
		}
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Clear empties the cart.
func (h *CartHandler) Clear(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cart, err := h.Carts.GetOrCreate(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.Carts.Clear(ctx, cart.ID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
