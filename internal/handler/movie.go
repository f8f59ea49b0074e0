package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/StenSOn27/online-cinema-api/internal/model"
	"github.com/StenSOn27/online-cinema-api/internal/repository"
)

// MovieHandler exposes the public catalog and the moderator-only catalog
// management endpoints.
type MovieHandler struct {
	Movies  *repository.MovieRepo
	Regions *repository.RegionRepo
}

func NewMovieHandler(movies *repository.MovieRepo, regions *repository.RegionRepo) *MovieHandler {
	return &MovieHandler{Movies: movies, Regions: regions}
}

type createMovieReq struct {
	Name        string          `json:"name"`
	Year        int             `json:"year"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Regions     []string        `json:"regions"`
}

type updatePriceReq struct {
	Price decimal.Decimal `json:"price"`
}

type setRegionsReq struct {
	Regions []string `json:"regions"`
}

// List returns the movie catalog, paginated with limit/offset query params.
func (h *MovieHandler) List(c echo.Context) error {
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	movies, err := h.Movies.List(ctx, limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	if movies == nil {
		movies = []model.Movie{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": movies})
}

// Get returns a single movie by id.
func (h *MovieHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	m, err := h.Movies.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// Create adds a movie to the catalog with an initial price and optional
// region licenses. Moderator only.
func (h *MovieHandler) Create(c echo.Context) error {
	var req createMovieReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}
	if req.Price.IsNegative() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "price must not be negative"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	m := model.Movie{
		Name:        req.Name,
		Year:        req.Year,
		Description: req.Description,
		Price:       req.Price,
	}
	if err := h.Movies.Create(ctx, &m); err != nil {
		return respondError(c, err)
	}
	if len(req.Regions) > 0 {
		ids, err := h.regionIDs(ctx, req.Regions)
		if err != nil {
			return respondError(c, err)
		}
		if err := h.Movies.SetRegions(ctx, m.ID, ids); err != nil {
			return respondError(c, err)
		}
	}
	return c.JSON(http.StatusCreated, m)
}

// UpdatePrice changes a movie's current price. Existing orders keep their
// frozen per-item prices.
func (h *MovieHandler) UpdatePrice(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
	}
	var req updatePriceReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Price.IsNegative() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "price must not be negative"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Movies.UpdatePrice(ctx, id, req.Price); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Price updated."})
}

// SetRegions replaces a movie's region licenses.
func (h *MovieHandler) SetRegions(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
	}
	var req setRegionsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Movies.GetByID(ctx, id); err != nil {
		return respondError(c, err)
	}
	ids, err := h.regionIDs(ctx, req.Regions)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.Movies.SetRegions(ctx, id, ids); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Regions updated."})
}

// regionIDs resolves region codes to ids, failing on any unknown code.
func (h *MovieHandler) regionIDs(ctx context.Context, codes []string) ([]uint64, error) {
	ids := make([]uint64, 0, len(codes))
	for _, code := range codes {
		reg, err := h.Regions.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
		if err != nil {
			return nil, err
		}
		ids = append(ids, reg.ID)
	}
	return ids, nil
}

func queryInt(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
