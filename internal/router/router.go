// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/StenSOn27/online-cinema-api/internal/handler"
	"github.com/StenSOn27/online-cinema-api/internal/middleware"
	"github.com/StenSOn27/online-cinema-api/internal/model"
)

// Handlers groups everything the router needs to register the API surface.
type Handlers struct {
	Auth    *handler.AuthHandler
	Movies  *handler.MovieHandler
	Cart    *handler.CartHandler
	Orders  *handler.OrderHandler
	Payment *handler.PaymentHandler
}

// Register wires all routes. Public routes (health, catalog) come first,
// then the /v1/auth group with the rate limiter, then the protected /v1
// group behind JWT auth, and finally the moderator-only catalog management
// routes.
func Register(e *echo.Echo, h Handlers, jwtSecret string, rateLimit echo.MiddlewareFunc) {
	e.GET("/healthz", handler.Health)

	// Public catalog.
	e.GET("/v1/movies", h.Movies.List)
	e.GET("/v1/movies/:id", h.Movies.Get)

	// Auth endpoints. Rate limited to slow credential stuffing and token
	// guessing.
	auth := e.Group("/v1/auth")
	if rateLimit != nil {
		auth.Use(rateLimit)
	}
	auth.POST("/register", h.Auth.Register)
	auth.POST("/activate", h.Auth.Activate)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", h.Auth.Logout)
	auth.POST("/password-reset/request", h.Auth.RequestPasswordReset)
	auth.POST("/password-reset/complete", h.Auth.CompletePasswordReset)

	// Everything below requires a valid access token.
	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(jwtSecret))
	v1.Use(middleware.RequireRole(model.RoleUser, model.RoleModerator, model.RoleAdmin))

	v1.GET("/me", h.Auth.Me)

	v1.POST("/cart/items", h.Cart.Add)
	v1.GET("/cart", h.Cart.List)
	v1.DELETE("/cart/items/:movie_id", h.Cart.Remove)
	v1.DELETE("/cart", h.Cart.Clear)

	v1.POST("/orders", h.Orders.Create)
	v1.GET("/orders", h.Orders.List)
	v1.POST("/orders/:id/cancel", h.Orders.Cancel)
	v1.GET("/orders/cancel", h.Orders.Cancel) // checkout cancel redirect
	v1.POST("/orders/:id/confirm", h.Orders.Confirm)

	v1.GET("/payment/success", h.Payment.Success)
	v1.GET("/payment/history", h.Payment.History)

	// Catalog management.
	mod := e.Group("/v1/moderator", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleModerator, model.RoleAdmin))
	mod.POST("/movies", h.Movies.Create)
	mod.PATCH("/movies/:id/price", h.Movies.UpdatePrice)
	mod.PUT("/movies/:id/regions", h.Movies.SetRegions)
}
