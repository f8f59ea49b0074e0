package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/StenSOn27/online-cinema-api/internal/config"
	"github.com/StenSOn27/online-cinema-api/internal/database"
	"github.com/StenSOn27/online-cinema-api/internal/handler"
	appmw "github.com/StenSOn27/online-cinema-api/internal/middleware"
	"github.com/StenSOn27/online-cinema-api/internal/payments"
	"github.com/StenSOn27/online-cinema-api/internal/queue"
	"github.com/StenSOn27/online-cinema-api/internal/repository"
	"github.com/StenSOn27/online-cinema-api/internal/router"
	"github.com/StenSOn27/online-cinema-api/internal/service"
)

func main() {
	// .env is optional; real deployments set env vars directly.
	_ = godotenv.Load()

	cfg := config.Load()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.Env == "dev" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	provider, err := payments.NewStripeProvider(cfg.StripeAPIKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("stripe client init failed")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	regions := repository.NewRegionRepo(db)
	movies := repository.NewMovieRepo(db)
	carts := repository.NewCartRepo(db)
	orders := repository.NewOrderRepo(db)
	paymentsRepo := repository.NewPaymentRepo(db)

	publisher := queue.NewPublisher(logger)
	go queue.StartConsumer(logger)

	orderSvc := service.NewOrderService(carts, movies, orders, logger)
	paymentSvc := service.NewPaymentService(provider, orders, paymentsRepo, publisher, cfg.PublicBaseURL, logger)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	var rateLimit echo.MiddlewareFunc
	if rdb := config.NewRedisClient(); rdb != nil {
		rateLimit = appmw.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger)
	} else {
		logger.Warn().Msg("redis unavailable, auth rate limiting disabled")
	}

	router.Register(e, router.Handlers{
		Auth:    handler.NewAuthHandler(cfg, users, tokens, regions, publisher, logger),
		Movies:  handler.NewMovieHandler(movies, regions),
		Cart:    handler.NewCartHandler(carts, movies, orders),
		Orders:  handler.NewOrderHandler(orderSvc, paymentSvc, users),
		Payment: handler.NewPaymentHandler(paymentSvc, users),
	}, cfg.JWTSecret, rateLimit)

	addr := ":" + cfg.Port
	logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("server starting")
	if err := e.Start(addr); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
