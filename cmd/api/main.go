package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/servigo/servigo/internal/admin"
	"github.com/servigo/servigo/internal/auth"
	"github.com/servigo/servigo/internal/config"
	"github.com/servigo/servigo/internal/logger"
	"github.com/servigo/servigo/internal/marketplace"
	"github.com/servigo/servigo/internal/metrics"
	appmw "github.com/servigo/servigo/internal/middleware"
	"github.com/servigo/servigo/internal/negotiation"
	"github.com/servigo/servigo/internal/payment"
	"github.com/servigo/servigo/internal/storage/postgres"
	"github.com/servigo/servigo/internal/uploads"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log := logger.Get()
	defer log.Sync()

	metrics.Init(cfg.MetricsPrefix)

	ctx := context.Background()
	store, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database init failed", zap.Error(err))
	}
	defer store.Close()
	log.Info("connected to postgres")

	saver, err := uploads.New(cfg.UploadDir)
	if err != nil {
		log.Fatal("upload dir init failed", zap.Error(err))
	}

	authHandler := auth.NewHandler(store, saver, cfg.JWTSecret, cfg.JWTTTL, log)
	marketHandler := marketplace.NewHandler(store, store, saver, log)
	requestHandler := negotiation.NewHandler(store, store, log)
	paymentHandler := payment.NewHandler(store, log)
	adminHandler := admin.NewHandler(store, store, store, store, log)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(metrics.Middleware)

	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		if he, ok := err.(*echo.HTTPError); ok {
			_ = c.JSON(he.Code, echo.Map{"message": fmt.Sprintf("%v", he.Message)})
			return
		}
		log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		_ = c.JSON(http.StatusInternalServerError,
			echo.Map{"message": "internal server error", "error": err.Error()})
	}

	// Health
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/ready", func(c echo.Context) error {
		if err := store.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable,
				echo.Map{"status": "not_ready", "error": "db unreachable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Uploaded files are served statically; identifiers returned by the API
	// are paths under this prefix.
	e.Static("/uploads", saver.Dir())

	// Users, with per-IP rate limiting on the credential endpoints
	limiter := echomw.RateLimiter(echomw.NewRateLimiterMemoryStore(20))
	e.POST("/users/register", authHandler.Register, limiter)
	e.POST("/users/login", authHandler.Login, limiter)
	e.GET("/users/me", authHandler.Me, appmw.JWT(cfg.JWTSecret))

	// Services
	e.POST("/services/create", marketHandler.Create)
	e.GET("/services", marketHandler.List)
	e.PATCH("/services/:id/status", marketHandler.UpdateStatus)
	e.PATCH("/services/:id/details", marketHandler.UpdateDetails)

	// Service requests
	e.POST("/service-requests/request", requestHandler.Create)
	e.GET("/service-requests/:serviceId", requestHandler.ListByService)
	e.POST("/service-requests/:id/resolve", requestHandler.Resolve)

	// Payments
	e.POST("/payments/pay", paymentHandler.Create)
	e.GET("/payments", paymentHandler.List)
	e.POST("/payments/webhook", paymentHandler.Webhook)

	// Admin
	adminGroup := e.Group("/admin")
	adminGroup.Use(appmw.JWT(cfg.JWTSecret))
	adminGroup.Use(appmw.AdminGuard)
	adminGroup.GET("/stats", adminHandler.Stats)
	adminGroup.GET("/users", adminHandler.ListUsers)
	adminGroup.GET("/services", adminHandler.ListServices)
	adminGroup.GET("/payments", adminHandler.ListPayments)
	adminGroup.POST("/services/:id/remove", adminHandler.RemoveService)

	log.Info("API server listening", zap.String("addr", cfg.HTTPAddress()))
	if err := e.Start(cfg.HTTPAddress()); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
