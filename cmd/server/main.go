package main

import (
	"context"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/tunehire/tunehire/internal/alerts"
	"github.com/tunehire/tunehire/internal/auth"
	"github.com/tunehire/tunehire/internal/config"
	"github.com/tunehire/tunehire/internal/db"
	"github.com/tunehire/tunehire/internal/marketplace"
	"github.com/tunehire/tunehire/internal/messaging"
	"github.com/tunehire/tunehire/internal/metrics"
	mware "github.com/tunehire/tunehire/internal/middleware"
	"github.com/tunehire/tunehire/internal/order"
	"github.com/tunehire/tunehire/internal/payments"
	"github.com/tunehire/tunehire/internal/payout"
	"github.com/tunehire/tunehire/internal/uploads"
	"github.com/tunehire/tunehire/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := utils.InitLogger(cfg.Environment); err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer utils.SyncLogger()

	db.Init(cfg.DB.DSN())
	payments.Init(cfg)
	alerts.Init()
	if err := uploads.Init(cfg.UploadDir); err != nil {
		utils.Logger().Fatal("upload dir", zap.Error(err))
	}

	// Email worker runs in-process alongside the API.
	worker := alerts.StartWorker()
	defer worker.Shutdown()

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(metrics.RequestCounter)

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "service": "tunehire"})
	})
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/ready", func(c echo.Context) error {
		if db.Conn == nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "db not initialized"})
		}
		if err := db.Conn.Ping(context.Background()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "db unreachable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	})
	e.GET("/metrics", metrics.Handler())

	// Auth routes with per-IP rate limiting to protect signup/login from abuse
	authGroup := e.Group("/auth")
	authGroup.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(20)))
	authGroup.POST("/signup", auth.Signup)
	authGroup.POST("/login", auth.Login)

	// Public marketplace reads
	e.GET("/musicians", marketplace.SearchProfiles)
	e.GET("/musicians/:id", marketplace.GetProfile)
	e.GET("/musicians/:id/reviews", marketplace.GetSellerReviews)

	// Payment provider webhook; authenticated by signature, not JWT
	e.POST("/webhooks/stripe", payments.Webhook)

	// Static serving for uploaded files
	e.Static("/files", cfg.UploadDir)

	// Protected routes
	api := e.Group("")
	api.Use(mware.JWTMiddleware)

	api.GET("/auth/me", auth.Me)
	api.PATCH("/auth/capabilities", auth.UpdateCapabilities)

	api.PUT("/profile", marketplace.UpsertProfile)

	api.POST("/services", marketplace.CreateService, mware.RequireSeller)
	api.GET("/services/me", marketplace.GetUserServices)
	api.PATCH("/services/:id", marketplace.UpdateService, mware.RequireSeller)
	api.DELETE("/services/:id", marketplace.DeleteService, mware.RequireSeller)

	api.POST("/orders", order.Create, mware.RequireBuyer)
	api.GET("/orders", order.List)
	api.GET("/orders/:id", order.Get)
	api.PATCH("/orders/:id", order.Update)
	api.POST("/orders/:id/review", marketplace.CreateReview)
	api.GET("/orders/:id/review", marketplace.GetOrderReview)

	api.POST("/orders/:id/messages", messaging.SendMessage)
	api.GET("/orders/:id/messages", messaging.ListMessages)
	api.GET("/orders/:id/messages/unread", messaging.UnreadCount)
	api.POST("/orders/:id/messages/:message_id/read", messaging.MarkMessageRead)
	api.GET("/orders/:id/ws", messaging.ThreadWS)

	api.POST("/orders/:id/payment", payments.CreateIntent, mware.RequireBuyer)
	api.POST("/stripe/onboard", payments.Onboard, mware.RequireSeller)
	api.GET("/stripe/status", payments.Status)

	api.POST("/payouts", payout.Request, mware.RequireSeller)
	api.GET("/payouts", payout.List, mware.RequireSeller)
	api.GET("/payouts/stats", payout.GetStats, mware.RequireSeller)

	api.POST("/uploads/sheet-music", uploads.SheetMusic)
	api.POST("/uploads/audio", uploads.Audio)
	api.POST("/uploads/image", uploads.Image)

	api.GET("/notifications", alerts.ListNotifications)
	api.POST("/notifications/:id/read", alerts.MarkNotificationRead)

	if err := e.Start(":" + cfg.Port); err != nil {
		utils.Logger().Fatal("server error", zap.Error(err))
	}
}
