// Package api exposes the reservation service over HTTP with gin.
package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterConfig holds everything NewRouter needs.
type RouterConfig struct {
	Mode            string // gin mode: debug, release, test
	AllowedOrigins  []string
	LoginRatePerMin float64
	LoginBurst      int

	Auth         AuthService
	Reservations ReservationService
	Tokens       TokenValidator
	Metrics      HTTPObserver
	Logger       *zerolog.Logger
}

// NewRouter builds the gin engine with middleware and routes.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	l := cfg.Logger.With().Str("component", "http").Logger()
	logger := &l

	r := gin.New()
	r.Use(cors.New(corsConfig(cfg.AllowedOrigins)))
	r.Use(RequestID())
	r.Use(RequestLogger(logger, cfg.Metrics))
	r.Use(Recovery(logger))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "route not found", RequestID: requestID(c)})
	})

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	requireAuth := RequireAuth(cfg.Tokens, logger)
	limit := RateLimit(cfg.LoginRatePerMin, cfg.LoginBurst, logger)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/signup", limit, signup(cfg.Auth, logger))
		authGroup.POST("/login", limit, login(cfg.Auth, logger))
		authGroup.GET("/me", requireAuth, me(cfg.Auth, logger))
		authGroup.PUT("/me/telegram", requireAuth, linkTelegram(cfg.Auth, logger))
	}

	shops := api.Group("/shops")
	{
		shops.GET("", listShops(cfg.Reservations, logger))
		shops.GET("/mine", requireAuth, myShops(cfg.Reservations, logger))
		shops.GET("/:shopId/slots", shopSlots(cfg.Reservations, logger))
	}

	reservations := api.Group("/reservations", requireAuth)
	{
		reservations.POST("", createReservation(cfg.Reservations, logger))
		reservations.GET("/mine", listMyReservations(cfg.Reservations, logger))
		reservations.GET("/shop/:shopId", listShopReservations(cfg.Reservations, logger))
		reservations.PATCH("/:id/status", updateReservationStatus(cfg.Reservations, logger))
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", headerRequestID},
		ExposeHeaders:    []string{"Content-Length", headerRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		c.AllowCredentials = false
	} else {
		c.AllowOrigins = origins
	}
	return c
}
