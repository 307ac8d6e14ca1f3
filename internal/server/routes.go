package server

import (
	"net/http"
	"time"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/metrics"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RegisterRoutes configures all API routes, middleware, and error handlers
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	e.HTTPErrorHandler = NotFoundJSON()

	e.Use(SetJSONContentType)
	e.Use(SetNoCacheHeaders)

	// Optional API key authentication. Health and metrics stay open for health checks.
	if cfg.APIKey != "" {
		e.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key",
			Skipper: func(c echo.Context) bool {
				p := c.Path()
				return p == "/v1/health" || p == "/metrics"
			},
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil
			},
		}))
	}

	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	v1 := e.Group("/v1")
	v1.GET("/health", h.Health)
	v1.GET("/tokens", h.Tokens)
	v1.GET("/tokens/:address", h.Token)
	v1.GET("/route", h.Route)
	v1.GET("/quote", h.Quote)
	v1.GET("/events", h.Events)

	swaps := v1.Group("/swaps")
	swaps.GET("", h.SwapList)
	swaps.GET("/:id", h.SwapGet)
	swaps.POST("/:id/cancel", h.SwapCancel)
	// Each swap spends funds; keep a runaway client from draining the wallet.
	swaps.POST("", h.SwapCreate, middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.SwapRate),
		Burst:     cfg.SwapBurst,
		ExpiresIn: 2 * time.Minute,
	})))

	halts := v1.Group("/halts")
	halts.POST("", h.Halt)
	halts.DELETE("/:chain", h.Resume)

	flagGroup := v1.Group("/flags")
	flagGroup.GET("", h.FlagsList)
	flagGroup.POST("", h.FlagsUpsert)
	flagGroup.GET("/:key", h.FlagsGet)
	flagGroup.PUT("/:key", h.FlagsUpdate)
	flagGroup.DELETE("/:key", h.FlagsDelete)

	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}
