package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/polkiloo/gophercheckout/internal/config"
	"github.com/polkiloo/gophercheckout/internal/metrics"
	"github.com/polkiloo/gophercheckout/internal/server/http/handlers"
	"github.com/polkiloo/gophercheckout/internal/server/http/middleware"
)

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.CheckoutFacade, cfg *config.Config, m *metrics.Collectors, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger, m))
	engine.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithDecompressFn(gzip.DefaultDecompressHandle)))

	orderHandler := handlers.NewOrderHandler(facade)
	paymentHandler := handlers.NewPaymentHandler(facade)
	healthHandler := handlers.NewHealthHandler(facade)

	engine.GET("/healthz", healthHandler.Check)
	if m != nil {
		engine.GET("/metrics", gin.WrapH(m.Handler()))
	}

	// provider callbacks carry no customer token
	if cfg.CallbackToken == "" {
		logger.Warn("payment callbacks accept requests without a callback token")
	}
	engine.POST("/payments/callbacks/:method", middleware.CallbackTokenRequired(cfg.CallbackToken), paymentHandler.Callback)

	authed := engine.Group("")
	authed.Use(middleware.AuthRequired(facade))
	authed.POST("/checkout", orderHandler.Checkout)
	authed.GET("/orders/:number", orderHandler.Get)
	authed.POST("/orders/:number/cancel", orderHandler.Cancel)
	authed.POST("/payments", paymentHandler.Pay)
	authed.GET("/payments/:transactionId", paymentHandler.Get)
	authed.POST("/payments/:transactionId/refund", paymentHandler.Refund)

	return engine
}
