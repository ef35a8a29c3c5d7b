package routes

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/payzen/internal/config"
	"github.com/example/payzen/internal/handlers"
	"github.com/example/payzen/internal/middleware"
	"github.com/example/payzen/internal/payzen"
	"github.com/example/payzen/internal/repository"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config, log *zap.Logger) {
	orderRepo := repository.NewOrderRepository(db)
	tokenRepo := repository.NewTokenRepository(db)

	builder := payzen.NewRequestBuilder(payzen.BuilderOptions{
		OneClickEnabled:      cfg.PayzenOneClick,
		StrongAuthentication: cfg.PayzenStrongAuth,
		CaptureDelay:         cfg.PayzenCaptureDelay,
		ManualValidation:     cfg.PayzenValidationMode,
		PaymentSource:        cfg.PayzenPaymentSource,
		IPNTargetURL:         cfg.IPNBaseURL + "/api/payzen/ipn",
	}, tokenRepo)

	client := payzen.NewClient(payzen.ClientConfig{
		Endpoint: cfg.PayzenEndpoint,
		Username: cfg.PayzenUsername,
		Password: cfg.PayzenPassword,
	}, log)

	processor := payzen.NewProcessor(orderRepo, orderRepo, tokenRepo, log)

	authHandler := handlers.NewAuthHandler(db, cfg)
	orderHandler := handlers.NewOrderHandler(db)
	paymentHandler := handlers.NewPaymentHandler(db, builder, client, processor, tokenRepo, log)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	// PayZen payment routes. The IPN callback is unauthenticated: the gateway
	// calls it directly.
	pay := api.Group("/payzen")
	pay.Post("/ipn", paymentHandler.IPN)
	pay.Post("/checkout", middleware.AuthMiddleware(cfg), paymentHandler.Checkout)
	pay.Get("/token", middleware.AuthMiddleware(cfg), paymentHandler.TokenInfo)

	// Protected routes
	protected := api.Group("", middleware.AuthMiddleware(cfg))

	protected.Post("/orders", orderHandler.CreateOrder)
	protected.Get("/orders", orderHandler.ListOrders)
	protected.Get("/orders/:id", orderHandler.GetOrder)
}
