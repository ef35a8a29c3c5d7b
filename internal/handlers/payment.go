package handlers

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/payzen/internal/middleware"
	"github.com/example/payzen/internal/models"
	"github.com/example/payzen/internal/payzen"
)

// ipnAckBody is the literal acknowledgment the gateway expects back from the
// IPN endpoint, whatever the computed outcome.
const ipnAckBody = "OK"

// PaymentHandler manages PayZen payment endpoints.
type PaymentHandler struct {
	db        *gorm.DB
	builder   *payzen.RequestBuilder
	client    *payzen.Client
	processor *payzen.Processor
	tokens    payzen.TokenStore
	log       *zap.Logger
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(db *gorm.DB, builder *payzen.RequestBuilder, client *payzen.Client, processor *payzen.Processor, tokens payzen.TokenStore, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		db:        db,
		builder:   builder,
		client:    client,
		processor: processor,
		tokens:    tokens,
		log:       log,
	}
}

type checkoutRequest struct {
	OrderRef string `json:"order_ref"`
}

// Checkout builds a CreatePayment request for the customer's order and calls
// the gateway. The answer is normally a form token for the embedded payment
// form; a one-click token payment may instead come back already completed, in
// which case the payment answer is processed on the spot.
func (h *PaymentHandler) Checkout(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.OrderRef == "" {
		return fiber.NewError(fiber.StatusBadRequest, "order_ref is required")
	}

	var order models.Order
	if err := h.db.Preload("User").
		First(&order, "ref = ? AND user_id = ?", req.OrderRef, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	if order.IsPaid() {
		return fiber.NewError(fiber.StatusConflict, "order is already paid")
	}

	createReq, err := h.builder.Build(c.Context(), &order)
	if err != nil {
		return err
	}

	result, err := h.client.CreatePayment(c.Context(), createReq)
	if err != nil {
		var gatewayErr *payzen.GatewayError
		if errors.As(err, &gatewayErr) {
			h.log.Warn("payzen refused create payment",
				zap.String("order_ref", order.Ref),
				zap.String("code", gatewayErr.Code))
			return fiber.NewError(fiber.StatusBadGateway, gatewayErr.Error())
		}
		return err
	}

	if result.Payment != nil {
		outcome, err := h.processor.Process(c.Context(), result.Payment)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"success": true,
			"outcome": outcome.String(),
		})
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"form_token": result.FormToken,
	})
}

// IPN is the gateway's asynchronous notification callback. The body must be
// the notification JSON; anything unparseable is rejected, every parseable
// notification is acknowledged with the literal body the gateway expects,
// whatever the computed outcome.
func (h *PaymentHandler) IPN(c *fiber.Ctx) error {
	var notification payzen.PaymentNotification
	if err := json.Unmarshal(c.Body(), &notification); err != nil {
		h.log.Error("unparseable payzen IPN payload", zap.Error(err))
		return fiber.NewError(fiber.StatusBadRequest, "invalid notification body")
	}

	outcome, err := h.processor.Process(c.Context(), &notification)
	if err != nil {
		// Persistence failure: let the gateway retry.
		return err
	}

	h.log.Info("payzen IPN processed",
		zap.String("order_ref", notification.OrderDetails.OrderID),
		zap.String("outcome", outcome.String()))

	return c.SendString(ipnAckBody)
}

// TokenInfo reports whether the authenticated customer has a registered
// one-click payment token.
func (h *PaymentHandler) TokenInfo(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	token, err := h.tokens.FindToken(c.Context(), userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"has_token": token != nil,
	})
}
