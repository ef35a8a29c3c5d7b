package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/payzen/internal/middleware"
	"github.com/example/payzen/internal/models"
	"github.com/example/payzen/internal/utils"
)

// OrderHandler manages order endpoints.
type OrderHandler struct {
	db *gorm.DB
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(db *gorm.DB) *OrderHandler {
	return &OrderHandler{db: db}
}

type orderItemRequest struct {
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	LineTotal   float64 `json:"line_total"`
}

type createOrderRequest struct {
	Currency    string             `json:"currency"`
	Items       []orderItemRequest `json:"items"`
	TotalAmount float64            `json:"total_amount"`
	Notes       string             `json:"notes"`
}

// CreateOrder allows authenticated customers to place an order. New orders
// start not paid; the gateway notification path moves them to paid.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	order := models.Order{
		UserID:   userID,
		Ref:      generateOrderRef(),
		Status:   models.OrderStatusNotPaid,
		PlacedAt: time.Now(),
		Currency: req.Currency,
		Notes:    req.Notes,
	}

	if order.Currency == "" {
		order.Currency = "EUR"
	}

	var subtotal float64
	for _, item := range req.Items {
		lineTotal := item.LineTotal
		if lineTotal == 0 {
			lineTotal = item.UnitPrice * float64(item.Quantity)
		}

		subtotal += lineTotal
		order.Items = append(order.Items, models.OrderItem{
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   lineTotal,
		})
	}

	order.TotalAmount = req.TotalAmount
	if order.TotalAmount == 0 {
		order.TotalAmount = subtotal
	}

	if err := h.db.Create(&order).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"id":        order.ID,
			"ref":       order.Ref,
			"status":    order.Status,
			"placed_at": order.PlacedAt,
			"total":     order.TotalAmount,
			"currency":  order.Currency,
		},
	})
}

// ListOrders returns orders for the authenticated customer.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c)
	query := h.db.Where("user_id = ?", userID).Model(&models.Order{})

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var orders []models.Order
	if err := query.Preload("Items").
		Order("placed_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&orders).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    orders,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// GetOrder returns a single order for the authenticated customer.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var order models.Order
	if err := h.db.Preload("Items").
		First(&order, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}

func generateOrderRef() string {
	return fmt.Sprintf("ORD-%d", time.Now().UnixNano()%1000000000)
}
