package models

import (
	"time"

	"github.com/google/uuid"
)

// Order payment statuses.
const (
	OrderStatusNotPaid = "not_paid"
	OrderStatusPaid    = "paid"
)

type Order struct {
	BaseModel
	UserID         uuid.UUID   `gorm:"type:uuid;index" json:"user_id"`
	User           *User       `json:"user,omitempty"`
	Ref            string      `gorm:"uniqueIndex" json:"ref"`
	Status         string      `json:"status"`
	PlacedAt       time.Time   `json:"placed_at"`
	TotalAmount    float64     `json:"total_amount"`
	Currency       string      `json:"currency"`
	TransactionRef string      `json:"transaction_ref"`
	Notes          string      `json:"notes"`
	Items          []OrderItem `json:"items,omitempty"`
}

// IsPaid reports whether the order has already been marked paid.
func (o *Order) IsPaid() bool {
	return o.Status == OrderStatusPaid
}

type OrderItem struct {
	BaseModel
	OrderID     uuid.UUID `gorm:"type:uuid;index" json:"order_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	UnitPrice   float64   `json:"unit_price"`
	LineTotal   float64   `json:"line_total"`
}
