package models

import "github.com/google/uuid"

// CustomerToken stores the PayZen payment token registered for one-click
// payments. One row per customer: created on the first tokenizing payment,
// overwritten on subsequent ones, never deleted by payment processing.
type CustomerToken struct {
	BaseModel
	CustomerID   uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"customer_id"`
	PaymentToken string    `json:"payment_token"`
}
