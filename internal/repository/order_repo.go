package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/example/payzen/internal/models"
)

// OrderRepository implements the payzen order ports on top of GORM.
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository constructs an OrderRepository.
func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// FindByRef loads an order with its customer by exact reference match.
// Returns (nil, nil) when no order carries the reference.
func (r *OrderRepository) FindByRef(ctx context.Context, ref string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("ref = ?", ref).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// UpdateTransactionRef records the gateway transaction id on the order.
func (r *OrderRepository) UpdateTransactionRef(ctx context.Context, order *models.Order, ref string) error {
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", order.ID).
		Update("transaction_ref", ref).Error
	if err != nil {
		return err
	}
	order.TransactionRef = ref
	return nil
}

// UpdateStatus transitions the order status. The WHERE guard makes redundant
// application from concurrent duplicate notifications a no-op instead of a
// double transition.
func (r *OrderRepository) UpdateStatus(ctx context.Context, order *models.Order, status string) error {
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status <> ?", order.ID, status).
		Update("status", status).Error
	if err != nil {
		return err
	}
	order.Status = status
	return nil
}
