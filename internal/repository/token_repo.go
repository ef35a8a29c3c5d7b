package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/payzen/internal/models"
)

// TokenRepository implements the payzen.TokenStore port on top of GORM.
type TokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository constructs a TokenRepository.
func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// FindToken returns the customer's registered payment token, or (nil, nil)
// when none exists.
func (r *TokenRepository) FindToken(ctx context.Context, customerID uuid.UUID) (*models.CustomerToken, error) {
	var token models.CustomerToken
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}

// SaveToken upserts the token keyed by customer id, so a replay of the same
// notification cannot create duplicate rows.
func (r *TokenRepository) SaveToken(ctx context.Context, token *models.CustomerToken) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "customer_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"payment_token", "updated_at"}),
		}).
		Create(token).Error
}
