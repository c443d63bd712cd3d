package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/gamemarket-backend/internal/models"
	"github.com/ignatzorin/gamemarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/gamemarket-backend/internal/repository/common"
)

type TradeRepository struct {
	db *sqlx.DB
}

func NewTradeRepository(db *sqlx.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

func (r *TradeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Trade, error) {
	return common.GetByID[models.Trade](ctx, r.db, "trades", id, apperror.ErrTradeNotFound)
}

// ListByUser возвращает сделки, где пользователь покупатель или продавец.
func (r *TradeRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Trade, error) {
	var trades []models.Trade
	err := r.db.SelectContext(ctx, &trades, `
		SELECT * FROM trades
		WHERE buyer_id = $1 OR seller_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return trades, err
}

// ListByListing возвращает все сделки по объявлению.
func (r *TradeRepository) ListByListing(ctx context.Context, ref models.ListingRef) ([]models.Trade, error) {
	var trades []models.Trade
	err := r.db.SelectContext(ctx, &trades, `
		SELECT * FROM trades
		WHERE listing_type = $1 AND listing_id = $2
		ORDER BY created_at DESC
	`, ref.Kind, ref.ID)
	return trades, err
}

// ExistsCompletedBetween сообщает, была ли между двумя пользователями
// хотя бы одна завершённая сделка в любой роли.
func (r *TradeRepository) ExistsCompletedBetween(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM trades
			WHERE status = $3
			  AND ((buyer_id = $1 AND seller_id = $2) OR (buyer_id = $2 AND seller_id = $1))
		)
	`, a, b, models.TradeStatusCompleted)
	return exists, err
}

// ListPending возвращает незавершённые сделки, старые первыми.
// Используется модераторской очередью триажа.
func (r *TradeRepository) ListPending(ctx context.Context, limit, offset int) ([]models.Trade, error) {
	var trades []models.Trade
	err := r.db.SelectContext(ctx, &trades, `
		SELECT * FROM trades
		WHERE status = $1
		ORDER BY created_at ASC LIMIT $2 OFFSET $3
	`, models.TradeStatusPending, limit, offset)
	return trades, err
}
