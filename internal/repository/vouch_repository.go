package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/gamemarket-backend/internal/models"
	"github.com/ignatzorin/gamemarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/gamemarket-backend/internal/repository/common"
)

var ErrVouchAlreadyExists = apperror.New(apperror.ErrCodeConflict, "вы уже поручились за этого пользователя")

type VouchRepository struct {
	db *sqlx.DB
}

func NewVouchRepository(db *sqlx.DB) *VouchRepository {
	return &VouchRepository{db: db}
}

func (r *VouchRepository) Create(ctx context.Context, v *models.Vouch) error {
	query := `
		INSERT INTO vouches (voucher_id, user_id, trade_id, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, v.VoucherID, v.UserID, v.TradeID, v.Comment).
		Scan(&v.ID, &v.CreatedAt)
	if err != nil && common.IsUniqueViolation(err) {
		return ErrVouchAlreadyExists
	}
	return err
}

func (r *VouchRepository) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Vouch, error) {
	var vouches []models.Vouch
	err := r.db.SelectContext(ctx, &vouches, `
		SELECT * FROM vouches WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return vouches, err
}
