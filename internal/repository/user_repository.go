package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/gamemarket-backend/internal/models"
	"github.com/ignatzorin/gamemarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/gamemarket-backend/internal/repository/common"
)

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (email, username, password_hash, role, subscription_tier)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_banned, is_verified, created_at, updated_at
	`
	return r.db.QueryRowContext(ctx, query, u.Email, u.Username, u.PasswordHash, u.Role, u.SubscriptionTier).
		Scan(&u.ID, &u.IsBanned, &u.IsVerified, &u.CreatedAt, &u.UpdatedAt)
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return common.GetByID[models.User](ctx, r.db, "users", id, apperror.ErrUserNotFound)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return common.GetByField[models.User](ctx, r.db, "users", "email", email, apperror.ErrUserNotFound)
}

func (r *UserRepository) UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, userID)
	return err
}

// SetBanned выставляет или снимает флаг бана.
func (r *UserRepository) SetBanned(ctx context.Context, userID uuid.UUID, banned bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET is_banned = $2, updated_at = NOW() WHERE id = $1`, userID, banned)
	if err != nil {
		return err
	}
	return checkAffected(res, apperror.ErrUserNotFound)
}

// SetVerified выставляет флаг верификации.
func (r *UserRepository) SetVerified(ctx context.Context, userID uuid.UUID, verified bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET is_verified = $2, updated_at = NOW() WHERE id = $1`, userID, verified)
	if err != nil {
		return err
	}
	return checkAffected(res, apperror.ErrUserNotFound)
}

// SetSubscriptionTier меняет тариф подписки продавца.
func (r *UserRepository) SetSubscriptionTier(ctx context.Context, userID uuid.UUID, tier string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET subscription_tier = $2, updated_at = NOW() WHERE id = $1`, userID, tier)
	if err != nil {
		return err
	}
	return checkAffected(res, apperror.ErrUserNotFound)
}

// CountVouches возвращает число поручительств за пользователя.
func (r *UserRepository) CountVouches(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM vouches WHERE user_id = $1`, userID)
	return count, err
}

// CountResolvedReports считает жалобы на пользователя в статусе resolved.
// Только они входят в оценку риска.
func (r *UserRepository) CountResolvedReports(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM reports
		WHERE target_type = $1 AND target_id = $2 AND status = $3
	`, models.ReportTargetUser, userID, models.ReportStatusResolved)
	return count, err
}

func (r *UserRepository) CreateSession(ctx context.Context, s *models.Session) error {
	query := `
		INSERT INTO sessions (user_id, refresh_token, user_agent, ip_address, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	return r.db.QueryRowContext(ctx, query, s.UserID, s.RefreshToken, s.UserAgent, s.IPAddress, s.ExpiresAt).
		Scan(&s.ID, &s.CreatedAt)
}

func (r *UserRepository) GetSessionByRefreshToken(ctx context.Context, refreshToken string) (*models.Session, error) {
	var s models.Session
	err := r.db.GetContext(ctx, &s, `SELECT * FROM sessions WHERE refresh_token = $1`, refreshToken)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrUnauthorized
	}
	return &s, err
}

func (r *UserRepository) DeleteSession(ctx context.Context, refreshToken string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE refresh_token = $1`, refreshToken)
	return err
}

// checkAffected возвращает notFound, если UPDATE не затронул ни одной строки.
func checkAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
