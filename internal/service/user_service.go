package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignatzorin/gamemarket-backend/internal/logger"
	"github.com/ignatzorin/gamemarket-backend/internal/models"
	"github.com/ignatzorin/gamemarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/gamemarket-backend/internal/validation"
)

// UserRepository описывает взаимодействие сервиса пользователей
// с хранилищем.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetBanned(ctx context.Context, userID uuid.UUID, banned bool) error
	SetVerified(ctx context.Context, userID uuid.UUID, verified bool) error
	SetSubscriptionTier(ctx context.Context, userID uuid.UUID, tier string) error
}

// VouchRepository описывает хранение поручительств.
type VouchRepository interface {
	Create(ctx context.Context, v *models.Vouch) error
	ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Vouch, error)
}

// VouchTradeRepository проверяет торговую историю между пользователями.
type VouchTradeRepository interface {
	ExistsCompletedBetween(ctx context.Context, a, b uuid.UUID) (bool, error)
}

// UserAuditRepository пишет записи аудита модераторских действий
// над пользователями.
type UserAuditRepository interface {
	Create(ctx context.Context, e *models.AuditEntry) error
}

// UserService реализует модерацию пользователей и поручительства.
type UserService struct {
	users   UserRepository
	vouches VouchRepository
	trades  VouchTradeRepository
	audit   UserAuditRepository
	risk    *RiskService
}

// NewUserService создаёт сервис пользователей.
func NewUserService(users UserRepository, vouches VouchRepository, trades VouchTradeRepository, audit UserAuditRepository, risk *RiskService) *UserService {
	return &UserService{
		users:   users,
		vouches: vouches,
		trades:  trades,
		audit:   audit,
		risk:    risk,
	}
}

// Get возвращает пользователя по идентификатору.
func (s *UserService) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

// Trust возвращает профиль доверия пользователя для модераторов.
func (s *UserService) Trust(ctx context.Context, actor models.Actor, userID uuid.UUID) (*models.UserTrust, error) {
	if !actor.IsModerator() {
		return nil, apperror.ErrForbidden
	}
	return s.risk.UserTrust(ctx, userID)
}

// Vouch создаёт поручительство за пользователя. Поручиться можно
// один раз и только после завершённой сделки с этим пользователем.
func (s *UserService) Vouch(ctx context.Context, actor models.Actor, userID uuid.UUID, tradeID *uuid.UUID, comment *string) (*models.Vouch, error) {
	if actor.ID == userID {
		return nil, apperror.New(apperror.ErrCodeValidation, "нельзя поручиться за себя")
	}
	if comment != nil {
		if err := validation.ValidateLength(*comment, "комментарий", 0, validation.MaxMessageLength); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	traded, err := s.trades.ExistsCompletedBetween(ctx, actor.ID, userID)
	if err != nil {
		return nil, err
	}
	if !traded {
		return nil, apperror.New(apperror.ErrCodeForbidden, "поручительство доступно только после завершённой сделки")
	}

	vouch := &models.Vouch{
		VoucherID: actor.ID,
		UserID:    userID,
		TradeID:   tradeID,
		Comment:   comment,
	}
	if err := s.vouches.Create(ctx, vouch); err != nil {
		return nil, err
	}
	return vouch, nil
}

// Vouches возвращает поручительства за пользователя.
func (s *UserService) Vouches(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Vouch, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.vouches.ListForUser(ctx, userID, limit, offset)
}

// SetBanned банит или разбанивает пользователя. Только модератор,
// с записью в журнал аудита.
func (s *UserService) SetBanned(ctx context.Context, actor models.Actor, userID uuid.UUID, banned bool, reason string) error {
	if !actor.IsModerator() {
		return apperror.ErrForbidden
	}
	if actor.ID == userID {
		return apperror.New(apperror.ErrCodeValidation, "нельзя забанить себя")
	}

	if err := s.users.SetBanned(ctx, userID, banned); err != nil {
		return err
	}

	action := models.AuditActionUserBanned
	if !banned {
		action = models.AuditActionUserUnbanned
	}
	if err := s.audit.Create(ctx, &models.AuditEntry{
		ActorID:    actor.ID,
		Action:     action,
		TargetType: "user",
		TargetID:   userID,
		Detail:     reason,
	}); err != nil {
		return err
	}

	logger.Log.Warnf("пользователь %s: бан=%v, модератор %s", userID, banned, actor.ID)
	return nil
}

// SetVerified проставляет флаг верификации. Только модератор.
func (s *UserService) SetVerified(ctx context.Context, actor models.Actor, userID uuid.UUID, verified bool) error {
	if !actor.IsModerator() {
		return apperror.ErrForbidden
	}

	if err := s.users.SetVerified(ctx, userID, verified); err != nil {
		return err
	}
	return s.audit.Create(ctx, &models.AuditEntry{
		ActorID:    actor.ID,
		Action:     models.AuditActionUserVerified,
		TargetType: "user",
		TargetID:   userID,
		Detail:     fmt.Sprintf("verified=%v", verified),
	})
}

// SetTier меняет тариф подписки пользователя. Только модератор:
// биллинг живёт вне этого сервиса.
func (s *UserService) SetTier(ctx context.Context, actor models.Actor, userID uuid.UUID, tier string) error {
	if !actor.IsModerator() {
		return apperror.ErrForbidden
	}
	if _, ok := models.ValidTiers[tier]; !ok {
		return apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("неизвестный тариф %q", tier))
	}
	return s.users.SetSubscriptionTier(ctx, userID, tier)
}
