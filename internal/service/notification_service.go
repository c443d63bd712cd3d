package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/gamemarket-backend/internal/models"
	"github.com/ignatzorin/gamemarket-backend/internal/pkg/apperror"
)

// NotificationRepository описывает хранение уведомлений.
type NotificationRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

// NotificationService отдаёт пользователю его уведомления.
// Создание уведомлений происходит в каскадах ядра, не здесь.
type NotificationService struct {
	repo NotificationRepository
}

func NewNotificationService(repo NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

// List возвращает уведомления актора.
func (s *NotificationService) List(ctx context.Context, actor models.Actor, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, actor.ID, limit, offset, unreadOnly)
}

// CountUnread возвращает число непрочитанных уведомлений актора.
func (s *NotificationService) CountUnread(ctx context.Context, actor models.Actor) (int, error) {
	return s.repo.CountUnread(ctx, actor.ID)
}

// MarkAsRead помечает уведомление прочитанным. Чужое уведомление
// пометить нельзя.
func (s *NotificationService) MarkAsRead(ctx context.Context, actor models.Actor, id uuid.UUID) error {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != actor.ID {
		return apperror.ErrForbidden
	}
	return s.repo.MarkAsRead(ctx, id)
}

// MarkAllAsRead помечает все уведомления актора прочитанными.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, actor models.Actor) error {
	return s.repo.MarkAllAsRead(ctx, actor.ID)
}
