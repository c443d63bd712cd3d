package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/gamemarket-backend/internal/logger"
	"github.com/ignatzorin/gamemarket-backend/internal/models"
	"github.com/ignatzorin/gamemarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/gamemarket-backend/internal/repository"
	"github.com/ignatzorin/gamemarket-backend/internal/validation"
)

// DisputeReadRepository описывает чтения споров вне транзакций каскада.
type DisputeReadRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	GetByTradeID(ctx context.Context, tradeID uuid.UUID) (*models.Dispute, error)
	ListOpen(ctx context.Context, limit, offset int) ([]models.Dispute, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error)
}

// TradeLookup отдаёт сделку для проверки принадлежности спора.
type TradeLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Trade, error)
}

// DisputeService реализует эскалации по сделкам: подачу спора
// участником и разрешение модератором с каскадом по сделке
// и объявлению.
type DisputeService struct {
	tx       repository.TxRunner
	disputes DisputeReadRepository
	trades   TradeLookup
	pusher   NotificationPusher
	now      func() time.Time
}

// NewDisputeService создаёт сервис споров.
func NewDisputeService(tx repository.TxRunner, disputes DisputeReadRepository, trades TradeLookup, pusher NotificationPusher) *DisputeService {
	return &DisputeService{
		tx:       tx,
		disputes: disputes,
		trades:   trades,
		pusher:   pusher,
		now:      time.Now,
	}
}

// File подаёт спор по незавершённой сделке. На сделку допускается
// один спор; контрагент получает уведомление.
func (s *DisputeService) File(ctx context.Context, actor models.Actor, tradeID uuid.UUID, reason string, evidence json.RawMessage) (*models.Dispute, error) {
	if err := validation.ValidateLength(reason, "причина", validation.MinReasonLength, validation.MaxReasonLength); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	var (
		dispute *models.Dispute
		created []models.Notification
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		created = created[:0]

		trade, err := store.GetTradeForUpdate(ctx, tradeID)
		if err != nil {
			return err
		}
		if actor.ID != trade.BuyerID && actor.ID != trade.SellerID {
			return apperror.ErrForbidden
		}
		if trade.IsTerminal() {
			return apperror.AlreadyTerminal(trade.Status)
		}

		dispute = &models.Dispute{
			TradeID:     tradeID,
			InitiatorID: actor.ID,
			Reason:      reason,
			Evidence:    evidence,
			Status:      models.DisputeStatusOpen,
		}
		if err := store.CreateDispute(ctx, dispute); err != nil {
			return err
		}

		counterparty := trade.SellerID
		if actor.ID == trade.SellerID {
			counterparty = trade.BuyerID
		}
		created = append(created, models.Notification{
			UserID:  counterparty,
			Type:    models.NotificationDisputeOpened,
			Title:   "Открыт спор",
			Message: "По вашей сделке открыт спор, она заморожена до решения модератора.",
		})
		return store.CreateNotifications(ctx, created)
	})
	if err != nil {
		return nil, err
	}

	pushAfterCommit(s.pusher, created)
	logger.Log.Infof("спор %s подан участником %s по сделке %s", dispute.ID, actor.ID, tradeID)
	return dispute, nil
}

// Resolve разрешает спор модератором. Исход approve завершает сделку
// и переводит объявление в sold, исход cancel отменяет сделку.
// Решение терминально и попадает в журнал аудита.
func (s *DisputeService) Resolve(ctx context.Context, actor models.Actor, disputeID uuid.UUID, outcome, resolution string) error {
	if !actor.IsModerator() {
		return apperror.ErrForbidden
	}
	if outcome != models.DisputeOutcomeApprove && outcome != models.DisputeOutcomeCancel {
		return apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("неизвестный исход %q", outcome))
	}
	if err := validation.ValidateLength(resolution, "решение", validation.MinReasonLength, validation.MaxReasonLength); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	var created []models.Notification

	err := s.tx.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		created = created[:0]

		dispute, err := store.GetDisputeForUpdate(ctx, disputeID)
		if err != nil {
			return err
		}
		if dispute.Status == models.DisputeStatusResolved {
			return apperror.AlreadyTerminal(dispute.Status)
		}

		trade, err := store.GetTradeForUpdate(ctx, dispute.TradeID)
		if err != nil {
			return err
		}

		if err := store.ResolveDispute(ctx, disputeID, resolution, actor.ID, s.now()); err != nil {
			return err
		}

		if err := s.applyOutcome(ctx, store, trade, outcome); err != nil {
			return err
		}

		if err := store.AddAuditEntry(ctx, &models.AuditEntry{
			ActorID:    actor.ID,
			Action:     models.AuditActionDisputeResolved,
			TargetType: "dispute",
			TargetID:   disputeID,
			Detail:     fmt.Sprintf("%s: %s", outcome, resolution),
		}); err != nil {
			return err
		}

		message := "Модератор разрешил спор: сделка завершена."
		if outcome == models.DisputeOutcomeCancel {
			message = "Модератор разрешил спор: сделка отменена."
		}
		created = append(created,
			models.Notification{
				UserID:  trade.BuyerID,
				Type:    models.NotificationDisputeResolved,
				Title:   "Спор разрешён",
				Message: message,
			},
			models.Notification{
				UserID:  trade.SellerID,
				Type:    models.NotificationDisputeResolved,
				Title:   "Спор разрешён",
				Message: message,
			},
		)
		return store.CreateNotifications(ctx, created)
	})
	if err != nil {
		return err
	}

	pushAfterCommit(s.pusher, created)
	logger.Log.Infof("спор %s разрешён модератором %s с исходом %s", disputeID, actor.ID, outcome)
	return nil
}

// applyOutcome применяет исход к сделке и её объявлению.
// Если сделка уже терминальна, её статус не трогаем: решение
// модератора фиксирует только сам спор.
func (s *DisputeService) applyOutcome(ctx context.Context, store repository.Store, trade *models.Trade, outcome string) error {
	if trade.IsTerminal() {
		return nil
	}

	switch outcome {
	case models.DisputeOutcomeApprove:
		trade.Status = models.TradeStatusCompleted
		trade.BuyerConfirmed = true
		trade.SellerConfirmed = true
		if err := markListingSold(ctx, store, trade.ListingRef()); err != nil {
			return err
		}
	case models.DisputeOutcomeCancel:
		trade.Status = models.TradeStatusCancelled
	}
	return store.UpdateTrade(ctx, trade)
}

// OverrideTrade принудительно закрывает сделку модератором без спора.
// Используется, когда эскалация пришла вне платформы. Аудитируется
// отдельным действием.
func (s *DisputeService) OverrideTrade(ctx context.Context, actor models.Actor, tradeID uuid.UUID, outcome, detail string) error {
	if !actor.IsModerator() {
		return apperror.ErrForbidden
	}
	if outcome != models.DisputeOutcomeApprove && outcome != models.DisputeOutcomeCancel {
		return apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("неизвестный исход %q", outcome))
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		trade, err := store.GetTradeForUpdate(ctx, tradeID)
		if err != nil {
			return err
		}
		if trade.IsTerminal() {
			return apperror.AlreadyTerminal(trade.Status)
		}

		if err := s.applyOutcome(ctx, store, trade, outcome); err != nil {
			return err
		}

		return store.AddAuditEntry(ctx, &models.AuditEntry{
			ActorID:    actor.ID,
			Action:     models.AuditActionTradeOverride,
			TargetType: "trade",
			TargetID:   tradeID,
			Detail:     fmt.Sprintf("%s: %s", outcome, detail),
		})
	})
	if err != nil {
		return err
	}

	logger.Log.Warnf("сделка %s закрыта модератором %s в обход спора, исход %s", tradeID, actor.ID, outcome)
	return nil
}

// GetByTrade возвращает спор по сделке. Доступен участникам сделки
// и модераторам.
func (s *DisputeService) GetByTrade(ctx context.Context, actor models.Actor, tradeID uuid.UUID) (*models.Dispute, error) {
	trade, err := s.trades.GetByID(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if err := requireParticipant(actor, trade); err != nil {
		return nil, err
	}
	return s.disputes.GetByTradeID(ctx, tradeID)
}

// ListOpen возвращает очередь открытых споров. Только модератор.
func (s *DisputeService) ListOpen(ctx context.Context, actor models.Actor, limit, offset int) ([]models.Dispute, error) {
	if !actor.IsModerator() {
		return nil, apperror.ErrForbidden
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.disputes.ListOpen(ctx, limit, offset)
}

// ListMine возвращает споры по сделкам актора.
func (s *DisputeService) ListMine(ctx context.Context, actor models.Actor, limit, offset int) ([]models.Dispute, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.disputes.ListByUser(ctx, actor.ID, limit, offset)
}
