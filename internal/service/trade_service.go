package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignatzorin/gamemarket-backend/internal/logger"
	"github.com/ignatzorin/gamemarket-backend/internal/models"
	"github.com/ignatzorin/gamemarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/gamemarket-backend/internal/repository"
	"github.com/ignatzorin/gamemarket-backend/internal/validation"
)

// TradeReadRepository описывает чтения сделок вне транзакций каскада.
type TradeReadRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Trade, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Trade, error)
	ListPending(ctx context.Context, limit, offset int) ([]models.Trade, error)
}

// TradeService реализует жизненный цикл сделки: открытие против
// активного объявления, двустороннее подтверждение и отмену.
type TradeService struct {
	tx     repository.TxRunner
	trades TradeReadRepository
	pusher NotificationPusher
}

// NewTradeService создаёт сервис сделок.
func NewTradeService(tx repository.TxRunner, trades TradeReadRepository, pusher NotificationPusher) *TradeService {
	return &TradeService{tx: tx, trades: trades, pusher: pusher}
}

// Open открывает сделку по активному объявлению. Вместе со сделкой
// создаётся диалог покупателя и продавца, если его ещё нет, а продавец
// получает уведомление. Всё в одной транзакции.
func (s *TradeService) Open(ctx context.Context, actor models.Actor, ref models.ListingRef, quantity int) (*models.Trade, error) {
	if err := validation.ValidateQuantity(quantity); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	var (
		trade   *models.Trade
		created []models.Notification
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		trade = nil
		created = created[:0]

		listing, err := store.GetListingForUpdate(ctx, ref)
		if err != nil {
			return err
		}
		if listing.Status != models.ListingStatusAvailable {
			return apperror.InvalidTransition(fmt.Sprintf("объявление в статусе %s, сделка недоступна", listing.Status))
		}
		if listing.SellerID == actor.ID {
			return apperror.New(apperror.ErrCodeValidation, "нельзя открыть сделку по собственному объявлению")
		}
		if quantity > listing.Stock {
			return apperror.New(apperror.ErrCodeValidation,
				fmt.Sprintf("запрошено %d, в наличии %d", quantity, listing.Stock))
		}

		pending, err := store.CountPendingTrades(ctx, ref)
		if err != nil {
			return err
		}
		if pending > 0 {
			return apperror.New(apperror.ErrCodeConflict, "по объявлению уже идёт незавершённая сделка")
		}

		trade = &models.Trade{
			ListingKind: ref.Kind,
			ListingID:   ref.ID,
			BuyerID:     actor.ID,
			SellerID:    listing.SellerID,
			Price:       listing.Price,
			Quantity:    quantity,
			Status:      models.TradeStatusPending,
		}
		total := listing.Price * float64(quantity)
		trade.TotalPrice = &total
		if listing.Kind == models.ListingKindCurrency {
			trade.Rate = listing.Rate
		}
		if err := store.CreateTrade(ctx, trade); err != nil {
			return err
		}

		if _, err := store.GetOpenConversation(ctx, ref, actor.ID); err != nil {
			if !apperror.IsNotFound(err) {
				return err
			}
			conv := &models.Conversation{
				ListingKind: ref.Kind,
				ListingID:   ref.ID,
				BuyerID:     actor.ID,
				SellerID:    listing.SellerID,
				Status:      models.ConversationStatusOpen,
			}
			if err := store.CreateConversation(ctx, conv); err != nil {
				return err
			}
		}

		created = append(created, models.Notification{
			UserID:  listing.SellerID,
			Type:    models.NotificationTradeOpened,
			Title:   "Новая сделка",
			Message: fmt.Sprintf("По объявлению «%s» открыта сделка.", listing.Title),
		})
		return store.CreateNotifications(ctx, created)
	})
	if err != nil {
		return nil, err
	}

	pushAfterCommit(s.pusher, created)
	logger.Log.Infof("сделка %s открыта покупателем %s по объявлению %s", trade.ID, actor.ID, ref)
	return trade, nil
}

// Confirm фиксирует подтверждение участника. Когда подтверждены обе
// стороны, сделка завершается, а объявление переводится в sold.
func (s *TradeService) Confirm(ctx context.Context, actor models.Actor, tradeID uuid.UUID) (*models.Trade, error) {
	var (
		trade   *models.Trade
		created []models.Notification
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		created = created[:0]

		t, err := store.GetTradeForUpdate(ctx, tradeID)
		if err != nil {
			return err
		}
		if err := requireParticipant(actor, t); err != nil {
			return err
		}
		if t.IsTerminal() {
			return apperror.AlreadyTerminal(t.Status)
		}

		switch actor.ID {
		case t.BuyerID:
			if t.BuyerConfirmed {
				// Идемпотентный повтор подтверждения.
				trade = t
				return nil
			}
			t.BuyerConfirmed = true
		case t.SellerID:
			if t.SellerConfirmed {
				trade = t
				return nil
			}
			t.SellerConfirmed = true
		}

		if t.BuyerConfirmed && t.SellerConfirmed {
			t.Status = models.TradeStatusCompleted
			if err := markListingSold(ctx, store, t.ListingRef()); err != nil {
				return err
			}
			created = append(created,
				models.Notification{
					UserID:  t.BuyerID,
					Type:    models.NotificationTradeCompleted,
					Title:   "Сделка завершена",
					Message: "Обе стороны подтвердили сделку.",
				},
				models.Notification{
					UserID:  t.SellerID,
					Type:    models.NotificationTradeCompleted,
					Title:   "Сделка завершена",
					Message: "Обе стороны подтвердили сделку.",
				},
			)
		}

		if err := store.UpdateTrade(ctx, t); err != nil {
			return err
		}
		if err := store.CreateNotifications(ctx, created); err != nil {
			return err
		}
		trade = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	pushAfterCommit(s.pusher, created)
	return trade, nil
}

// Cancel отменяет незавершённую сделку. Доступно любому участнику;
// контрагент получает уведомление.
func (s *TradeService) Cancel(ctx context.Context, actor models.Actor, tradeID uuid.UUID) error {
	var created []models.Notification

	err := s.tx.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		created = created[:0]

		t, err := store.GetTradeForUpdate(ctx, tradeID)
		if err != nil {
			return err
		}
		if err := requireParticipant(actor, t); err != nil {
			return err
		}
		if t.Status == models.TradeStatusCancelled {
			// Идемпотентный повтор отмены.
			return nil
		}
		if t.IsTerminal() {
			return apperror.AlreadyTerminal(t.Status)
		}

		t.Status = models.TradeStatusCancelled
		if err := store.UpdateTrade(ctx, t); err != nil {
			return err
		}

		counterparty := t.SellerID
		if actor.ID == t.SellerID {
			counterparty = t.BuyerID
		}
		created = append(created, models.Notification{
			UserID:  counterparty,
			Type:    models.NotificationTradeCancelled,
			Title:   "Сделка отменена",
			Message: "Контрагент отменил сделку.",
		})
		return store.CreateNotifications(ctx, created)
	})
	if err != nil {
		return err
	}

	pushAfterCommit(s.pusher, created)
	logger.Log.Infof("сделка %s отменена актором %s", tradeID, actor.ID)
	return nil
}

// Get возвращает сделку. Доступна участникам и модераторам.
func (s *TradeService) Get(ctx context.Context, actor models.Actor, tradeID uuid.UUID) (*models.Trade, error) {
	trade, err := s.trades.GetByID(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if err := requireParticipant(actor, trade); err != nil {
		return nil, err
	}
	return trade, nil
}

// ListMine возвращает сделки актора в любой роли.
func (s *TradeService) ListMine(ctx context.Context, actor models.Actor, limit, offset int) ([]models.Trade, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.trades.ListByUser(ctx, actor.ID, limit, offset)
}

// ListPending возвращает очередь незавершённых сделок для триажа.
// Только модератор.
func (s *TradeService) ListPending(ctx context.Context, actor models.Actor, limit, offset int) ([]models.Trade, error) {
	if !actor.IsModerator() {
		return nil, apperror.ErrForbidden
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.trades.ListPending(ctx, limit, offset)
}

// requireParticipant пропускает участников сделки и модераторов.
func requireParticipant(actor models.Actor, t *models.Trade) error {
	if actor.ID == t.BuyerID || actor.ID == t.SellerID || actor.IsModerator() {
		return nil
	}
	return apperror.ErrForbidden
}

// markListingSold переводит объявление завершённой сделки в sold.
// Терминальное объявление не трогаем: бан и удаление завершением
// сделки не отменяются.
func markListingSold(ctx context.Context, store repository.Store, ref models.ListingRef) error {
	listing, err := store.GetListingForUpdate(ctx, ref)
	if err != nil {
		return err
	}
	if listing.IsTerminal() {
		return nil
	}
	return store.UpdateListingStatus(ctx, ref, models.ListingStatusSold)
}
