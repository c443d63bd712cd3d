package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignatzorin/gamemarket-backend/internal/goroutine"
	"github.com/ignatzorin/gamemarket-backend/internal/logger"
	"github.com/ignatzorin/gamemarket-backend/internal/models"
	"github.com/ignatzorin/gamemarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/gamemarket-backend/internal/repository"
	"github.com/ignatzorin/gamemarket-backend/internal/validation"
)

// ListingReadRepository описывает чтения объявлений вне транзакций каскада.
type ListingReadRepository interface {
	GetByRef(ctx context.Context, ref models.ListingRef) (*models.Listing, error)
	List(ctx context.Context, params repository.ListFilterParams) ([]models.Listing, error)
	IncrementViewCount(ctx context.Context, ref models.ListingRef) error
}

// QuotaProvider отдаёт действующую квоту активных объявлений тарифа.
type QuotaProvider interface {
	TierQuota(ctx context.Context, tier string) (int, error)
}

// NotificationPusher доставляет уведомление подключённому пользователю.
// Вызывается после коммита транзакции, вне её.
type NotificationPusher interface {
	PushToUser(userID uuid.UUID, notification models.Notification)
}

// CreateListingInput — параметры создания объявления.
type CreateListingInput struct {
	Kind        models.ListingKind
	Title       string
	Description *string
	Price       float64
	Stock       int
	Rate        *float64
	Amount      *float64
}

// ListingService реализует жизненный цикл объявления: создание с
// проверкой квоты, переходы статусов и мягкое удаление с каскадом.
type ListingService struct {
	tx       repository.TxRunner
	listings ListingReadRepository
	settings QuotaProvider
	pusher   NotificationPusher
}

// NewListingService создаёт сервис объявлений.
func NewListingService(tx repository.TxRunner, listings ListingReadRepository, settings QuotaProvider, pusher NotificationPusher) *ListingService {
	return &ListingService{
		tx:       tx,
		listings: listings,
		settings: settings,
		pusher:   pusher,
	}
}

// Create создаёт объявление в статусе available. Квота тарифа
// проверяется в той же транзакции под блокировкой строки продавца.
func (s *ListingService) Create(ctx context.Context, actor models.Actor, input CreateListingInput) (*models.Listing, error) {
	if !input.Kind.Valid() {
		return nil, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("неизвестный вид объявления %q", input.Kind))
	}
	if err := validation.ValidateLength(input.Title, "заголовок", validation.MinListingTitleLength, validation.MaxListingTitleLength); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if input.Description != nil {
		if err := validation.ValidateLength(*input.Description, "описание", 0, validation.MaxListingDescription); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
	}
	if err := validation.ValidatePrice(input.Price); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if input.Stock < 1 {
		return nil, apperror.New(apperror.ErrCodeValidation, "остаток должен быть не меньше 1")
	}
	if input.Kind == models.ListingKindCurrency {
		if input.Rate == nil || *input.Rate <= 0 {
			return nil, apperror.New(apperror.ErrCodeValidation, "валютное объявление требует положительный курс")
		}
		if input.Amount == nil || *input.Amount <= 0 {
			return nil, apperror.New(apperror.ErrCodeValidation, "валютное объявление требует положительный объём")
		}
	}

	listing := &models.Listing{
		Kind:        input.Kind,
		SellerID:    actor.ID,
		Title:       input.Title,
		Description: input.Description,
		Price:       input.Price,
		Stock:       input.Stock,
		Rate:        input.Rate,
		Amount:      input.Amount,
		Status:      models.ListingStatusAvailable,
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		seller, err := store.GetUserForUpdate(ctx, actor.ID)
		if err != nil {
			return err
		}
		if seller.IsBanned {
			return apperror.ErrForbidden
		}

		if err := s.checkQuota(ctx, store, seller); err != nil {
			return err
		}
		return store.CreateListing(ctx, listing)
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Infof("объявление %s создано продавцом %s", listing.Ref(), actor.ID)
	return listing, nil
}

// checkQuota сравнивает активные объявления продавца с квотой тарифа.
// Вызывается только под блокировкой строки продавца.
func (s *ListingService) checkQuota(ctx context.Context, store repository.Store, seller *models.User) error {
	quota, err := s.settings.TierQuota(ctx, seller.SubscriptionTier)
	if err != nil {
		return err
	}
	active, err := store.CountAvailableBySeller(ctx, seller.ID)
	if err != nil {
		return err
	}
	if active >= quota {
		return apperror.New(apperror.ErrCodeQuotaExceeded,
			fmt.Sprintf("тариф %s допускает не более %d активных объявлений", seller.SubscriptionTier, quota))
	}
	return nil
}

// Get возвращает объявление и увеличивает счётчик просмотров.
// Ошибка счётчика не блокирует чтение.
func (s *ListingService) Get(ctx context.Context, ref models.ListingRef) (*models.Listing, error) {
	listing, err := s.listings.GetByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := s.listings.IncrementViewCount(ctx, ref); err != nil {
		logger.Log.Warnf("не удалось увеличить счётчик просмотров %s: %v", ref, err)
	}
	return listing, nil
}

// List возвращает объявления по фильтрам.
func (s *ListingService) List(ctx context.Context, params repository.ListFilterParams) ([]models.Listing, error) {
	if params.Limit <= 0 || params.Limit > 100 {
		params.Limit = 20
	}
	if params.Offset < 0 {
		params.Offset = 0
	}
	return s.listings.List(ctx, params)
}

// SetStatus переводит объявление в новый статус, проверяя автомат
// переходов. Запрос уже достигнутого статуса отклоняется как
// ALREADY_TERMINAL без побочных эффектов.
func (s *ListingService) SetStatus(ctx context.Context, actor models.Actor, ref models.ListingRef, newStatus string) error {
	if _, ok := models.ValidListingStatuses[newStatus]; !ok {
		return apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("неизвестный статус %q", newStatus))
	}
	if newStatus == models.ListingStatusDeleted {
		// Удаление идёт через SoftDelete: у него свой каскад.
		return apperror.InvalidTransition("удаление выполняется отдельной операцией")
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		listing, err := store.GetListingForUpdate(ctx, ref)
		if err != nil {
			return err
		}

		switch newStatus {
		case models.ListingStatusBanned:
			return s.banListing(ctx, store, actor, listing)
		case models.ListingStatusHidden:
			return s.hideListing(ctx, store, actor, listing)
		case models.ListingStatusAvailable:
			return s.activateListing(ctx, store, actor, listing)
		default:
			// sold и pending выставляются только каскадами сделок.
			return apperror.InvalidTransition(fmt.Sprintf("переход в %s недоступен напрямую", newStatus))
		}
	})
	if err != nil {
		return err
	}

	logger.Log.Infof("объявление %s переведено в %s актором %s", ref, newStatus, actor.ID)
	return nil
}

func (s *ListingService) banListing(ctx context.Context, store repository.Store, actor models.Actor, listing *models.Listing) error {
	if !actor.IsModerator() {
		return apperror.ErrForbidden
	}
	// Бан допустим из available, hidden и sold. Удалённое и уже
	// забаненное объявление не трогаем.
	switch listing.Status {
	case models.ListingStatusBanned, models.ListingStatusDeleted:
		return apperror.AlreadyTerminal(listing.Status)
	}

	if err := store.UpdateListingStatus(ctx, listing.Ref(), models.ListingStatusBanned); err != nil {
		return err
	}
	return store.AddAuditEntry(ctx, &models.AuditEntry{
		ActorID:    actor.ID,
		Action:     models.AuditActionListingBanned,
		TargetType: "listing",
		TargetID:   listing.ID,
		Detail:     listing.Ref().String(),
	})
}

func (s *ListingService) hideListing(ctx context.Context, store repository.Store, actor models.Actor, listing *models.Listing) error {
	if listing.SellerID != actor.ID && !actor.IsModerator() {
		return apperror.ErrForbidden
	}
	if listing.Status == models.ListingStatusHidden {
		return apperror.AlreadyTerminal(listing.Status)
	}
	if listing.IsTerminal() {
		return apperror.AlreadyTerminal(listing.Status)
	}
	if listing.Status != models.ListingStatusAvailable {
		return apperror.InvalidTransition(fmt.Sprintf("скрыть можно только активное объявление, текущий статус %s", listing.Status))
	}

	// Скрытие запрещено, пока вокруг объявления идёт активность.
	trades, err := store.CountPendingTrades(ctx, listing.Ref())
	if err != nil {
		return err
	}
	if trades > 0 {
		return apperror.InvalidTransition(apperror.ReasonActiveTrades)
	}
	convs, err := store.CountOpenConversations(ctx, listing.Ref())
	if err != nil {
		return err
	}
	if convs > 0 {
		return apperror.InvalidTransition(apperror.ReasonActiveConversations)
	}

	return store.UpdateListingStatus(ctx, listing.Ref(), models.ListingStatusHidden)
}

func (s *ListingService) activateListing(ctx context.Context, store repository.Store, actor models.Actor, listing *models.Listing) error {
	if listing.SellerID != actor.ID && !actor.IsModerator() {
		return apperror.ErrForbidden
	}
	if listing.Status == models.ListingStatusAvailable {
		return apperror.AlreadyTerminal(listing.Status)
	}
	if listing.IsTerminal() {
		return apperror.AlreadyTerminal(listing.Status)
	}
	if listing.Status != models.ListingStatusHidden {
		return apperror.InvalidTransition(fmt.Sprintf("активировать можно только скрытое объявление, текущий статус %s", listing.Status))
	}

	seller, err := store.GetUserForUpdate(ctx, listing.SellerID)
	if err != nil {
		return err
	}
	if err := s.checkQuota(ctx, store, seller); err != nil {
		return err
	}

	return store.UpdateListingStatus(ctx, listing.Ref(), models.ListingStatusAvailable)
}

// SoftDelete мягко удаляет объявление и гасит связанную активность
// одной транзакцией: открытые диалоги закрываются с системным
// сообщением, незавершённые сделки отменяются, затронутые покупатели
// получают уведомления. Либо весь каскад, либо ничего.
func (s *ListingService) SoftDelete(ctx context.Context, actor models.Actor, ref models.ListingRef) error {
	var created []models.Notification

	err := s.tx.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		created = created[:0]

		listing, err := store.GetListingForUpdate(ctx, ref)
		if err != nil {
			return err
		}
		if listing.SellerID != actor.ID && !actor.IsModerator() {
			return apperror.ErrForbidden
		}
		if listing.IsTerminal() {
			return apperror.AlreadyTerminal(listing.Status)
		}

		if err := store.UpdateListingStatus(ctx, ref, models.ListingStatusDeleted); err != nil {
			return err
		}

		convs, err := store.ListOpenConversations(ctx, ref)
		if err != nil {
			return err
		}
		for _, conv := range convs {
			msg := fmt.Sprintf("Объявление «%s» удалено продавцом, диалог закрыт.", listing.Title)
			if err := store.AddSystemMessage(ctx, conv.ID, msg); err != nil {
				return err
			}
			if err := store.CloseConversation(ctx, conv.ID); err != nil {
				return err
			}
			created = append(created, models.Notification{
				UserID:  conv.BuyerID,
				Type:    models.NotificationListingDeleted,
				Title:   "Объявление удалено",
				Message: fmt.Sprintf("Объявление «%s» удалено, диалог закрыт.", listing.Title),
			})
		}

		trades, err := store.ListPendingTrades(ctx, ref)
		if err != nil {
			return err
		}
		for i := range trades {
			trade := trades[i]
			trade.Status = models.TradeStatusCancelled
			if err := store.UpdateTrade(ctx, &trade); err != nil {
				return err
			}
			created = append(created, models.Notification{
				UserID:  trade.BuyerID,
				Type:    models.NotificationTradeCancelled,
				Title:   "Сделка отменена",
				Message: fmt.Sprintf("Сделка отменена: объявление «%s» удалено.", listing.Title),
			})
		}

		if err := store.CreateNotifications(ctx, created); err != nil {
			return err
		}

		if actor.IsModerator() && listing.SellerID != actor.ID {
			if err := store.AddAuditEntry(ctx, &models.AuditEntry{
				ActorID:    actor.ID,
				Action:     models.AuditActionListingDeleted,
				TargetType: "listing",
				TargetID:   listing.ID,
				Detail:     ref.String(),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	pushAfterCommit(s.pusher, created)
	logger.Log.Infof("объявление %s удалено актором %s, затронуто уведомлений: %d", ref, actor.ID, len(created))
	return nil
}

// pushAfterCommit рассылает уведомления подключённым пользователям.
// Вызывается строго после коммита: откат транзакции не должен
// оставлять пользователям «призрачные» пуши.
func pushAfterCommit(pusher NotificationPusher, notifications []models.Notification) {
	if pusher == nil || len(notifications) == 0 {
		return
	}
	batch := make([]models.Notification, len(notifications))
	copy(batch, notifications)
	goroutine.SafeGo(func() {
		for _, n := range batch {
			pusher.PushToUser(n.UserID, n)
		}
	})
}
