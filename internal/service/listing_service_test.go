package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/gamemarket-backend/internal/models"
	"github.com/ignatzorin/gamemarket-backend/internal/pkg/apperror"
)

func newListingService(store *fakeStore) *ListingService {
	return NewListingService(&fakeTxRunner{store: store}, nil, defaultQuotas(), nil)
}

func assertCode(t *testing.T, err error, code apperror.ErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatalf("ожидалась ошибка %s, получили nil", code)
	}
	if !apperror.Is(err, code) {
		t.Fatalf("ожидалась ошибка %s, получили %v", code, err)
	}
}

func availableListing(store *fakeStore, sellerID uuid.UUID) *models.Listing {
	return store.addListing(&models.Listing{
		Kind:     models.ListingKindItem,
		SellerID: sellerID,
		Title:    "Меч из адаманта",
		Price:    500,
		Stock:    1,
		Status:   models.ListingStatusAvailable,
	})
}

func TestListingService_Create_QuotaEnforced(t *testing.T) {
	store := newFakeStore()
	svc := newListingService(store)
	ctx := context.Background()

	seller := store.addUser(&models.User{})
	actor := models.Actor{ID: seller.ID, Role: models.RoleUser}

	input := CreateListingInput{
		Kind:  models.ListingKindItem,
		Title: "Щит стража",
		Price: 100,
		Stock: 1,
	}

	// Квота FREE в тестах равна двум.
	for i := 0; i < 2; i++ {
		if _, err := svc.Create(ctx, actor, input); err != nil {
			t.Fatalf("создание %d вернуло ошибку: %v", i+1, err)
		}
	}

	_, err := svc.Create(ctx, actor, input)
	assertCode(t, err, apperror.ErrCodeQuotaExceeded)

	// ELITE продавец с той же нагрузкой проходит.
	elite := store.addUser(&models.User{SubscriptionTier: models.TierElite})
	availableListing(store, elite.ID)
	availableListing(store, elite.ID)
	_, err = svc.Create(ctx, models.Actor{ID: elite.ID, Role: models.RoleUser}, input)
	assert.NoError(t, err)
}

func TestListingService_Create_Validation(t *testing.T) {
	store := newFakeStore()
	svc := newListingService(store)
	ctx := context.Background()

	seller := store.addUser(&models.User{})
	actor := models.Actor{ID: seller.ID, Role: models.RoleUser}

	_, err := svc.Create(ctx, actor, CreateListingInput{Kind: "weapon", Title: "Лук", Price: 10, Stock: 1})
	assertCode(t, err, apperror.ErrCodeValidation)

	_, err = svc.Create(ctx, actor, CreateListingInput{Kind: models.ListingKindItem, Title: "аб", Price: 10, Stock: 1})
	assertCode(t, err, apperror.ErrCodeValidation)

	_, err = svc.Create(ctx, actor, CreateListingInput{Kind: models.ListingKindCurrency, Title: "Золото", Price: 10, Stock: 1})
	assertCode(t, err, apperror.ErrCodeValidation)

	rate, amount := 0.4, 10000.0
	_, err = svc.Create(ctx, actor, CreateListingInput{
		Kind: models.ListingKindCurrency, Title: "Золото", Price: 10, Stock: 1,
		Rate: &rate, Amount: &amount,
	})
	assert.NoError(t, err)
}

func TestListingService_Create_BannedSeller(t *testing.T) {
	store := newFakeStore()
	svc := newListingService(store)

	seller := store.addUser(&models.User{IsBanned: true})
	_, err := svc.Create(context.Background(), models.Actor{ID: seller.ID, Role: models.RoleUser}, CreateListingInput{
		Kind: models.ListingKindItem, Title: "Шлем", Price: 10, Stock: 1,
	})
	assertCode(t, err, apperror.ErrCodeForbidden)
}

func TestListingService_Hide_BlockedByActivity(t *testing.T) {
	store := newFakeStore()
	svc := newListingService(store)
	ctx := context.Background()

	seller := store.addUser(&models.User{})
	buyer := store.addUser(&models.User{})
	listing := availableListing(store, seller.ID)
	actor := models.Actor{ID: seller.ID, Role: models.RoleUser}

	trade := store.addTrade(&models.Trade{
		ListingKind: listing.Kind,
		ListingID:   listing.ID,
		BuyerID:     buyer.ID,
		SellerID:    seller.ID,
		Status:      models.TradeStatusPending,
	})

	err := svc.SetStatus(ctx, actor, listing.Ref(), models.ListingStatusHidden)
	assertCode(t, err, apperror.ErrCodeInvalidTransition)
	assert.Contains(t, err.Error(), apperror.ReasonActiveTrades)
	assert.Equal(t, models.ListingStatusAvailable, store.listings[listing.Ref()].Status)

	// Сделка завершилась, но диалог ещё открыт.
	store.trades[trade.ID].Status = models.TradeStatusCancelled
	store.addConversation(&models.Conversation{
		ListingKind: listing.Kind,
		ListingID:   listing.ID,
		BuyerID:     buyer.ID,
		SellerID:    seller.ID,
		Status:      models.ConversationStatusOpen,
	})

	err = svc.SetStatus(ctx, actor, listing.Ref(), models.ListingStatusHidden)
	assertCode(t, err, apperror.ErrCodeInvalidTransition)
	assert.Contains(t, err.Error(), apperror.ReasonActiveConversations)

	// Активность погашена, скрытие проходит.
	for _, c := range store.conversations {
		c.Status = models.ConversationStatusClosed
	}
	if err := svc.SetStatus(ctx, actor, listing.Ref(), models.ListingStatusHidden); err != nil {
		t.Fatalf("скрытие вернуло ошибку: %v", err)
	}
	assert.Equal(t, models.ListingStatusHidden, store.listings[listing.Ref()].Status)
}

func TestListingService_Activate_QuotaEnforced(t *testing.T) {
	store := newFakeStore()
	svc := newListingService(store)
	ctx := context.Background()

	seller := store.addUser(&models.User{})
	actor := models.Actor{ID: seller.ID, Role: models.RoleUser}

	availableListing(store, seller.ID)
	availableListing(store, seller.ID)
	hidden := store.addListing(&models.Listing{
		Kind:     models.ListingKindItem,
		SellerID: seller.ID,
		Title:    "Кольцо невидимости",
		Price:    900,
		Stock:    1,
		Status:   models.ListingStatusHidden,
	})

	err := svc.SetStatus(ctx, actor, hidden.Ref(), models.ListingStatusAvailable)
	assertCode(t, err, apperror.ErrCodeQuotaExceeded)
	assert.Equal(t, models.ListingStatusHidden, store.listings[hidden.Ref()].Status)
}

func TestListingService_SetStatus_SameStatusRejected(t *testing.T) {
	store := newFakeStore()
	svc := newListingService(store)
	ctx := context.Background()

	seller := store.addUser(&models.User{})
	listing := availableListing(store, seller.ID)
	actor := models.Actor{ID: seller.ID, Role: models.RoleUser}

	// Переход в уже достигнутый статус отклоняется без побочных эффектов.
	err := svc.SetStatus(ctx, actor, listing.Ref(), models.ListingStatusAvailable)
	assertCode(t, err, apperror.ErrCodeAlreadyTerminal)
	assert.Equal(t, models.ListingStatusAvailable, store.listings[listing.Ref()].Status)

	hidden := store.addListing(&models.Listing{
		Kind: models.ListingKindItem, SellerID: seller.ID,
		Title: "Скрытый жезл", Price: 70, Stock: 1,
		Status: models.ListingStatusHidden,
	})
	err = svc.SetStatus(ctx, actor, hidden.Ref(), models.ListingStatusHidden)
	assertCode(t, err, apperror.ErrCodeAlreadyTerminal)

	// Постороннему на повторе отвечает проверка прав, а не автомат.
	stranger := store.addUser(&models.User{})
	err = svc.SetStatus(ctx, models.Actor{ID: stranger.ID, Role: models.RoleUser}, listing.Ref(), models.ListingStatusAvailable)
	assertCode(t, err, apperror.ErrCodeForbidden)
}

func TestListingService_SetStatus_Terminal(t *testing.T) {
	store := newFakeStore()
	svc := newListingService(store)
	ctx := context.Background()

	seller := store.addUser(&models.User{})
	listing := store.addListing(&models.Listing{
		Kind:     models.ListingKindItem,
		SellerID: seller.ID,
		Title:    "Проданный амулет",
		Price:    50,
		Stock:    1,
		Status:   models.ListingStatusSold,
	})

	err := svc.SetStatus(ctx, models.Actor{ID: seller.ID, Role: models.RoleUser}, listing.Ref(), models.ListingStatusHidden)
	assertCode(t, err, apperror.ErrCodeAlreadyTerminal)
}

func TestListingService_Ban_ModeratorOnly(t *testing.T) {
	store := newFakeStore()
	svc := newListingService(store)
	ctx := context.Background()

	seller := store.addUser(&models.User{})
	moderator := store.addUser(&models.User{Role: models.RoleAdmin})
	listing := availableListing(store, seller.ID)

	err := svc.SetStatus(ctx, models.Actor{ID: seller.ID, Role: models.RoleUser}, listing.Ref(), models.ListingStatusBanned)
	assertCode(t, err, apperror.ErrCodeForbidden)

	err = svc.SetStatus(ctx, models.Actor{ID: moderator.ID, Role: models.RoleAdmin}, listing.Ref(), models.ListingStatusBanned)
	if err != nil {
		t.Fatalf("бан модератором вернул ошибку: %v", err)
	}
	assert.Equal(t, models.ListingStatusBanned, store.listings[listing.Ref()].Status)

	if len(store.auditEntries) != 1 {
		t.Fatalf("ожидалась одна запись аудита, получили %d", len(store.auditEntries))
	}
	assert.Equal(t, models.AuditActionListingBanned, store.auditEntries[0].Action)
	assert.Equal(t, moderator.ID, store.auditEntries[0].ActorID)
}

func TestListingService_Ban_SoldListing(t *testing.T) {
	store := newFakeStore()
	svc := newListingService(store)
	ctx := context.Background()

	seller := store.addUser(&models.User{})
	moderator := store.addUser(&models.User{Role: models.RoleAdmin})
	modActor := models.Actor{ID: moderator.ID, Role: models.RoleAdmin}

	// Проданное объявление банится: модерация сильнее продажи.
	sold := store.addListing(&models.Listing{
		Kind: models.ListingKindItem, SellerID: seller.ID,
		Title: "Проданный кинжал", Price: 120, Stock: 1,
		Status: models.ListingStatusSold,
	})
	if err := svc.SetStatus(ctx, modActor, sold.Ref(), models.ListingStatusBanned); err != nil {
		t.Fatalf("бан проданного объявления вернул ошибку: %v", err)
	}
	assert.Equal(t, models.ListingStatusBanned, store.listings[sold.Ref()].Status)

	// Удалённое и уже забаненное не трогаются.
	deleted := store.addListing(&models.Listing{
		Kind: models.ListingKindItem, SellerID: seller.ID,
		Title: "Удалённый плащ", Price: 60, Stock: 1,
		Status: models.ListingStatusDeleted,
	})
	err := svc.SetStatus(ctx, modActor, deleted.Ref(), models.ListingStatusBanned)
	assertCode(t, err, apperror.ErrCodeAlreadyTerminal)

	err = svc.SetStatus(ctx, modActor, sold.Ref(), models.ListingStatusBanned)
	assertCode(t, err, apperror.ErrCodeAlreadyTerminal)
}

func TestListingService_SoftDelete_Cascade(t *testing.T) {
	store := newFakeStore()
	svc := newListingService(store)
	ctx := context.Background()

	seller := store.addUser(&models.User{})
	buyer1 := store.addUser(&models.User{})
	buyer2 := store.addUser(&models.User{})
	listing := availableListing(store, seller.ID)

	conv1 := store.addConversation(&models.Conversation{
		ListingKind: listing.Kind, ListingID: listing.ID,
		BuyerID: buyer1.ID, SellerID: seller.ID,
		Status: models.ConversationStatusOpen,
	})
	conv2 := store.addConversation(&models.Conversation{
		ListingKind: listing.Kind, ListingID: listing.ID,
		BuyerID: buyer2.ID, SellerID: seller.ID,
		Status: models.ConversationStatusOpen,
	})
	trade := store.addTrade(&models.Trade{
		ListingKind: listing.Kind, ListingID: listing.ID,
		BuyerID: buyer1.ID, SellerID: seller.ID,
		Status: models.TradeStatusPending,
	})

	err := svc.SoftDelete(ctx, models.Actor{ID: seller.ID, Role: models.RoleUser}, listing.Ref())
	if err != nil {
		t.Fatalf("удаление вернуло ошибку: %v", err)
	}

	assert.Equal(t, models.ListingStatusDeleted, store.listings[listing.Ref()].Status)
	assert.Equal(t, models.ConversationStatusClosed, store.conversations[conv1.ID].Status)
	assert.Equal(t, models.ConversationStatusClosed, store.conversations[conv2.ID].Status)
	assert.Equal(t, models.TradeStatusCancelled, store.trades[trade.ID].Status)

	assert.Len(t, store.systemMessages[conv1.ID], 1)
	assert.Len(t, store.systemMessages[conv2.ID], 1)

	// Два покупателя из диалогов и один из сделки.
	if len(store.notifications) != 3 {
		t.Fatalf("ожидалось 3 уведомления, получили %d", len(store.notifications))
	}
	byType := map[string]int{}
	for _, n := range store.notifications {
		byType[n.Type]++
	}
	assert.Equal(t, 2, byType[models.NotificationListingDeleted])
	assert.Equal(t, 1, byType[models.NotificationTradeCancelled])
}

func TestListingService_SoftDelete_OwnerOnly(t *testing.T) {
	store := newFakeStore()
	svc := newListingService(store)
	ctx := context.Background()

	seller := store.addUser(&models.User{})
	stranger := store.addUser(&models.User{})
	listing := availableListing(store, seller.ID)

	err := svc.SoftDelete(ctx, models.Actor{ID: stranger.ID, Role: models.RoleUser}, listing.Ref())
	assertCode(t, err, apperror.ErrCodeForbidden)
	assert.Equal(t, models.ListingStatusAvailable, store.listings[listing.Ref()].Status)
}

func TestListingService_SoftDelete_RepeatRejected(t *testing.T) {
	store := newFakeStore()
	svc := newListingService(store)
	ctx := context.Background()

	seller := store.addUser(&models.User{})
	listing := availableListing(store, seller.ID)
	actor := models.Actor{ID: seller.ID, Role: models.RoleUser}

	if err := svc.SoftDelete(ctx, actor, listing.Ref()); err != nil {
		t.Fatalf("первое удаление вернуло ошибку: %v", err)
	}
	notified := len(store.notifications)

	// Повторное удаление отклоняется и не повторяет каскад.
	err := svc.SoftDelete(ctx, actor, listing.Ref())
	assertCode(t, err, apperror.ErrCodeAlreadyTerminal)
	assert.Len(t, store.notifications, notified)
	assert.Equal(t, models.ListingStatusDeleted, store.listings[listing.Ref()].Status)

	// Проданное объявление тоже не удаляется.
	sold := store.addListing(&models.Listing{
		Kind: models.ListingKindItem, SellerID: seller.ID,
		Title: "Проданный лук", Price: 10, Stock: 1,
		Status: models.ListingStatusSold,
	})
	err = svc.SoftDelete(ctx, actor, sold.Ref())
	assertCode(t, err, apperror.ErrCodeAlreadyTerminal)
}

func TestListingService_SoftDelete_ModeratorAudited(t *testing.T) {
	store := newFakeStore()
	svc := newListingService(store)
	ctx := context.Background()

	seller := store.addUser(&models.User{})
	moderator := store.addUser(&models.User{Role: models.RoleAdmin})
	listing := availableListing(store, seller.ID)

	err := svc.SoftDelete(ctx, models.Actor{ID: moderator.ID, Role: models.RoleAdmin}, listing.Ref())
	if err != nil {
		t.Fatalf("удаление модератором вернуло ошибку: %v", err)
	}

	if len(store.auditEntries) != 1 {
		t.Fatalf("удаление чужого объявления модератором должно аудироваться")
	}
	assert.Equal(t, models.AuditActionListingDeleted, store.auditEntries[0].Action)
}
