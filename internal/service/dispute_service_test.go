package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/gamemarket-backend/internal/models"
	"github.com/ignatzorin/gamemarket-backend/internal/pkg/apperror"
)

func newDisputeService(store *fakeStore) *DisputeService {
	return NewDisputeService(&fakeTxRunner{store: store}, fakeDisputeReads{store}, fakeTradeLookup{store}, nil)
}

// fakeTradeLookup и fakeDisputeReads отдают данные fakeStore
// для чтений вне транзакций.
type fakeTradeLookup struct{ store *fakeStore }

func (f fakeTradeLookup) GetByID(ctx context.Context, id uuid.UUID) (*models.Trade, error) {
	return f.store.GetTradeForUpdate(ctx, id)
}

type fakeDisputeReads struct{ store *fakeStore }

func (f fakeDisputeReads) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	return f.store.GetDisputeForUpdate(ctx, id)
}

func (f fakeDisputeReads) GetByTradeID(ctx context.Context, tradeID uuid.UUID) (*models.Dispute, error) {
	return f.store.GetDisputeByTrade(ctx, tradeID)
}

func (f fakeDisputeReads) ListOpen(ctx context.Context, limit, offset int) ([]models.Dispute, error) {
	var out []models.Dispute
	for _, d := range f.store.disputes {
		if d.Status == models.DisputeStatusOpen {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f fakeDisputeReads) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	var out []models.Dispute
	for _, d := range f.store.disputes {
		if d.InitiatorID == userID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func disputeFixture(store *fakeStore) (seller, buyer *models.User, listing *models.Listing, trade *models.Trade) {
	seller = store.addUser(&models.User{})
	buyer = store.addUser(&models.User{})
	listing = store.addListing(&models.Listing{
		Kind:     models.ListingKindItem,
		SellerID: seller.ID,
		Title:    "Доспех дракона",
		Price:    3000,
		Stock:    1,
		Status:   models.ListingStatusAvailable,
	})
	trade = store.addTrade(&models.Trade{
		ListingKind: listing.Kind, ListingID: listing.ID,
		BuyerID: buyer.ID, SellerID: seller.ID,
		Price: 3000, Quantity: 1,
		Status: models.TradeStatusPending,
	})
	return seller, buyer, listing, trade
}

const disputeReason = "Продавец не передал предмет после оплаты"

func TestDisputeService_File(t *testing.T) {
	store := newFakeStore()
	svc := newDisputeService(store)
	ctx := context.Background()

	seller, buyer, _, trade := disputeFixture(store)

	dispute, err := svc.File(ctx, models.Actor{ID: buyer.ID, Role: models.RoleUser}, trade.ID, disputeReason, nil)
	if err != nil {
		t.Fatalf("подача спора вернула ошибку: %v", err)
	}
	assert.Equal(t, models.DisputeStatusOpen, dispute.Status)
	assert.Equal(t, buyer.ID, dispute.InitiatorID)

	// Контрагент уведомлён.
	if len(store.notifications) != 1 {
		t.Fatalf("ожидалось одно уведомление, получили %d", len(store.notifications))
	}
	assert.Equal(t, seller.ID, store.notifications[0].UserID)
	assert.Equal(t, models.NotificationDisputeOpened, store.notifications[0].Type)

	// Второй спор по той же сделке не открывается.
	_, err = svc.File(ctx, models.Actor{ID: seller.ID, Role: models.RoleUser}, trade.ID, disputeReason, nil)
	assertCode(t, err, apperror.ErrCodeConflict)
}

func TestDisputeService_File_Rejections(t *testing.T) {
	store := newFakeStore()
	svc := newDisputeService(store)
	ctx := context.Background()

	_, buyer, _, trade := disputeFixture(store)
	stranger := store.addUser(&models.User{})

	// Посторонний не участник сделки.
	_, err := svc.File(ctx, models.Actor{ID: stranger.ID, Role: models.RoleUser}, trade.ID, disputeReason, nil)
	assertCode(t, err, apperror.ErrCodeForbidden)

	// Слишком короткая причина.
	_, err = svc.File(ctx, models.Actor{ID: buyer.ID, Role: models.RoleUser}, trade.ID, "мало", nil)
	assertCode(t, err, apperror.ErrCodeValidation)

	// По завершённой сделке спор не подаётся.
	store.trades[trade.ID].Status = models.TradeStatusCompleted
	_, err = svc.File(ctx, models.Actor{ID: buyer.ID, Role: models.RoleUser}, trade.ID, disputeReason, nil)
	assertCode(t, err, apperror.ErrCodeAlreadyTerminal)
}

func TestDisputeService_Resolve_Approve(t *testing.T) {
	store := newFakeStore()
	svc := newDisputeService(store)
	ctx := context.Background()

	_, buyer, listing, trade := disputeFixture(store)
	moderator := store.addUser(&models.User{Role: models.RoleAdmin})

	dispute, err := svc.File(ctx, models.Actor{ID: buyer.ID, Role: models.RoleUser}, trade.ID, disputeReason, nil)
	if err != nil {
		t.Fatalf("подача спора вернула ошибку: %v", err)
	}

	resolution := strings.Repeat("Сделка состоялась, предмет передан. ", 2)
	err = svc.Resolve(ctx, models.Actor{ID: moderator.ID, Role: models.RoleAdmin}, dispute.ID, models.DisputeOutcomeApprove, resolution)
	if err != nil {
		t.Fatalf("разрешение спора вернуло ошибку: %v", err)
	}

	assert.Equal(t, models.DisputeStatusResolved, store.disputes[dispute.ID].Status)
	assert.Equal(t, models.TradeStatusCompleted, store.trades[trade.ID].Status)
	assert.True(t, store.trades[trade.ID].BuyerConfirmed)
	assert.True(t, store.trades[trade.ID].SellerConfirmed)
	assert.Equal(t, models.ListingStatusSold, store.listings[listing.Ref()].Status)

	// Решение аудируется одной записью.
	if len(store.auditEntries) != 1 {
		t.Fatalf("ожидалась одна запись аудита, получили %d", len(store.auditEntries))
	}
	assert.Equal(t, models.AuditActionDisputeResolved, store.auditEntries[0].Action)

	// Повторное решение отклоняется и не плодит аудит.
	err = svc.Resolve(ctx, models.Actor{ID: moderator.ID, Role: models.RoleAdmin}, dispute.ID, models.DisputeOutcomeCancel, resolution)
	assertCode(t, err, apperror.ErrCodeAlreadyTerminal)
	assert.Len(t, store.auditEntries, 1)
	assert.Equal(t, models.TradeStatusCompleted, store.trades[trade.ID].Status)
}

func TestDisputeService_Resolve_Approve_BannedListing(t *testing.T) {
	store := newFakeStore()
	svc := newDisputeService(store)
	ctx := context.Background()

	_, buyer, listing, trade := disputeFixture(store)
	moderator := store.addUser(&models.User{Role: models.RoleAdmin})

	dispute, err := svc.File(ctx, models.Actor{ID: buyer.ID, Role: models.RoleUser}, trade.ID, disputeReason, nil)
	if err != nil {
		t.Fatalf("подача спора вернула ошибку: %v", err)
	}

	// Объявление забанено модерацией, пока спор ждал решения.
	store.listings[listing.Ref()].Status = models.ListingStatusBanned

	err = svc.Resolve(ctx, models.Actor{ID: moderator.ID, Role: models.RoleAdmin}, dispute.ID, models.DisputeOutcomeApprove,
		"Сделка состоялась, предмет передан до бана объявления")
	if err != nil {
		t.Fatalf("разрешение спора вернуло ошибку: %v", err)
	}

	assert.Equal(t, models.TradeStatusCompleted, store.trades[trade.ID].Status)
	assert.Equal(t, models.ListingStatusBanned, store.listings[listing.Ref()].Status)
}

func TestDisputeService_Resolve_Cancel(t *testing.T) {
	store := newFakeStore()
	svc := newDisputeService(store)
	ctx := context.Background()

	seller, buyer, listing, trade := disputeFixture(store)
	moderator := store.addUser(&models.User{Role: models.RoleAdmin})

	dispute, err := svc.File(ctx, models.Actor{ID: buyer.ID, Role: models.RoleUser}, trade.ID, disputeReason, nil)
	if err != nil {
		t.Fatalf("подача спора вернула ошибку: %v", err)
	}
	store.notifications = nil

	err = svc.Resolve(ctx, models.Actor{ID: moderator.ID, Role: models.RoleAdmin}, dispute.ID, models.DisputeOutcomeCancel,
		"Предмет не был передан, сделка отменяется модерацией")
	if err != nil {
		t.Fatalf("разрешение спора вернуло ошибку: %v", err)
	}

	assert.Equal(t, models.TradeStatusCancelled, store.trades[trade.ID].Status)
	// Отмена сделки не трогает объявление.
	assert.Equal(t, models.ListingStatusAvailable, store.listings[listing.Ref()].Status)

	// Обе стороны уведомлены о решении.
	notified := map[uuid.UUID]bool{}
	for _, n := range store.notifications {
		assert.Equal(t, models.NotificationDisputeResolved, n.Type)
		notified[n.UserID] = true
	}
	assert.True(t, notified[buyer.ID])
	assert.True(t, notified[seller.ID])
}

func TestDisputeService_Resolve_Rejections(t *testing.T) {
	store := newFakeStore()
	svc := newDisputeService(store)
	ctx := context.Background()

	_, buyer, _, trade := disputeFixture(store)
	moderator := store.addUser(&models.User{Role: models.RoleAdmin})

	dispute, err := svc.File(ctx, models.Actor{ID: buyer.ID, Role: models.RoleUser}, trade.ID, disputeReason, nil)
	if err != nil {
		t.Fatalf("подача спора вернула ошибку: %v", err)
	}

	resolution := "Развёрнутое решение модератора по спору"

	// Обычный пользователь не разрешает споры.
	err = svc.Resolve(ctx, models.Actor{ID: buyer.ID, Role: models.RoleUser}, dispute.ID, models.DisputeOutcomeApprove, resolution)
	assertCode(t, err, apperror.ErrCodeForbidden)

	// Неизвестный исход.
	err = svc.Resolve(ctx, models.Actor{ID: moderator.ID, Role: models.RoleAdmin}, dispute.ID, "refund", resolution)
	assertCode(t, err, apperror.ErrCodeValidation)

	assert.Equal(t, models.DisputeStatusOpen, store.disputes[dispute.ID].Status)
}

func TestDisputeService_GetByTrade_ParticipantsOnly(t *testing.T) {
	store := newFakeStore()
	svc := newDisputeService(store)
	ctx := context.Background()

	_, buyer, _, trade := disputeFixture(store)
	stranger := store.addUser(&models.User{})
	moderator := store.addUser(&models.User{Role: models.RoleAdmin})

	if _, err := svc.File(ctx, models.Actor{ID: buyer.ID, Role: models.RoleUser}, trade.ID, disputeReason, nil); err != nil {
		t.Fatalf("подача спора вернула ошибку: %v", err)
	}

	_, err := svc.GetByTrade(ctx, models.Actor{ID: stranger.ID, Role: models.RoleUser}, trade.ID)
	assertCode(t, err, apperror.ErrCodeForbidden)

	dispute, err := svc.GetByTrade(ctx, models.Actor{ID: buyer.ID, Role: models.RoleUser}, trade.ID)
	if err != nil {
		t.Fatalf("участник должен видеть спор: %v", err)
	}
	assert.Equal(t, trade.ID, dispute.TradeID)

	if _, err := svc.GetByTrade(ctx, models.Actor{ID: moderator.ID, Role: models.RoleAdmin}, trade.ID); err != nil {
		t.Fatalf("модератор должен видеть спор: %v", err)
	}
}

func TestDisputeService_OverrideTrade(t *testing.T) {
	store := newFakeStore()
	svc := newDisputeService(store)
	ctx := context.Background()

	_, buyer, listing, trade := disputeFixture(store)
	moderator := store.addUser(&models.User{Role: models.RoleAdmin})

	err := svc.OverrideTrade(ctx, models.Actor{ID: buyer.ID, Role: models.RoleUser}, trade.ID, models.DisputeOutcomeCancel, "вне платформы")
	assertCode(t, err, apperror.ErrCodeForbidden)

	err = svc.OverrideTrade(ctx, models.Actor{ID: moderator.ID, Role: models.RoleAdmin}, trade.ID, models.DisputeOutcomeApprove, "подтверждено скриншотами")
	if err != nil {
		t.Fatalf("принудительное закрытие вернуло ошибку: %v", err)
	}

	assert.Equal(t, models.TradeStatusCompleted, store.trades[trade.ID].Status)
	assert.Equal(t, models.ListingStatusSold, store.listings[listing.Ref()].Status)
	if len(store.auditEntries) != 1 {
		t.Fatalf("ожидалась запись аудита trade_override")
	}
	assert.Equal(t, models.AuditActionTradeOverride, store.auditEntries[0].Action)

	// Повтор по терминальной сделке отклоняется.
	err = svc.OverrideTrade(ctx, models.Actor{ID: moderator.ID, Role: models.RoleAdmin}, trade.ID, models.DisputeOutcomeCancel, "повтор")
	assertCode(t, err, apperror.ErrCodeAlreadyTerminal)
}
