package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/gamemarket-backend/internal/models"
	"github.com/ignatzorin/gamemarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/gamemarket-backend/internal/repository"
)

// fakeStore — хранилище в памяти, реализующее repository.Store.
// Блокировки строк не эмулируются: тесты однопоточные.
type fakeStore struct {
	users          map[uuid.UUID]*models.User
	listings       map[models.ListingRef]*models.Listing
	trades         map[uuid.UUID]*models.Trade
	conversations  map[uuid.UUID]*models.Conversation
	disputes       map[uuid.UUID]*models.Dispute
	systemMessages map[uuid.UUID][]string
	notifications  []models.Notification
	auditEntries   []models.AuditEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:          make(map[uuid.UUID]*models.User),
		listings:       make(map[models.ListingRef]*models.Listing),
		trades:         make(map[uuid.UUID]*models.Trade),
		conversations:  make(map[uuid.UUID]*models.Conversation),
		disputes:       make(map[uuid.UUID]*models.Dispute),
		systemMessages: make(map[uuid.UUID][]string),
	}
}

// snapshot возвращает глубокую копию для отката транзакции.
func (s *fakeStore) snapshot() *fakeStore {
	c := newFakeStore()
	for k, v := range s.users {
		u := *v
		c.users[k] = &u
	}
	for k, v := range s.listings {
		l := *v
		c.listings[k] = &l
	}
	for k, v := range s.trades {
		t := *v
		c.trades[k] = &t
	}
	for k, v := range s.conversations {
		conv := *v
		c.conversations[k] = &conv
	}
	for k, v := range s.disputes {
		d := *v
		c.disputes[k] = &d
	}
	for k, v := range s.systemMessages {
		c.systemMessages[k] = append([]string(nil), v...)
	}
	c.notifications = append([]models.Notification(nil), s.notifications...)
	c.auditEntries = append([]models.AuditEntry(nil), s.auditEntries...)
	return c
}

func (s *fakeStore) restore(from *fakeStore) {
	s.users = from.users
	s.listings = from.listings
	s.trades = from.trades
	s.conversations = from.conversations
	s.disputes = from.disputes
	s.systemMessages = from.systemMessages
	s.notifications = from.notifications
	s.auditEntries = from.auditEntries
}

func (s *fakeStore) addUser(u *models.User) *models.User {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().Add(-365 * 24 * time.Hour)
	}
	if u.SubscriptionTier == "" {
		u.SubscriptionTier = models.TierFree
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	s.users[u.ID] = u
	return u
}

func (s *fakeStore) addListing(l *models.Listing) *models.Listing {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	s.listings[l.Ref()] = l
	return l
}

func (s *fakeStore) addTrade(t *models.Trade) *models.Trade {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	s.trades[t.ID] = t
	return t
}

func (s *fakeStore) addConversation(c *models.Conversation) *models.Conversation {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	s.conversations[c.ID] = c
	return c
}

func (s *fakeStore) GetUserForUpdate(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, apperror.ErrUserNotFound
}

func (s *fakeStore) CreateListing(ctx context.Context, l *models.Listing) error {
	l.ID = uuid.New()
	l.CreatedAt = time.Now()
	l.UpdatedAt = l.CreatedAt
	s.listings[l.Ref()] = l
	return nil
}

func (s *fakeStore) GetListingForUpdate(ctx context.Context, ref models.ListingRef) (*models.Listing, error) {
	if l, ok := s.listings[ref]; ok {
		return l, nil
	}
	return nil, apperror.ErrListingNotFound
}

func (s *fakeStore) UpdateListingStatus(ctx context.Context, ref models.ListingRef, status string) error {
	l, ok := s.listings[ref]
	if !ok {
		return apperror.ErrListingNotFound
	}
	l.Status = status
	return nil
}

func (s *fakeStore) CountAvailableBySeller(ctx context.Context, sellerID uuid.UUID) (int, error) {
	count := 0
	for _, l := range s.listings {
		if l.SellerID == sellerID && l.Status == models.ListingStatusAvailable {
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) CreateTrade(ctx context.Context, t *models.Trade) error {
	t.ID = uuid.New()
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	s.trades[t.ID] = t
	return nil
}

func (s *fakeStore) GetTradeForUpdate(ctx context.Context, id uuid.UUID) (*models.Trade, error) {
	if t, ok := s.trades[id]; ok {
		return t, nil
	}
	return nil, apperror.ErrTradeNotFound
}

func (s *fakeStore) CountPendingTrades(ctx context.Context, ref models.ListingRef) (int, error) {
	trades, _ := s.ListPendingTrades(ctx, ref)
	return len(trades), nil
}

func (s *fakeStore) ListPendingTrades(ctx context.Context, ref models.ListingRef) ([]models.Trade, error) {
	var out []models.Trade
	for _, t := range s.trades {
		if t.ListingRef() == ref && t.Status == models.TradeStatusPending {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *fakeStore) UpdateTrade(ctx context.Context, t *models.Trade) error {
	if _, ok := s.trades[t.ID]; !ok {
		return apperror.ErrTradeNotFound
	}
	copied := *t
	s.trades[t.ID] = &copied
	return nil
}

func (s *fakeStore) CreateConversation(ctx context.Context, c *models.Conversation) error {
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	s.conversations[c.ID] = c
	return nil
}

func (s *fakeStore) GetOpenConversation(ctx context.Context, ref models.ListingRef, buyerID uuid.UUID) (*models.Conversation, error) {
	for _, c := range s.conversations {
		if c.ListingRef() == ref && c.BuyerID == buyerID && c.Status == models.ConversationStatusOpen {
			return c, nil
		}
	}
	return nil, repository.ErrConversationNotFound
}

func (s *fakeStore) CountOpenConversations(ctx context.Context, ref models.ListingRef) (int, error) {
	convs, _ := s.ListOpenConversations(ctx, ref)
	return len(convs), nil
}

func (s *fakeStore) ListOpenConversations(ctx context.Context, ref models.ListingRef) ([]models.Conversation, error) {
	var out []models.Conversation
	for _, c := range s.conversations {
		if c.ListingRef() == ref && c.Status == models.ConversationStatusOpen {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *fakeStore) CloseConversation(ctx context.Context, id uuid.UUID) error {
	c, ok := s.conversations[id]
	if !ok {
		return repository.ErrConversationNotFound
	}
	c.Status = models.ConversationStatusClosed
	return nil
}

func (s *fakeStore) AddSystemMessage(ctx context.Context, conversationID uuid.UUID, content string) error {
	s.systemMessages[conversationID] = append(s.systemMessages[conversationID], content)
	return nil
}

func (s *fakeStore) CreateDispute(ctx context.Context, d *models.Dispute) error {
	for _, existing := range s.disputes {
		if existing.TradeID == d.TradeID {
			return apperror.New(apperror.ErrCodeConflict, "спор по этой сделке уже открыт")
		}
	}
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	s.disputes[d.ID] = d
	return nil
}

func (s *fakeStore) GetDisputeForUpdate(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	if d, ok := s.disputes[id]; ok {
		return d, nil
	}
	return nil, apperror.ErrDisputeNotFound
}

func (s *fakeStore) GetDisputeByTrade(ctx context.Context, tradeID uuid.UUID) (*models.Dispute, error) {
	for _, d := range s.disputes {
		if d.TradeID == tradeID {
			return d, nil
		}
	}
	return nil, apperror.ErrDisputeNotFound
}

func (s *fakeStore) ResolveDispute(ctx context.Context, id uuid.UUID, resolution string, resolvedBy uuid.UUID, resolvedAt time.Time) error {
	d, ok := s.disputes[id]
	if !ok || d.Status != models.DisputeStatusOpen {
		return apperror.ErrDisputeNotFound
	}
	d.Status = models.DisputeStatusResolved
	d.Resolution = &resolution
	d.ResolvedBy = &resolvedBy
	d.ResolvedAt = &resolvedAt
	return nil
}

func (s *fakeStore) CreateNotifications(ctx context.Context, notifications []models.Notification) error {
	s.notifications = append(s.notifications, notifications...)
	return nil
}

func (s *fakeStore) AddAuditEntry(ctx context.Context, e *models.AuditEntry) error {
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	s.auditEntries = append(s.auditEntries, *e)
	return nil
}

// fakeTxRunner гоняет замыкание против fakeStore, откатывая все
// изменения при ошибке, как настоящая транзакция.
type fakeTxRunner struct {
	store *fakeStore
}

func (r *fakeTxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context, s repository.Store) error) error {
	before := r.store.snapshot()
	if err := fn(ctx, r.store); err != nil {
		r.store.restore(before)
		return err
	}
	return nil
}

// staticQuota отдаёт фиксированные квоты без похода в настройки.
type staticQuota struct {
	quotas map[string]int
}

func (q staticQuota) TierQuota(ctx context.Context, tier string) (int, error) {
	return q.quotas[tier], nil
}

func defaultQuotas() staticQuota {
	return staticQuota{quotas: map[string]int{
		models.TierFree:  2,
		models.TierPro:   5,
		models.TierElite: 10,
	}}
}
