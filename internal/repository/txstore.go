package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/gamemarket-backend/internal/models"
	"github.com/ignatzorin/gamemarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/gamemarket-backend/internal/repository/common"
)

// Store — операции, доступные внутри одной транзакции каскада.
// Валидационные чтения блокируют строки (FOR UPDATE), поэтому проверка
// инвариантов и последующие записи атомарны относительно конкурентов:
// два одновременных «скрыть объявление» против создания новой сделки
// не могут оба пройти.
type Store interface {
	// пользователи
	GetUserForUpdate(ctx context.Context, id uuid.UUID) (*models.User, error)

	// объявления
	CreateListing(ctx context.Context, l *models.Listing) error
	GetListingForUpdate(ctx context.Context, ref models.ListingRef) (*models.Listing, error)
	UpdateListingStatus(ctx context.Context, ref models.ListingRef, status string) error
	CountAvailableBySeller(ctx context.Context, sellerID uuid.UUID) (int, error)

	// сделки
	CreateTrade(ctx context.Context, t *models.Trade) error
	GetTradeForUpdate(ctx context.Context, id uuid.UUID) (*models.Trade, error)
	CountPendingTrades(ctx context.Context, ref models.ListingRef) (int, error)
	ListPendingTrades(ctx context.Context, ref models.ListingRef) ([]models.Trade, error)
	UpdateTrade(ctx context.Context, t *models.Trade) error

	// диалоги
	CreateConversation(ctx context.Context, c *models.Conversation) error
	GetOpenConversation(ctx context.Context, ref models.ListingRef, buyerID uuid.UUID) (*models.Conversation, error)
	CountOpenConversations(ctx context.Context, ref models.ListingRef) (int, error)
	ListOpenConversations(ctx context.Context, ref models.ListingRef) ([]models.Conversation, error)
	CloseConversation(ctx context.Context, id uuid.UUID) error
	AddSystemMessage(ctx context.Context, conversationID uuid.UUID, content string) error

	// споры
	CreateDispute(ctx context.Context, d *models.Dispute) error
	GetDisputeForUpdate(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	GetDisputeByTrade(ctx context.Context, tradeID uuid.UUID) (*models.Dispute, error)
	ResolveDispute(ctx context.Context, id uuid.UUID, resolution string, resolvedBy uuid.UUID, resolvedAt time.Time) error

	// побочные записи
	CreateNotifications(ctx context.Context, notifications []models.Notification) error
	AddAuditEntry(ctx context.Context, e *models.AuditEntry) error
}

// TxRunner выполняет каскад как одну транзакцию хранилища: либо все
// записи фиксируются, либо ни одна.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error
}

// SQLTxRunner — реализация TxRunner поверх PostgreSQL.
type SQLTxRunner struct {
	db *sqlx.DB
}

func NewTxRunner(db *sqlx.DB) *SQLTxRunner {
	return &SQLTxRunner{db: db}
}

// WithinTx открывает транзакцию и передаёт fn транзакционный Store.
// Проигранная гонка (serialization failure, deadlock) возвращается
// как CONFLICT: вызывающий повторяет операцию, все операции ядра
// идемпотентны на уровне автомата состояний.
func (r *SQLTxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error {
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		return fn(ctx, &txStore{tx: tx})
	})
	if err != nil && common.IsRetryableConflict(err) {
		return apperror.Wrap(err, apperror.ErrCodeConflict, "конфликт записи, повторите запрос")
	}
	return err
}

// txStore реализует Store поверх открытой транзакции.
type txStore struct {
	tx *sqlx.Tx
}

func (s *txStore) GetUserForUpdate(ctx context.Context, id uuid.UUID) (*models.User, error) {
	// Строка пользователя служит точкой сериализации для проверки квоты:
	// конкурентные активации объявлений одного продавца выстраиваются
	// в очередь на этой блокировке.
	return common.GetByIDForUpdate[models.User](ctx, s.tx, "users", id, apperror.ErrUserNotFound)
}

func (s *txStore) CreateListing(ctx context.Context, l *models.Listing) error {
	switch l.Kind {
	case models.ListingKindItem:
		query := `
			INSERT INTO item_listings (seller_id, title, description, price, stock, status)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at, updated_at
		`
		return s.tx.QueryRowContext(ctx, query, l.SellerID, l.Title, l.Description, l.Price, l.Stock, l.Status).
			Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	case models.ListingKindCurrency:
		query := `
			INSERT INTO currency_listings (seller_id, title, description, price, stock, rate, amount, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id, created_at, updated_at
		`
		return s.tx.QueryRowContext(ctx, query, l.SellerID, l.Title, l.Description, l.Price, l.Stock, l.Rate, l.Amount, l.Status).
			Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	default:
		return fmt.Errorf("repository: неизвестный вид объявления %q", l.Kind)
	}
}

func (s *txStore) GetListingForUpdate(ctx context.Context, ref models.ListingRef) (*models.Listing, error) {
	table, err := listingTable(ref.Kind)
	if err != nil {
		return nil, err
	}

	var l models.Listing
	query := fmt.Sprintf(`SELECT * FROM %s WHERE id = $1 FOR UPDATE`, table)
	if err := s.tx.GetContext(ctx, &l, query, ref.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrListingNotFound
		}
		return nil, fmt.Errorf("lock listing in %s: %w", table, err)
	}

	l.Kind = ref.Kind
	return &l, nil
}

func (s *txStore) UpdateListingStatus(ctx context.Context, ref models.ListingRef, status string) error {
	table, err := listingTable(ref.Kind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE %s SET status = $2, updated_at = NOW() WHERE id = $1`, table)
	res, err := s.tx.ExecContext(ctx, query, ref.ID, status)
	if err != nil {
		return err
	}
	return checkAffected(res, apperror.ErrListingNotFound)
}

func (s *txStore) CountAvailableBySeller(ctx context.Context, sellerID uuid.UUID) (int, error) {
	// Счёт по обеим таблицам внутри транзакции, после блокировки строки
	// продавца: вне транзакции этот счёт гоняется с созданием объявлений.
	var count int
	err := s.tx.GetContext(ctx, &count, `
		SELECT
			(SELECT COUNT(*) FROM item_listings WHERE seller_id = $1 AND status = $2) +
			(SELECT COUNT(*) FROM currency_listings WHERE seller_id = $1 AND status = $2)
	`, sellerID, models.ListingStatusAvailable)
	return count, err
}

func (s *txStore) CreateTrade(ctx context.Context, t *models.Trade) error {
	query := `
		INSERT INTO trades (listing_type, listing_id, buyer_id, seller_id, price, quantity, total_price, rate, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`
	return s.tx.QueryRowContext(ctx, query,
		t.ListingKind, t.ListingID, t.BuyerID, t.SellerID,
		t.Price, t.Quantity, t.TotalPrice, t.Rate, t.Status).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

func (s *txStore) GetTradeForUpdate(ctx context.Context, id uuid.UUID) (*models.Trade, error) {
	return common.GetByIDForUpdate[models.Trade](ctx, s.tx, "trades", id, apperror.ErrTradeNotFound)
}

func (s *txStore) CountPendingTrades(ctx context.Context, ref models.ListingRef) (int, error) {
	var count int
	err := s.tx.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM trades
		WHERE listing_type = $1 AND listing_id = $2 AND status = $3
	`, ref.Kind, ref.ID, models.TradeStatusPending)
	return count, err
}

func (s *txStore) ListPendingTrades(ctx context.Context, ref models.ListingRef) ([]models.Trade, error) {
	var trades []models.Trade
	err := s.tx.SelectContext(ctx, &trades, `
		SELECT * FROM trades
		WHERE listing_type = $1 AND listing_id = $2 AND status = $3
		ORDER BY created_at ASC
		FOR UPDATE
	`, ref.Kind, ref.ID, models.TradeStatusPending)
	return trades, err
}

func (s *txStore) UpdateTrade(ctx context.Context, t *models.Trade) error {
	res, err := s.tx.ExecContext(ctx, `
		UPDATE trades
		SET status = $2, buyer_confirmed = $3, seller_confirmed = $4, updated_at = NOW()
		WHERE id = $1
	`, t.ID, t.Status, t.BuyerConfirmed, t.SellerConfirmed)
	if err != nil {
		return err
	}
	return checkAffected(res, apperror.ErrTradeNotFound)
}

func (s *txStore) CreateConversation(ctx context.Context, c *models.Conversation) error {
	query := `
		INSERT INTO conversations (listing_type, listing_id, buyer_id, seller_id, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	return s.tx.QueryRowContext(ctx, query, c.ListingKind, c.ListingID, c.BuyerID, c.SellerID, c.Status).
		Scan(&c.ID, &c.CreatedAt)
}

func (s *txStore) GetOpenConversation(ctx context.Context, ref models.ListingRef, buyerID uuid.UUID) (*models.Conversation, error) {
	var c models.Conversation
	err := s.tx.GetContext(ctx, &c, `
		SELECT * FROM conversations
		WHERE listing_type = $1 AND listing_id = $2 AND buyer_id = $3 AND status = $4
	`, ref.Kind, ref.ID, buyerID, models.ConversationStatusOpen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	return &c, err
}

func (s *txStore) CountOpenConversations(ctx context.Context, ref models.ListingRef) (int, error) {
	var count int
	err := s.tx.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM conversations
		WHERE listing_type = $1 AND listing_id = $2 AND status = $3
	`, ref.Kind, ref.ID, models.ConversationStatusOpen)
	return count, err
}

func (s *txStore) ListOpenConversations(ctx context.Context, ref models.ListingRef) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := s.tx.SelectContext(ctx, &convs, `
		SELECT * FROM conversations
		WHERE listing_type = $1 AND listing_id = $2 AND status = $3
		ORDER BY created_at ASC
		FOR UPDATE
	`, ref.Kind, ref.ID, models.ConversationStatusOpen)
	return convs, err
}

func (s *txStore) CloseConversation(ctx context.Context, id uuid.UUID) error {
	res, err := s.tx.ExecContext(ctx, `
		UPDATE conversations SET status = $2 WHERE id = $1
	`, id, models.ConversationStatusClosed)
	if err != nil {
		return err
	}
	return checkAffected(res, ErrConversationNotFound)
}

func (s *txStore) AddSystemMessage(ctx context.Context, conversationID uuid.UUID, content string) error {
	_, err := s.tx.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, author_type, content)
		VALUES ($1, $2, $3)
	`, conversationID, models.MessageAuthorSystem, content)
	return err
}

func (s *txStore) CreateDispute(ctx context.Context, d *models.Dispute) error {
	query := `
		INSERT INTO disputes (trade_id, initiator_id, reason, evidence, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := s.tx.QueryRowContext(ctx, query, d.TradeID, d.InitiatorID, d.Reason, d.Evidence, d.Status).
		Scan(&d.ID, &d.CreatedAt)
	if err != nil && common.IsUniqueViolation(err) {
		// UNIQUE(trade_id): на сделку не бывает второго спора
		return apperror.New(apperror.ErrCodeConflict, "спор по этой сделке уже открыт")
	}
	return err
}

func (s *txStore) GetDisputeForUpdate(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	return common.GetByIDForUpdate[models.Dispute](ctx, s.tx, "disputes", id, apperror.ErrDisputeNotFound)
}

func (s *txStore) GetDisputeByTrade(ctx context.Context, tradeID uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	err := s.tx.GetContext(ctx, &d, `SELECT * FROM disputes WHERE trade_id = $1`, tradeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrDisputeNotFound
	}
	return &d, err
}

func (s *txStore) ResolveDispute(ctx context.Context, id uuid.UUID, resolution string, resolvedBy uuid.UUID, resolvedAt time.Time) error {
	res, err := s.tx.ExecContext(ctx, `
		UPDATE disputes
		SET status = $2, resolution = $3, resolved_by = $4, resolved_at = $5
		WHERE id = $1 AND status = $6
	`, id, models.DisputeStatusResolved, resolution, resolvedBy, resolvedAt, models.DisputeStatusOpen)
	if err != nil {
		return err
	}
	return checkAffected(res, apperror.ErrDisputeNotFound)
}

func (s *txStore) CreateNotifications(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	inserter := common.NewBatchInserter(s.tx,
		`INSERT INTO notifications (user_id, type, title, message, link)`, 5, 100)
	for _, n := range notifications {
		if err := inserter.Add(ctx, n.UserID, n.Type, n.Title, n.Message, n.Link); err != nil {
			return err
		}
	}
	return inserter.Flush(ctx)
}

func (s *txStore) AddAuditEntry(ctx context.Context, e *models.AuditEntry) error {
	query := `
		INSERT INTO audit_log (actor_id, action, target_type, target_id, detail)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	return s.tx.QueryRowContext(ctx, query, e.ActorID, e.Action, e.TargetType, e.TargetID, e.Detail).
		Scan(&e.ID, &e.CreatedAt)
}
