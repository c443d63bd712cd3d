package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/gamemarket-backend/internal/models"
	"github.com/ignatzorin/gamemarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/gamemarket-backend/internal/repository/common"
)

var ErrConversationNotFound = apperror.New(apperror.ErrCodeNotFound, "диалог не найден")

type ConversationRepository struct {
	db *sqlx.DB
}

func NewConversationRepository(db *sqlx.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	return common.GetByID[models.Conversation](ctx, r.db, "conversations", id, ErrConversationNotFound)
}

// GetByParticipants находит диалог покупателя и продавца по объявлению.
func (r *ConversationRepository) GetByParticipants(ctx context.Context, ref models.ListingRef, buyerID uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `
		SELECT * FROM conversations
		WHERE listing_type = $1 AND listing_id = $2 AND buyer_id = $3
	`, ref.Kind, ref.ID, buyerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	return &conv, err
}

// ListByUser возвращает диалоги пользователя, свежие первыми.
func (r *ConversationRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := r.db.SelectContext(ctx, &convs, `
		SELECT * FROM conversations
		WHERE buyer_id = $1 OR seller_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return convs, err
}

// AddMessage добавляет пользовательское сообщение в диалог.
func (r *ConversationRepository) AddMessage(ctx context.Context, m *models.Message) error {
	query := `
		INSERT INTO messages (conversation_id, author_type, author_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	return r.db.QueryRowContext(ctx, query, m.ConversationID, m.AuthorType, m.AuthorID, m.Content).
		Scan(&m.ID, &m.CreatedAt)
}

// ListMessages возвращает сообщения диалога в хронологическом порядке.
func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.SelectContext(ctx, &messages, `
		SELECT * FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC LIMIT $2 OFFSET $3
	`, conversationID, limit, offset)
	return messages, err
}
