package models

import (
	"time"

	"github.com/google/uuid"
)

// Типы авторов сообщений.
const (
	MessageAuthorUser   = "user"
	MessageAuthorSystem = "system"
)

// Conversation описывает диалог покупателя и продавца вокруг объявления.
// Закрывается (мягко) при удалении объявления.
type Conversation struct {
	ID          uuid.UUID   `db:"id" json:"id"`
	ListingKind ListingKind `db:"listing_type" json:"listing_type"`
	ListingID   uuid.UUID   `db:"listing_id" json:"listing_id"`
	BuyerID     uuid.UUID   `db:"buyer_id" json:"buyer_id"`
	SellerID    uuid.UUID   `db:"seller_id" json:"seller_id"`
	Status      string      `db:"status" json:"status"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

// ListingRef возвращает типизированную ссылку на объявление диалога.
func (c *Conversation) ListingRef() ListingRef {
	return ListingRef{Kind: c.ListingKind, ID: c.ListingID}
}

// Message описывает сообщение в диалоге, включая системные.
type Message struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	ConversationID uuid.UUID  `db:"conversation_id" json:"conversation_id"`
	AuthorType     string     `db:"author_type" json:"author_type"`
	AuthorID       *uuid.UUID `db:"author_id" json:"author_id,omitempty"`
	Content        string     `db:"content" json:"content"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}
