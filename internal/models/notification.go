package models

import (
	"time"

	"github.com/google/uuid"
)

// Типы уведомлений, создаваемых ядром.
const (
	NotificationListingDeleted  = "listing_deleted"
	NotificationTradeCancelled  = "trade_cancelled"
	NotificationTradeCompleted  = "trade_completed"
	NotificationTradeOpened     = "trade_opened"
	NotificationDisputeOpened   = "dispute_opened"
	NotificationDisputeResolved = "dispute_resolved"
)

// Notification описывает событие, адресованное пользователю.
// Ядро только создаёт уведомления; доставкой занимается отдельный слой.
type Notification struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Type      string    `db:"type" json:"type"`
	Title     string    `db:"title" json:"title"`
	Message   string    `db:"message" json:"message"`
	Link      *string   `db:"link" json:"link,omitempty"`
	IsRead    bool      `db:"is_read" json:"is_read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
