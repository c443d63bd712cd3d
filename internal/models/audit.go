package models

import (
	"time"

	"github.com/google/uuid"
)

// Действия, фиксируемые в журнале аудита.
const (
	AuditActionListingBanned   = "listing_banned"
	AuditActionListingDeleted  = "listing_deleted"
	AuditActionDisputeResolved = "dispute_resolved"
	AuditActionTradeOverride   = "trade_override"
	AuditActionUserBanned      = "user_banned"
	AuditActionUserUnbanned    = "user_unbanned"
	AuditActionUserVerified    = "user_verified"
	AuditActionReportResolved  = "report_resolved"
	AuditActionSettingChanged  = "setting_changed"
)

// AuditEntry — запись журнала аудита. Журнал только пополняется:
// каждая привилегированная мутация обязана оставить запись.
type AuditEntry struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ActorID    uuid.UUID `db:"actor_id" json:"actor_id"`
	Action     string    `db:"action" json:"action"`
	TargetType string    `db:"target_type" json:"target_type"`
	TargetID   uuid.UUID `db:"target_id" json:"target_id"`
	Detail     string    `db:"detail" json:"detail"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
