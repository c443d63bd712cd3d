package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Исходы разрешения спора модератором.
const (
	DisputeOutcomeApprove = "approve"
	DisputeOutcomeCancel  = "cancel"
)

// Dispute описывает эскалацию по сделке. На сделку может существовать
// не более одного спора; разрешение терминально.
type Dispute struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	TradeID     uuid.UUID       `db:"trade_id" json:"trade_id"`
	InitiatorID uuid.UUID       `db:"initiator_id" json:"initiator_id"`
	Reason      string          `db:"reason" json:"reason"`
	Evidence    json.RawMessage `db:"evidence" json:"evidence,omitempty"`
	Status      string          `db:"status" json:"status"`
	Resolution  *string         `db:"resolution" json:"resolution,omitempty"`
	ResolvedBy  *uuid.UUID      `db:"resolved_by" json:"resolved_by,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	ResolvedAt  *time.Time      `db:"resolved_at" json:"resolved_at,omitempty"`
}
