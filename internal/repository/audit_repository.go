package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/gamemarket-backend/internal/models"
)

// AuditRepository пишет и читает журнал аудита. Журнал только
// пополняется, записи никогда не изменяются.
type AuditRepository struct {
	db *sqlx.DB
}

func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(ctx context.Context, e *models.AuditEntry) error {
	query := `
		INSERT INTO audit_log (actor_id, action, target_type, target_id, detail)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	return r.db.QueryRowContext(ctx, query, e.ActorID, e.Action, e.TargetType, e.TargetID, e.Detail).
		Scan(&e.ID, &e.CreatedAt)
}

func (r *AuditRepository) List(ctx context.Context, limit, offset int) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT * FROM audit_log ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	return entries, err
}

func (r *AuditRepository) ListByTarget(ctx context.Context, targetType string, targetID uuid.UUID, limit, offset int) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT * FROM audit_log
		WHERE target_type = $1 AND target_id = $2
		ORDER BY created_at DESC LIMIT $3 OFFSET $4
	`, targetType, targetID, limit, offset)
	return entries, err
}
