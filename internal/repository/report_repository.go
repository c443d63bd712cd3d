package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/gamemarket-backend/internal/models"
	"github.com/ignatzorin/gamemarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/gamemarket-backend/internal/repository/common"
)

var ErrReportNotFound = apperror.New(apperror.ErrCodeNotFound, "жалоба не найдена")

type ReportRepository struct {
	db *sqlx.DB
}

func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Create(ctx context.Context, rep *models.Report) error {
	query := `
		INSERT INTO reports (reporter_id, target_type, target_id, reason, description, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	return r.db.QueryRowContext(ctx, query, rep.ReporterID, rep.TargetType, rep.TargetID, rep.Reason, rep.Description, rep.Status).
		Scan(&rep.ID, &rep.CreatedAt)
}

func (r *ReportRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	return common.GetByID[models.Report](ctx, r.db, "reports", id, ErrReportNotFound)
}

// SetStatus переводит жалобу в resolved или dismissed.
func (r *ReportRepository) SetStatus(ctx context.Context, id uuid.UUID, status string, reviewedBy uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE reports SET status = $2, reviewed_by = $3, reviewed_at = NOW()
		WHERE id = $1 AND status = $4
	`, id, status, reviewedBy, models.ReportStatusPending)
	if err != nil {
		return err
	}
	return checkAffected(res, ErrReportNotFound)
}

func (r *ReportRepository) ListByReporter(ctx context.Context, reporterID uuid.UUID, limit, offset int) ([]models.Report, error) {
	var reports []models.Report
	err := r.db.SelectContext(ctx, &reports, `
		SELECT * FROM reports WHERE reporter_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, reporterID, limit, offset)
	return reports, err
}

// ListPending возвращает очередь жалоб для модераторов.
func (r *ReportRepository) ListPending(ctx context.Context, limit, offset int) ([]models.Report, error) {
	var reports []models.Report
	err := r.db.SelectContext(ctx, &reports, `
		SELECT * FROM reports WHERE status = $1
		ORDER BY created_at ASC LIMIT $2 OFFSET $3
	`, models.ReportStatusPending, limit, offset)
	return reports, err
}
