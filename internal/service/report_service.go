package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignatzorin/gamemarket-backend/internal/models"
	"github.com/ignatzorin/gamemarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/gamemarket-backend/internal/validation"
)

// ReportRepository описывает хранение жалоб.
type ReportRepository interface {
	Create(ctx context.Context, rep *models.Report) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string, reviewedBy uuid.UUID) error
	ListByReporter(ctx context.Context, reporterID uuid.UUID, limit, offset int) ([]models.Report, error)
	ListPending(ctx context.Context, limit, offset int) ([]models.Report, error)
}

// ReportAuditRepository пишет записи аудита о вердиктах по жалобам.
type ReportAuditRepository interface {
	Create(ctx context.Context, e *models.AuditEntry) error
}

var validReportTargets = map[string]struct{}{
	models.ReportTargetUser:    {},
	models.ReportTargetListing: {},
	models.ReportTargetMessage: {},
}

// ReportService реализует подачу жалоб и их модерацию.
// Подтверждённая жалоба на пользователя повышает его оценку риска.
type ReportService struct {
	reports ReportRepository
	audit   ReportAuditRepository
}

// NewReportService создаёт сервис жалоб.
func NewReportService(reports ReportRepository, audit ReportAuditRepository) *ReportService {
	return &ReportService{reports: reports, audit: audit}
}

// File подаёт жалобу на пользователя, объявление или сообщение.
func (s *ReportService) File(ctx context.Context, actor models.Actor, targetType string, targetID uuid.UUID, reason string, description *string) (*models.Report, error) {
	if _, ok := validReportTargets[targetType]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("неизвестная цель жалобы %q", targetType))
	}
	if targetType == models.ReportTargetUser && targetID == actor.ID {
		return nil, apperror.New(apperror.ErrCodeValidation, "нельзя пожаловаться на себя")
	}
	if err := validation.ValidateLength(reason, "причина", validation.MinReasonLength, validation.MaxReasonLength); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if description != nil {
		if err := validation.ValidateLength(*description, "описание", 0, validation.MaxMessageLength); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
	}

	report := &models.Report{
		ReporterID:  actor.ID,
		TargetType:  targetType,
		TargetID:    targetID,
		Reason:      reason,
		Description: description,
		Status:      models.ReportStatusPending,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// Review выносит вердикт по жалобе: resolved или dismissed.
// Только модератор; повторный вердикт отклоняется.
func (s *ReportService) Review(ctx context.Context, actor models.Actor, reportID uuid.UUID, verdict string) error {
	if !actor.IsModerator() {
		return apperror.ErrForbidden
	}
	if verdict != models.ReportStatusResolved && verdict != models.ReportStatusDismissed {
		return apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("неизвестный вердикт %q", verdict))
	}

	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return err
	}
	if report.Status != models.ReportStatusPending {
		return apperror.AlreadyTerminal(report.Status)
	}

	if err := s.reports.SetStatus(ctx, reportID, verdict, actor.ID); err != nil {
		return err
	}
	return s.audit.Create(ctx, &models.AuditEntry{
		ActorID:    actor.ID,
		Action:     models.AuditActionReportResolved,
		TargetType: "report",
		TargetID:   reportID,
		Detail:     fmt.Sprintf("%s %s:%s", verdict, report.TargetType, report.TargetID),
	})
}

// ListMine возвращает жалобы, поданные актором.
func (s *ReportService) ListMine(ctx context.Context, actor models.Actor, limit, offset int) ([]models.Report, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.reports.ListByReporter(ctx, actor.ID, limit, offset)
}

// ListPending возвращает очередь нерассмотренных жалоб. Только модератор.
func (s *ReportService) ListPending(ctx context.Context, actor models.Actor, limit, offset int) ([]models.Report, error) {
	if !actor.IsModerator() {
		return nil, apperror.ErrForbidden
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.reports.ListPending(ctx, limit, offset)
}
