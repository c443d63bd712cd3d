package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/gamemarket-backend/internal/dto"
	"github.com/ignatzorin/gamemarket-backend/internal/http/handlers/common"
	"github.com/ignatzorin/gamemarket-backend/internal/service"
)

// ReportHandler предоставляет HTTP слой для жалоб.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler создаёт хэндлер.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// File обрабатывает POST /reports.
func (h *ReportHandler) File(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	var req dto.FileReportRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	targetID, err := uuid.Parse(req.TargetID)
	if err != nil {
		common.RespondBadRequest(c, "target_id должен быть валидным UUID")
		return
	}

	var description *string
	if req.Description != "" {
		description = &req.Description
	}

	report, err := h.reports.File(c.Request.Context(), actor, req.TargetType, targetID, req.Reason, description)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, report)
}

// ListMine обрабатывает GET /reports.
func (h *ReportHandler) ListMine(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	limit, offset := common.GetPagination(c)
	reports, err := h.reports.ListMine(c.Request.Context(), actor, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reports": reports, "limit": limit, "offset": offset})
}

// ListPending обрабатывает GET /admin/reports.
func (h *ReportHandler) ListPending(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	limit, offset := common.GetPagination(c)
	reports, err := h.reports.ListPending(c.Request.Context(), actor, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reports": reports, "limit": limit, "offset": offset})
}

// Review обрабатывает POST /admin/reports/:id/review.
func (h *ReportHandler) Review(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	reportID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.ReviewReportRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.reports.Review(c.Request.Context(), actor, reportID, req.Verdict); err != nil {
		common.Fail(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "жалоба рассмотрена", nil)
}
