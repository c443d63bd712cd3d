package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/gamemarket-backend/internal/dto"
	"github.com/ignatzorin/gamemarket-backend/internal/http/handlers/common"
	"github.com/ignatzorin/gamemarket-backend/internal/service"
)

// DisputeHandler предоставляет HTTP слой для споров.
type DisputeHandler struct {
	disputes *service.DisputeService
}

// NewDisputeHandler создаёт хэндлер.
func NewDisputeHandler(disputes *service.DisputeService) *DisputeHandler {
	return &DisputeHandler{disputes: disputes}
}

// File обрабатывает POST /trades/:id/dispute.
func (h *DisputeHandler) File(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	tradeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.FileDisputeRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.disputes.File(c.Request.Context(), actor, tradeID, req.Reason, req.Evidence)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, dispute)
}

// GetByTrade обрабатывает GET /trades/:id/dispute.
func (h *DisputeHandler) GetByTrade(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	tradeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.disputes.GetByTrade(c.Request.Context(), actor, tradeID)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, dispute)
}

// ListMine обрабатывает GET /disputes.
func (h *DisputeHandler) ListMine(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	limit, offset := common.GetPagination(c)
	disputes, err := h.disputes.ListMine(c.Request.Context(), actor, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"disputes": disputes, "limit": limit, "offset": offset})
}

// ListOpen обрабатывает GET /admin/disputes.
func (h *DisputeHandler) ListOpen(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	limit, offset := common.GetPagination(c)
	disputes, err := h.disputes.ListOpen(c.Request.Context(), actor, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"disputes": disputes, "limit": limit, "offset": offset})
}

// Resolve обрабатывает POST /admin/disputes/:id/resolve. Вердикт
// закрывает спор и приводит сделку к итоговому статусу.
func (h *DisputeHandler) Resolve(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.ResolveDisputeRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.disputes.Resolve(c.Request.Context(), actor, disputeID, req.Outcome, req.Resolution); err != nil {
		common.Fail(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "спор разрешён", nil)
}

// OverrideTrade обрабатывает POST /admin/trades/:id/override.
func (h *DisputeHandler) OverrideTrade(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	tradeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.OverrideTradeRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.disputes.OverrideTrade(c.Request.Context(), actor, tradeID, req.Outcome, req.Resolution); err != nil {
		common.Fail(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "сделка переведена вручную", nil)
}
