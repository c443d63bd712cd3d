package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/gamemarket-backend/internal/dto"
	"github.com/ignatzorin/gamemarket-backend/internal/http/handlers/common"
	"github.com/ignatzorin/gamemarket-backend/internal/models"
	"github.com/ignatzorin/gamemarket-backend/internal/service"
)

// TradeHandler предоставляет HTTP слой для сделок.
type TradeHandler struct {
	trades *service.TradeService
	risk   *service.RiskService
}

// NewTradeHandler создаёт хэндлер.
func NewTradeHandler(trades *service.TradeService, risk *service.RiskService) *TradeHandler {
	return &TradeHandler{trades: trades, risk: risk}
}

// Open обрабатывает POST /trades.
func (h *TradeHandler) Open(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	var req dto.OpenTradeRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	kind := models.ListingKind(req.Kind)
	if !kind.Valid() {
		common.RespondBadRequest(c, "неизвестный вид объявления")
		return
	}
	listingID, err := uuid.Parse(req.ListingID)
	if err != nil {
		common.RespondBadRequest(c, "listing_id должен быть валидным UUID")
		return
	}

	trade, err := h.trades.Open(c.Request.Context(), actor, models.ListingRef{Kind: kind, ID: listingID}, req.Quantity)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, trade)
}

// Confirm обрабатывает POST /trades/:id/confirm. Сделка завершается,
// когда подтвердили обе стороны.
func (h *TradeHandler) Confirm(c *gin.Context) {
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

	trade, err := h.trades.Confirm(c.Request.Context(), actor, tradeID)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, trade)
}

// Cancel обрабатывает POST /trades/:id/cancel.
func (h *TradeHandler) Cancel(c *gin.Context) {
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

	if err := h.trades.Cancel(c.Request.Context(), actor, tradeID); err != nil {
		common.Fail(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "сделка отменена", nil)
}

// Get обрабатывает GET /trades/:id.
func (h *TradeHandler) Get(c *gin.Context) {
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

	trade, err := h.trades.Get(c.Request.Context(), actor, tradeID)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, trade)
}

// ListMine обрабатывает GET /trades.
func (h *TradeHandler) ListMine(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	limit, offset := common.GetPagination(c)
	trades, err := h.trades.ListMine(c.Request.Context(), actor, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"trades": trades, "limit": limit, "offset": offset})
}

// ListPending обрабатывает GET /admin/trades/pending.
func (h *TradeHandler) ListPending(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	limit, offset := common.GetPagination(c)
	trades, err := h.trades.ListPending(c.Request.Context(), actor, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"trades": trades, "limit": limit, "offset": offset})
}

// Flags обрабатывает GET /trades/:id/flags. Возвращает риск-оценку
// сторон и маркеры подозрительности сделки.
func (h *TradeHandler) Flags(c *gin.Context) {
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

	trade, err := h.trades.Get(c.Request.Context(), actor, tradeID)
	if err != nil {
		common.Fail(c, err)
		return
	}

	report, err := h.risk.FlagTrade(c.Request.Context(), trade)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
