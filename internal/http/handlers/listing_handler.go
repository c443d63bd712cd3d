package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/gamemarket-backend/internal/dto"
	"github.com/ignatzorin/gamemarket-backend/internal/http/handlers/common"
	"github.com/ignatzorin/gamemarket-backend/internal/models"
	"github.com/ignatzorin/gamemarket-backend/internal/repository"
	"github.com/ignatzorin/gamemarket-backend/internal/service"
)

// ListingHandler предоставляет HTTP слой для объявлений.
type ListingHandler struct {
	listings *service.ListingService
}

// NewListingHandler создаёт хэндлер.
func NewListingHandler(listings *service.ListingService) *ListingHandler {
	return &ListingHandler{listings: listings}
}

// Create обрабатывает POST /listings.
func (h *ListingHandler) Create(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	var req dto.CreateListingRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var description *string
	if req.Description != "" {
		description = &req.Description
	}

	listing, err := h.listings.Create(c.Request.Context(), actor, service.CreateListingInput{
		Kind:        models.ListingKind(req.Kind),
		Title:       req.Title,
		Description: description,
		Price:       req.Price,
		Stock:       req.Stock,
		Rate:        req.Rate,
		Amount:      req.Amount,
	})
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, listing)
}

// Get обрабатывает GET /listings/:kind/:id. Счётчик просмотров
// увеличивается внутри сервиса.
func (h *ListingHandler) Get(c *gin.Context) {
	ref, err := common.ParseListingRef(c)
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	listing, err := h.listings.Get(c.Request.Context(), ref)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, listing)
}

// List обрабатывает GET /listings/:kind.
func (h *ListingHandler) List(c *gin.Context) {
	kind := models.ListingKind(c.Param("kind"))
	if !kind.Valid() {
		common.RespondBadRequest(c, "неизвестный вид объявления")
		return
	}

	limit, offset := common.GetPagination(c)
	params := repository.ListFilterParams{
		Kind:   kind,
		Status: c.Query("status"),
		Limit:  limit,
		Offset: offset,
	}
	if raw := c.Query("seller_id"); raw != "" {
		sellerID, err := uuid.Parse(raw)
		if err != nil {
			common.RespondBadRequest(c, "seller_id должен быть валидным UUID")
			return
		}
		params.SellerID = &sellerID
	}

	listings, err := h.listings.List(c.Request.Context(), params)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"listings": listings, "limit": limit, "offset": offset})
}

// SetStatus обрабатывает PATCH /listings/:kind/:id/status.
func (h *ListingHandler) SetStatus(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	ref, err := common.ParseListingRef(c)
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.UpdateListingStatusRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.listings.SetStatus(c.Request.Context(), actor, ref, req.Status); err != nil {
		common.Fail(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "статус обновлён", nil)
}

// Delete обрабатывает DELETE /listings/:kind/:id. Мягкое удаление с
// каскадом: диалоги закрываются, незавершённые сделки отменяются.
func (h *ListingHandler) Delete(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	ref, err := common.ParseListingRef(c)
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.listings.SoftDelete(c.Request.Context(), actor, ref); err != nil {
		common.Fail(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "объявление удалено", nil)
}
