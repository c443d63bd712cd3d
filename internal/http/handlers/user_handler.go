package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/gamemarket-backend/internal/dto"
	"github.com/ignatzorin/gamemarket-backend/internal/http/handlers/common"
	"github.com/ignatzorin/gamemarket-backend/internal/service"
)

// UserHandler предоставляет HTTP слой для профилей и поручительств.
type UserHandler struct {
	users *service.UserService
}

// NewUserHandler создаёт хэндлер.
func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Get обрабатывает GET /users/:id.
func (h *UserHandler) Get(c *gin.Context) {
	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	user, err := h.users.Get(c.Request.Context(), userID)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// Me обрабатывает GET /profile.
func (h *UserHandler) Me(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	user, err := h.users.Get(c.Request.Context(), actor.ID)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// Trust обрабатывает GET /admin/users/:id/trust. Отдаёт полную
// риск-сводку по пользователю.
func (h *UserHandler) Trust(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	trust, err := h.users.Trust(c.Request.Context(), actor, userID)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, trust)
}

// Vouch обрабатывает POST /users/:id/vouch.
func (h *UserHandler) Vouch(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.VouchRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var comment *string
	if req.Comment != "" {
		comment = &req.Comment
	}

	vouch, err := h.users.Vouch(c.Request.Context(), actor, userID, nil, comment)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, vouch)
}

// Vouches обрабатывает GET /users/:id/vouches.
func (h *UserHandler) Vouches(c *gin.Context) {
	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	vouches, err := h.users.Vouches(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"vouches": vouches, "limit": limit, "offset": offset})
}

// SetBanned обрабатывает POST /admin/users/:id/ban.
func (h *UserHandler) SetBanned(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.SetBannedRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.users.SetBanned(c.Request.Context(), actor, userID, req.Banned, req.Reason); err != nil {
		common.Fail(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "статус блокировки обновлён", nil)
}

// SetVerified обрабатывает POST /admin/users/:id/verify.
func (h *UserHandler) SetVerified(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.SetVerifiedRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.users.SetVerified(c.Request.Context(), actor, userID, req.Verified); err != nil {
		common.Fail(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "статус верификации обновлён", nil)
}

// SetTier обрабатывает POST /admin/users/:id/tier.
func (h *UserHandler) SetTier(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.SetTierRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.users.SetTier(c.Request.Context(), actor, userID, req.Tier); err != nil {
		common.Fail(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "тариф обновлён", nil)
}
