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

// AdminHandler предоставляет HTTP слой для настроек и журнала действий.
type AdminHandler struct {
	settings *service.SettingsService
	audit    *repository.AuditRepository
}

// NewAdminHandler создаёт хэндлер.
func NewAdminHandler(settings *service.SettingsService, audit *repository.AuditRepository) *AdminHandler {
	return &AdminHandler{settings: settings, audit: audit}
}

// GetSettings обрабатывает GET /admin/settings.
func (h *AdminHandler) GetSettings(c *gin.Context) {
	values, err := h.settings.All(c.Request.Context())
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"settings": values})
}

// UpdateSetting обрабатывает PUT /admin/settings/:key.
func (h *AdminHandler) UpdateSetting(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	key := c.Param("key")
	if key == "" {
		common.RespondBadRequest(c, "параметр key обязателен")
		return
	}

	var req dto.UpdateSettingRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.settings.Update(c.Request.Context(), actor, key, req.Value); err != nil {
		common.Fail(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "настройка обновлена", nil)
}

// ListAudit обрабатывает GET /admin/audit.
func (h *AdminHandler) ListAudit(c *gin.Context) {
	limit, offset := common.GetPagination(c)

	var (
		entries []models.AuditEntry
		err     error
	)
	if targetType := c.Query("target_type"); targetType != "" {
		targetID, parseErr := uuid.Parse(c.Query("target_id"))
		if parseErr != nil {
			common.RespondBadRequest(c, "target_id должен быть валидным UUID")
			return
		}
		entries, err = h.audit.ListByTarget(c.Request.Context(), targetType, targetID, limit, offset)
	} else {
		entries, err = h.audit.List(c.Request.Context(), limit, offset)
	}
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries, "limit": limit, "offset": offset})
}
