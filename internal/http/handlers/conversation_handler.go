package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/gamemarket-backend/internal/http/handlers/common"
	"github.com/ignatzorin/gamemarket-backend/internal/models"
	"github.com/ignatzorin/gamemarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/gamemarket-backend/internal/repository"
	"github.com/ignatzorin/gamemarket-backend/internal/validation"
)

// ConversationHandler предоставляет HTTP слой для диалогов.
// Диалоги создаются ядром при открытии сделки, хэндлер только
// читает их и принимает сообщения.
type ConversationHandler struct {
	conversations *repository.ConversationRepository
}

// NewConversationHandler создаёт хэндлер.
func NewConversationHandler(conversations *repository.ConversationRepository) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

// ListMine обрабатывает GET /conversations.
func (h *ConversationHandler) ListMine(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	limit, offset := common.GetPagination(c)
	conversations, err := h.conversations.ListByUser(c.Request.Context(), actor.ID, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": conversations, "limit": limit, "offset": offset})
}

// ListMessages обрабатывает GET /conversations/:id/messages.
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	conversationID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	conversation, err := h.conversations.GetByID(c.Request.Context(), conversationID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	if conversation.BuyerID != actor.ID && conversation.SellerID != actor.ID && !actor.IsModerator() {
		common.Fail(c, apperror.ErrForbidden)
		return
	}

	limit, offset := common.GetPagination(c)
	messages, err := h.conversations.ListMessages(c.Request.Context(), conversationID, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages, "limit": limit, "offset": offset})
}

// SendMessage обрабатывает POST /conversations/:id/messages.
func (h *ConversationHandler) SendMessage(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	conversationID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	content := strings.TrimSpace(req.Content)
	if err := validation.ValidateLength(content, "сообщение", 1, validation.MaxMessageLength); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	conversation, err := h.conversations.GetByID(c.Request.Context(), conversationID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	if conversation.BuyerID != actor.ID && conversation.SellerID != actor.ID {
		common.Fail(c, apperror.ErrForbidden)
		return
	}
	if conversation.Status != models.ConversationStatusOpen {
		common.Fail(c, apperror.New(apperror.ErrCodeInvalidTransition, "диалог закрыт"))
		return
	}

	authorID := actor.ID
	message := &models.Message{
		ConversationID: conversationID,
		AuthorType:     models.MessageAuthorUser,
		AuthorID:       &authorID,
		Content:        content,
	}
	if err := h.conversations.AddMessage(c.Request.Context(), message); err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, message)
}
