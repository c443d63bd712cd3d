package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/gamemarket-backend/internal/models"
	"github.com/ignatzorin/gamemarket-backend/internal/service"
)

// Context ключи для gin.Context.
const (
	ContextActorKey = "actor"
)

// AuthMiddleware проверяет JWT access токен и кладёт актора в контекст.
func AuthMiddleware(tokens *service.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "требуется авторизация"})
			return
		}

		raw := strings.TrimPrefix(auth, "Bearer ")
		actor, err := tokens.ParseAccess(raw)
		if err != nil || actor.ID == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "токен невалиден"})
			return
		}

		c.Set(ContextActorKey, actor)
		c.Next()
	}
}

// AdminOnly пропускает только модераторов. Вешается после AuthMiddleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, exists := c.Get(ContextActorKey)
		actor, ok := raw.(models.Actor)
		if !exists || !ok || !actor.IsModerator() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "недостаточно прав"})
			return
		}
		c.Next()
	}
}
