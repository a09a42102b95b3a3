package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"support-chat/internal/domain"
	"support-chat/internal/service"
)

const identityKey = "auth_identity"

// AuthMiddleware verifica la credencial del header Authorization y deja la
// identidad en el contexto de la request.
func AuthMiddleware(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		var credential string
		if strings.HasPrefix(strings.ToLower(header), "bearer ") {
			credential = strings.TrimSpace(header[len("Bearer "):])
		}

		identity, err := auth.Verify(c.Request.Context(), credential)
		if err != nil {
			status := http.StatusUnauthorized
			if errors.Is(err, service.ErrAuthenticationTimeout) {
				status = http.StatusGatewayTimeout
			}
			c.JSON(status, gin.H{"error": service.ErrorKind(err)})
			c.Abort()
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// GetIdentity obtiene la identidad verificada desde el contexto.
func GetIdentity(c *gin.Context) (domain.Identity, bool) {
	val, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	identity, ok := val.(domain.Identity)
	return identity, ok
}
