package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const identityKey = "auth.identity"

// RequireIdentity exige uma identidade válida, respondendo 401 caso contrário
func RequireIdentity(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := v.Verify(c.Request.Context(), c.Request)
		if err != nil {
			if !errors.Is(err, ErrUnauthenticated) {
				log.WithError(err).Warn("⚠️ [AUTH] session verification failed")
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		SetIdentity(c, id)
		c.Next()
	}
}

// RequireRole exige que a identidade tenha um dos papéis informados (403)
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := FromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		for _, role := range roles {
			if id.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
	}
}

// SetIdentity guarda a identidade no contexto do gin
func SetIdentity(c *gin.Context, id *Identity) {
	c.Set(identityKey, id)
}

// FromContext devolve a identidade guardada por RequireIdentity
func FromContext(c *gin.Context) (*Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	id, ok := v.(*Identity)
	return id, ok && id != nil
}
