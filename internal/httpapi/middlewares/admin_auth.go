package middlewares

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/benediktbwimmer/tagging-service/internal/adminauth"
	"github.com/gin-gonic/gin"
)

// RequireAdminToken gates the manual-trigger/retry admin routes behind a
// shared operator credential: either the static ADMIN_TOKEN bearer value,
// or — when jwtManager is non-nil — a signed operator JWT. The JWT path is
// optional precisely because the read API already implies a bearer check;
// this only adds a second, richer way to present one, never a requirement
// to use it.
func RequireAdminToken(token string, jwtManager *adminauth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"code": "unauthorized", "message": "missing bearer token"},
			})
			return
		}
		supplied := strings.TrimPrefix(header, prefix)

		if jwtManager != nil {
			if _, err := jwtManager.Verify(supplied); err == nil {
				c.Set(string(CtxAdmin), true)
				c.Next()
				return
			}
		}

		if token != "" && subtle.ConstantTimeCompare([]byte(supplied), []byte(token)) == 1 {
			c.Set(string(CtxAdmin), true)
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{"code": "unauthorized", "message": "invalid bearer token"},
		})
	}
}
