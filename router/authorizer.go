package router

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"wawebhook/controllers"

	"github.com/gin-gonic/gin"
)

// Authorizer blocks access when the bearer token is not the app token.
// An empty app token closes the routes.
func Authorizer(appToken string) gin.HandlerFunc {
	expected := []byte(strings.TrimSpace(appToken))
	return func(c *gin.Context) {
		token := controllers.BearerToken(c)
		if len(expected) == 0 || token == "" {
			controllers.RespondError(c, "unauthorized", http.StatusUnauthorized)
			c.Abort()
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), expected) != 1 {
			controllers.RespondError(c, "invalid token", http.StatusForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
