package delivery

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const realm = `Basic realm="crm", charset="UTF-8"`

// AccessMiddleware guards the app with HTTP basic auth against a bcrypt hash.
// Any user name is accepted; only the password is checked. An empty hash
// disables the guard. Paths in open are served without credentials.
func AccessMiddleware(passwordHash string, open ...string) gin.HandlerFunc {
	hash := []byte(strings.TrimSpace(passwordHash))
	skip := make(map[string]bool, len(open))
	for _, p := range open {
		skip[p] = true
	}

	return func(c *gin.Context) {
		if len(hash) == 0 || skip[c.Request.URL.Path] || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		_, password, ok := c.Request.BasicAuth()
		if !ok || bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
			c.Header("WWW-Authenticate", realm)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "UNAUTHORIZED",
				"message": "valid credentials required",
			})
			return
		}

		c.Next()
	}
}
