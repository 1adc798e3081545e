package middleware

import (
	"net/http"
	"strings"

	"github.com/01moynul/qr-inventory/internal/apperr"
	"github.com/01moynul/qr-inventory/internal/auth"
	"github.com/gin-gonic/gin"
)

// SessionKey is where the restored *auth.Session is stored on the context.
const SessionKey = "session"

// AuthMiddleware requires a valid bearer token and restores the session it
// names. Requests without a usable session never reach the handlers.
func AuthMiddleware(tokens *auth.TokenIssuer, sessions *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. --- Get Authorization Header ---
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			unauthorized(c, "Invalid token format (must be Bearer)")
			return
		}

		// 2. --- Validate Token ---
		sessionID, err := tokens.ValidateToken(parts[1])
		if err != nil {
			unauthorized(c, "Invalid or expired token")
			return
		}

		// 3. --- Restore Session ---
		sess, err := sessions.Restore(c.Request.Context(), sessionID)
		if err != nil {
			c.AbortWithStatusJSON(apperr.HTTPStatus(err), apperr.Response(err))
			return
		}

		c.Set(SessionKey, sess)
		c.Next()
	}
}

// CurrentSession returns the session set by AuthMiddleware.
func CurrentSession(c *gin.Context) (*auth.Session, bool) {
	v, ok := c.Get(SessionKey)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*auth.Session)
	return sess, ok && sess != nil
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, apperr.Response(apperr.RemoteUnavailable(message)))
}
