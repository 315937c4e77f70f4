package session

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clipscribe/internal/models"
)

const recordContextKey = "session_record"

// RequirePage gates page routes: without a valid session the browser is
// redirected to the sign-in page. The check is read-only.
func (m *Manager) RequirePage(signinPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, ok := m.Current(c)
		if !ok {
			c.Redirect(http.StatusFound, signinPath)
			c.Abort()
			return
		}
		c.Set(recordContextKey, rec)
		c.Next()
	}
}

// RequireAPI gates JSON routes: without a valid session the request is
// rejected with 401 and no detail about internal state.
func (m *Manager) RequireAPI() gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, ok := m.Current(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Set(recordContextKey, rec)
		c.Next()
	}
}

// RecordFromContext retrieves the session record stored by the gate.
func RecordFromContext(c *gin.Context) (*models.SessionRecord, bool) {
	val, ok := c.Get(recordContextKey)
	if !ok {
		return nil, false
	}
	rec, ok := val.(*models.SessionRecord)
	return rec, ok
}
