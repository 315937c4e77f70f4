package session

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"clipscribe/internal/models"
)

// Manager issues and resolves session cookies on top of a Store.
type Manager struct {
	store      Store
	cookieName string
	ttl        time.Duration
}

// NewManager builds a Manager over the provided store.
func NewManager(store Store, cookieName string, ttl time.Duration) *Manager {
	if cookieName == "" {
		cookieName = "clipscribe_session"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{store: store, cookieName: cookieName, ttl: ttl}
}

// CookieName returns the name of the session cookie.
func (m *Manager) CookieName() string { return m.cookieName }

// Issue creates a fresh session for the record and sets the cookie on the
// response. An existing session for the same browser is replaced.
func (m *Manager) Issue(c *gin.Context, rec models.SessionRecord) (string, error) {
	if old, err := c.Cookie(m.cookieName); err == nil && old != "" {
		_ = m.store.Delete(c.Request.Context(), old)
	}
	id := uuid.NewString()
	if err := m.store.Set(c.Request.Context(), id, rec); err != nil {
		return "", err
	}
	m.setCookie(c, id, int(m.ttl.Seconds()))
	return id, nil
}

// Clear removes the caller's session, if any, and expires the cookie.
// Clearing when no session exists still succeeds.
func (m *Manager) Clear(c *gin.Context) {
	if id, err := c.Cookie(m.cookieName); err == nil && id != "" {
		_ = m.store.Delete(c.Request.Context(), id)
	}
	m.setCookie(c, "", -1)
}

// Current resolves the caller's session record. It returns false when the
// cookie is absent, the store has no record, or the record is missing
// required fields.
func (m *Manager) Current(c *gin.Context) (*models.SessionRecord, bool) {
	id, err := c.Cookie(m.cookieName)
	if err != nil || id == "" {
		return nil, false
	}
	rec, err := m.store.Get(c.Request.Context(), id)
	if err != nil || !rec.Valid() {
		return nil, false
	}
	return rec, true
}

func (m *Manager) setCookie(c *gin.Context, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     m.cookieName,
		Value:    value,
		MaxAge:   maxAge,
		Path:     "/",
		Secure:   gin.Mode() == gin.ReleaseMode,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
