package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Skufu/PulseNet/internal/auth"
)

const (
	sessionCookie = "pulsenet_session"
	sessionKey    = "session"
)

// currentSession resolves the session cookie once per request.
func (h *handler) currentSession(c *gin.Context) *auth.Session {
	if v, ok := c.Get(sessionKey); ok {
		s, _ := v.(*auth.Session)
		return s
	}
	token, err := c.Cookie(sessionCookie)
	var s *auth.Session
	if err == nil {
		s = h.deps.Gate.Session(token)
	}
	c.Set(sessionKey, s)
	return s
}

func (h *handler) requireSession(c *gin.Context) {
	if h.currentSession(c) == nil {
		c.Redirect(http.StatusFound, "/auth")
		c.Abort()
		return
	}
	c.Next()
}

func (h *handler) setSessionCookie(c *gin.Context, s *auth.Session) {
	maxAge := 0
	if !s.ExpiresAt.IsZero() {
		maxAge = int(time.Until(s.ExpiresAt).Seconds())
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, s.AccessToken, maxAge, "/", "", h.deps.CookieSecure, true)
}

func (h *handler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, "", -1, "/", "", h.deps.CookieSecure, true)
}
