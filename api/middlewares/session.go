package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/mosaic/api/models"
	"github.com/moyoez/mosaic/tool"
)

const (
	SessionCookie = "mosaic_session"
	sessionKey    = "mosaic.session"
)

// Session attaches the caller's session, creating one when the request carries
// no valid id. Non-browser clients may pass the id as ?session=.
func Session(c *gin.Context) {
	id := c.Query("session")
	if !tool.IsValidSessionID(id) {
		id, _ = c.Cookie(SessionCookie)
	}
	if !tool.IsValidSessionID(id) {
		id = tool.GenerateRandomUUID()
	}

	maxAge := int(tool.SessionTTLDuration(tool.GetCurrentConfig()).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, id, maxAge, "/", "", c.Request.TLS != nil, true)
	c.Set(sessionKey, models.GetOrCreateSession(id))
	c.Next()
}

// CurrentSession returns the session attached by Session.
func CurrentSession(c *gin.Context) *models.Session {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(*models.Session); ok {
			return s
		}
	}
	return nil
}
