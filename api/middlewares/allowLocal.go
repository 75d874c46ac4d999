package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/mosaic/tool"
)

// OnlyAllowLocal rejects callers that are not on the loopback interface.
func OnlyAllowLocal(c *gin.Context) {
	if c.ClientIP() == "127.0.0.1" || c.ClientIP() == "::1" {
		c.Next()
		return
	}
	c.AbortWithStatusJSON(http.StatusForbidden, tool.FastReturnError("Forbidden"))
}
