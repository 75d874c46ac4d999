package controllers

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/moyoez/mosaic/api/middlewares"
	"github.com/moyoez/mosaic/api/models"
	"github.com/moyoez/mosaic/tool"
)

// same-origin only, the page opens the socket itself
var notifyWSUpgrader = websocket.Upgrader{}

// HandleNotifyWS upgrades the request to WebSocket and registers the connection with
// the session's hub. The current previews are sent right after the upgrade.
// GET /api/mosaic/v1/notify-ws
func HandleNotifyWS(c *gin.Context) {
	s := middlewares.CurrentSession(c)
	if s == nil {
		c.JSON(http.StatusInternalServerError, tool.FastReturnError("No session"))
		return
	}
	conn, err := notifyWSUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		tool.DefaultLogger.Debugf("[Notify] Upgrade failed for %s: %v", s.ID, err)
		return
	}
	defer func() {
		// the session closes its sockets itself when it expires
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			tool.DefaultLogger.Errorf("Failed to close WebSocket connection: %v", err)
		}
	}()

	s.Hub.Register(conn)
	defer s.Hub.Unregister(conn)

	if err := s.Hub.Send(conn, models.PreviewNotification(s.State())); err != nil {
		tool.DefaultLogger.Debugf("[Notify] Failed to send snapshot to %s: %v", s.ID, err)
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go s.KeepAlive(ctx, conn)

	// Read loop to detect client close and answer pings
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
