package echoapi

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/afyafund/afyafund/core"
	streamsvc "github.com/afyafund/afyafund/services/stream"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type streamApi struct {
	hub    *streamsvc.Hub
	logger core.Logger
}

func registerStreamAPI(g *echo.Group, hub *streamsvc.Hub, logger core.Logger) {
	api := streamApi{
		hub:    hub,
		logger: logger,
	}
	g.GET("/causes/:id/stream", api.stream)
}

// stream upgrades the connection and subscribes the watcher to live donation
// alerts for the cause.
func (api *streamApi) stream(ctx echo.Context) error {
	conn, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return errors.Wrap(err, "upgrading connection")
	}

	client := api.hub.NewClient(conn, ctx.Param("id"))
	api.hub.Register(client)

	go api.writePump(client)
	go api.readPump(client)
	return nil
}

func (api *streamApi) writePump(client *streamsvc.Client) {
	defer client.Conn.Close()

	for message := range client.Send {
		if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func (api *streamApi) readPump(client *streamsvc.Client) {
	defer func() {
		api.hub.Unregister(client)
		client.Conn.Close()
	}()

	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				api.logger.Warn(fmt.Sprintf("watcher connection dropped: %v", err))
			}
			break
		}
	}
}
