package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"LTPCoach/internal/stream"
	xlogger "LTPCoach/pkg/logger"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// StreamWSHandler bridges the in-process dispatcher to WebSocket clients.
// Each connection holds one dispatcher subscription; a client narrows or
// widens its symbol set with subscribe frames and the handler swaps the
// subscription underneath.
type StreamWSHandler struct {
	logger   *xlogger.Logger
	dispatch *stream.Dispatcher
	upgrader websocket.Upgrader
}

func NewStreamWSHandler(logger *xlogger.Logger, dispatch *stream.Dispatcher) *StreamWSHandler {
	return &StreamWSHandler{
		logger:   logger,
		dispatch: dispatch,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *StreamWSHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/stream", h.Stream)
}

// wsClientFrame is what clients send: subscribe replaces the symbol filter.
type wsClientFrame struct {
	Action  string   `json:"action"`
	Symbols []string `json:"symbols"`
}

// Stream upgrades the connection and pumps dispatcher events until the
// client goes away. The initial filter comes from the symbols query param.
func (h *StreamWSHandler) Stream(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", xlogger.Error(err))
		return nil // upgrader already wrote the HTTP error
	}

	var symbols []string
	if q := c.QueryParam("symbols"); q != "" {
		symbols = strings.Split(q, ",")
	}

	resub := make(chan []string, 1)
	done := make(chan struct{})
	go h.readPump(conn, resub, done)
	h.writePump(conn, symbols, resub, done)
	return nil
}

// readPump drains client frames. Only subscribe is meaningful; everything
// else keeps the connection's read deadline fresh.
func (h *StreamWSHandler) readPump(conn *websocket.Conn, resub chan<- []string, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		var frame wsClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		if frame.Action == "subscribe" {
			select {
			case resub <- frame.Symbols:
			default: // a pending swap supersedes this one anyway
			}
		}
	}
}

func (h *StreamWSHandler) writePump(conn *websocket.Conn, symbols []string, resub <-chan []string, done <-chan struct{}) {
	sub := h.dispatch.Subscribe(symbols)
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		h.dispatch.Unsubscribe(sub)
		_ = conn.Close()
	}()

	for {
		select {
		case <-done:
			return
		case next := <-resub:
			h.dispatch.Unsubscribe(sub)
			sub = h.dispatch.Subscribe(next)
		case ev, ok := <-sub.Events():
			if !ok {
				// dispatcher shut down
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(wsWriteWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
