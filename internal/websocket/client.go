package websocket

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"bitcharge/pkg/utils"
)

const (
	// Время ожидания записи сообщения
	writeWait = 10 * time.Second

	// Время ожидания между pong сообщениями
	pongWait = 60 * time.Second

	// Интервал отправки ping сообщений (должен быть меньше pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Клиенты ничего не присылают, кроме control frames
	maxMessageSize = 4096

	// Размер буфера отправки клиента
	clientSendBufferSize = 64
)

// OriginChecker проверяет Origin с O(1) lookup через map
// Потокобезопасен для чтения после инициализации
type OriginChecker struct {
	allowedOrigins map[string]struct{}
	allowAll       bool
}

// NewOriginChecker создаёт проверку; пустой список или "*" разрешает всё
func NewOriginChecker(origins []string) *OriginChecker {
	checker := &OriginChecker{allowedOrigins: make(map[string]struct{})}
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			checker.allowAll = true
		}
		if origin != "" {
			checker.allowedOrigins[origin] = struct{}{}
		}
	}
	if len(checker.allowedOrigins) == 0 {
		checker.allowAll = true
	}
	return checker
}

// Check проверяет origin за O(1)
func (oc *OriginChecker) Check(origin string) bool {
	if origin == "" {
		return true // не браузерные клиенты (curl, API tools)
	}
	if oc.allowAll {
		return true
	}
	_, ok := oc.allowedOrigins[origin]
	return ok
}

// Client - одно WebSocket соединение
//
// У каждого клиента две горутины: readPump обслуживает pong и
// закрытие соединения, writePump пишет сообщения и ping.
type Client struct {
	conn *websocket.Conn
	hub  *Hub
	send chan []byte
}

// readPump читает control frames до разрыва соединения
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("WebSocket read error", utils.Err(err))
			}
			return
		}
	}
}

// writePump отправляет сообщения клиенту; одно сообщение - один frame
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub закрыл канал
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWS апгрейдит HTTP соединение и регистрирует клиента
//
// Использование в routes:
// router.HandleFunc("/ws/stream", hub.ServeWS)
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return h.origins.Check(r.Header.Get("Origin"))
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", utils.Err(err))
		return
	}

	client := &Client{
		conn: conn,
		hub:  h,
		send: make(chan []byte, clientSendBufferSize),
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
