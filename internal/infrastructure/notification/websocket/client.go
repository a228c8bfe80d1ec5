package websocket

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/dreschagin/node-health-monitor/pkg/logger"
)

const (
	// Дедлайн на одну write операцию
	writeWait = 10 * time.Second

	// Время ожидания pong; ping уходит заметно раньше истечения
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	// Клиент ничего содержательного не шлет, только pong
	maxMessageSize = 512

	sendBufferSize = 256
)

// Client держит одно WebSocket соединение подписчика дашборда.
// Жизненный цикл: Register в hub, затем ReadPump/WritePump в двух
// goroutines; закрытие любой из них разрывает соединение целиком.
type Client struct {
	conn   *websocket.Conn
	hub    *Hub
	send   chan Message
	logger *logger.Logger
}

// NewClient создает клиента поверх установленного соединения.
func NewClient(hub *Hub, conn *websocket.Conn, logger *logger.Logger) *Client {
	return &Client{
		conn:   conn,
		hub:    hub,
		send:   make(chan Message, sendBufferSize),
		logger: logger,
	}
}

// Enqueue ставит сообщение в очередь отправки клиенту.
// Возвращает false, если буфер заполнен; сообщение при этом теряется.
func (c *Client) Enqueue(message Message) bool {
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// ReadPump вычитывает входящий трафик ради keepalive и обнаружения
// разрыва; содержимое сообщений игнорируется.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("WebSocket set read deadline error", err)
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket read error", err)
			}
			return
		}
	}
}

// WritePump сериализует отправку: сообщения из send-канала и
// периодические ping. Единственный писатель в соединение.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Hub отключил клиента
				c.write(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.writeJSON(message); err != nil {
				c.logger.Error("WebSocket write error", err)
				return
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) write(messageType int, payload []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, payload)
}

func (c *Client) writeJSON(message Message) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(message)
}
