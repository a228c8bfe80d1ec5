package websocket

import (
	"sync"

	"github.com/dreschagin/node-health-monitor/internal/application/dto"
	"github.com/dreschagin/node-health-monitor/pkg/logger"
)

// Hub управляет WebSocket клиентами и рассылает снимки кластера
// Реализует интерфейс port.BroadcastService
type Hub struct {
	// Зарегистрированные клиенты
	clients map[*Client]bool

	// Канал для broadcast снимков кластера
	broadcast chan *dto.ClusterHealthDTO

	// Канал для broadcast алертов
	broadcastAlert chan *dto.AlertDTO

	// Каналы регистрации/удаления клиентов
	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	logger *logger.Logger
}

// NewHub создает новый WebSocket hub
func NewHub(logger *logger.Logger) *Hub {
	return &Hub{
		clients:        make(map[*Client]bool),
		broadcast:      make(chan *dto.ClusterHealthDTO, 256),
		broadcastAlert: make(chan *dto.AlertDTO, 256),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		logger:         logger,
	}
}

// Run запускает hub (должен быть запущен в отдельной goroutine)
func (h *Hub) Run() {
	h.logger.Info("WebSocket hub started")

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("Client registered", "total_clients", h.ClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("Client unregistered", "total_clients", h.ClientCount())

		case snapshot := <-h.broadcast:
			h.fanOut(Message{Type: "snapshot", Data: snapshot})

		case alert := <-h.broadcastAlert:
			h.fanOut(Message{Type: "alert", Data: alert})
		}
	}
}

// fanOut доставляет сообщение всем клиентам.
// Клиент с заполненным каналом отключается, чтобы не тормозить остальных.
func (h *Hub) fanOut(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			close(client.send)
			delete(h.clients, client)
			h.logger.Warn("Client channel full, disconnected")
		}
	}
}

// Register регистрирует нового клиента
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister удаляет клиента
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Broadcast отправляет снимок кластера всем клиентам
func (h *Hub) Broadcast(snapshot *dto.ClusterHealthDTO) {
	select {
	case h.broadcast <- snapshot:
	default:
		h.logger.Warn("Broadcast channel full, dropping snapshot")
	}
}

// BroadcastAlert отправляет алерт всем клиентам
func (h *Hub) BroadcastAlert(alert *dto.AlertDTO) {
	select {
	case h.broadcastAlert <- alert:
	default:
		h.logger.Warn("Broadcast alert channel full, dropping alert")
	}
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Message представляет сообщение для отправки клиенту
type Message struct {
	Type string      `json:"type"` // "snapshot" или "alert"
	Data interface{} `json:"data"`
}
