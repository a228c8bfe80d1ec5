package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/dreschagin/node-health-monitor/internal/application/dto"
	"github.com/dreschagin/node-health-monitor/internal/application/usecase"
	wsInfra "github.com/dreschagin/node-health-monitor/internal/infrastructure/notification/websocket"
	"github.com/dreschagin/node-health-monitor/internal/interfaces/http/middleware"
	"github.com/dreschagin/node-health-monitor/pkg/logger"
)

// WebSocketHandler подключает подписчиков к live-рассылке снимков.
// Новый клиент сразу получает последний снимок кластера, не дожидаясь
// следующего прохода проверки.
type WebSocketHandler struct {
	hub      *wsInfra.Hub
	checkUC  *usecase.CheckClusterUseCase
	origins  map[string]struct{}
	auth     middleware.AuthConfig
	logger   *logger.Logger
	upgrader websocket.Upgrader
}

// NewWebSocketHandler создает handler. checkUC может быть nil —
// тогда новые клиенты ждут первого снимка из рассылки.
func NewWebSocketHandler(
	hub *wsInfra.Hub,
	checkUC *usecase.CheckClusterUseCase,
	allowedOrigins []string,
	auth middleware.AuthConfig,
	log *logger.Logger,
) *WebSocketHandler {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins[trimmed] = struct{}{}
		}
	}

	h := &WebSocketHandler{
		hub:     hub,
		checkUC: checkUC,
		origins: origins,
		auth:    auth,
		logger:  log,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}

	return h
}

// checkOrigin пропускает запросы без Origin (не-браузерные клиенты:
// curl, скрипты мониторинга) и браузерные запросы из разрешенных origins.
func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}

	if _, ok := h.origins["*"]; ok {
		return true
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}

	_, ok := h.origins[parsed.Scheme+"://"+parsed.Host]
	return ok
}

// HandleConnection аутентифицирует запрос, делает upgrade и регистрирует
// клиента в hub.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	if err := middleware.ValidateRequestAuth(r, h.auth); err != nil {
		h.logger.Warn("WebSocket unauthorized",
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)
		middleware.WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", err)
		return
	}

	client := wsInfra.NewClient(h.hub, conn, h.logger)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	if h.checkUC != nil {
		if cluster, ok := h.checkUC.LastSnapshot(); ok {
			client.Enqueue(wsInfra.Message{
				Type: "snapshot",
				Data: dto.FromClusterHealth(cluster),
			})
		}
	}

	h.logger.Debug("WebSocket client connected",
		"remote_addr", r.RemoteAddr,
		"total_clients", h.hub.ClientCount(),
	)
}
