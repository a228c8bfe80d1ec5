package port

import "github.com/dreschagin/node-health-monitor/internal/application/dto"

// BroadcastService определяет интерфейс push-рассылки результатов (Port)
// Реализация — WebSocket Hub в Infrastructure слое.
type BroadcastService interface {
	// Broadcast отправляет снимок кластера всем подключенным клиентам
	Broadcast(snapshot *dto.ClusterHealthDTO)

	// BroadcastAlert отправляет алерт всем подключенным клиентам
	BroadcastAlert(alert *dto.AlertDTO)

	// ClientCount возвращает число подключенных клиентов
	ClientCount() int
}
