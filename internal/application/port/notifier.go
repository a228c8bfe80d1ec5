package port

import (
	"context"

	"github.com/dreschagin/node-health-monitor/internal/domain/health"
)

// Notifier определяет интерфейс доставки алертов во внешний канал (Port)
// Реализации: Slack, Telegram, generic webhook, NATS.
//
// Сбой доставки сообщается только через error; реализации не паникуют.
type Notifier interface {
	// Name возвращает имя канала для логов и метрик
	Name() string

	// SendAlert доставляет алерт с полным снимком узла для контекста
	SendAlert(ctx context.Context, nodeName, message string, node *health.NodeHealth) error

	// SendRecovery доставляет уведомление о восстановлении узла
	SendRecovery(ctx context.Context, nodeName, message string) error
}
