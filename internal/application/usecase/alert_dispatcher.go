package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/dreschagin/node-health-monitor/internal/application/port"
	"github.com/dreschagin/node-health-monitor/internal/domain/health"
	"github.com/dreschagin/node-health-monitor/pkg/logger"
	"github.com/dreschagin/node-health-monitor/pkg/metrics"
)

// AlertDispatcher рассылает алерты узла по всем нотификаторам
// с подавлением повторов через CooldownStore.
//
// Ключ подавления — имя узла плюс точный текст алерта, поэтому изменение
// значения метрики в тексте (например, 91.2% -> 93.5%) дает новый ключ
// и алерт уходит сразу, без ожидания окна.
type AlertDispatcher struct {
	cooldown  port.CooldownStore
	notifiers []port.Notifier
	window    time.Duration
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

// NewAlertDispatcher создает диспетчер алертов
func NewAlertDispatcher(
	cooldown port.CooldownStore,
	notifiers []port.Notifier,
	window time.Duration,
	log *logger.Logger,
	m *metrics.Metrics,
) *AlertDispatcher {
	return &AlertDispatcher{
		cooldown:  cooldown,
		notifiers: notifiers,
		window:    window,
		logger:    log,
		metrics:   m,
	}
}

// DispatchNode отправляет все алерты узла, возвращает число реально отправленных.
// Ошибка одного нотификатора не блокирует остальные.
func (d *AlertDispatcher) DispatchNode(ctx context.Context, node *health.NodeHealth) int {
	sent := 0
	for _, message := range node.Alerts() {
		key := cooldownKey(node.Name, message)

		acquired, err := d.cooldown.Acquire(ctx, key, d.window)
		if err != nil {
			// Хранилище недоступно — отправляем без подавления:
			// дубликат алерта лучше, чем потерянный.
			d.logger.Warn("cooldown store unavailable, sending without suppression",
				"node", node.Name, "error", err)
			acquired = true
		}
		if !acquired {
			d.logger.Debug("alert suppressed by cooldown", "node", node.Name, "alert", message)
			if d.metrics != nil {
				d.metrics.AlertsSuppressed.Inc()
			}
			continue
		}

		d.deliver(ctx, node, message)
		sent++
	}
	return sent
}

// DispatchRecovery отправляет уведомление о восстановлении узла.
// Подавление не применяется: переход в healthy происходит один раз.
func (d *AlertDispatcher) DispatchRecovery(ctx context.Context, node *health.NodeHealth) {
	message := fmt.Sprintf("RECOVERED: Node '%s' is healthy again", node.Name)
	for _, notifier := range d.notifiers {
		if err := notifier.SendRecovery(ctx, node.Name, message); err != nil {
			d.logger.Error("recovery notification failed", err,
				"node", node.Name, "notifier", notifier.Name())
			if d.metrics != nil {
				d.metrics.NotifierFailures.WithLabelValues(notifier.Name()).Inc()
			}
		}
	}
}

func (d *AlertDispatcher) deliver(ctx context.Context, node *health.NodeHealth, message string) {
	for _, notifier := range d.notifiers {
		if err := notifier.SendAlert(ctx, node.Name, message, node); err != nil {
			d.logger.Error("alert delivery failed", err,
				"node", node.Name, "notifier", notifier.Name(), "alert", message)
			if d.metrics != nil {
				d.metrics.NotifierFailures.WithLabelValues(notifier.Name()).Inc()
			}
			continue
		}
		if d.metrics != nil {
			d.metrics.AlertsSent.WithLabelValues(notifier.Name()).Inc()
		}
	}
}

func cooldownKey(nodeName, message string) string {
	return nodeName + ":" + message
}
