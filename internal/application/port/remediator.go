package port

import (
	"context"

	"github.com/dreschagin/node-health-monitor/internal/domain/health"
	"github.com/dreschagin/node-health-monitor/internal/domain/remediation"
)

// RemediationExecutor запускает скрипты восстановления (Port)
// Решение о том, КАКИЕ действия нужны, принимает доменный слой (remediation.Decide),
// реализация отвечает только за запуск.
type RemediationExecutor interface {
	Execute(ctx context.Context, node *health.NodeHealth, action remediation.Action) error
}
