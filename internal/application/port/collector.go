package port

import (
	"context"

	"github.com/dreschagin/node-health-monitor/internal/domain/health"
)

// Collector определяет интерфейс сбора данных о здоровье одного узла (Port)
// Реализации в Infrastructure слое: локальный сбор и сбор по SSH.
//
// Collect никогда не паникует: любой сбой превращается либо в ошибку,
// либо в UNREACHABLE-снимок. Оркестратор обрабатывает оба варианта одинаково.
type Collector interface {
	// Collect собирает полный снимок здоровья узла
	Collect(ctx context.Context) (*health.NodeHealth, error)

	// CheckService проверяет, запущен ли сервис; возвращает PID если известен
	CheckService(ctx context.Context, name string) (running bool, pid int, err error)

	// ExecuteCommand выполняет команду на узле
	ExecuteCommand(ctx context.Context, command string) (exitCode int, stdout, stderr string, err error)
}
