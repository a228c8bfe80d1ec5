package port

import (
	"context"

	"github.com/dreschagin/node-health-monitor/internal/domain/health"
)

// MetricsExporter выгружает агрегаты прохода во внешнюю систему метрик (Port)
// Реализация — CloudWatch publisher в Infrastructure слое.
type MetricsExporter interface {
	// ExportClusterHealth публикует per-node и кластерные gauge-метрики
	ExportClusterHealth(ctx context.Context, cluster *health.ClusterHealth) error
}
