package usecase

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dreschagin/node-health-monitor/internal/application/dto"
	"github.com/dreschagin/node-health-monitor/internal/application/port"
	"github.com/dreschagin/node-health-monitor/internal/domain/health"
	"github.com/dreschagin/node-health-monitor/internal/domain/remediation"
	"github.com/dreschagin/node-health-monitor/pkg/config"
	"github.com/dreschagin/node-health-monitor/pkg/logger"
	"github.com/dreschagin/node-health-monitor/pkg/metrics"
)

// CollectorFactory создает коллектор для узла по его конфигурации.
// Возвращает ошибку для неверно сконфигурированных узлов (ни local, ни ssh) —
// проход превращает ее в синтетический UNREACHABLE снимок, не прерываясь.
type CollectorFactory func(node config.NodeConfig) (port.Collector, error)

// CheckClusterUseCase выполняет полный проход проверки кластера:
// сбор снимков всех включенных узлов, агрегация, рассылка алертов,
// запуск восстановления и публикация результата.
//
// Сбой любого узла изолирован: проход всегда возвращает снимок кластера.
type CheckClusterUseCase struct {
	fleet      *config.FleetConfig
	collectors CollectorFactory
	dispatcher *AlertDispatcher
	remediator port.RemediationExecutor
	broadcast  port.BroadcastService
	exporter   port.MetricsExporter
	logger     *logger.Logger
	metrics    *metrics.Metrics

	mu         sync.Mutex
	lastStatus map[string]health.HealthStatus
	lastCheck  *health.ClusterHealth
}

// NewCheckClusterUseCase создает use case проверки кластера.
// broadcast, exporter, remediator и metrics опциональны (nil допустим).
func NewCheckClusterUseCase(
	fleet *config.FleetConfig,
	collectors CollectorFactory,
	dispatcher *AlertDispatcher,
	remediator port.RemediationExecutor,
	broadcast port.BroadcastService,
	exporter port.MetricsExporter,
	log *logger.Logger,
	m *metrics.Metrics,
) *CheckClusterUseCase {
	return &CheckClusterUseCase{
		fleet:      fleet,
		collectors: collectors,
		dispatcher: dispatcher,
		remediator: remediator,
		broadcast:  broadcast,
		exporter:   exporter,
		logger:     log,
		metrics:    m,
		lastStatus: make(map[string]health.HealthStatus),
	}
}

// Execute выполняет один проход проверки всех включенных узлов.
// В параллельном режиме порядок узлов в снимке — порядок завершения проверок.
func (uc *CheckClusterUseCase) Execute(ctx context.Context) (*health.ClusterHealth, error) {
	start := time.Now()
	nodes := uc.fleet.EnabledNodes()

	uc.logger.Info("starting cluster check",
		"nodes", len(nodes), "parallel", uc.fleet.ParallelEnabled())

	var snapshots []*health.NodeHealth
	if uc.fleet.ParallelEnabled() {
		snapshots = uc.checkParallel(ctx, nodes)
	} else {
		snapshots = uc.checkSequential(ctx, nodes)
	}

	cluster := health.NewClusterHealth(snapshots)
	uc.handleResults(ctx, cluster)

	uc.mu.Lock()
	uc.lastCheck = cluster
	uc.mu.Unlock()

	duration := time.Since(start)
	if uc.metrics != nil {
		uc.metrics.ChecksTotal.WithLabelValues(cluster.Status().String()).Inc()
		uc.metrics.CheckDuration.Observe(duration.Seconds())
		uc.metrics.ObserveCluster(cluster.HealthyCount(), cluster.WarningCount(), cluster.CriticalCount())
	}

	uc.logger.Info("cluster check finished",
		"check_id", cluster.CheckID,
		"status", cluster.Status(),
		"healthy", cluster.HealthyCount(),
		"warning", cluster.WarningCount(),
		"critical", cluster.CriticalCount(),
		"duration", duration.Round(time.Millisecond))

	return cluster, nil
}

// LastSnapshot возвращает результат последнего прохода (для HTTP API).
func (uc *CheckClusterUseCase) LastSnapshot() (*health.ClusterHealth, bool) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.lastCheck, uc.lastCheck != nil
}

func (uc *CheckClusterUseCase) checkSequential(ctx context.Context, nodes []config.NodeConfig) []*health.NodeHealth {
	snapshots := make([]*health.NodeHealth, 0, len(nodes))
	for _, node := range nodes {
		snapshots = append(snapshots, uc.checkNode(ctx, node))
	}
	return snapshots
}

// checkParallel проверяет узлы пулом воркеров ограниченного размера.
func (uc *CheckClusterUseCase) checkParallel(ctx context.Context, nodes []config.NodeConfig) []*health.NodeHealth {
	workers := uc.fleet.MaxWorkers
	if workers > len(nodes) {
		workers = len(nodes)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan config.NodeConfig)
	results := make(chan *health.NodeHealth)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for node := range jobs {
				results <- uc.checkNode(ctx, node)
			}
		}()
	}

	go func() {
		for _, node := range nodes {
			jobs <- node
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	snapshots := make([]*health.NodeHealth, 0, len(nodes))
	for snapshot := range results {
		snapshots = append(snapshots, snapshot)
	}
	return snapshots
}

// checkNode собирает снимок одного узла. Никогда не возвращает nil:
// любая ошибка (конфигурация, соединение, таймаут, паника коллектора)
// превращается в UNREACHABLE снимок.
func (uc *CheckClusterUseCase) checkNode(ctx context.Context, node config.NodeConfig) (snapshot *health.NodeHealth) {
	defer func() {
		if r := recover(); r != nil {
			uc.logger.Error("collector panic", fmt.Errorf("%v", r), "node", node.Name)
			snapshot = uc.unreachable(node, fmt.Sprintf("collector panic: %v", r))
		}
	}()

	checkCtx, cancel := context.WithTimeout(ctx, uc.fleet.NodeCheckTimeout())
	defer cancel()

	collector, err := uc.collectors(node)
	if err != nil {
		uc.logger.Warn("collector setup failed", "node", node.Name, "error", err)
		return uc.unreachable(node, err.Error())
	}
	if closer, ok := collector.(io.Closer); ok {
		defer closer.Close()
	}

	snapshot, err = collector.Collect(checkCtx)
	if err != nil {
		uc.logger.Warn("node check failed", "node", node.Name, "error", err)
		return uc.unreachable(node, err.Error())
	}

	snapshot.Name = node.Name
	snapshot.Host = node.HostLabel()
	if snapshot.Platform == "" {
		snapshot.Platform = node.Platform
	}
	snapshot.Thresholds = uc.fleet.ResolveThresholds(node)

	for _, service := range node.Services {
		running, pid, err := collector.CheckService(checkCtx, service)
		if err != nil {
			uc.logger.Warn("service check failed",
				"node", node.Name, "service", service, "error", err)
			running = false
		}
		snapshot.Services = append(snapshot.Services, health.ServiceStatus{
			Name:    service,
			Running: running,
			PID:     pid,
		})
	}

	return snapshot
}

func (uc *CheckClusterUseCase) unreachable(node config.NodeConfig, reason string) *health.NodeHealth {
	snapshot := health.NewUnreachable(node.Name, node.HostLabel(), node.Platform, reason)
	snapshot.Thresholds = uc.fleet.ResolveThresholds(node)
	return snapshot
}

// handleResults рассылает алерты, уведомления о восстановлении,
// запускает восстановление и публикует снимок.
func (uc *CheckClusterUseCase) handleResults(ctx context.Context, cluster *health.ClusterHealth) {
	for _, node := range cluster.Nodes {
		status := node.Status()

		if uc.dispatcher != nil {
			if status != health.StatusHealthy {
				uc.dispatcher.DispatchNode(ctx, node)
			} else if uc.fleet.NotifyRecovery && uc.wasUnhealthy(node.Name) {
				uc.dispatcher.DispatchRecovery(ctx, node)
			}
		}

		// Алерты уходят подписчикам дашборда каждый проход, пока условие
		// держится: cooldown подавляет только внешние нотификаторы.
		if uc.broadcast != nil && status != health.StatusHealthy {
			for _, message := range node.Alerts() {
				uc.broadcast.BroadcastAlert(dto.NewAlertDTO(node, message))
			}
		}

		uc.runRemediation(ctx, node)

		uc.mu.Lock()
		uc.lastStatus[node.Name] = status
		uc.mu.Unlock()
	}

	if uc.broadcast != nil {
		uc.broadcast.Broadcast(dto.FromClusterHealth(cluster))
	}

	if uc.exporter != nil {
		if err := uc.exporter.ExportClusterHealth(ctx, cluster); err != nil {
			uc.logger.Error("metrics export failed", err, "check_id", cluster.CheckID)
		}
	}
}

// wasUnhealthy сообщает, был ли узел нездоров на предыдущем проходе.
// Для узла, которого раньше не видели, возвращает false.
func (uc *CheckClusterUseCase) wasUnhealthy(nodeName string) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	previous, seen := uc.lastStatus[nodeName]
	return seen && previous != health.StatusHealthy
}

func (uc *CheckClusterUseCase) runRemediation(ctx context.Context, node *health.NodeHealth) {
	if uc.remediator == nil {
		return
	}
	cfg, ok := uc.fleet.Node(node.Name)
	if !ok {
		return
	}

	actions := remediation.Decide(node, cfg.RemediationBindings())
	for _, action := range actions {
		uc.logger.Info("remediation triggered", "node", node.Name, "action", action.Name)
		if err := uc.remediator.Execute(ctx, node, action); err != nil {
			uc.logger.Error("remediation failed", err, "node", node.Name, "action", action.Name)
		}
	}
}
