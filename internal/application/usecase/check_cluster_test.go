package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dreschagin/node-health-monitor/internal/application/dto"
	"github.com/dreschagin/node-health-monitor/internal/application/port"
	"github.com/dreschagin/node-health-monitor/internal/domain/health"
	"github.com/dreschagin/node-health-monitor/pkg/config"
)

// stubCollector возвращает заранее подготовленный снимок.
// block=true имитирует зависший коллектор: Collect ждет отмены контекста.
type stubCollector struct {
	snapshot *health.NodeHealth
	services map[string]bool
	err      error
	block    bool
}

func (c *stubCollector) Collect(ctx context.Context) (*health.NodeHealth, error) {
	if c.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if c.err != nil {
		return nil, c.err
	}
	snapshot := *c.snapshot
	return &snapshot, nil
}

func (c *stubCollector) CheckService(_ context.Context, name string) (bool, int, error) {
	running, ok := c.services[name]
	if !ok {
		return false, 0, nil
	}
	if running {
		return true, 4242, nil
	}
	return false, 0, nil
}

func (c *stubCollector) ExecuteCommand(context.Context, string) (int, string, string, error) {
	return 0, "", "", nil
}

func healthySnapshot() *health.NodeHealth {
	return &health.NodeHealth{
		Timestamp:     time.Now(),
		Reachable:     true,
		CPUPercent:    15.0,
		CPUCount:      4,
		LoadAverage:   [3]float64{0.5, 0.4, 0.3},
		MemoryTotalGB: 16.0,
		MemoryUsedGB:  6.4,
		MemoryPercent: 40.0,
		DiskTotalGB:   100.0,
		DiskUsedGB:    50.0,
		DiskPercent:   50.0,
	}
}

func criticalSnapshot() *health.NodeHealth {
	snapshot := healthySnapshot()
	snapshot.MemoryPercent = 95.0
	return snapshot
}

type collectorMap map[string]port.Collector

func (m collectorMap) factory(node config.NodeConfig) (port.Collector, error) {
	collector, ok := m[node.Name]
	if !ok {
		return nil, fmt.Errorf("node %s: neither local nor ssh configured", node.Name)
	}
	return collector, nil
}

func boolPtr(v bool) *bool { return &v }

func testFleet(names ...string) *config.FleetConfig {
	fleet := &config.FleetConfig{
		Thresholds:              health.DefaultThresholds(),
		CheckIntervalSeconds:    60,
		MaxWorkers:              4,
		NodeCheckTimeoutSeconds: 1,
		AlertCooldownSeconds:    300,
	}
	for _, name := range names {
		fleet.Nodes = append(fleet.Nodes, config.NodeConfig{
			Name: name, Platform: "linux", Local: true,
		})
	}
	return fleet
}

func newTestUseCase(fleet *config.FleetConfig, collectors collectorMap, dispatcher *AlertDispatcher) *CheckClusterUseCase {
	return NewCheckClusterUseCase(fleet, collectors.factory, dispatcher, nil, nil, nil, testLogger(), nil)
}

func TestCheckCluster_AllNodesPresent(t *testing.T) {
	fleet := testFleet("web-1", "web-2", "db-1")
	collectors := collectorMap{
		"web-1": &stubCollector{snapshot: healthySnapshot()},
		"web-2": &stubCollector{snapshot: healthySnapshot()},
		"db-1":  &stubCollector{snapshot: criticalSnapshot()},
	}

	cluster, err := newTestUseCase(fleet, collectors, nil).Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(cluster.Nodes) != 3 {
		t.Fatalf("got %d nodes, want 3", len(cluster.Nodes))
	}
	if cluster.Status() != health.StatusCritical {
		t.Errorf("cluster status = %s, want critical", cluster.Status())
	}
	if cluster.HealthyCount() != 2 || cluster.CriticalCount() != 1 {
		t.Errorf("counts = %d/%d, want 2 healthy / 1 critical",
			cluster.HealthyCount(), cluster.CriticalCount())
	}
}

func TestCheckCluster_HungCollectorDoesNotBlockOthers(t *testing.T) {
	fleet := testFleet("web-1", "stuck-1", "web-2")
	collectors := collectorMap{
		"web-1":   &stubCollector{snapshot: healthySnapshot()},
		"stuck-1": &stubCollector{block: true},
		"web-2":   &stubCollector{snapshot: healthySnapshot()},
	}

	start := time.Now()
	cluster, err := newTestUseCase(fleet, collectors, nil).Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("check took %v, timeout did not fire", elapsed)
	}

	if len(cluster.Nodes) != 3 {
		t.Fatalf("got %d nodes, want 3", len(cluster.Nodes))
	}

	byName := make(map[string]*health.NodeHealth)
	for _, node := range cluster.Nodes {
		byName[node.Name] = node
	}
	if byName["stuck-1"].Status() != health.StatusUnreachable {
		t.Errorf("stuck node status = %s, want unreachable", byName["stuck-1"].Status())
	}
	if byName["web-1"].Status() != health.StatusHealthy || byName["web-2"].Status() != health.StatusHealthy {
		t.Errorf("healthy nodes degraded by hung neighbor")
	}
}

func TestCheckCluster_SequentialPreservesConfigOrder(t *testing.T) {
	fleet := testFleet("c-node", "a-node", "b-node")
	fleet.ParallelChecks = boolPtr(false)
	collectors := collectorMap{
		"c-node": &stubCollector{snapshot: healthySnapshot()},
		"a-node": &stubCollector{snapshot: healthySnapshot()},
		"b-node": &stubCollector{snapshot: healthySnapshot()},
	}

	cluster, err := newTestUseCase(fleet, collectors, nil).Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	want := []string{"c-node", "a-node", "b-node"}
	for i, node := range cluster.Nodes {
		if node.Name != want[i] {
			t.Fatalf("node[%d] = %s, want %s", i, node.Name, want[i])
		}
	}
}

func TestCheckCluster_MisconfiguredNodeBecomesUnreachable(t *testing.T) {
	fleet := testFleet("web-1", "broken-1")
	collectors := collectorMap{
		"web-1": &stubCollector{snapshot: healthySnapshot()},
	}

	cluster, err := newTestUseCase(fleet, collectors, nil).Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var broken *health.NodeHealth
	for _, node := range cluster.Nodes {
		if node.Name == "broken-1" {
			broken = node
		}
	}
	if broken == nil {
		t.Fatal("misconfigured node missing from snapshot")
	}
	if broken.Status() != health.StatusUnreachable {
		t.Errorf("status = %s, want unreachable", broken.Status())
	}
	alerts := broken.Alerts()
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}
}

func TestCheckCluster_CollectErrorIsolated(t *testing.T) {
	fleet := testFleet("web-1", "flaky-1")
	collectors := collectorMap{
		"web-1":   &stubCollector{snapshot: healthySnapshot()},
		"flaky-1": &stubCollector{err: errors.New("connection refused")},
	}

	cluster, err := newTestUseCase(fleet, collectors, nil).Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	for _, node := range cluster.Nodes {
		if node.Name == "flaky-1" {
			if node.Status() != health.StatusUnreachable {
				t.Errorf("status = %s, want unreachable", node.Status())
			}
			if node.ErrorMessage != "connection refused" {
				t.Errorf("error message = %q", node.ErrorMessage)
			}
		}
	}
}

func TestCheckCluster_DisabledNodeSkipped(t *testing.T) {
	fleet := testFleet("web-1", "retired-1")
	fleet.Nodes[1].Enabled = boolPtr(false)
	collectors := collectorMap{
		"web-1":     &stubCollector{snapshot: healthySnapshot()},
		"retired-1": &stubCollector{snapshot: criticalSnapshot()},
	}

	cluster, err := newTestUseCase(fleet, collectors, nil).Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(cluster.Nodes) != 1 || cluster.Nodes[0].Name != "web-1" {
		t.Fatalf("disabled node was checked: %+v", cluster.Nodes)
	}
}

func TestCheckCluster_NodeThresholdOverrideApplied(t *testing.T) {
	fleet := testFleet("db-1")
	fleet.Nodes[0].Thresholds = health.Thresholds{
		health.MetricMemory: {Warning: 70, Critical: 85},
		health.MetricDisk:   {Warning: 80, Critical: 90},
		health.MetricLoad:   {Warning: 4, Critical: 8},
	}
	snapshot := healthySnapshot()
	snapshot.MemoryPercent = 75.0
	collectors := collectorMap{"db-1": &stubCollector{snapshot: snapshot}}

	cluster, err := newTestUseCase(fleet, collectors, nil).Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := cluster.Nodes[0].Status(); got != health.StatusWarning {
		t.Errorf("status with override = %s, want warning (75%% > 70%% override)", got)
	}
}

func TestCheckCluster_ServiceDownProducesAlert(t *testing.T) {
	fleet := testFleet("db-1")
	fleet.Nodes[0].Services = []string{"mysql", "nginx"}
	collectors := collectorMap{
		"db-1": &stubCollector{
			snapshot: healthySnapshot(),
			services: map[string]bool{"mysql": false, "nginx": true},
		},
	}

	cluster, err := newTestUseCase(fleet, collectors, nil).Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	node := cluster.Nodes[0]
	if node.Status() != health.StatusCritical {
		t.Errorf("status = %s, want critical", node.Status())
	}
	alerts := node.Alerts()
	if len(alerts) != 1 || alerts[0] != "CRITICAL: Service 'mysql' is not running" {
		t.Errorf("alerts = %v", alerts)
	}
}

func TestCheckCluster_AlertsDispatchedForUnhealthyNodes(t *testing.T) {
	fleet := testFleet("web-1", "db-1")
	collectors := collectorMap{
		"web-1": &stubCollector{snapshot: healthySnapshot()},
		"db-1":  &stubCollector{snapshot: criticalSnapshot()},
	}
	notifier := &recordingNotifier{name: "test"}
	dispatcher := NewAlertDispatcher(newOnceCooldown(), []port.Notifier{notifier}, 5*time.Minute, testLogger(), nil)

	if _, err := newTestUseCase(fleet, collectors, dispatcher).Execute(context.Background()); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.alerts) != 1 {
		t.Fatalf("got %d alerts, want 1: %v", len(notifier.alerts), notifier.alerts)
	}
	if notifier.alerts[0] != "db-1: CRITICAL: Memory at 95.0%" {
		t.Errorf("alert = %q", notifier.alerts[0])
	}
}

func TestCheckCluster_RecoveryNotification(t *testing.T) {
	fleet := testFleet("db-1")
	fleet.NotifyRecovery = true
	collector := &stubCollector{snapshot: criticalSnapshot()}
	collectors := collectorMap{"db-1": collector}
	notifier := &recordingNotifier{name: "test"}
	dispatcher := NewAlertDispatcher(newOnceCooldown(), []port.Notifier{notifier}, 5*time.Minute, testLogger(), nil)
	uc := newTestUseCase(fleet, collectors, dispatcher)

	if _, err := uc.Execute(context.Background()); err != nil {
		t.Fatalf("first pass: %v", err)
	}

	collector.snapshot = healthySnapshot()
	if _, err := uc.Execute(context.Background()); err != nil {
		t.Fatalf("second pass: %v", err)
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.recoveries) != 1 {
		t.Fatalf("got %d recoveries, want 1: %v", len(notifier.recoveries), notifier.recoveries)
	}
	if notifier.recoveries[0] != "db-1: RECOVERED: Node 'db-1' is healthy again" {
		t.Errorf("recovery = %q", notifier.recoveries[0])
	}
}

func TestCheckCluster_NoRecoveryWhenDisabled(t *testing.T) {
	fleet := testFleet("db-1")
	collector := &stubCollector{snapshot: criticalSnapshot()}
	collectors := collectorMap{"db-1": collector}
	notifier := &recordingNotifier{name: "test"}
	dispatcher := NewAlertDispatcher(newOnceCooldown(), []port.Notifier{notifier}, 5*time.Minute, testLogger(), nil)
	uc := newTestUseCase(fleet, collectors, dispatcher)

	uc.Execute(context.Background())
	collector.snapshot = healthySnapshot()
	uc.Execute(context.Background())

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.recoveries) != 0 {
		t.Fatalf("recoveries sent with notify_recovery off: %v", notifier.recoveries)
	}
}

func TestCheckCluster_LastSnapshot(t *testing.T) {
	fleet := testFleet("web-1")
	collectors := collectorMap{"web-1": &stubCollector{snapshot: healthySnapshot()}}
	uc := newTestUseCase(fleet, collectors, nil)

	if _, ok := uc.LastSnapshot(); ok {
		t.Fatal("snapshot reported before any check")
	}

	cluster, _ := uc.Execute(context.Background())
	got, ok := uc.LastSnapshot()
	if !ok || got.CheckID != cluster.CheckID {
		t.Fatalf("LastSnapshot = %v, %v; want check %s", got, ok, cluster.CheckID)
	}
}

// Проверяет, что пул воркеров реально ограничивает параллелизм.
func TestCheckCluster_WorkerPoolBounded(t *testing.T) {
	const nodeCount = 8
	fleet := testFleet()
	fleet.MaxWorkers = 2
	fleet.NodeCheckTimeoutSeconds = 5

	var mu sync.Mutex
	active, peak := 0, 0

	collectors := collectorMap{}
	for i := 0; i < nodeCount; i++ {
		name := fmt.Sprintf("node-%d", i)
		fleet.Nodes = append(fleet.Nodes, config.NodeConfig{Name: name, Platform: "linux", Local: true})
		collectors[name] = &countingCollector{
			inner: &stubCollector{snapshot: healthySnapshot()},
			enter: func() {
				mu.Lock()
				active++
				if active > peak {
					peak = active
				}
				mu.Unlock()
			},
			leave: func() {
				mu.Lock()
				active--
				mu.Unlock()
			},
		}
	}

	if _, err := newTestUseCase(fleet, collectors, nil).Execute(context.Background()); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak)
	}
}

type recordingBroadcaster struct {
	mu        sync.Mutex
	snapshots []*dto.ClusterHealthDTO
	alerts    []*dto.AlertDTO
}

func (b *recordingBroadcaster) Broadcast(snapshot *dto.ClusterHealthDTO) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshots = append(b.snapshots, snapshot)
}

func (b *recordingBroadcaster) BroadcastAlert(alert *dto.AlertDTO) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.alerts = append(b.alerts, alert)
}

func (b *recordingBroadcaster) ClientCount() int { return 0 }

func TestCheckCluster_AlertsPushedToBroadcast(t *testing.T) {
	fleet := testFleet("web-1", "db-1")
	collectors := collectorMap{
		"web-1": &stubCollector{snapshot: healthySnapshot()},
		"db-1":  &stubCollector{snapshot: criticalSnapshot()},
	}
	broadcaster := &recordingBroadcaster{}
	uc := NewCheckClusterUseCase(fleet, collectors.factory, nil, nil, broadcaster, nil, testLogger(), nil)

	if _, err := uc.Execute(context.Background()); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	broadcaster.mu.Lock()
	if len(broadcaster.snapshots) != 1 {
		t.Fatalf("got %d snapshots, want 1", len(broadcaster.snapshots))
	}
	if len(broadcaster.alerts) != 1 {
		t.Fatalf("got %d alerts, want 1: %v", len(broadcaster.alerts), broadcaster.alerts)
	}
	alert := broadcaster.alerts[0]
	if alert.Node != "db-1" || alert.Level != "critical" {
		t.Errorf("alert = %s/%s, want db-1/critical", alert.Node, alert.Level)
	}
	if alert.Message != "CRITICAL: Memory at 95.0%" {
		t.Errorf("message = %q", alert.Message)
	}
	if alert.NodeState == nil || alert.NodeState.Name != "db-1" {
		t.Errorf("alert missing node state: %+v", alert.NodeState)
	}
	broadcaster.mu.Unlock()

	// Push не подавляется cooldown: условие держится — алерт уходит
	// подписчикам каждый проход
	if _, err := uc.Execute(context.Background()); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	broadcaster.mu.Lock()
	defer broadcaster.mu.Unlock()
	if len(broadcaster.alerts) != 2 {
		t.Errorf("got %d alerts after second pass, want 2", len(broadcaster.alerts))
	}
}

type countingCollector struct {
	inner        port.Collector
	enter, leave func()
}

func (c *countingCollector) Collect(ctx context.Context) (*health.NodeHealth, error) {
	c.enter()
	defer c.leave()
	time.Sleep(10 * time.Millisecond)
	return c.inner.Collect(ctx)
}

func (c *countingCollector) CheckService(ctx context.Context, name string) (bool, int, error) {
	return c.inner.CheckService(ctx, name)
}

func (c *countingCollector) ExecuteCommand(ctx context.Context, cmd string) (int, string, string, error) {
	return c.inner.ExecuteCommand(ctx, cmd)
}
