package usecase

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/dreschagin/node-health-monitor/internal/application/port"
	"github.com/dreschagin/node-health-monitor/internal/domain/health"
	"github.com/dreschagin/node-health-monitor/pkg/logger"
)

type recordingNotifier struct {
	name string
	fail bool

	mu         sync.Mutex
	alerts     []string
	recoveries []string
}

func (n *recordingNotifier) Name() string { return n.name }

func (n *recordingNotifier) SendAlert(_ context.Context, nodeName, message string, _ *health.NodeHealth) error {
	if n.fail {
		return errors.New("delivery failed")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, nodeName+": "+message)
	return nil
}

func (n *recordingNotifier) SendRecovery(_ context.Context, nodeName, message string) error {
	if n.fail {
		return errors.New("delivery failed")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.recoveries = append(n.recoveries, nodeName+": "+message)
	return nil
}

func (n *recordingNotifier) alertCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}

// onceCooldown выдает true только при первом обращении по ключу.
type onceCooldown struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func newOnceCooldown() *onceCooldown {
	return &onceCooldown{seen: make(map[string]struct{})}
}

func (c *onceCooldown) Acquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.seen[key]; ok {
		return false, nil
	}
	c.seen[key] = struct{}{}
	return true, nil
}

type failingCooldown struct{}

func (failingCooldown) Acquire(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("store unavailable")
}

func testLogger() *logger.Logger {
	return logger.NewWithWriter("error", io.Discard)
}

func criticalMemoryNode(name string) *health.NodeHealth {
	return &health.NodeHealth{
		Name:          name,
		Host:          "10.0.0.1",
		Platform:      "linux",
		Timestamp:     time.Now(),
		Reachable:     true,
		CPUCount:      4,
		MemoryPercent: 95.0,
		DiskPercent:   40.0,
		LoadAverage:   [3]float64{1.0, 1.0, 1.0},
		Thresholds:    health.DefaultThresholds(),
	}
}

func TestAlertDispatcher_SuppressesRepeatWithinWindow(t *testing.T) {
	notifier := &recordingNotifier{name: "test"}
	dispatcher := NewAlertDispatcher(newOnceCooldown(), []port.Notifier{notifier}, 5*time.Minute, testLogger(), nil)

	node := criticalMemoryNode("web-1")

	if sent := dispatcher.DispatchNode(context.Background(), node); sent != 1 {
		t.Fatalf("first dispatch: sent = %d, want 1", sent)
	}
	if sent := dispatcher.DispatchNode(context.Background(), node); sent != 0 {
		t.Fatalf("second dispatch: sent = %d, want 0 (suppressed)", sent)
	}
	if got := notifier.alertCount(); got != 1 {
		t.Errorf("notifier received %d alerts, want 1", got)
	}
}

func TestAlertDispatcher_NewTextBypassesCooldown(t *testing.T) {
	notifier := &recordingNotifier{name: "test"}
	dispatcher := NewAlertDispatcher(newOnceCooldown(), []port.Notifier{notifier}, 5*time.Minute, testLogger(), nil)

	node := criticalMemoryNode("web-1")
	dispatcher.DispatchNode(context.Background(), node)

	// Значение метрики изменилось — текст алерта другой, ключ другой.
	changed := *node
	changed.MemoryPercent = 97.5
	if sent := dispatcher.DispatchNode(context.Background(), &changed); sent != 1 {
		t.Fatalf("changed alert text: sent = %d, want 1", sent)
	}
}

func TestAlertDispatcher_SameTextDifferentNodesNotSuppressed(t *testing.T) {
	notifier := &recordingNotifier{name: "test"}
	dispatcher := NewAlertDispatcher(newOnceCooldown(), []port.Notifier{notifier}, 5*time.Minute, testLogger(), nil)

	dispatcher.DispatchNode(context.Background(), criticalMemoryNode("web-1"))
	if sent := dispatcher.DispatchNode(context.Background(), criticalMemoryNode("web-2")); sent != 1 {
		t.Fatalf("other node, same text: sent = %d, want 1", sent)
	}
}

func TestAlertDispatcher_NotifierFailureIsolated(t *testing.T) {
	broken := &recordingNotifier{name: "broken", fail: true}
	working := &recordingNotifier{name: "working"}
	dispatcher := NewAlertDispatcher(newOnceCooldown(), []port.Notifier{broken, working}, 5*time.Minute, testLogger(), nil)

	dispatcher.DispatchNode(context.Background(), criticalMemoryNode("web-1"))

	if got := working.alertCount(); got != 1 {
		t.Errorf("working notifier received %d alerts, want 1", got)
	}
}

func TestAlertDispatcher_StoreErrorFailsOpen(t *testing.T) {
	notifier := &recordingNotifier{name: "test"}
	dispatcher := NewAlertDispatcher(failingCooldown{}, []port.Notifier{notifier}, 5*time.Minute, testLogger(), nil)

	if sent := dispatcher.DispatchNode(context.Background(), criticalMemoryNode("web-1")); sent != 1 {
		t.Fatalf("store error: sent = %d, want 1 (fail open)", sent)
	}
}

func TestAlertDispatcher_HealthyNodeSendsNothing(t *testing.T) {
	notifier := &recordingNotifier{name: "test"}
	dispatcher := NewAlertDispatcher(newOnceCooldown(), []port.Notifier{notifier}, 5*time.Minute, testLogger(), nil)

	node := criticalMemoryNode("web-1")
	node.MemoryPercent = 40.0

	if sent := dispatcher.DispatchNode(context.Background(), node); sent != 0 {
		t.Fatalf("healthy node: sent = %d, want 0", sent)
	}
	if got := notifier.alertCount(); got != 0 {
		t.Errorf("notifier received %d alerts, want 0", got)
	}
}
