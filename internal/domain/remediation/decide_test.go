package remediation

import (
	"reflect"
	"testing"

	"github.com/dreschagin/node-health-monitor/internal/domain/health"
)

func breachedNode() *health.NodeHealth {
	return &health.NodeHealth{
		Name:          "db-1",
		Host:          "192.168.1.20",
		Platform:      "linux",
		Reachable:     true,
		CPUCount:      2,
		LoadAverage:   [3]float64{20.0, 15.0, 10.0},
		MemoryPercent: 95.0,
		DiskPercent:   96.0,
		Services: []health.ServiceStatus{
			{Name: "postgresql", Running: false},
			{Name: "redis", Running: false},
			{Name: "nginx", Running: true},
		},
		Thresholds: health.DefaultThresholds(),
	}
}

func fullBindings() Bindings {
	return Bindings{
		Enabled:      true,
		OnHighMemory: "free_memory.sh",
		OnHighDisk:   "clean_disk.sh",
		OnHighLoad:   "shed_load.sh",
		OnServiceDown: map[string]string{
			"postgresql": "restart_postgres.sh",
			"redis":      "restart_redis.sh",
		},
	}
}

func TestDecide_OrderIsDeterministic(t *testing.T) {
	actions := Decide(breachedNode(), fullBindings())

	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = a.Name
	}

	expected := []string{
		"high_memory",
		"high_disk",
		"high_load",
		"service_down:postgresql",
		"service_down:redis",
	}
	if !reflect.DeepEqual(names, expected) {
		t.Errorf("action order = %v, want %v", names, expected)
	}
}

func TestDecide_ServiceActionCarriesEnvOverride(t *testing.T) {
	actions := Decide(breachedNode(), fullBindings())

	var found bool
	for _, a := range actions {
		if a.Name == "service_down:postgresql" {
			found = true
			if a.Script != "restart_postgres.sh" {
				t.Errorf("script = %q, want restart_postgres.sh", a.Script)
			}
			if a.Env["NHM_SERVICE"] != "postgresql" {
				t.Errorf("env override = %v, want NHM_SERVICE=postgresql", a.Env)
			}
		}
	}
	if !found {
		t.Fatal("expected a service_down:postgresql action")
	}
}

func TestDecide_DisabledReturnsNothing(t *testing.T) {
	bindings := fullBindings()
	bindings.Enabled = false

	if actions := Decide(breachedNode(), bindings); len(actions) != 0 {
		t.Errorf("expected no actions when disabled, got %v", actions)
	}
}

func TestDecide_OnlyConfiguredScriptsFire(t *testing.T) {
	bindings := Bindings{
		Enabled:      true,
		OnHighMemory: "free_memory.sh",
		// disk, load, services unbound
	}

	actions := Decide(breachedNode(), bindings)
	if len(actions) != 1 || actions[0].Name != "high_memory" {
		t.Errorf("expected only high_memory, got %v", actions)
	}
}

func TestDecide_WarningDoesNotTrigger(t *testing.T) {
	node := breachedNode()
	node.MemoryPercent = 85.0 // warning, not critical
	node.DiskPercent = 50.0
	node.LoadAverage = [3]float64{1.0, 1.0, 1.0}
	node.Services = nil

	if actions := Decide(node, fullBindings()); len(actions) != 0 {
		t.Errorf("warning-level breaches must not remediate, got %v", actions)
	}
}
