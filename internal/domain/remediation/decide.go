package remediation

import (
	"fmt"

	"github.com/dreschagin/node-health-monitor/internal/domain/health"
)

// Bindings maps breach conditions to remediation script identifiers.
// Resolved from node configuration; the decision logic never touches
// the filesystem or executes anything.
type Bindings struct {
	Enabled       bool
	ScriptsDir    string
	OnHighMemory  string
	OnHighDisk    string
	OnHighLoad    string
	OnServiceDown map[string]string
}

// Action is a single remediation decision: which script to run and with
// which environment overrides on top of the standard node facts.
type Action struct {
	Name       string
	Script     string
	ScriptsDir string
	Env        map[string]string
}

// Decide selects the remediation actions that apply to a snapshot.
// Rules are evaluated independently, so several actions can fire for one
// snapshot. Order is fixed: memory, disk, load, then services in snapshot
// order — callers and tests rely on it.
func Decide(node *health.NodeHealth, bindings Bindings) []Action {
	if !bindings.Enabled {
		return nil
	}

	var actions []Action

	if node.MemoryStatus() == health.StatusCritical && bindings.OnHighMemory != "" {
		actions = append(actions, Action{
			Name:       "high_memory",
			Script:     bindings.OnHighMemory,
			ScriptsDir: bindings.ScriptsDir,
		})
	}

	if node.DiskStatus() == health.StatusCritical && bindings.OnHighDisk != "" {
		actions = append(actions, Action{
			Name:       "high_disk",
			Script:     bindings.OnHighDisk,
			ScriptsDir: bindings.ScriptsDir,
		})
	}

	if node.LoadStatus() == health.StatusCritical && bindings.OnHighLoad != "" {
		actions = append(actions, Action{
			Name:       "high_load",
			Script:     bindings.OnHighLoad,
			ScriptsDir: bindings.ScriptsDir,
		})
	}

	for _, svc := range node.Services {
		if svc.Running {
			continue
		}
		script, ok := bindings.OnServiceDown[svc.Name]
		if !ok {
			continue
		}
		actions = append(actions, Action{
			Name:       fmt.Sprintf("service_down:%s", svc.Name),
			Script:     script,
			ScriptsDir: bindings.ScriptsDir,
			Env:        map[string]string{"NHM_SERVICE": svc.Name},
		})
	}

	return actions
}
