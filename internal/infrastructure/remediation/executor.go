package remediation

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dreschagin/node-health-monitor/internal/domain/health"
	"github.com/dreschagin/node-health-monitor/internal/domain/remediation"
	"github.com/dreschagin/node-health-monitor/pkg/logger"
)

const scriptTimeout = 60 * time.Second

// Executor runs remediation scripts decided by the domain layer.
// Scripts get node facts via NHM_* environment variables on top of the
// parent environment. In dry-run mode actions are logged, not executed.
type Executor struct {
	dryRun bool
	logger *logger.Logger
}

// NewExecutor creates a script executor.
func NewExecutor(dryRun bool, log *logger.Logger) *Executor {
	return &Executor{dryRun: dryRun, logger: log}
}

// Execute runs one remediation script with a 60 second budget.
func (e *Executor) Execute(ctx context.Context, node *health.NodeHealth, action remediation.Action) error {
	script := resolveScript(action)

	if e.dryRun {
		e.logger.Info("[DRY RUN] would execute remediation",
			"node", node.Name, "action", action.Name, "script", script)
		return nil
	}

	e.logger.Info("executing remediation script",
		"node", node.Name, "action", action.Name, "script", script)

	runCtx, cancel := context.WithTimeout(ctx, scriptTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "/bin/sh", "-c", script)
	cmd.Env = append(os.Environ(), scriptEnv(node, action)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("script timed out after %s", scriptTimeout)
	}
	if err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return fmt.Errorf("script failed: %s", detail)
	}

	e.logger.Info("remediation succeeded",
		"node", node.Name, "action", action.Name,
		"output", strings.TrimSpace(stdout.String()))
	return nil
}

// resolveScript returns the command to run: a path under the scripts
// directory when the script exists there, otherwise the raw value is
// treated as a shell command.
func resolveScript(action remediation.Action) string {
	path := action.Script
	if !filepath.IsAbs(path) && action.ScriptsDir != "" {
		candidate := filepath.Join(action.ScriptsDir, action.Script)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return action.Script
}

func scriptEnv(node *health.NodeHealth, action remediation.Action) []string {
	env := []string{
		"NHM_NODE_NAME=" + node.Name,
		"NHM_NODE_HOST=" + node.Host,
		"NHM_NODE_PLATFORM=" + node.Platform,
		"NHM_MEMORY_PERCENT=" + strconv.FormatFloat(node.MemoryPercent, 'f', -1, 64),
		"NHM_DISK_PERCENT=" + strconv.FormatFloat(node.DiskPercent, 'f', -1, 64),
		"NHM_LOAD_1M=" + strconv.FormatFloat(node.LoadAverage[0], 'f', -1, 64),
		"NHM_ACTION=" + action.Name,
	}
	for key, value := range action.Env {
		env = append(env, key+"="+value)
	}
	return env
}
