package collector

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/dreschagin/node-health-monitor/internal/domain/health"
)

// LocalCollector собирает метрики локальной системы через gopsutil
type LocalCollector struct{}

// NewLocalCollector создает новый локальный collector
func NewLocalCollector() *LocalCollector {
	return &LocalCollector{}
}

// Collect собирает все метрики локального узла
func (c *LocalCollector) Collect(ctx context.Context) (*health.NodeHealth, error) {
	// Процент использования CPU за короткий интервал
	percentages, err := cpu.PercentWithContext(ctx, 500*time.Millisecond, false)
	if err != nil {
		return nil, fmt.Errorf("failed to collect cpu: %w", err)
	}
	cpuPercent := 0.0
	if len(percentages) > 0 {
		cpuPercent = percentages[0]
	}

	cpuCount, err := cpu.CountsWithContext(ctx, true)
	if err != nil || cpuCount < 1 {
		cpuCount = 1
	}

	loadAvg := c.loadAverage(ctx, cpuPercent)

	vmStat, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to collect memory: %w", err)
	}

	usage, err := disk.UsageWithContext(ctx, rootPath())
	if err != nil {
		return nil, fmt.Errorf("failed to collect disk: %w", err)
	}

	return &health.NodeHealth{
		Host:      "localhost",
		Platform:  runtime.GOOS,
		Timestamp: time.Now(),
		Reachable: true,

		CPUPercent:  cpuPercent,
		CPUCount:    cpuCount,
		LoadAverage: loadAvg,

		MemoryTotalGB: bytesToGB(vmStat.Total),
		MemoryUsedGB:  bytesToGB(vmStat.Used),
		MemoryPercent: vmStat.UsedPercent,

		DiskTotalGB: bytesToGB(usage.Total),
		DiskUsedGB:  bytesToGB(usage.Used),
		DiskPercent: usage.UsedPercent,
	}, nil
}

// loadAverage возвращает load average системы.
// Windows load average не поддерживает — приближаем через загрузку CPU.
func (c *LocalCollector) loadAverage(ctx context.Context, cpuPercent float64) [3]float64 {
	if runtime.GOOS == "windows" {
		approx := cpuPercent / 25
		return [3]float64{approx, approx, approx}
	}

	stat, err := load.AvgWithContext(ctx)
	if err != nil {
		return [3]float64{}
	}
	return [3]float64{stat.Load1, stat.Load5, stat.Load15}
}

// CheckService ищет процесс по имени или командной строке.
func (c *LocalCollector) CheckService(ctx context.Context, name string) (bool, int, error) {
	processes, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return false, 0, fmt.Errorf("failed to list processes: %w", err)
	}

	needle := strings.ToLower(name)
	for _, proc := range processes {
		// Процесс мог завершиться между листингом и опросом — пропускаем
		procName, err := proc.NameWithContext(ctx)
		if err == nil && strings.Contains(strings.ToLower(procName), needle) {
			return true, int(proc.Pid), nil
		}
		cmdline, err := proc.CmdlineWithContext(ctx)
		if err == nil && strings.Contains(strings.ToLower(cmdline), needle) {
			return true, int(proc.Pid), nil
		}
	}

	return false, 0, nil
}

// ExecuteCommand выполняет команду через локальный shell.
func (c *LocalCollector) ExecuteCommand(ctx context.Context, command string) (int, string, string, error) {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/C", command)
	} else {
		cmd = exec.CommandContext(ctx, "/bin/sh", "-c", command)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
			err = nil
		} else {
			exitCode = 1
		}
	}

	return exitCode, stdout.String(), stderr.String(), err
}

func rootPath() string {
	if runtime.GOOS == "windows" {
		return "C:"
	}
	return "/"
}

func bytesToGB(b uint64) float64 {
	return float64(b) / (1 << 30)
}
