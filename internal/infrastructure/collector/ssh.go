package collector

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/dreschagin/node-health-monitor/internal/domain/health"
	"github.com/dreschagin/node-health-monitor/pkg/config"
)

// commandSet holds the shell commands used to probe one platform.
type commandSet struct {
	memory       string
	disk         string
	load         string
	cpuCount     string
	cpuPercent   string
	serviceCheck string // %s is the service name
}

var platformCommands = map[string]commandSet{
	"linux": {
		memory:       "free -b | grep Mem",
		disk:         "df -B1 / | tail -1",
		load:         "cat /proc/loadavg",
		cpuCount:     "nproc",
		cpuPercent:   "top -bn1 | grep 'Cpu(s)' | awk '{print $2}'",
		serviceCheck: "pgrep -x %s || pgrep -f %s",
	},
	"darwin": {
		memory:       "vm_stat && sysctl -n hw.memsize",
		disk:         "df -b / | tail -1",
		load:         "sysctl -n vm.loadavg",
		cpuCount:     "sysctl -n hw.ncpu",
		cpuPercent:   "ps -A -o %cpu | awk '{s+=$1} END {print s}'",
		serviceCheck: "pgrep -x %s || pgrep -f %s",
	},
	"windows": {
		memory:       "wmic OS get FreePhysicalMemory,TotalVisibleMemorySize /Value",
		disk:         "wmic logicaldisk where DeviceID='C:' get Size,FreeSpace /Value",
		load:         "wmic cpu get LoadPercentage /Value",
		cpuCount:     "wmic cpu get NumberOfLogicalProcessors /Value",
		cpuPercent:   "wmic cpu get LoadPercentage /Value",
		serviceCheck: "tasklist /FI \"IMAGENAME eq %s*\" /NH",
	},
}

func commandsFor(platform string) commandSet {
	if commands, ok := platformCommands[platform]; ok {
		return commands
	}
	return platformCommands["linux"]
}

// SSHCollector probes a remote node over SSH using plain shell commands,
// so the remote side needs no agent installed. The connection is opened
// lazily and reused for the duration of one check.
type SSHCollector struct {
	nodeName string
	platform string
	cfg      *config.SSHConfig

	mu     sync.Mutex
	client *ssh.Client
}

// NewSSHCollector creates a collector for a node with SSH configuration.
func NewSSHCollector(node config.NodeConfig) *SSHCollector {
	return &SSHCollector{
		nodeName: node.Name,
		platform: node.Platform,
		cfg:      node.SSH,
	}
}

// Collect gathers all metrics from the remote node.
// A failed connection is an error; a misbehaving individual command
// degrades to zero values while the node stays reachable.
func (c *SSHCollector) Collect(ctx context.Context) (*health.NodeHealth, error) {
	if _, err := c.getClient(ctx); err != nil {
		return nil, err
	}

	commands := commandsFor(c.platform)

	cpuPercent, cpuCount := c.collectCPU(ctx, commands)
	loadAvg := c.collectLoad(ctx, commands)
	memTotal, memUsed, memPercent := c.collectMemory(ctx, commands)
	diskTotal, diskUsed, diskPercent := c.collectDisk(ctx, commands)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &health.NodeHealth{
		Host:      c.cfg.Host,
		Platform:  c.platform,
		Timestamp: time.Now(),
		Reachable: true,

		CPUPercent:  cpuPercent,
		CPUCount:    cpuCount,
		LoadAverage: loadAvg,

		MemoryTotalGB: memTotal,
		MemoryUsedGB:  memUsed,
		MemoryPercent: memPercent,

		DiskTotalGB: diskTotal,
		DiskUsedGB:  diskUsed,
		DiskPercent: diskPercent,
	}, nil
}

// CheckService probes a remote service via pgrep (unix) or tasklist (windows).
func (c *SSHCollector) CheckService(ctx context.Context, name string) (bool, int, error) {
	commands := commandsFor(c.platform)

	var command string
	if c.platform == "windows" {
		command = fmt.Sprintf(commands.serviceCheck, name)
	} else {
		command = fmt.Sprintf(commands.serviceCheck, name, name)
	}

	exitCode, stdout, _, err := c.ExecuteCommand(ctx, command)
	if err != nil {
		return false, 0, err
	}

	if c.platform == "windows" {
		running, pid := parseServiceTasklist(name, stdout)
		return running, pid, nil
	}
	running, pid := parseServicePgrep(exitCode, stdout)
	return running, pid, nil
}

// ExecuteCommand runs a command on the remote node.
func (c *SSHCollector) ExecuteCommand(ctx context.Context, command string) (int, string, string, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return 1, "", "", err
	}

	session, err := client.NewSession()
	if err != nil {
		return 1, "", "", fmt.Errorf("failed to open ssh session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	// Session has no context support; cancel by closing it.
	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case <-ctx.Done():
		session.Close()
		return 1, stdout.String(), stderr.String(), ctx.Err()
	case err = <-done:
	}

	if err != nil {
		if exitErr, ok := err.(*ssh.ExitError); ok {
			return exitErr.ExitStatus(), stdout.String(), stderr.String(), nil
		}
		return 1, stdout.String(), stderr.String(), err
	}
	return 0, stdout.String(), stderr.String(), nil
}

// Close tears down the cached SSH connection.
func (c *SSHCollector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

func (c *SSHCollector) getClient(ctx context.Context) (*ssh.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}

	auth, err := c.authMethods()
	if err != nil {
		return nil, err
	}

	sshConfig := &ssh.ClientConfig{
		User:            c.cfg.Username,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         time.Duration(c.cfg.TimeoutSeconds) * time.Second,
	}

	addr := net.JoinHostPort(c.cfg.Host, fmt.Sprintf("%d", c.cfg.Port))
	dialer := net.Dialer{Timeout: sshConfig.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	clientConn, chans, reqs, err := ssh.NewClientConn(conn, addr, sshConfig)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s failed: %w", addr, err)
	}

	c.client = ssh.NewClient(clientConn, chans, reqs)
	return c.client, nil
}

func (c *SSHCollector) authMethods() ([]ssh.AuthMethod, error) {
	if c.cfg.KeyFile != "" {
		path := c.cfg.KeyFile
		if strings.HasPrefix(path, "~/") {
			home, err := os.UserHomeDir()
			if err == nil {
				path = filepath.Join(home, path[2:])
			}
		}
		key, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read ssh key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("failed to parse ssh key: %w", err)
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}
	if c.cfg.Password != "" {
		return []ssh.AuthMethod{ssh.Password(c.cfg.Password)}, nil
	}
	return nil, fmt.Errorf("node %s: no ssh key file or password configured", c.nodeName)
}

func (c *SSHCollector) collectCPU(ctx context.Context, commands commandSet) (float64, int) {
	_, out, _, _ := c.ExecuteCommand(ctx, commands.cpuCount)
	count := parseCPUCount(out)

	_, out, _, _ = c.ExecuteCommand(ctx, commands.cpuPercent)
	return parseCPUPercent(out), count
}

func (c *SSHCollector) collectLoad(ctx context.Context, commands commandSet) [3]float64 {
	_, out, _, _ := c.ExecuteCommand(ctx, commands.load)
	switch c.platform {
	case "darwin":
		return parseLoadDarwin(out)
	case "windows":
		kv := parseWindowsKV(out)
		return loadFromCPUPercent(kv["LoadPercentage"])
	default:
		return parseLoadLinux(out)
	}
}

func (c *SSHCollector) collectMemory(ctx context.Context, commands commandSet) (float64, float64, float64) {
	_, out, _, _ := c.ExecuteCommand(ctx, commands.memory)
	switch c.platform {
	case "darwin":
		return parseMemoryDarwin(out)
	case "windows":
		return parseMemoryWindows(out)
	default:
		return parseMemoryLinux(out)
	}
}

func (c *SSHCollector) collectDisk(ctx context.Context, commands commandSet) (float64, float64, float64) {
	_, out, _, _ := c.ExecuteCommand(ctx, commands.disk)
	if c.platform == "windows" {
		return parseDiskWindows(out)
	}
	return parseDiskDF(out)
}
