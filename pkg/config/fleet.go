package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dreschagin/node-health-monitor/internal/domain/health"
	"github.com/dreschagin/node-health-monitor/internal/domain/remediation"
)

// FleetConfig describes what to monitor: the node list, global thresholds,
// notifier channels, remediation bindings and scheduling knobs.
// Loaded once at startup; the core consumes it as a resolved value and
// never mutates it.
type FleetConfig struct {
	Nodes      []NodeConfig       `yaml:"nodes"`
	Thresholds health.Thresholds  `yaml:"thresholds"`
	Notifiers  NotifiersConfig    `yaml:"notifiers"`
	Remediate  RemediationDefault `yaml:"remediation"`

	CheckIntervalSeconds    int   `yaml:"check_interval"`
	ParallelChecks          *bool `yaml:"parallel_checks"`
	MaxWorkers              int   `yaml:"max_workers"`
	NodeCheckTimeoutSeconds int   `yaml:"node_check_timeout"`
	AlertCooldownSeconds    int   `yaml:"alert_cooldown"`
	NotifyRecovery          bool  `yaml:"notify_recovery"`
}

// NodeConfig describes a single monitored node. A node is checked locally
// (local: true) or over SSH; configuring neither is a configuration error
// that surfaces as an UNREACHABLE snapshot, never as a fatal error.
type NodeConfig struct {
	Name        string             `yaml:"name"`
	Platform    string             `yaml:"platform"`
	Enabled     *bool              `yaml:"enabled"`
	Local       bool               `yaml:"local"`
	SSH         *SSHConfig         `yaml:"ssh"`
	Services    []string           `yaml:"services"`
	Thresholds  health.Thresholds  `yaml:"thresholds"`
	Remediation *RemediationConfig `yaml:"remediation"`
	Tags        []string           `yaml:"tags"`
}

type SSHConfig struct {
	Username       string `yaml:"username"`
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	KeyFile        string `yaml:"key_file"`
	Password       string `yaml:"password"`
	TimeoutSeconds int    `yaml:"timeout"`
}

type RemediationConfig struct {
	Enabled       bool              `yaml:"enabled"`
	ScriptsDir    string            `yaml:"scripts_dir"`
	OnHighMemory  string            `yaml:"on_high_memory"`
	OnHighDisk    string            `yaml:"on_high_disk"`
	OnHighLoad    string            `yaml:"on_high_load"`
	OnServiceDown map[string]string `yaml:"on_service_down"`
}

// RemediationDefault holds fleet-wide remediation settings.
type RemediationDefault struct {
	DryRun bool `yaml:"dry_run"`
}

type NotifiersConfig struct {
	Slack    *SlackConfig    `yaml:"slack"`
	Telegram *TelegramConfig `yaml:"telegram"`
	Webhook  *WebhookConfig  `yaml:"webhook"`
}

type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	Channel    string `yaml:"channel"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

type WebhookConfig struct {
	URL     string            `yaml:"url"`
	Method  string            `yaml:"method"`
	Headers map[string]string `yaml:"headers"`
}

// LoadFleet reads and validates the fleet file at path.
func LoadFleet(path string) (*FleetConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fleet config: %w", err)
	}
	return ParseFleet(data)
}

// ParseFleet parses fleet YAML and applies defaults.
func ParseFleet(data []byte) (*FleetConfig, error) {
	cfg := &FleetConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse fleet config: %w", err)
	}

	if cfg.CheckIntervalSeconds <= 0 {
		cfg.CheckIntervalSeconds = 60
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 10
	}
	if cfg.NodeCheckTimeoutSeconds <= 0 {
		cfg.NodeCheckTimeoutSeconds = 60
	}
	if cfg.AlertCooldownSeconds <= 0 {
		cfg.AlertCooldownSeconds = 300
	}
	if len(cfg.Thresholds) == 0 {
		cfg.Thresholds = health.DefaultThresholds()
	}

	seen := make(map[string]struct{}, len(cfg.Nodes))
	for i := range cfg.Nodes {
		node := &cfg.Nodes[i]
		if node.Name == "" {
			return nil, fmt.Errorf("node at index %d has no name", i)
		}
		if _, ok := seen[node.Name]; ok {
			return nil, fmt.Errorf("duplicate node name: %s", node.Name)
		}
		seen[node.Name] = struct{}{}

		if node.Platform == "" {
			node.Platform = "linux"
		}
		if node.SSH != nil {
			if node.SSH.Port <= 0 {
				node.SSH.Port = 22
			}
			if node.SSH.TimeoutSeconds <= 0 {
				node.SSH.TimeoutSeconds = 10
			}
		}
	}

	return cfg, nil
}

// IsEnabled reports whether the node participates in checks (default true).
func (n *NodeConfig) IsEnabled() bool {
	return n.Enabled == nil || *n.Enabled
}

// HostLabel returns the best-known host for reporting.
func (n *NodeConfig) HostLabel() string {
	if n.Local {
		return "localhost"
	}
	if n.SSH != nil {
		return n.SSH.Host
	}
	return "unknown"
}

// EnabledNodes returns enabled nodes preserving configuration order.
// Sequential check passes rely on this order.
func (c *FleetConfig) EnabledNodes() []NodeConfig {
	nodes := make([]NodeConfig, 0, len(c.Nodes))
	for _, node := range c.Nodes {
		if node.IsEnabled() {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

// Node returns the node with the given name.
func (c *FleetConfig) Node(name string) (NodeConfig, bool) {
	for _, node := range c.Nodes {
		if node.Name == name {
			return node, true
		}
	}
	return NodeConfig{}, false
}

// ResolveThresholds returns the threshold set in effect for a node:
// the node-level override when present, otherwise the fleet defaults.
// Always a copy — the resolved set is embedded into snapshots and must
// not alias shared configuration.
func (c *FleetConfig) ResolveThresholds(node NodeConfig) health.Thresholds {
	if len(node.Thresholds) > 0 {
		return node.Thresholds.Clone()
	}
	return c.Thresholds.Clone()
}

// ParallelEnabled reports whether concurrent checks are on (default true).
func (c *FleetConfig) ParallelEnabled() bool {
	return c.ParallelChecks == nil || *c.ParallelChecks
}

func (c *FleetConfig) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalSeconds) * time.Second
}

func (c *FleetConfig) NodeCheckTimeout() time.Duration {
	return time.Duration(c.NodeCheckTimeoutSeconds) * time.Second
}

func (c *FleetConfig) AlertCooldown() time.Duration {
	return time.Duration(c.AlertCooldownSeconds) * time.Second
}

// Warnings reports suspicious but non-fatal configuration, currently
// threshold pairs with warning above critical. Such pairs are kept as-is:
// classification still checks critical first.
func (c *FleetConfig) Warnings() []string {
	var warnings []string

	check := func(scope string, thresholds health.Thresholds) {
		for metric, pair := range thresholds {
			if pair.Warning > pair.Critical {
				warnings = append(warnings, fmt.Sprintf(
					"%s: %s warning threshold %.1f is above critical %.1f",
					scope, metric, pair.Warning, pair.Critical))
			}
		}
	}

	check("fleet", c.Thresholds)
	for _, node := range c.Nodes {
		check("node "+node.Name, node.Thresholds)
	}

	return warnings
}

// RemediationBindings resolves a node's remediation configuration into
// domain bindings for the decision logic.
func (n *NodeConfig) RemediationBindings() remediation.Bindings {
	if n.Remediation == nil {
		return remediation.Bindings{}
	}
	r := n.Remediation
	dir := r.ScriptsDir
	if dir == "" {
		dir = "./remediation"
	}
	return remediation.Bindings{
		Enabled:       r.Enabled,
		ScriptsDir:    dir,
		OnHighMemory:  r.OnHighMemory,
		OnHighDisk:    r.OnHighDisk,
		OnHighLoad:    r.OnHighLoad,
		OnServiceDown: r.OnServiceDown,
	}
}
