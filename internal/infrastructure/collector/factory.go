package collector

import (
	"fmt"

	"github.com/dreschagin/node-health-monitor/internal/application/port"
	"github.com/dreschagin/node-health-monitor/pkg/config"
)

// New выбирает коллектор по конфигурации узла.
// Узел без local и без ssh — ошибка конфигурации: проход превратит ее
// в UNREACHABLE снимок.
func New(node config.NodeConfig) (port.Collector, error) {
	switch {
	case node.Local:
		return NewLocalCollector(), nil
	case node.SSH != nil:
		return NewSSHCollector(node), nil
	default:
		return nil, fmt.Errorf("node %s: neither local nor ssh configured", node.Name)
	}
}
