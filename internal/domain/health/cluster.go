package health

import (
	"time"

	"github.com/google/uuid"
)

// ClusterHealth — снимок состояния всего кластера за один проход проверки.
// Иммутабелен; агрегаты (статус, счетчики) вычисляются, а не хранятся.
type ClusterHealth struct {
	CheckID   string        `json:"check_id"`
	Nodes     []*NodeHealth `json:"nodes"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewClusterHealth собирает снимок кластера из результатов прохода.
func NewClusterHealth(nodes []*NodeHealth) *ClusterHealth {
	return &ClusterHealth{
		CheckID:   uuid.New().String(),
		Nodes:     nodes,
		Timestamp: time.Now(),
	}
}

// Status возвращает общий статус кластера.
// Пустой кластер — UNKNOWN. UNREACHABLE и CRITICAL на уровне кластера
// равнозначны и оба дают CRITICAL.
func (c *ClusterHealth) Status() HealthStatus {
	if len(c.Nodes) == 0 {
		return StatusUnknown
	}

	worst := StatusHealthy
	for _, node := range c.Nodes {
		switch node.Status() {
		case StatusCritical, StatusUnreachable:
			return StatusCritical
		case StatusWarning:
			worst = StatusWarning
		}
	}
	return worst
}

// HealthyCount возвращает число здоровых узлов.
func (c *ClusterHealth) HealthyCount() int {
	return c.countStatus(StatusHealthy)
}

// WarningCount возвращает число узлов с предупреждением.
func (c *ClusterHealth) WarningCount() int {
	return c.countStatus(StatusWarning)
}

// CriticalCount считает узлы CRITICAL и UNREACHABLE одной корзиной —
// для отчетности они намеренно не различаются.
func (c *ClusterHealth) CriticalCount() int {
	count := 0
	for _, node := range c.Nodes {
		switch node.Status() {
		case StatusCritical, StatusUnreachable:
			count++
		}
	}
	return count
}

func (c *ClusterHealth) countStatus(status HealthStatus) int {
	count := 0
	for _, node := range c.Nodes {
		if node.Status() == status {
			count++
		}
	}
	return count
}

// NodeAlert связывает алерт с именем узла.
type NodeAlert struct {
	Node    string `json:"node"`
	Message string `json:"message"`
}

// AllAlerts собирает алерты всех узлов в порядке следования узлов.
func (c *ClusterHealth) AllAlerts() []NodeAlert {
	var alerts []NodeAlert
	for _, node := range c.Nodes {
		for _, msg := range node.Alerts() {
			alerts = append(alerts, NodeAlert{Node: node.Name, Message: msg})
		}
	}
	return alerts
}
