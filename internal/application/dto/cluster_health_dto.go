package dto

import (
	"time"

	"github.com/dreschagin/node-health-monitor/internal/domain/health"
)

// ClusterHealthDTO представляет снимок кластера для отдачи наружу (JSON)
// Используется HTTP API и WebSocket рассылкой.
type ClusterHealthDTO struct {
	CheckID   string             `json:"check_id"`
	Timestamp time.Time          `json:"timestamp"`
	Status    string             `json:"status"`
	Summary   ClusterSummaryDTO  `json:"summary"`
	Nodes     []*NodeHealthDTO   `json:"nodes"`
	Alerts    []ClusterAlertDTO  `json:"alerts"`
}

// ClusterSummaryDTO содержит сводные счетчики по узлам
type ClusterSummaryDTO struct {
	Total    int `json:"total"`
	Healthy  int `json:"healthy"`
	Warning  int `json:"warning"`
	Critical int `json:"critical"`
}

type ClusterAlertDTO struct {
	Node    string `json:"node"`
	Message string `json:"message"`
}

// FromClusterHealth конвертирует доменный снимок кластера в DTO
func FromClusterHealth(cluster *health.ClusterHealth) *ClusterHealthDTO {
	nodes := make([]*NodeHealthDTO, 0, len(cluster.Nodes))
	for _, node := range cluster.Nodes {
		nodes = append(nodes, FromNodeHealth(node))
	}

	alerts := make([]ClusterAlertDTO, 0)
	for _, alert := range cluster.AllAlerts() {
		alerts = append(alerts, ClusterAlertDTO{Node: alert.Node, Message: alert.Message})
	}

	return &ClusterHealthDTO{
		CheckID:   cluster.CheckID,
		Timestamp: cluster.Timestamp,
		Status:    cluster.Status().String(),
		Summary: ClusterSummaryDTO{
			Total:    len(cluster.Nodes),
			Healthy:  cluster.HealthyCount(),
			Warning:  cluster.WarningCount(),
			Critical: cluster.CriticalCount(),
		},
		Nodes:  nodes,
		Alerts: alerts,
	}
}

// AlertDTO представляет одиночный алерт для push-рассылки
type AlertDTO struct {
	Timestamp time.Time      `json:"timestamp"`
	Node      string         `json:"node"`
	Level     string         `json:"level"` // "warning", "critical", "unreachable"
	Message   string         `json:"message"`
	NodeState *NodeHealthDTO `json:"node_state,omitempty"`
}

// NewAlertDTO создает алерт из снимка узла
func NewAlertDTO(node *health.NodeHealth, message string) *AlertDTO {
	level := "warning"
	switch node.Status() {
	case health.StatusCritical:
		level = "critical"
	case health.StatusUnreachable:
		level = "unreachable"
	}

	return &AlertDTO{
		Timestamp: time.Now(),
		Node:      node.Name,
		Level:     level,
		Message:   message,
		NodeState: FromNodeHealth(node),
	}
}

// SummaryDTO — компактная сводка для /api/v1/health/summary
type SummaryDTO struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Nodes     ClusterSummaryDTO `json:"nodes"`
	Alerts    int               `json:"alerts"`
}

// NewSummaryDTO строит сводку по снимку кластера
func NewSummaryDTO(cluster *health.ClusterHealth) *SummaryDTO {
	return &SummaryDTO{
		Status:    cluster.Status().String(),
		Timestamp: cluster.Timestamp,
		Nodes: ClusterSummaryDTO{
			Total:    len(cluster.Nodes),
			Healthy:  cluster.HealthyCount(),
			Warning:  cluster.WarningCount(),
			Critical: cluster.CriticalCount(),
		},
		Alerts: len(cluster.AllAlerts()),
	}
}
