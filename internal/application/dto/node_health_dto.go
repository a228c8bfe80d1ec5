package dto

import (
	"time"

	"github.com/dreschagin/node-health-monitor/internal/domain/health"
)

// NodeHealthDTO представляет снимок узла для отдачи наружу (JSON)
// Вычисляемые статусы materialized, чтобы потребителю не нужна доменная логика.
type NodeHealthDTO struct {
	Name         string    `json:"name"`
	Host         string    `json:"host"`
	Platform     string    `json:"platform"`
	Timestamp    time.Time `json:"timestamp"`
	Reachable    bool      `json:"reachable"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`

	Metrics  NodeMetricsDTO `json:"metrics"`
	Services []ServiceDTO   `json:"services"`
	Alerts   []string       `json:"alerts"`
}

type NodeMetricsDTO struct {
	CPU    CPUMetricsDTO    `json:"cpu"`
	Memory UsageMetricsDTO  `json:"memory"`
	Disk   UsageMetricsDTO  `json:"disk"`
	Load   LoadMetricsDTO   `json:"load"`
}

type CPUMetricsDTO struct {
	Percent float64 `json:"percent"`
	Count   int     `json:"count"`
}

type UsageMetricsDTO struct {
	TotalGB float64 `json:"total_gb"`
	UsedGB  float64 `json:"used_gb"`
	Percent float64 `json:"percent"`
	Status  string  `json:"status"`
}

type LoadMetricsDTO struct {
	Average    [3]float64 `json:"average"`
	Normalized float64    `json:"normalized"`
	Status     string     `json:"status"`
}

type ServiceDTO struct {
	Name    string `json:"name"`
	Running bool   `json:"running"`
	PID     int    `json:"pid,omitempty"`
	Status  string `json:"status"`
}

// FromNodeHealth конвертирует доменный снимок в DTO
func FromNodeHealth(node *health.NodeHealth) *NodeHealthDTO {
	services := make([]ServiceDTO, 0, len(node.Services))
	for _, svc := range node.Services {
		services = append(services, ServiceDTO{
			Name:    svc.Name,
			Running: svc.Running,
			PID:     svc.PID,
			Status:  svc.Status().String(),
		})
	}

	alerts := node.Alerts()
	if alerts == nil {
		alerts = []string{}
	}

	return &NodeHealthDTO{
		Name:         node.Name,
		Host:         node.Host,
		Platform:     node.Platform,
		Timestamp:    node.Timestamp,
		Reachable:    node.Reachable,
		Status:       node.Status().String(),
		ErrorMessage: node.ErrorMessage,
		Metrics: NodeMetricsDTO{
			CPU: CPUMetricsDTO{
				Percent: node.CPUPercent,
				Count:   node.CPUCount,
			},
			Memory: UsageMetricsDTO{
				TotalGB: node.MemoryTotalGB,
				UsedGB:  node.MemoryUsedGB,
				Percent: node.MemoryPercent,
				Status:  node.MemoryStatus().String(),
			},
			Disk: UsageMetricsDTO{
				TotalGB: node.DiskTotalGB,
				UsedGB:  node.DiskUsedGB,
				Percent: node.DiskPercent,
				Status:  node.DiskStatus().String(),
			},
			Load: LoadMetricsDTO{
				Average:    node.LoadAverage,
				Normalized: node.NormalizedLoad(),
				Status:     node.LoadStatus().String(),
			},
		},
		Services: services,
		Alerts:   alerts,
	}
}
