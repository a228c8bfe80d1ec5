package health

import (
	"fmt"
	"time"
)

// ServiceStatus описывает состояние наблюдаемого сервиса.
// Статус выводится детерминированно: running -> HEALTHY, иначе CRITICAL.
type ServiceStatus struct {
	Name    string `json:"name"`
	Running bool   `json:"running"`
	PID     int    `json:"pid,omitempty"`
}

// Status возвращает статус сервиса. WARNING для сервисов не существует.
func (s ServiceStatus) Status() HealthStatus {
	if s.Running {
		return StatusHealthy
	}
	return StatusCritical
}

// NodeHealth — иммутабельный снимок состояния одного узла.
// Создается коллектором на каждой проверке и никогда не мутируется;
// следующая проверка порождает новый снимок. Набор порогов фиксируется
// в снимке, чтобы статус можно было пересчитать офлайн.
type NodeHealth struct {
	Name         string    `json:"name"`
	Host         string    `json:"host"`
	Platform     string    `json:"platform"`
	Timestamp    time.Time `json:"timestamp"`
	Reachable    bool      `json:"reachable"`
	ErrorMessage string    `json:"error_message,omitempty"`

	CPUPercent  float64    `json:"cpu_percent"`
	CPUCount    int        `json:"cpu_count"`
	LoadAverage [3]float64 `json:"load_average"`

	MemoryTotalGB float64 `json:"memory_total_gb"`
	MemoryUsedGB  float64 `json:"memory_used_gb"`
	MemoryPercent float64 `json:"memory_percent"`

	DiskTotalGB float64 `json:"disk_total_gb"`
	DiskUsedGB  float64 `json:"disk_used_gb"`
	DiskPercent float64 `json:"disk_percent"`

	Services []ServiceStatus `json:"services,omitempty"`

	Thresholds Thresholds `json:"thresholds,omitempty"`
}

// NewUnreachable создает синтетический снимок для узла, до которого
// не удалось достучаться (или который неверно сконфигурирован).
func NewUnreachable(name, host, platform, reason string) *NodeHealth {
	return &NodeHealth{
		Name:         name,
		Host:         host,
		Platform:     platform,
		Timestamp:    time.Now(),
		Reachable:    false,
		ErrorMessage: reason,
	}
}

// MemoryStatus возвращает статус памяти по порогам снимка.
func (n *NodeHealth) MemoryStatus() HealthStatus {
	return n.Thresholds.Classify(MetricMemory, n.MemoryPercent)
}

// DiskStatus возвращает статус диска по порогам снимка.
func (n *NodeHealth) DiskStatus() HealthStatus {
	return n.Thresholds.Classify(MetricDisk, n.DiskPercent)
}

// NormalizedLoad возвращает 1-минутный load average на ядро.
func (n *NodeHealth) NormalizedLoad() float64 {
	return NormalizeLoad(n.LoadAverage[0], n.CPUCount)
}

// LoadStatus классифицирует нормализованный load average.
func (n *NodeHealth) LoadStatus() HealthStatus {
	return n.Thresholds.Classify(MetricLoad, n.NormalizedLoad())
}

// Status возвращает общий статус узла.
// Недоступный узел всегда UNREACHABLE, независимо от метрик.
// Иначе берется худший статус среди метрик и сервисов; UNKNOWN
// (метрика без порогов) серьезность не повышает.
func (n *NodeHealth) Status() HealthStatus {
	if !n.Reachable {
		return StatusUnreachable
	}

	statuses := []HealthStatus{
		n.MemoryStatus(),
		n.DiskStatus(),
		n.LoadStatus(),
	}
	for _, svc := range n.Services {
		statuses = append(statuses, svc.Status())
	}

	return Worst(statuses...)
}

// Alerts возвращает детерминированный список алертов для снимка:
// по одному на нарушенную метрику и по одному на остановленный сервис.
// Для недоступного узла — ровно один алерт с причиной.
// Текст алерта служит ключом cooldown-подавления и обязан быть стабильным.
func (n *NodeHealth) Alerts() []string {
	if !n.Reachable {
		reason := n.ErrorMessage
		if reason == "" {
			reason = "Connection failed"
		}
		return []string{fmt.Sprintf("Node unreachable: %s", reason)}
	}

	var alerts []string

	switch n.MemoryStatus() {
	case StatusCritical:
		alerts = append(alerts, fmt.Sprintf("CRITICAL: Memory at %.1f%%", n.MemoryPercent))
	case StatusWarning:
		alerts = append(alerts, fmt.Sprintf("WARNING: Memory at %.1f%%", n.MemoryPercent))
	}

	switch n.DiskStatus() {
	case StatusCritical:
		alerts = append(alerts, fmt.Sprintf("CRITICAL: Disk at %.1f%%", n.DiskPercent))
	case StatusWarning:
		alerts = append(alerts, fmt.Sprintf("WARNING: Disk at %.1f%%", n.DiskPercent))
	}

	switch n.LoadStatus() {
	case StatusCritical:
		alerts = append(alerts, fmt.Sprintf("CRITICAL: Load average %.2f", n.LoadAverage[0]))
	case StatusWarning:
		alerts = append(alerts, fmt.Sprintf("WARNING: Load average %.2f", n.LoadAverage[0]))
	}

	for _, svc := range n.Services {
		if !svc.Running {
			alerts = append(alerts, fmt.Sprintf("CRITICAL: Service '%s' is not running", svc.Name))
		}
	}

	return alerts
}
