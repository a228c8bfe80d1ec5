package health

import "errors"

// HealthStatus представляет уровень здоровья (Value Object)
type HealthStatus string

const (
	StatusHealthy     HealthStatus = "healthy"
	StatusWarning     HealthStatus = "warning"
	StatusCritical    HealthStatus = "critical"
	StatusUnreachable HealthStatus = "unreachable"
	StatusUnknown     HealthStatus = "unknown"
)

// Validate проверяет валидность статуса
func (s HealthStatus) Validate() error {
	switch s {
	case StatusHealthy, StatusWarning, StatusCritical, StatusUnreachable, StatusUnknown:
		return nil
	default:
		return errors.New("invalid health status")
	}
}

// String возвращает строковое представление статуса
func (s HealthStatus) String() string {
	return string(s)
}

// severity задает порядок для свертки "худший побеждает".
// UNKNOWN и UNREACHABLE вне шкалы: UNKNOWN не повышает серьезность,
// UNREACHABLE назначается только на уровне узла.
func (s HealthStatus) severity() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusWarning:
		return 1
	case StatusCritical:
		return 2
	default:
		return -1
	}
}

// Worst возвращает наиболее серьезный статус из набора.
// Статусы вне шкалы (UNKNOWN) игнорируются; пустой набор дает HEALTHY.
func Worst(statuses ...HealthStatus) HealthStatus {
	result := StatusHealthy
	for _, s := range statuses {
		if s.severity() > result.severity() {
			result = s
		}
	}
	return result
}
