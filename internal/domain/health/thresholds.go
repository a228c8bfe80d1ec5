package health

// Имена метрик, для которых задаются пороги.
const (
	MetricMemory = "memory"
	MetricDisk   = "disk"
	MetricLoad   = "load"
)

// ThresholdPair задает пару порогов (warning, critical) для одной метрики.
// Ожидается Warning <= Critical; обратный порядок не отклоняется,
// сравнение идет в том же порядке, что и всегда (сначала critical).
type ThresholdPair struct {
	Warning  float64 `yaml:"warning" json:"warning"`
	Critical float64 `yaml:"critical" json:"critical"`
}

// Thresholds хранит пороговые пары по имени метрики.
// Отсутствие пары означает UNKNOWN, а не HEALTHY.
type Thresholds map[string]ThresholdPair

// DefaultThresholds возвращает пороги по умолчанию.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MetricMemory: {Warning: 80.0, Critical: 90.0},
		MetricDisk:   {Warning: 80.0, Critical: 90.0},
		MetricLoad:   {Warning: 4.0, Critical: 8.0},
	}
}

// Classify сравнивает значение с порогами пары.
func Classify(value float64, pair ThresholdPair) HealthStatus {
	if value >= pair.Critical {
		return StatusCritical
	}
	if value >= pair.Warning {
		return StatusWarning
	}
	return StatusHealthy
}

// Classify классифицирует значение метрики по имени.
// Для незарегистрированной метрики возвращает UNKNOWN.
func (t Thresholds) Classify(metric string, value float64) HealthStatus {
	pair, ok := t[metric]
	if !ok {
		return StatusUnknown
	}
	return Classify(value, pair)
}

// Clone возвращает независимую копию набора порогов.
func (t Thresholds) Clone() Thresholds {
	if t == nil {
		return nil
	}
	copied := make(Thresholds, len(t))
	for name, pair := range t {
		copied[name] = pair
	}
	return copied
}

// NormalizeLoad нормализует 1-минутный load average по числу ядер,
// чтобы многоядерные системы не штрафовались.
func NormalizeLoad(load1 float64, cpuCount int) float64 {
	if cpuCount < 1 {
		cpuCount = 1
	}
	return load1 / float64(cpuCount)
}
