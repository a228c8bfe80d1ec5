package port

import (
	"context"
	"time"
)

// CooldownStore хранит отметки последней отправки алертов (Port)
// Ключ — конкатенация имени узла и точного текста алерта.
//
// Acquire атомарно проверяет и записывает отметку: true возвращается
// ровно один раз за окно подавления для каждого ключа. Реализации
// обязаны выдерживать конкурентные вызовы из параллельных проверок узлов.
type CooldownStore interface {
	Acquire(ctx context.Context, key string, window time.Duration) (bool, error)
}
