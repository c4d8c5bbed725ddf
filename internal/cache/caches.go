package cache

import (
	"sync"
	"time"

	"bitcharge/internal/exchange"
)

// DefaultRatesTTL - время жизни котировок по умолчанию
const DefaultRatesTTL = time.Hour

// Caches - общий набор кешей процесса
//
// Пишет только worker, читают HTTP обработчики.
type Caches struct {
	mu    sync.RWMutex
	rates *ExpiringValue[exchange.Rates]
}

// NewCaches создаёт набор кешей; ttl <= 0 заменяется на DefaultRatesTTL
func NewCaches(ratesTTL time.Duration, opts ...ExpiringOption) *Caches {
	if ratesTTL <= 0 {
		ratesTTL = DefaultRatesTTL
	}
	return &Caches{
		rates: NewExpiringValue[exchange.Rates](ratesTTL, opts...),
	}
}

// SetRates сохраняет свежие котировки
func (c *Caches) SetRates(r exchange.Rates) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rates.Set(r)
}

// Rates возвращает копию котировок или ErrNotCached / ErrStale
func (c *Caches) Rates() (exchange.Rates, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rates.Get()
}

// RatesUpdatedAt возвращает время последнего обновления котировок
func (c *Caches) RatesUpdatedAt() (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rates.UpdatedAt()
}
