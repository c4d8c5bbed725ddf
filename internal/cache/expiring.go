// Package cache хранит последние значения, полученные от биржи, с ограничением по времени жизни.
package cache

import (
	"errors"
	"time"

	"bitcharge/pkg/utils"
)

var (
	// ErrNotCached - значение ещё ни разу не записывалось
	ErrNotCached = errors.New("value is not cached")

	// ErrStale - значение старше ttl
	ErrStale = errors.New("cached value is stale")
)

// Cloner - значение, которое умеет возвращать независимую копию
type Cloner[T any] interface {
	Clone() T
}

// ExpiringValue - слот на одно значение с временем записи
//
// Внутренней синхронизации нет: доступ из нескольких горутин
// защищает владелец (см. Caches).
type ExpiringValue[T Cloner[T]] struct {
	value     T
	set       bool
	updatedAt time.Time
	ttl       time.Duration
	now       func() time.Time
	logger    *utils.Logger
}

// ExpiringOption настраивает ExpiringValue
type ExpiringOption func(*options)

type options struct {
	now    func() time.Time
	logger *utils.Logger
}

// WithClock подменяет источник времени (тесты)
func WithClock(now func() time.Time) ExpiringOption {
	return func(o *options) {
		o.now = now
	}
}

// WithLogger задаёт logger для предупреждений о часах
func WithLogger(logger *utils.Logger) ExpiringOption {
	return func(o *options) {
		o.logger = logger
	}
}

// NewExpiringValue создаёт пустой слот с заданным ttl
func NewExpiringValue[T Cloner[T]](ttl time.Duration, opts ...ExpiringOption) *ExpiringValue[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = utils.L().WithComponent("cache")
	}

	return &ExpiringValue[T]{
		ttl:    ttl,
		now:    o.now,
		logger: o.logger,
	}
}

// Set заменяет значение и запоминает время записи
func (c *ExpiringValue[T]) Set(v T) {
	c.value = v
	c.set = true
	c.updatedAt = c.now()
}

// Get возвращает копию значения
//
// Если часы ушли назад относительно момента записи, значение
// считается свежим, в лог пишется предупреждение.
func (c *ExpiringValue[T]) Get() (T, error) {
	var zero T
	if !c.set {
		return zero, ErrNotCached
	}

	age := c.now().Sub(c.updatedAt)
	if age < 0 {
		c.logger.Warn("Clock went backwards, treating cached value as fresh",
			utils.Time("updated_at", c.updatedAt),
			utils.Duration("skew", -age),
		)
		return c.value.Clone(), nil
	}
	if age > c.ttl {
		return zero, ErrStale
	}
	return c.value.Clone(), nil
}

// UpdatedAt возвращает время последней записи; ok=false, если записи не было
func (c *ExpiringValue[T]) UpdatedAt() (t time.Time, ok bool) {
	return c.updatedAt, c.set
}

// TTL возвращает время жизни значения
func (c *ExpiringValue[T]) TTL() time.Duration {
	return c.ttl
}
