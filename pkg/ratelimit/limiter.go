package ratelimit

import (
	"context"
	"sync"
	"time"
)

// RateLimiter - Token Bucket ограничитель частоты запросов к API биржи
//
// Ведро наполняется со скоростью rate токенов/сек до ёмкости burst,
// каждый запрос забирает один токен. Ограничитель только задерживает
// запросы, повторов после ошибок он не делает.
//
// Использование:
//
//	limiter := NewRateLimiter(5, 5) // 5 req/sec
//	if err := limiter.Wait(ctx); err != nil { ... }
type RateLimiter struct {
	rate       float64   // токенов в секунду
	burst      float64   // максимальная ёмкость
	tokens     float64   // текущее количество токенов
	lastRefill time.Time // время последнего пополнения
	mu         sync.Mutex
}

// NewRateLimiter создаёт ограничитель
//
// rate <= 0 заменяется на 5 req/sec, burst < 1 - на rate.
func NewRateLimiter(rate, burst float64) *RateLimiter {
	if rate <= 0 {
		rate = 5
	}
	if burst < 1 {
		burst = rate
	}

	return &RateLimiter{
		rate:       rate,
		burst:      burst,
		tokens:     burst,
		lastRefill: time.Now(),
	}
}

// refill пополняет токены на основе прошедшего времени
// ВАЖНО: вызывается под lock'ом
func (rl *RateLimiter) refill() {
	now := time.Now()
	rl.tokens += now.Sub(rl.lastRefill).Seconds() * rl.rate
	if rl.tokens > rl.burst {
		rl.tokens = rl.burst
	}
	rl.lastRefill = now
}

// Wait блокирует до получения токена или отмены контекста
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		rl.refill()
		if rl.tokens >= 1 {
			rl.tokens--
			rl.mu.Unlock()
			return nil
		}
		waitTime := time.Duration((1 - rl.tokens) / rl.rate * float64(time.Second))
		rl.mu.Unlock()

		timer := time.NewTimer(waitTime)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// Allow забирает токен без ожидания; false, если токенов нет
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

// Tokens возвращает текущее количество токенов (для тестов и метрик)
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	return rl.tokens
}

// Rate возвращает скорость пополнения
func (rl *RateLimiter) Rate() float64 {
	return rl.rate
}

// Burst возвращает ёмкость ведра
func (rl *RateLimiter) Burst() float64 {
	return rl.burst
}
