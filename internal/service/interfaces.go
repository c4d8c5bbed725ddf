package service

import (
	"time"

	"bitcharge/internal/exchange"
	"bitcharge/internal/models"
)

// RatesSource определяет интерфейс хранилища котировок
//
// Реализуется cache.Caches.
type RatesSource interface {
	Rates() (exchange.Rates, error)
	RatesUpdatedAt() (time.Time, bool)
}

// RatesServiceInterface определяет интерфейс для RatesService
type RatesServiceInterface interface {
	Current() (*models.RatesSnapshot, error)
	Quote(amount string) (*models.Quote, error)
	Health() models.Health
}
