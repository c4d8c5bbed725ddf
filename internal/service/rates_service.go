package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"bitcharge/internal/models"
	"bitcharge/pkg/utils"
)

// Ошибки сервиса котировок
var (
	ErrRatesUnavailable = errors.New("rate currently unavailable")
	ErrInvalidAmount    = errors.New("amount must be a positive decimal number")
)

// maxQuoteAmount - верхняя граница суммы для расчёта (EUR)
var maxQuoteAmount = decimal.New(1, 9)

// RatesService отдаёт закешированные котировки HTTP слою
//
// Сервис только читает кеш: котировки обновляет worker. Ошибка кеша
// (нет значения или оно устарело) никогда не подменяется нулём.
type RatesService struct {
	source RatesSource
}

// NewRatesService создаёт сервис поверх кеша
func NewRatesService(source RatesSource) *RatesService {
	return &RatesService{source: source}
}

// Current возвращает текущие котировки
func (s *RatesService) Current() (*models.RatesSnapshot, error) {
	rates, err := s.source.Rates()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRatesUnavailable, err)
	}
	updatedAt, _ := s.source.RatesUpdatedAt()

	return &models.RatesSnapshot{
		Bid:       rates.Bid.String(),
		Ask:       rates.Ask.String(),
		UpdatedAt: updatedAt,
	}, nil
}

// Quote считает, сколько BTC получит покупатель на amount EUR по текущему bid
//
// Сумма в BTC округляется вниз до самого короткого представления,
// при котором потеря не превышает одного евро.
func (s *RatesService) Quote(amount string) (*models.Quote, error) {
	local, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil || !local.IsPositive() || local.GreaterThan(maxQuoteAmount) {
		return nil, ErrInvalidAmount
	}

	rates, err := s.source.Rates()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRatesUnavailable, err)
	}
	if !rates.Bid.IsPositive() {
		return nil, fmt.Errorf("%w: non-positive bid %s", ErrRatesUnavailable, rates.Bid)
	}
	updatedAt, _ := s.source.RatesUpdatedAt()

	return &models.Quote{
		AmountEUR: local.String(),
		AmountBTC: utils.PrettyForeignAmount(local, rates.Bid).String(),
		Bid:       rates.Bid.String(),
		RatesAt:   updatedAt,
	}, nil
}

// Health сообщает, пригодны ли котировки для ответа клиентам
func (s *RatesService) Health() models.Health {
	h := models.Health{Status: models.HealthOK}
	if at, ok := s.source.RatesUpdatedAt(); ok {
		h.RatesUpdatedAt = &at
	}
	if _, err := s.source.Rates(); err != nil {
		h.Status = models.HealthDegraded
		h.Reason = err.Error()
	}
	return h
}
