package handlers

import (
	"errors"
	"net/http"

	"bitcharge/internal/models"
	"bitcharge/internal/service"
)

// RatesHandler отдаёт закешированные котировки BTC/EUR.
//
// Endpoints:
// - GET /api/v1/rates - текущие bid/ask
// - GET /api/v1/quote?amount_eur=100 - сколько BTC стоит сумма в EUR
// - GET /health - состояние кеша котировок
//
// Handler никогда не обращается к бирже: все ответы строятся из кеша,
// который обновляет worker.
type RatesHandler struct {
	ratesService service.RatesServiceInterface
}

// NewRatesHandler создает новый RatesHandler с внедрением зависимостей.
func NewRatesHandler(ratesService service.RatesServiceInterface) *RatesHandler {
	return &RatesHandler{
		ratesService: ratesService,
	}
}

// GetRates возвращает текущие котировки.
//
// GET /api/v1/rates
//
// Response 200 OK:
//
//	{"bid": "25000.01", "ask": "25100", "updated_at": "2024-03-01T12:00:00Z"}
//
// Response 503 Service Unavailable:
//
//	{"error": "rate currently unavailable", "code": "RATES_UNAVAILABLE"}
func (h *RatesHandler) GetRates(w http.ResponseWriter, r *http.Request) {
	if h.ratesService == nil {
		writeError(w, http.StatusInternalServerError, CodeInternal, "rates service not initialized")
		return
	}

	snap, err := h.ratesService.Current()
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GetQuote считает сумму в BTC для суммы в EUR по текущему bid.
//
// GET /api/v1/quote?amount_eur=100
//
// Response 200 OK:
//
//	{"amount_eur": "100", "amount_btc": "0.004", "bid": "25000", "rates_at": "..."}
//
// Response 400 Bad Request - amount_eur отсутствует или не положительный.
// Response 503 Service Unavailable - котировок нет или они устарели.
func (h *RatesHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	if h.ratesService == nil {
		writeError(w, http.StatusInternalServerError, CodeInternal, "rates service not initialized")
		return
	}

	quote, err := h.ratesService.Quote(r.URL.Query().Get("amount_eur"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// Health возвращает 200, если котировки свежие, иначе 503.
//
// GET /health
func (h *RatesHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.ratesService == nil {
		writeError(w, http.StatusInternalServerError, CodeInternal, "rates service not initialized")
		return
	}

	health := h.ratesService.Health()
	status := http.StatusOK
	if health.Status != models.HealthOK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

func (h *RatesHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, CodeInvalidAmount, service.ErrInvalidAmount.Error())
	case errors.Is(err, service.ErrRatesUnavailable):
		writeError(w, http.StatusServiceUnavailable, CodeRatesUnavailable, service.ErrRatesUnavailable.Error())
	default:
		writeError(w, http.StatusInternalServerError, CodeInternal, err.Error())
	}
}
