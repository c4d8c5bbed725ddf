package models

import "time"

// ActionEvent - результат цикла продажи / вывода для UI и логов
type ActionEvent struct {
	Action    string    `json:"action"`              // sell, withdraw
	Amount    string    `json:"amount"`              // "0.00000123 BTC", "99.10 EUR"
	Success   bool      `json:"success"`             // вызов API выполнен без ошибки
	Reference string    `json:"reference,omitempty"` // ID сделки или заявки на вывод
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RatesSnapshot - котировки в виде для отдачи клиентам
//
// Денежные значения передаются строками, чтобы не терять точность в JS.
type RatesSnapshot struct {
	Bid       string    `json:"bid"`
	Ask       string    `json:"ask"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Quote - сколько BTC приходится на сумму в EUR по текущему bid
type Quote struct {
	AmountEUR string    `json:"amount_eur"`
	AmountBTC string    `json:"amount_btc"`
	Bid       string    `json:"bid"`
	RatesAt   time.Time `json:"rates_at"`
}

// Статусы health check
const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
)

// Health - состояние сервиса для /health
type Health struct {
	Status         string     `json:"status"`
	RatesUpdatedAt *time.Time `json:"rates_updated_at,omitempty"`
	Reason         string     `json:"reason,omitempty"`
}
