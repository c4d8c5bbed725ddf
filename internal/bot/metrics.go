package bot

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"bitcharge/internal/exchange"
)

// ============================================================
// Prometheus метрики фонового worker'а
// ============================================================

// ============ Планировщик ============

// TaskExecutions - запуски задач по результату
var TaskExecutions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "bitcharge",
		Subsystem: "worker",
		Name:      "task_executions_total",
		Help:      "Total number of scheduled task executions",
	},
	[]string{"task", "result"}, // result: ok, error, panic
)

// TaskDuration - длительность выполнения задачи
var TaskDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "bitcharge",
		Subsystem: "worker",
		Name:      "task_duration_seconds",
		Help:      "Duration of scheduled task executions in seconds",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	},
	[]string{"task"},
)

// WorkerRunning - 1, пока крутится цикл планировщика
var WorkerRunning = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "bitcharge",
		Subsystem: "worker",
		Name:      "running",
		Help:      "Worker heartbeat loop status (1=running, 0=stopped)",
	},
)

// ============ Котировки и балансы ============

// CachedRate - последние закешированные котировки BTC/EUR
var CachedRate = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "bitcharge",
		Subsystem: "rates",
		Name:      "btc_eur",
		Help:      "Last cached BTC/EUR rate",
	},
	[]string{"side"}, // bid, ask
)

// AccountBalance - балансы аккаунта на последнем цикле
var AccountBalance = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "bitcharge",
		Subsystem: "account",
		Name:      "balance",
		Help:      "Account balance observed on the last exchange cycle",
	},
	[]string{"currency", "kind"}, // kind: total, available, reserved
)

// ============ Действия ============

// ExchangeActions - решения движка и результат их исполнения
var ExchangeActions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "bitcharge",
		Subsystem: "worker",
		Name:      "exchange_actions_total",
		Help:      "Total number of exchange cycle decisions by outcome",
	},
	[]string{"action", "result"}, // action: none, sell, withdraw; result: ok, failed
)

// ============ Вспомогательные функции ============

// RecordTask записывает результат выполнения задачи
func RecordTask(task, result string, took time.Duration) {
	TaskExecutions.WithLabelValues(task, result).Inc()
	TaskDuration.WithLabelValues(task).Observe(took.Seconds())
}

// UpdateCachedRates публикует котировки
func UpdateCachedRates(r exchange.Rates) {
	CachedRate.WithLabelValues("bid").Set(r.Bid.InexactFloat64())
	CachedRate.WithLabelValues("ask").Set(r.Ask.InexactFloat64())
}

// UpdateBalances публикует балансы
func UpdateBalances(b exchange.Balances) {
	AccountBalance.WithLabelValues("EUR", "total").Set(b.EURTotal.InexactFloat64())
	AccountBalance.WithLabelValues("EUR", "available").Set(b.EURAvailable.InexactFloat64())
	AccountBalance.WithLabelValues("EUR", "reserved").Set(b.EURReserved.InexactFloat64())
	AccountBalance.WithLabelValues("BTC", "total").Set(b.BTCTotal.InexactFloat64())
	AccountBalance.WithLabelValues("BTC", "available").Set(b.BTCAvailable.InexactFloat64())
	AccountBalance.WithLabelValues("BTC", "reserved").Set(b.BTCReserved.InexactFloat64())
}

// RecordAction записывает исход цикла продажи / вывода
func RecordAction(action ActionKind, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	ExchangeActions.WithLabelValues(action.String(), result).Inc()
}
