package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"bitcharge/internal/cache"
	"bitcharge/internal/config"
	"bitcharge/internal/exchange"
	"bitcharge/internal/models"
	"bitcharge/pkg/utils"
)

// Имена задач планировщика
const (
	TaskUpdateRates = "update_rates"
	TaskExchange    = "exchange"
)

// ErrStartupAborted - worker завершился, не сообщив результат запуска
var ErrStartupAborted = errors.New("worker exited before reporting startup result")

// Notifier - получатель событий worker'а
//
// Реализуется пакетом internal/websocket/Hub. Вызовы не должны блокировать.
type Notifier interface {
	// BroadcastRates отправляет свежие котировки после каждого обновления кеша
	BroadcastRates(snapshot models.RatesSnapshot)

	// BroadcastAction отправляет результат продажи или вывода
	BroadcastAction(event models.ActionEvent)
}

// Worker - фоновый цикл: обновление котировок и продажа / вывод средств
//
// Все задачи выполняются в одной горутине. С остальным процессом
// worker делит только кеш котировок.
type Worker struct {
	api      exchange.Exchange
	caches   *cache.Caches
	cfg      config.WorkerConfig
	logger   *utils.Logger
	notifier Notifier
	now      func() time.Time
	done     chan struct{}
}

// WorkerOption настраивает Worker
type WorkerOption func(*Worker)

// WithNotifier подключает получателя событий (nil допустим)
func WithNotifier(n Notifier) WorkerOption {
	return func(w *Worker) {
		w.notifier = n
	}
}

// WithClock подменяет источник времени планировщика
func WithClock(now func() time.Time) WorkerOption {
	return func(w *Worker) {
		w.now = now
	}
}

// NewWorker создаёт worker; запуск - через Start
func NewWorker(api exchange.Exchange, caches *cache.Caches, cfg config.WorkerConfig, logger *utils.Logger, opts ...WorkerOption) *Worker {
	if logger == nil {
		logger = utils.L()
	}
	w := &Worker{
		api:    api,
		caches: caches,
		cfg:    cfg,
		logger: logger.WithComponent("worker"),
		now:    time.Now,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start запускает worker и ждёт первого обновления котировок
//
// Если котировки получить не удалось, возвращается ошибка и цикл
// планировщика не запускается. После успешного Start worker работает
// до отмены ctx.
func (w *Worker) Start(ctx context.Context) error {
	ready := make(chan error)
	go w.run(ctx, ready)

	err, ok := <-ready
	if !ok {
		return ErrStartupAborted
	}
	return err
}

// Done закрывается, когда горутина worker'а завершилась
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

func (w *Worker) run(ctx context.Context, ready chan<- error) {
	defer close(w.done)

	reported := false
	defer func() {
		if reported {
			return
		}
		if rec := recover(); rec != nil {
			w.logger.Error("Worker panicked during startup", utils.Any("panic", rec))
		}
		close(ready)
	}()

	if err := w.updateRates(ctx); err != nil {
		reported = true
		ready <- fmt.Errorf("initial rates update: %w", err)
		return
	}

	tasks := []Task{
		{Name: TaskUpdateRates, Interval: w.cfg.RateRefreshInterval, Run: w.updateRates},
		{Name: TaskExchange, Interval: w.cfg.ExchangeInterval, Run: w.exchangeCycle},
	}
	scheduler := NewScheduler(w.now(), w.logger, tasks...)
	scheduler.SetClock(w.now)

	reported = true
	ready <- nil

	w.logger.Info("Worker started",
		utils.String("rates", tasks[0].String()),
		utils.String("exchange", tasks[1].String()),
		utils.Duration("heartbeat", w.cfg.Heartbeat),
	)

	WorkerRunning.Set(1)
	defer WorkerRunning.Set(0)

	scheduler.Run(ctx, w.cfg.Heartbeat)
	w.logger.Info("Worker stopped")
}

// updateRates получает котировки и кладёт их в кеш
func (w *Worker) updateRates(ctx context.Context) error {
	rates, err := w.api.Rates(ctx)
	if err != nil {
		return fmt.Errorf("fetch rates: %w", err)
	}

	w.caches.SetRates(rates)
	UpdateCachedRates(rates)

	w.logger.Info("Rates updated",
		utils.Rate("bid", rates.Bid.String()),
		utils.Rate("ask", rates.Ask.String()),
	)

	if w.notifier != nil {
		updatedAt, _ := w.caches.RatesUpdatedAt()
		w.notifier.BroadcastRates(models.RatesSnapshot{
			Bid:       rates.Bid.String(),
			Ask:       rates.Ask.String(),
			UpdatedAt: updatedAt,
		})
	}
	return nil
}

// exchangeCycle - один цикл: балансы → решение → не больше одного вызова API
func (w *Worker) exchangeCycle(ctx context.Context) error {
	balances, err := w.api.Balances(ctx)
	if err != nil {
		return fmt.Errorf("fetch balances: %w", err)
	}
	UpdateBalances(balances)

	action := Decide(balances, w.cfg.WithdrawalFee)
	log := w.logger.With(utils.Action(action.Kind.String()))

	switch action.Kind {
	case ActionSell:
		trade, err := w.api.Sell(ctx, action.Sell)
		w.report(action, trade.ID, err)
		if err != nil {
			return fmt.Errorf("sell %s: %w", action.Sell, err)
		}
		log.Info("BTC sold",
			utils.Amount(action.Amount()),
			utils.String("trade_id", trade.ID),
			utils.Rate("rate", trade.Rate.String()),
			utils.String("base_amount", trade.BaseAmount.String()),
			utils.String("counter_amount", trade.CounterAmount.String()),
			utils.String("timestamp", trade.Timestamp),
		)

	case ActionWithdraw:
		wd, err := w.api.Withdraw(ctx, action.WithdrawCents)
		ref := ""
		if err == nil {
			ref = strconv.FormatInt(wd.ID, 10)
		}
		w.report(action, ref, err)
		if err != nil {
			return fmt.Errorf("withdraw %d cents: %w", action.WithdrawCents, err)
		}
		log.Info("EUR withdrawn",
			utils.Amount(action.Amount()),
			utils.Int64("withdrawal_id", wd.ID),
			utils.String("iban", wd.IBAN),
			utils.String("bic", wd.BIC),
			utils.String("reference", wd.Reference),
		)

	default:
		RecordAction(ActionNone, true)
		log.Debug("Nothing to exchange",
			utils.String("btc_available", balances.BTCAvailable.String()),
			utils.String("eur_available", balances.EURAvailable.String()),
		)
	}
	return nil
}

// report публикует исход действия в метрики и подписчикам
func (w *Worker) report(action Action, reference string, err error) {
	RecordAction(action.Kind, err == nil)
	if w.notifier == nil {
		return
	}

	event := models.ActionEvent{
		Action:    action.Kind.String(),
		Amount:    action.Amount(),
		Success:   err == nil,
		Reference: reference,
		Timestamp: w.now(),
	}
	if err != nil {
		event.Error = err.Error()
	}
	w.notifier.BroadcastAction(event)
}
