package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"bitcharge/internal/exchange"
	"bitcharge/pkg/utils"
)

// Task - периодическая задача планировщика
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

type scheduledTask struct {
	Task
	next time.Time
}

// Scheduler - кооперативный планировщик на одной горутине
//
// Задачи выполняются синхронно внутри Tick в порядке регистрации,
// поэтому две задачи никогда не работают одновременно. Пропущенные
// тики не накапливаются: после задержки задача выполняется один раз,
// и следующий срок отсчитывается от момента запуска.
type Scheduler struct {
	tasks  []*scheduledTask
	logger *utils.Logger

	// источник времени для Run; тот же, что дал start
	now func() time.Time
}

// NewScheduler создаёт планировщик; первый срок каждой задачи - start + Interval
func NewScheduler(start time.Time, logger *utils.Logger, tasks ...Task) *Scheduler {
	s := &Scheduler{
		tasks:  make([]*scheduledTask, 0, len(tasks)),
		logger: logger,
		now:    time.Now,
	}
	for _, t := range tasks {
		s.tasks = append(s.tasks, &scheduledTask{Task: t, next: start.Add(t.Interval)})
	}
	return s
}

// Tick запускает все задачи, срок которых наступил к моменту now
//
// Срок задачи сдвигается на now + Interval до запуска, так что
// упавшая задача не повторяется на следующем тике.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	for _, t := range s.tasks {
		if t.next.After(now) {
			continue
		}
		t.next = now.Add(t.Interval)
		s.runTask(ctx, t.Task)
	}
}

// Next возвращает следующий срок задачи
func (s *Scheduler) Next(name string) (time.Time, bool) {
	for _, t := range s.tasks {
		if t.Name == name {
			return t.next, true
		}
	}
	return time.Time{}, false
}

// SetClock задаёт источник времени для Run
//
// Должен совпадать с часами, от которых отсчитан start, иначе сроки
// задач и момент тика расходятся.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// Run вызывает Tick с шагом heartbeat до отмены контекста
//
// Ticker задаёт только ритм; момент тика берётся из часов планировщика.
func (s *Scheduler) Run(ctx context.Context, heartbeat time.Duration) {
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx, s.now())
		}
	}
}

// runTask выполняет задачу, перехватывая ошибку и панику
func (s *Scheduler) runTask(ctx context.Context, t Task) {
	log := s.logger.WithTask(t.Name)
	started := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			RecordTask(t.Name, "panic", time.Since(started))
			log.Error("Task panicked",
				utils.Any("panic", rec),
				utils.String("stack", string(debug.Stack())),
			)
		}
	}()

	err := t.Run(ctx)
	took := time.Since(started)

	if err != nil {
		RecordTask(t.Name, "error", took)
		fields := []utils.Field{utils.Err(err), utils.Latency(took)}
		if kind := exchange.KindOf(err); kind != 0 {
			fields = append(fields, utils.String("kind", kind.String()))
		}
		log.Error("Task failed", fields...)
		return
	}

	RecordTask(t.Name, "ok", took)
	log.Debug("Task completed", utils.Latency(took))
}

func (t Task) String() string {
	return fmt.Sprintf("%s every %s", t.Name, t.Interval)
}
