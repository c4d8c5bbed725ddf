package bot

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"bitcharge/pkg/utils"
)

func TestScheduler_FiveMinuteWindow(t *testing.T) {
	start := time.Unix(1700000000, 0)

	var calls []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			calls = append(calls, name)
			return nil
		}
	}

	s := NewScheduler(start, utils.NewNopLogger(),
		Task{Name: TaskUpdateRates, Interval: time.Minute, Run: record(TaskUpdateRates)},
		Task{Name: TaskExchange, Interval: 5 * time.Minute, Run: record(TaskExchange)},
	)

	for sec := 0; sec <= 300; sec++ {
		s.Tick(context.Background(), start.Add(time.Duration(sec)*time.Second))
	}

	refreshes, exchanges := 0, 0
	for _, c := range calls {
		switch c {
		case TaskUpdateRates:
			refreshes++
		case TaskExchange:
			exchanges++
		}
	}
	if refreshes != 5 {
		t.Errorf("refreshes = %d, want 5", refreshes)
	}
	if exchanges != 1 {
		t.Errorf("exchanges = %d, want 1", exchanges)
	}

	// На t=300 обе задачи: обновление котировок идёт первым
	n := len(calls)
	if n < 2 || calls[n-2] != TaskUpdateRates || calls[n-1] != TaskExchange {
		t.Errorf("last calls = %v, want [update_rates exchange]", calls)
	}
}

func TestScheduler_FirstDeadline(t *testing.T) {
	start := time.Unix(1700000000, 0)
	ran := 0
	s := NewScheduler(start, utils.NewNopLogger(), Task{
		Name:     "t",
		Interval: 10 * time.Second,
		Run:      func(context.Context) error { ran++; return nil },
	})

	s.Tick(context.Background(), start)
	s.Tick(context.Background(), start.Add(9*time.Second))
	if ran != 0 {
		t.Fatalf("task ran %d times before its first deadline", ran)
	}

	s.Tick(context.Background(), start.Add(10*time.Second))
	if ran != 1 {
		t.Fatalf("task ran %d times at its deadline, want 1", ran)
	}

	next, ok := s.Next("t")
	if !ok || !next.Equal(start.Add(20*time.Second)) {
		t.Errorf("Next() = %v, %v", next, ok)
	}
	if _, ok := s.Next("missing"); ok {
		t.Error("Next() for unknown task must report false")
	}
}

func TestScheduler_LateTickRunsOnce(t *testing.T) {
	start := time.Unix(1700000000, 0)
	ran := 0
	s := NewScheduler(start, utils.NewNopLogger(), Task{
		Name:     "t",
		Interval: time.Minute,
		Run:      func(context.Context) error { ran++; return nil },
	})

	// Планировщик "проспал" три интервала
	late := start.Add(3*time.Minute + 30*time.Second)
	s.Tick(context.Background(), late)
	if ran != 1 {
		t.Fatalf("ran = %d after late tick, want 1", ran)
	}

	next, _ := s.Next("t")
	if !next.Equal(late.Add(time.Minute)) {
		t.Errorf("next deadline = %v, want now + interval", next)
	}

	s.Tick(context.Background(), late.Add(time.Second))
	if ran != 1 {
		t.Errorf("ran = %d, missed intervals must not be replayed", ran)
	}
}

func TestScheduler_DeadlineAdvancedBeforeRun(t *testing.T) {
	start := time.Unix(1700000000, 0)
	var s *Scheduler
	var seen time.Time

	s = NewScheduler(start, utils.NewNopLogger(), Task{
		Name:     "t",
		Interval: time.Minute,
		Run: func(context.Context) error {
			seen, _ = s.Next("t")
			return nil
		},
	})

	now := start.Add(time.Minute)
	s.Tick(context.Background(), now)
	if !seen.Equal(now.Add(time.Minute)) {
		t.Errorf("deadline seen by task = %v, want %v", seen, now.Add(time.Minute))
	}
}

func TestScheduler_ErrorsAndPanicsContained(t *testing.T) {
	start := time.Unix(1700000000, 0)
	after := 0

	s := NewScheduler(start, utils.NewNopLogger(),
		Task{Name: "fails", Interval: time.Second, Run: func(context.Context) error {
			return errors.New("boom")
		}},
		Task{Name: "panics", Interval: time.Second, Run: func(context.Context) error {
			panic("unexpected")
		}},
		Task{Name: "after", Interval: time.Second, Run: func(context.Context) error {
			after++
			return nil
		}},
	)

	s.Tick(context.Background(), start.Add(time.Second))
	s.Tick(context.Background(), start.Add(2*time.Second))

	if after != 2 {
		t.Errorf("task after failing ones ran %d times, want 2", after)
	}

	// Упавшая задача не повторяется до следующего срока
	next, _ := s.Next("panics")
	if !next.Equal(start.Add(3 * time.Second)) {
		t.Errorf("panicking task next = %v", next)
	}
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ticks := make(chan struct{}, 100)

	s := NewScheduler(time.Now(), utils.NewNopLogger(), Task{
		Name:     "t",
		Interval: time.Millisecond,
		Run: func(context.Context) error {
			select {
			case ticks <- struct{}{}:
			default:
			}
			return nil
		},
	})

	done := make(chan struct{})
	go func() {
		s.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	select {
	case <-ticks:
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestScheduler_RunUsesInjectedClock(t *testing.T) {
	tests := []struct {
		name   string
		offset time.Duration
	}{
		{"clock ahead of wall time", 24 * time.Hour},
		{"clock behind wall time", -24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := time.Now().Add(tt.offset)
			realStart := time.Now()
			clock := func() time.Time {
				return base.Add(time.Since(realStart))
			}

			ran := make(chan struct{}, 1)
			s := NewScheduler(clock(), utils.NewNopLogger(), Task{
				Name:     "t",
				Interval: time.Millisecond,
				Run: func(context.Context) error {
					select {
					case ran <- struct{}{}:
					default:
					}
					return nil
				},
			})
			s.SetClock(clock)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go s.Run(ctx, 5*time.Millisecond)

			select {
			case <-ran:
			case <-time.After(2 * time.Second):
				t.Fatal("task never ran with an offset clock")
			}
		})
	}
}

func TestScheduler_RunFrozenClockNeverFires(t *testing.T) {
	start := time.Now()
	var runs atomic.Int32

	s := NewScheduler(start, utils.NewNopLogger(), Task{
		Name:     "t",
		Interval: time.Millisecond,
		Run: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	})
	s.SetClock(func() time.Time { return start })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	s.Run(ctx, 5*time.Millisecond)

	if n := runs.Load(); n != 0 {
		t.Errorf("task ran %d times while the clock stood still", n)
	}
}
