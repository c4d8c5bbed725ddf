package service

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bitcharge/internal/cache"
	"bitcharge/internal/exchange"
	"bitcharge/internal/models"
)

// stubRates - RatesSource с фиксированным ответом
type stubRates struct {
	rates     exchange.Rates
	err       error
	updatedAt time.Time
}

func (s *stubRates) Rates() (exchange.Rates, error) {
	return s.rates, s.err
}

func (s *stubRates) RatesUpdatedAt() (time.Time, bool) {
	return s.updatedAt, !s.updatedAt.IsZero()
}

func fixedRates(bid, ask string) *stubRates {
	return &stubRates{
		rates: exchange.Rates{
			Bid: decimal.RequireFromString(bid),
			Ask: decimal.RequireFromString(ask),
		},
		updatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRatesService_Current(t *testing.T) {
	svc := NewRatesService(fixedRates("25000.01", "25100"))

	snap, err := svc.Current()
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if snap.Bid != "25000.01" || snap.Ask != "25100" {
		t.Errorf("Current() = %+v", snap)
	}
	if !snap.UpdatedAt.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("UpdatedAt = %v", snap.UpdatedAt)
	}
}

func TestRatesService_CurrentUnavailable(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"not cached", cache.ErrNotCached},
		{"stale", cache.ErrStale},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewRatesService(&stubRates{err: tt.err})
			_, err := svc.Current()
			if !errors.Is(err, ErrRatesUnavailable) {
				t.Errorf("Current() error = %v, want ErrRatesUnavailable", err)
			}
		})
	}
}

func TestRatesService_Quote(t *testing.T) {
	tests := []struct {
		name    string
		bid     string
		amount  string
		wantBTC string
		wantErr error
	}{
		{"round bid", "25000", "100", "0.004", nil},
		{"keeps significant digits", "8000", "100", "0.0125", nil},
		{"padded amount", "25000", " 100 ", "0.004", nil},
		{"fractional amount", "30000", "10.50", "0.00035", nil},
		{"zero", "25000", "0", "", ErrInvalidAmount},
		{"negative", "25000", "-5", "", ErrInvalidAmount},
		{"not a number", "25000", "abc", "", ErrInvalidAmount},
		{"empty", "25000", "", "", ErrInvalidAmount},
		{"too large", "25000", "10000000000", "", ErrInvalidAmount},
		{"zero bid", "0", "100", "", ErrRatesUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewRatesService(fixedRates(tt.bid, tt.bid))
			q, err := svc.Quote(tt.amount)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Quote(%q) error = %v, want %v", tt.amount, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Quote(%q) error = %v", tt.amount, err)
			}
			if !decimal.RequireFromString(q.AmountBTC).Equal(decimal.RequireFromString(tt.wantBTC)) {
				t.Errorf("AmountBTC = %s, want %s", q.AmountBTC, tt.wantBTC)
			}
			if q.Bid != tt.bid {
				t.Errorf("Bid = %s, want %s", q.Bid, tt.bid)
			}
		})
	}
}

func TestRatesService_QuoteWithoutRates(t *testing.T) {
	svc := NewRatesService(&stubRates{err: cache.ErrStale})

	_, err := svc.Quote("100")
	if !errors.Is(err, ErrRatesUnavailable) {
		t.Errorf("Quote() error = %v, want ErrRatesUnavailable", err)
	}
}

func TestRatesService_Health(t *testing.T) {
	t.Run("fresh", func(t *testing.T) {
		h := NewRatesService(fixedRates("25000", "25100")).Health()
		if h.Status != models.HealthOK {
			t.Errorf("Status = %s, want ok", h.Status)
		}
		if h.RatesUpdatedAt == nil {
			t.Error("RatesUpdatedAt should be set")
		}
	})

	t.Run("stale", func(t *testing.T) {
		src := fixedRates("25000", "25100")
		src.err = cache.ErrStale
		h := NewRatesService(src).Health()
		if h.Status != models.HealthDegraded {
			t.Errorf("Status = %s, want degraded", h.Status)
		}
		if h.Reason == "" {
			t.Error("Reason should describe the cache error")
		}
	})

	t.Run("never cached", func(t *testing.T) {
		h := NewRatesService(&stubRates{err: cache.ErrNotCached}).Health()
		if h.Status != models.HealthDegraded || h.RatesUpdatedAt != nil {
			t.Errorf("Health() = %+v", h)
		}
	})
}

func TestRatesService_WithCaches(t *testing.T) {
	caches := cache.NewCaches(time.Hour)
	svc := NewRatesService(caches)

	if _, err := svc.Current(); !errors.Is(err, ErrRatesUnavailable) {
		t.Fatalf("empty cache: error = %v", err)
	}

	caches.SetRates(exchange.Rates{
		Bid: decimal.RequireFromString("20000"),
		Ask: decimal.RequireFromString("20100"),
	})

	q, err := svc.Quote("50")
	if err != nil {
		t.Fatalf("Quote() error = %v", err)
	}
	if q.AmountBTC != "0.0025" {
		t.Errorf("AmountBTC = %s, want 0.0025", q.AmountBTC)
	}
}
