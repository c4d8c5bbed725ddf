// Package exchange реализует подписанный клиент API биржи Coinmotion.
package exchange

import (
	"context"

	"github.com/shopspring/decimal"
)

// Exchange определяет операции биржи, которые использует worker
type Exchange interface {
	// GetName возвращает имя биржи
	GetName() string

	// Rates получает текущие котировки BTC/EUR (без подписи)
	Rates(ctx context.Context) (Rates, error)

	// Balances получает балансы аккаунта
	Balances(ctx context.Context) (Balances, error)

	// Sell продаёт BTC; сумма задаётся либо в BTC, либо в EUR
	Sell(ctx context.Context, amount SellAmount) (Trade, error)

	// Withdraw выводит EUR на привязанный банковский счёт (сумма в центах)
	Withdraw(ctx context.Context, counterCents int64) (Withdrawal, error)
}

// Rates содержит котировки BTC в EUR
type Rates struct {
	Bid decimal.Decimal // цена, по которой биржа покупает BTC
	Ask decimal.Decimal // цена, по которой биржа продаёт BTC
}

// Clone возвращает независимую копию
func (r Rates) Clone() Rates {
	return Rates{
		Bid: copyDecimal(r.Bid),
		Ask: copyDecimal(r.Ask),
	}
}

// copyDecimal копирует значение вместе с коэффициентом (Coefficient отдаёт копию big.Int)
func copyDecimal(d decimal.Decimal) decimal.Decimal {
	return decimal.NewFromBigInt(d.Coefficient(), d.Exponent())
}

// Balances - снимок балансов аккаунта
//
// Total = Available + Reserved. Не кешируется, запрашивается каждый цикл.
type Balances struct {
	EURTotal     decimal.Decimal
	EURAvailable decimal.Decimal
	EURReserved  decimal.Decimal
	BTCTotal     decimal.Decimal
	BTCAvailable decimal.Decimal
	BTCReserved  decimal.Decimal
}

// Trade - результат продажи
type Trade struct {
	ID            string
	Rate          decimal.Decimal
	Timestamp     string
	CounterAmount decimal.Decimal // EUR
	BaseAmount    decimal.Decimal // BTC
}

// Withdrawal - результат заявки на вывод
type Withdrawal struct {
	ID        int64
	IBAN      string
	BIC       string
	Reference string
}

// amountKind - вариант суммы продажи
type amountKind int

const (
	amountBase    amountKind = iota + 1 // satoshi
	amountCounter                       // cent
)

// SellAmount - сумма продажи: ровно один из двух вариантов
//
// Создаётся только через BaseAmount или CounterAmount, поэтому в запросе
// всегда присутствует ровно одно из полей amount_btc / amount_cur.
type SellAmount struct {
	kind  amountKind
	units int64
}

// BaseAmount - продать указанное количество satoshi
func BaseAmount(satoshis int64) SellAmount {
	return SellAmount{kind: amountBase, units: satoshis}
}

// CounterAmount - продать BTC на указанное количество центов
func CounterAmount(cents int64) SellAmount {
	return SellAmount{kind: amountCounter, units: cents}
}

// IsBase возвращает true, если сумма задана в BTC
func (a SellAmount) IsBase() bool {
	return a.kind == amountBase
}

// Units возвращает сумму в минимальных единицах выбранного варианта
func (a SellAmount) Units() int64 {
	return a.units
}

func (a SellAmount) String() string {
	switch a.kind {
	case amountBase:
		return decimal.New(a.units, -8).String() + " BTC"
	case amountCounter:
		return decimal.New(a.units, -2).StringFixed(2) + " EUR"
	default:
		return "invalid amount"
	}
}
