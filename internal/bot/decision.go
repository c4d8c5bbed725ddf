package bot

import (
	"github.com/shopspring/decimal"

	"bitcharge/internal/exchange"
	"bitcharge/pkg/utils"
)

// ActionKind - что делать в цикле обмена
type ActionKind int

const (
	ActionNone     ActionKind = iota // ничего не делать
	ActionSell                       // продать весь доступный BTC
	ActionWithdraw                   // вывести EUR за вычетом комиссии
)

func (k ActionKind) String() string {
	switch k {
	case ActionSell:
		return "sell"
	case ActionWithdraw:
		return "withdraw"
	default:
		return "none"
	}
}

// Action - решение на один цикл: не больше одного вызова с побочным эффектом
type Action struct {
	Kind          ActionKind
	Sell          exchange.SellAmount // для ActionSell
	WithdrawCents int64               // для ActionWithdraw
}

// Amount возвращает сумму действия с валютой; пусто для ActionNone
func (a Action) Amount() string {
	switch a.Kind {
	case ActionSell:
		return a.Sell.String()
	case ActionWithdraw:
		return utils.FromMinorUnits(a.WithdrawCents, utils.EURPlaces).StringFixed(2) + " EUR"
	default:
		return ""
	}
}

func (a Action) String() string {
	if a.Kind == ActionNone {
		return "none"
	}
	return a.Kind.String() + " " + a.Amount()
}

// Decide выбирает действие по балансам
//
// Сначала продаётся весь доступный BTC (в satoshi, с отбрасыванием
// дробной части). Только когда продавать нечего, доступные EUR сверх
// комиссии выводятся целыми центами. Остаток меньше одного satoshi
// считается нулевым балансом. Сумма, не помещающаяся в int64
// минимальных единиц, даёт ActionNone: такой баланс не продаётся
// и не выводится.
func Decide(b exchange.Balances, withdrawalFee decimal.Decimal) Action {
	sats, err := utils.ToMinorUnits(b.BTCAvailable, utils.BTCPlaces)
	if err != nil {
		return Action{Kind: ActionNone}
	}
	if sats > 0 {
		return Action{Kind: ActionSell, Sell: exchange.BaseAmount(sats)}
	}

	if b.EURAvailable.GreaterThan(withdrawalFee) {
		cents, err := utils.ToMinorUnits(b.EURAvailable.Sub(withdrawalFee), utils.EURPlaces)
		if err == nil && cents > 0 {
			return Action{Kind: ActionWithdraw, WithdrawCents: cents}
		}
	}

	return Action{Kind: ActionNone}
}
