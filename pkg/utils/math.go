package utils

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// math.go - денежная арифметика на точных десятичных числах
//
// Назначение:
// Перевод сумм в целые минимальные единицы биржи и расчёт "красивой"
// суммы в BTC для суммы в EUR. Все функции чистые, float64 для денег
// не используется.

// Количество знаков минимальных единиц
const (
	BTCPlaces int32 = 8 // 1 BTC = 10^8 satoshi
	EURPlaces int32 = 2 // 1 EUR = 100 cent
)

// ErrAmountOverflow - сумма в минимальных единицах не помещается в int64
var ErrAmountOverflow = errors.New("amount exceeds int64 minor units")

var (
	maxMinorUnits = decimal.NewFromInt(math.MaxInt64)
	minMinorUnits = decimal.NewFromInt(math.MinInt64)
)

// ToMinorUnits переводит сумму в целые минимальные единицы с усечением.
//
// Округление только к нулю: продать или вывести больше доступного нельзя.
// Сумма вне диапазона int64 даёт ErrAmountOverflow.
//
// Примеры:
//   - ToMinorUnits(0.00000123, 8) = 123
//   - ToMinorUnits(99.109, 2) = 9910
//   - ToMinorUnits(0.000000009, 8) = 0
func ToMinorUnits(amount decimal.Decimal, places int32) (int64, error) {
	units := amount.Shift(places).Truncate(0)
	if units.GreaterThan(maxMinorUnits) || units.LessThan(minMinorUnits) {
		return 0, ErrAmountOverflow
	}
	return units.IntPart(), nil
}

// FromMinorUnits - обратное преобразование для логов и сообщений
func FromMinorUnits(units int64, places int32) decimal.Decimal {
	return decimal.New(units, -places)
}

// PrettyForeignAmount считает сумму в иностранной валюте (BTC) для суммы
// local (EUR) по курсу bid, оставляя как можно меньше значащих знаков и
// допуская потерю не больше одной местной единицы.
//
//	trunc((local/bid) * 10^(-exp)) * 10^exp, exp = floor(-log10(bid))
//
// Примеры:
//   - PrettyForeignAmount(100, 25000) = 0.004 (exp = -5 → 0.00400)
//   - PrettyForeignAmount(100, 8000) = 0.0125
//
// Возвращает ноль при неположительном курсе.
func PrettyForeignAmount(local, bid decimal.Decimal) decimal.Decimal {
	if !bid.IsPositive() {
		return decimal.Zero
	}

	// Порядок курса нужен только для выбора точности, float здесь допустим
	exp := int32(math.Floor(-math.Log10(bid.InexactFloat64())))

	return local.Div(bid).Shift(-exp).Truncate(0).Shift(exp)
}
