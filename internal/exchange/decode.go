package exchange

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

// json - совместимый со стандартной библиотекой кодек, общий для пакета
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// fields - JSON объект, разобранный по ключам, с накоплением первой ошибки
//
// Все обязательные поля проверяются явно: отсутствие поля или null
// считается ошибкой разбора, а не нулевым значением.
type fields struct {
	raw map[string]jsoniter.RawMessage
	err error
}

func decodeFields(data []byte) (*fields, error) {
	var raw map[string]jsoniter.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errors.New("expected JSON object, got null")
	}
	return &fields{raw: raw}, nil
}

// Err возвращает первую ошибку разбора
func (f *fields) Err() error {
	return f.err
}

// has проверяет наличие поля со значением, отличным от null
func (f *fields) has(name string) bool {
	v, ok := f.raw[name]
	return ok && !isNull(v)
}

func (f *fields) lookup(name string) (jsoniter.RawMessage, bool) {
	if f.err != nil {
		return nil, false
	}
	if !f.has(name) {
		f.err = fmt.Errorf("missing field %q", name)
		return nil, false
	}
	return f.raw[name], true
}

func (f *fields) fail(name string, err error) {
	if f.err == nil {
		f.err = fmt.Errorf("field %q: %w", name, err)
	}
}

// money читает денежное поле: JSON строку или JSON число
func (f *fields) money(name string) decimal.Decimal {
	v, ok := f.lookup(name)
	if !ok {
		return decimal.Zero
	}
	d, err := parseDecimal(v)
	if err != nil {
		f.fail(name, err)
	}
	return d
}

func (f *fields) text(name string) string {
	v, ok := f.lookup(name)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		f.fail(name, err)
	}
	return s
}

func (f *fields) integer(name string) int64 {
	v, ok := f.lookup(name)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(string(bytes.TrimSpace(v)), 10, 64)
	if err != nil {
		f.fail(name, err)
	}
	return n
}

func (f *fields) boolean(name string) bool {
	v, ok := f.lookup(name)
	if !ok {
		return false
	}
	var b bool
	if err := json.Unmarshal(v, &b); err != nil {
		f.fail(name, err)
	}
	return b
}

func isNull(v []byte) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

// parseDecimal разбирает денежное значение без промежуточного float64
//
// Строка "123.45" и число 123.45 дают одинаковый результат: число
// разбирается по его исходному тексту.
func parseDecimal(raw []byte) (decimal.Decimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return decimal.Zero, errors.New("empty value")
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(strings.TrimSpace(s))
	}

	if raw[0] != '-' && (raw[0] < '0' || raw[0] > '9') {
		return decimal.Zero, fmt.Errorf("expected number or numeric string, got %s", raw)
	}
	return decimal.NewFromString(string(raw))
}

// ============ Модели ============

func (r *Rates) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	r.Bid = f.money("btc_bid")
	r.Ask = f.money("btc_ask")
	return f.Err()
}

func (r Rates) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Bid string `json:"btc_bid"`
		Ask string `json:"btc_ask"`
	}{r.Bid.String(), r.Ask.String()})
}

func (b *Balances) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	b.EURTotal = f.money("eur_bal")
	b.EURAvailable = f.money("eur_avl")
	b.EURReserved = f.money("eur_res")
	b.BTCTotal = f.money("btc_bal")
	b.BTCAvailable = f.money("btc_avl")
	b.BTCReserved = f.money("btc_res")
	return f.Err()
}

func (b Balances) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		EURTotal     string `json:"eur_bal"`
		EURAvailable string `json:"eur_avl"`
		EURReserved  string `json:"eur_res"`
		BTCTotal     string `json:"btc_bal"`
		BTCAvailable string `json:"btc_avl"`
		BTCReserved  string `json:"btc_res"`
	}{
		b.EURTotal.String(), b.EURAvailable.String(), b.EURReserved.String(),
		b.BTCTotal.String(), b.BTCAvailable.String(), b.BTCReserved.String(),
	})
}

func (t *Trade) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	t.ID = f.text("id")
	t.Rate = f.money("rate")
	t.Timestamp = f.text("timestamp")
	t.CounterAmount = f.money("counter_amount")
	t.BaseAmount = f.money("base_amount")
	return f.Err()
}

func (t Trade) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID            string `json:"id"`
		Rate          string `json:"rate"`
		Timestamp     string `json:"timestamp"`
		CounterAmount string `json:"counter_amount"`
		BaseAmount    string `json:"base_amount"`
	}{t.ID, t.Rate.String(), t.Timestamp, t.CounterAmount.String(), t.BaseAmount.String()})
}

func (w *Withdrawal) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	w.ID = f.integer("id")
	w.IBAN = f.text("iban")
	w.BIC = f.text("bic")
	w.Reference = f.text("reference")
	return f.Err()
}

func (w Withdrawal) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID        int64  `json:"id"`
		IBAN      string `json:"iban"`
		BIC       string `json:"bic"`
		Reference string `json:"reference"`
	}{w.ID, w.IBAN, w.BIC, w.Reference})
}

// MarshalJSON кодирует сумму продажи ровно одним полем запроса
func (a SellAmount) MarshalJSON() ([]byte, error) {
	switch a.kind {
	case amountBase:
		return json.Marshal(struct {
			AmountBTC int64 `json:"amount_btc"`
		}{a.units})
	case amountCounter:
		return json.Marshal(struct {
			AmountCur int64 `json:"amount_cur"`
		}{a.units})
	default:
		return nil, errors.New("sell amount is not set")
	}
}
