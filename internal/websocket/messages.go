package websocket

import (
	"time"

	"bitcharge/internal/models"
)

// MessageType определяет тип WebSocket сообщения
type MessageType string

// Типы WebSocket сообщений
const (
	// MessageTypeRatesUpdate - свежие котировки BTC/EUR
	// Отправляется после каждого обновления кеша (раз в минуту)
	MessageTypeRatesUpdate MessageType = "ratesUpdate"

	// MessageTypeExchangeAction - результат продажи или вывода
	// Отправляется только когда цикл обмена что-то сделал
	MessageTypeExchangeAction MessageType = "exchangeAction"
)

// BaseMessage - общие поля всех сообщений
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// RatesUpdateMessage - сообщение с котировками
type RatesUpdateMessage struct {
	BaseMessage
	Data models.RatesSnapshot `json:"data"`
}

// ExchangeActionMessage - сообщение о действии worker'а
type ExchangeActionMessage struct {
	BaseMessage
	Data models.ActionEvent `json:"data"`
}

// NewRatesUpdateMessage создаёт сообщение ratesUpdate
func NewRatesUpdateMessage(snapshot models.RatesSnapshot) *RatesUpdateMessage {
	return &RatesUpdateMessage{
		BaseMessage: BaseMessage{Type: MessageTypeRatesUpdate, Timestamp: time.Now()},
		Data:        snapshot,
	}
}

// NewExchangeActionMessage создаёт сообщение exchangeAction
func NewExchangeActionMessage(event models.ActionEvent) *ExchangeActionMessage {
	return &ExchangeActionMessage{
		BaseMessage: BaseMessage{Type: MessageTypeExchangeAction, Timestamp: time.Now()},
		Data:        event,
	}
}
