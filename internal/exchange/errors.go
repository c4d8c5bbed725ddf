package exchange

import (
	"errors"
	"fmt"
)

// ErrorKind - класс ошибки вызова API
type ErrorKind int

const (
	KindConnection    ErrorKind = iota + 1 // биржа недоступна (транспорт)
	KindParse                              // тело ответа не совпало с ожидаемой формой
	KindBackend                            // биржа явно вернула ошибку
	KindUnknownStatus                      // неизвестный статус неуспешного ответа
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindParse:
		return "parse"
	case KindBackend:
		return "backend"
	case KindUnknownStatus:
		return "unknown_status"
	default:
		return "unknown"
	}
}

// Sentinel-ошибки для errors.Is
var (
	ErrConnection    = errors.New("exchange connection error")
	ErrParse         = errors.New("exchange response parse error")
	ErrBackend       = errors.New("exchange backend error")
	ErrUnknownStatus = errors.New("exchange unknown status")
)

// APIError представляет ошибку вызова API биржи
type APIError struct {
	Exchange string
	Endpoint string
	Kind     ErrorKind
	Message  string // текст от биржи (KindBackend)
	Status   string // сырой статус (KindUnknownStatus)
	Original error
}

func (e *APIError) Error() string {
	prefix := e.Exchange + " " + e.Endpoint
	switch e.Kind {
	case KindBackend:
		return fmt.Sprintf("%s: backend error: %s", prefix, e.Message)
	case KindUnknownStatus:
		return fmt.Sprintf("%s: unknown status %q", prefix, e.Status)
	case KindParse:
		return fmt.Sprintf("%s: parse error: %v", prefix, e.Original)
	default:
		return fmt.Sprintf("%s: connection error: %v", prefix, e.Original)
	}
}

// Unwrap возвращает оригинальную ошибку для поддержки errors.Is() и errors.As()
func (e *APIError) Unwrap() error {
	return e.Original
}

// Is сопоставляет ошибку с sentinel своего класса
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrConnection:
		return e.Kind == KindConnection
	case ErrParse:
		return e.Kind == KindParse
	case ErrBackend:
		return e.Kind == KindBackend
	case ErrUnknownStatus:
		return e.Kind == KindUnknownStatus
	}
	return false
}

// KindOf возвращает класс ошибки или 0, если это не APIError
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return 0
}
