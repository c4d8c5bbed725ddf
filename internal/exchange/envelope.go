package exchange

import (
	"errors"

	jsoniter "github.com/json-iterator/go"
)

// statusError - значение status, при котором текст ошибки лежит в error/message
const statusError = "error"

// envelope - обёртка ответа Coinmotion, одна из трёх форм:
//
//	{"success": true, "payload": {...}}                  → successEnvelope
//	{"success": false, "status": "error", "error": "x"}  → backendErrorEnvelope
//	{"success": false, "status": "pending"}              → unknownStatusEnvelope
type envelope interface {
	isEnvelope()
}

type successEnvelope struct {
	payload jsoniter.RawMessage
}

type backendErrorEnvelope struct {
	message string
}

type unknownStatusEnvelope struct {
	status string
}

func (successEnvelope) isEnvelope()       {}
func (backendErrorEnvelope) isEnvelope()  {}
func (unknownStatusEnvelope) isEnvelope() {}

// decodeEnvelope разбирает обёртку ответа; payload декодируется вызывающим
func decodeEnvelope(body []byte) (envelope, error) {
	f, err := decodeFields(body)
	if err != nil {
		return nil, err
	}

	success := f.boolean("success")
	if err := f.Err(); err != nil {
		return nil, err
	}

	if success {
		payload, _ := f.lookup("payload")
		if err := f.Err(); err != nil {
			return nil, err
		}
		return successEnvelope{payload: payload}, nil
	}

	status := f.text("status")
	if err := f.Err(); err != nil {
		return nil, err
	}
	if status != statusError {
		return unknownStatusEnvelope{status: status}, nil
	}

	// Имя поля зависит от версии API: старые ответы используют "error", новые - "message"
	for _, key := range []string{"error", "message"} {
		if f.has(key) {
			msg := f.text(key)
			if err := f.Err(); err != nil {
				return nil, err
			}
			return backendErrorEnvelope{message: msg}, nil
		}
	}
	return nil, errors.New(`missing field "error" or "message"`)
}
