package exchange

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"strconv"
	"sync"
	"time"
)

// NonceSource выдаёт nonce для подписанных запросов
//
// nonce = unix_seconds*100 + сотые доли секунды. Значения строго
// возрастают в пределах процесса: если часы дают значение не больше
// предыдущего, выдаётся предыдущее + 1.
type NonceSource struct {
	mu   sync.Mutex
	last uint64
	now  func() time.Time
}

// NewNonceSource создаёт источник nonce на системных часах
func NewNonceSource() *NonceSource {
	return &NonceSource{now: time.Now}
}

// Next возвращает следующий nonce
func (s *NonceSource) Next() uint64 {
	n := nonceAt(s.now())

	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= s.last {
		n = s.last + 1
	}
	s.last = n
	return n
}

func nonceAt(t time.Time) uint64 {
	return uint64(t.Unix())*100 + uint64(t.Nanosecond())/10_000_000
}

// sign возвращает hex(HMAC-SHA512(secret, body)) в нижнем регистре
func sign(secret string, body []byte) string {
	h := hmac.New(sha512.New, []byte(secret))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// buildSignedBody сериализует тело подписанного запроса
//
// Результат - плоский JSON объект: nonce (строкой) и поля payload.
// Подписываются и отправляются ровно эти байты.
func buildSignedBody(nonce uint64, payload interface{}) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	encoded = bytes.TrimSpace(encoded)
	if len(encoded) < 2 || encoded[0] != '{' || encoded[len(encoded)-1] != '}' {
		return nil, errors.New("request payload must encode to a JSON object")
	}
	inner := bytes.TrimSpace(encoded[1 : len(encoded)-1])

	var buf bytes.Buffer
	buf.Grow(len(inner) + 32)
	buf.WriteString(`{"nonce":"`)
	buf.WriteString(strconv.FormatUint(nonce, 10))
	buf.WriteByte('"')
	if len(inner) > 0 {
		buf.WriteByte(',')
		buf.Write(inner)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
