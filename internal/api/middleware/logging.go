package middleware

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"bitcharge/pkg/utils"
)

// HeaderRequestID - заголовок с идентификатором запроса
const HeaderRequestID = "X-Request-ID"

type ctxKey int

const requestIDKey ctxKey = iota

// RequestIDFrom возвращает идентификатор запроса из контекста
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// responseWriter запоминает статус и размер ответа
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Hijack нужен для апгрейда /ws/stream через обёрнутый writer
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Logging - middleware для логирования HTTP запросов
//
// Присваивает запросу X-Request-ID (или берёт присланный клиентом),
// кладёт его в context и после обработки пишет в лог метод, путь,
// статус, время обработки, адрес клиента и размер ответа.
func Logging(logger *utils.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = utils.L()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			id := r.Header.Get(HeaderRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(HeaderRequestID, id)
			r = r.WithContext(context.WithValue(r.Context(), requestIDKey, id))

			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(wrapped, r)

			logger.Info("HTTP request",
				utils.String("method", r.Method),
				utils.String("path", r.URL.Path),
				utils.Int("status", wrapped.statusCode),
				utils.Latency(time.Since(start)),
				utils.String("client_ip", r.RemoteAddr),
				utils.Int64("bytes", wrapped.written),
				utils.RequestID(id),
			)
		})
	}
}
