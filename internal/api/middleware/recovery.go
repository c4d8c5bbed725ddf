package middleware

import (
	"net/http"
	"runtime/debug"

	"bitcharge/pkg/utils"
)

// Recovery - middleware для восстановления после паники в handlers
//
// Перехватывает panic, пишет в лог сообщение и stack trace и
// возвращает клиенту 500. Детали паники клиенту не отдаются.
func Recovery(logger *utils.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = utils.L()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("HTTP handler panicked",
						utils.Any("panic", rec),
						utils.String("method", r.Method),
						utils.String("path", r.URL.Path),
						utils.RequestID(w.Header().Get(HeaderRequestID)),
						utils.String("stack", string(debug.Stack())),
					)
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
