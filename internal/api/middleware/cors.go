package middleware

import (
	"net/http"
	"strings"
)

// CORS - middleware для настройки Cross-Origin Resource Sharing
//
// Разрешённые origins приходят из конфигурации (ALLOWED_ORIGINS).
// Пустой список или "*" разрешает любой origin. API только читает
// данные, поэтому разрешены GET и OPTIONS.
//
// Важные заголовки:
// - Access-Control-Allow-Origin: конкретный домен из списка
// - Access-Control-Allow-Methods: GET, OPTIONS
// - Access-Control-Max-Age: 86400 (24 часа)
func CORS(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(origins))
	allowAll := false
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			allowAll = true
		}
		if origin != "" {
			allowed[origin] = true
		}
	}
	if len(allowed) == 0 {
		allowAll = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			switch {
			case origin == "":
				// Запросы без Origin (curl, мониторинг)
			case allowAll:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case allowed[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			// Для неразрешенных origins заголовки не ставим - браузер заблокирует

			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
