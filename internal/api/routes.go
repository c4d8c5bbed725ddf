package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bitcharge/internal/api/handlers"
	"bitcharge/internal/api/middleware"
	"bitcharge/internal/service"
	"bitcharge/pkg/utils"
)

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	RatesService service.RatesServiceInterface

	// Stream обслуживает /ws/stream (websocket.Hub.ServeWS)
	Stream http.HandlerFunc

	// Metrics отдаёт /metrics; по умолчанию promhttp.Handler()
	Metrics http.Handler

	AllowedOrigins []string
	Logger         *utils.Logger
}

// SetupRoutes настраивает все HTTP маршруты приложения
//
// Структура маршрутов:
//
// /api/v1/
//
//	├── GET /rates - закешированные bid/ask
//	└── GET /quote?amount_eur= - сумма в BTC по текущему bid
//
// /ws/
//
//	└── /stream - WebSocket: ratesUpdate, exchangeAction
//
// /health - 200 при свежих котировках, иначе 503
// /metrics - Prometheus
//
// Middleware применяется в следующем порядке:
// 1. Recovery
// 2. Logging
// 3. CORS
func SetupRoutes(deps *Dependencies) *mux.Router {
	if deps == nil {
		deps = &Dependencies{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = utils.L()
	}
	logger = logger.WithComponent("api")

	router := mux.NewRouter()

	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logging(logger))
	router.Use(middleware.CORS(deps.AllowedOrigins))

	if deps.RatesService != nil {
		ratesHandler := handlers.NewRatesHandler(deps.RatesService)

		api := router.PathPrefix("/api/v1").Subrouter()
		api.HandleFunc("/rates", ratesHandler.GetRates).Methods(http.MethodGet, http.MethodOptions)
		api.HandleFunc("/quote", ratesHandler.GetQuote).Methods(http.MethodGet, http.MethodOptions)

		router.HandleFunc("/health", ratesHandler.Health).Methods(http.MethodGet)
	}

	if deps.Stream != nil {
		router.HandleFunc("/ws/stream", deps.Stream).Methods(http.MethodGet)
	}

	metrics := deps.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	router.Handle("/metrics", metrics).Methods(http.MethodGet)

	return router
}
