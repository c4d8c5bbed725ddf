package exchange

import (
	"crypto/tls"
	"net"
	"net/http"
	"sync"
	"time"
)

// HTTPClientConfig содержит настройки HTTP клиента для биржи
type HTTPClientConfig struct {
	// Таймауты соединения
	ConnectTimeout time.Duration // таймаут установки TCP соединения (default: 5s)
	ReadTimeout    time.Duration // таймаут ожидания заголовков ответа (default: 10s)
	TotalTimeout   time.Duration // общий таймаут запроса (default: 30s)

	// Connection pooling
	MaxIdleConns        int           // максимум idle соединений (default: 4)
	MaxIdleConnsPerHost int           // максимум idle соединений на хост (default: 2)
	IdleConnTimeout     time.Duration // таймаут простоя соединения (default: 90s)

	// TLS
	TLSHandshakeTimeout time.Duration // таймаут TLS handshake (default: 5s)

	// Keep-Alive
	DisableKeepAlives bool          // отключить Keep-Alive (default: false)
	KeepAliveInterval time.Duration // интервал TCP Keep-Alive (default: 30s)
}

// DefaultHTTPClientConfig возвращает конфигурацию по умолчанию
//
// Запросов мало (раз в минуту котировки, раз в 5 минут цикл обмена),
// поэтому пул маленький. TotalTimeout - единственный таймаут вызова API.
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    10 * time.Second,
		TotalTimeout:   30 * time.Second,

		MaxIdleConns:        4,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout: 5 * time.Second,

		DisableKeepAlives: false,
		KeepAliveInterval: 30 * time.Second,
	}
}

// HTTPClient - HTTP клиент для API биржи с настроенными таймаутами
type HTTPClient struct {
	client *http.Client
	config HTTPClientConfig
}

// globalClient - общий HTTP клиент для переиспользования соединений
var (
	globalClient     *HTTPClient
	globalClientOnce sync.Once
)

// GetGlobalHTTPClient возвращает общий HTTP клиент с настройками по умолчанию
func GetGlobalHTTPClient() *HTTPClient {
	globalClientOnce.Do(func() {
		globalClient = NewHTTPClient(DefaultHTTPClientConfig())
	})
	return globalClient
}

// NewHTTPClient создаёт новый HTTP клиент с заданной конфигурацией
func NewHTTPClient(config HTTPClientConfig) *HTTPClient {
	dialer := &net.Dialer{
		Timeout:   config.ConnectTimeout,
		KeepAlive: config.KeepAliveInterval,
	}

	transport := &http.Transport{
		Proxy:       http.ProxyFromEnvironment,
		DialContext: dialer.DialContext,

		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,

		TLSHandshakeTimeout: config.TLSHandshakeTimeout,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},

		DisableKeepAlives:     config.DisableKeepAlives,
		ForceAttemptHTTP2:     true,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: config.ReadTimeout,
	}

	return &HTTPClient{
		client: &http.Client{
			Transport: transport,
			Timeout:   config.TotalTimeout,
		},
		config: config,
	}
}

// Do выполняет HTTP запрос
func (hc *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	return hc.client.Do(req)
}

// GetClient возвращает базовый http.Client
func (hc *HTTPClient) GetClient() *http.Client {
	return hc.client
}

// GetConfig возвращает текущую конфигурацию клиента
func (hc *HTTPClient) GetConfig() HTTPClientConfig {
	return hc.config
}

// Close закрывает все idle соединения
func (hc *HTTPClient) Close() {
	if transport, ok := hc.client.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}

// CloseGlobalClient закрывает общий HTTP клиент при graceful shutdown
func CloseGlobalClient() {
	if globalClient != nil {
		globalClient.Close()
	}
}
