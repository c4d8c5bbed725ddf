package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"bitcharge/pkg/crypto"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server   ServerConfig
	Exchange ExchangeConfig
	Worker   WorkerConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port            int
	Host            string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

// ExchangeConfig - подключение к Coinmotion
type ExchangeConfig struct {
	BaseURL         string
	APIKey          string
	APISecret       string
	APIKeyHeader    string
	SignatureHeader string

	// Ограничение частоты запросов клиента (не retry)
	RateLimit float64 // запросов в секунду
	RateBurst float64
}

// WorkerConfig - расписание и параметры фонового worker'а
type WorkerConfig struct {
	Heartbeat           time.Duration // шаг планировщика
	RateRefreshInterval time.Duration // обновление котировок
	ExchangeInterval    time.Duration // цикл продажи / вывода
	RatesCacheTTL       time.Duration
	WithdrawalFee       decimal.Decimal // EUR
}

// SecurityConfig - настройки безопасности
type SecurityConfig struct {
	EncryptionKey string // для значений enc:<base64>
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level       string
	Format      string
	Output      string
	Development bool
}

// Значения по умолчанию для worker'а
const (
	DefaultHeartbeat           = time.Second
	DefaultRateRefreshInterval = time.Minute
	DefaultExchangeInterval    = 5 * time.Minute
	DefaultRatesCacheTTL       = time.Hour
	DefaultWithdrawalFee       = "0.90"
)

// DefaultWorkerConfig возвращает расписание по умолчанию
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Heartbeat:           DefaultHeartbeat,
		RateRefreshInterval: DefaultRateRefreshInterval,
		ExchangeInterval:    DefaultExchangeInterval,
		RatesCacheTTL:       DefaultRatesCacheTTL,
		WithdrawalFee:       decimal.RequireFromString(DefaultWithdrawalFee),
	}
}

// Load загружает конфигурацию из переменных окружения
//
// Если указан .env файл (по умолчанию ".env" в рабочей директории),
// его значения подставляются для переменных, не заданных в окружении.
func Load(envFiles ...string) (*Config, error) {
	if err := loadDotEnv(envFiles...); err != nil {
		return nil, err
	}

	fee, err := getEnvAsDecimal("WITHDRAWAL_FEE", DefaultWithdrawalFee)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			AllowedOrigins:  getEnvAsList("ALLOWED_ORIGINS", nil),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Exchange: ExchangeConfig{
			BaseURL:         getEnv("COINMOTION_BASE_URL", "https://api.coinmotion.com/v1"),
			APIKey:          getEnv("COINMOTION_API_KEY", ""),
			APISecret:       getEnv("COINMOTION_API_SECRET", ""),
			APIKeyHeader:    getEnv("COINMOTION_API_KEY_HEADER", "X-CoinMotion-APIKey"),
			SignatureHeader: getEnv("COINMOTION_SIGNATURE_HEADER", "X-CoinMotion-Signature"),
			RateLimit:       getEnvAsFloat("COINMOTION_RATE_LIMIT", 5),
			RateBurst:       getEnvAsFloat("COINMOTION_RATE_BURST", 5),
		},
		Worker: WorkerConfig{
			Heartbeat:           getEnvAsDuration("WORKER_HEARTBEAT", DefaultHeartbeat),
			RateRefreshInterval: getEnvAsDuration("RATE_REFRESH_INTERVAL", DefaultRateRefreshInterval),
			ExchangeInterval:    getEnvAsDuration("EXCHANGE_INTERVAL", DefaultExchangeInterval),
			RatesCacheTTL:       getEnvAsSeconds("RATES_CACHE_TTL", DefaultRatesCacheTTL),
			WithdrawalFee:       fee,
		},
		Security: SecurityConfig{
			EncryptionKey: getEnv("ENCRYPTION_KEY", ""),
		},
		Logging: LoggingConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Format:      getEnv("LOG_FORMAT", "json"),
			Output:      getEnv("LOG_OUTPUT", "stderr"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
	}

	// Секреты могут быть заданы зашифрованными
	if err := cfg.revealSecrets(); err != nil {
		return nil, err
	}

	if err := cfg.validateExchange(); err != nil {
		return nil, err
	}

	if err := cfg.validateRanges(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadDotEnv подгружает .env файлы; отсутствие файла по умолчанию не ошибка
func loadDotEnv(files ...string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// revealSecrets расшифровывает значения вида enc:<base64>
func (c *Config) revealSecrets() error {
	var key []byte
	if c.Security.EncryptionKey != "" {
		k, err := crypto.ParseKey(c.Security.EncryptionKey)
		if err != nil {
			return fmt.Errorf("ENCRYPTION_KEY: %w", err)
		}
		key = k
	}

	secrets := []struct {
		name  string
		value *string
	}{
		{"COINMOTION_API_KEY", &c.Exchange.APIKey},
		{"COINMOTION_API_SECRET", &c.Exchange.APISecret},
	}
	for _, s := range secrets {
		plain, err := crypto.Reveal(*s.value, key)
		if err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
		*s.value = plain
	}
	return nil
}

// validateExchange проверяет параметры подключения к бирже
func (c *Config) validateExchange() error {
	if c.Exchange.APIKey == "" {
		return errors.New("COINMOTION_API_KEY is required")
	}
	if c.Exchange.APISecret == "" {
		return errors.New("COINMOTION_API_SECRET is required")
	}
	if c.Exchange.BaseURL == "" {
		return errors.New("COINMOTION_BASE_URL must not be empty")
	}
	return nil
}

// validateRanges проверяет числовые диапазоны параметров
func (c *Config) validateRanges() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Exchange.RateLimit <= 0 {
		return fmt.Errorf("COINMOTION_RATE_LIMIT must be positive, got %v", c.Exchange.RateLimit)
	}

	return c.Worker.Validate()
}

// Validate проверяет расписание worker'а
func (w WorkerConfig) Validate() error {
	durations := []struct {
		name  string
		value time.Duration
	}{
		{"WORKER_HEARTBEAT", w.Heartbeat},
		{"RATE_REFRESH_INTERVAL", w.RateRefreshInterval},
		{"EXCHANGE_INTERVAL", w.ExchangeInterval},
		{"RATES_CACHE_TTL", w.RatesCacheTTL},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %v", d.name, d.value)
		}
	}

	if w.WithdrawalFee.IsNegative() {
		return fmt.Errorf("WITHDRAWAL_FEE cannot be negative, got %s", w.WithdrawalFee)
	}
	return nil
}

// Addr возвращает адрес для http.Server
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsSeconds читает длительность в секундах ("3600") или в формате Go ("1h")
func getEnvAsSeconds(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	return getEnvAsDuration(key, defaultValue)
}

// getEnvAsDecimal читает денежное значение; ошибка разбора не заменяется значением по умолчанию
func getEnvAsDecimal(key, defaultValue string) (decimal.Decimal, error) {
	valueStr := getEnv(key, defaultValue)
	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: invalid decimal %q", key, valueStr)
	}
	return value, nil
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
