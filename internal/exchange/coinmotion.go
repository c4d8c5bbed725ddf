package exchange

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"bitcharge/pkg/ratelimit"
	"bitcharge/pkg/utils"
)

const (
	coinmotionName = "coinmotion"

	// CoinmotionBaseURL - базовый адрес API v1
	CoinmotionBaseURL = "https://api.coinmotion.com/v1"

	// Заголовки подписанных запросов
	DefaultAPIKeyHeader    = "X-CoinMotion-APIKey"
	DefaultSignatureHeader = "X-CoinMotion-Signature"
)

// Endpoints API
const (
	endpointRates    = "/rates"
	endpointBalances = "/balances"
	endpointSell     = "/sell"
	endpointWithdraw = "/withdraw"
)

// CoinmotionConfig - параметры подключения к Coinmotion
type CoinmotionConfig struct {
	BaseURL         string // по умолчанию CoinmotionBaseURL
	APIKey          string
	APISecret       string
	APIKeyHeader    string // по умолчанию DefaultAPIKeyHeader
	SignatureHeader string // по умолчанию DefaultSignatureHeader
}

// Coinmotion реализует интерфейс Exchange для биржи Coinmotion
type Coinmotion struct {
	cfg        CoinmotionConfig
	httpClient *http.Client
	nonces     *NonceSource
	limiter    *ratelimit.RateLimiter
	logger     *utils.Logger
}

// Option настраивает клиент
type Option func(*Coinmotion)

// WithHTTPClient заменяет HTTP клиент (тесты, прокси)
func WithHTTPClient(client *http.Client) Option {
	return func(c *Coinmotion) {
		c.httpClient = client
	}
}

// WithRateLimiter ограничивает частоту запросов клиента
func WithRateLimiter(limiter *ratelimit.RateLimiter) Option {
	return func(c *Coinmotion) {
		c.limiter = limiter
	}
}

// WithLogger задаёт logger клиента
func WithLogger(logger *utils.Logger) Option {
	return func(c *Coinmotion) {
		c.logger = logger.WithExchange(coinmotionName)
	}
}

// WithNonceSource задаёт источник nonce (общий для всех клиентов одного ключа)
func WithNonceSource(nonces *NonceSource) Option {
	return func(c *Coinmotion) {
		c.nonces = nonces
	}
}

// NewCoinmotion создаёт клиент Coinmotion
// По умолчанию использует общий HTTP клиент с connection pooling и таймаутами
func NewCoinmotion(cfg CoinmotionConfig, opts ...Option) *Coinmotion {
	if cfg.BaseURL == "" {
		cfg.BaseURL = CoinmotionBaseURL
	}
	if cfg.APIKeyHeader == "" {
		cfg.APIKeyHeader = DefaultAPIKeyHeader
	}
	if cfg.SignatureHeader == "" {
		cfg.SignatureHeader = DefaultSignatureHeader
	}

	c := &Coinmotion{
		cfg:        cfg,
		httpClient: GetGlobalHTTPClient().GetClient(),
		nonces:     NewNonceSource(),
		logger:     utils.L().WithExchange(coinmotionName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coinmotion) GetName() string {
	return coinmotionName
}

func (c *Coinmotion) Rates(ctx context.Context) (Rates, error) {
	return get[Rates](ctx, c, endpointRates)
}

func (c *Coinmotion) Balances(ctx context.Context) (Balances, error) {
	return post[Balances](ctx, c, endpointBalances, struct{}{})
}

func (c *Coinmotion) Sell(ctx context.Context, amount SellAmount) (Trade, error) {
	return post[Trade](ctx, c, endpointSell, amount)
}

func (c *Coinmotion) Withdraw(ctx context.Context, counterCents int64) (Withdrawal, error) {
	return post[Withdrawal](ctx, c, endpointWithdraw, struct {
		AmountCur int64 `json:"amount_cur"`
	}{counterCents})
}

// get выполняет неподписанный GET запрос
func get[T any](ctx context.Context, c *Coinmotion, endpoint string) (T, error) {
	var zero T

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+endpoint, nil)
	if err != nil {
		return zero, c.fail(endpoint, KindConnection, err)
	}
	return do[T](c, req, endpoint)
}

// post выполняет подписанный POST запрос
func post[T any](ctx context.Context, c *Coinmotion, endpoint string, payload interface{}) (T, error) {
	var zero T

	nonce := c.nonces.Next()
	body, err := buildSignedBody(nonce, payload)
	if err != nil {
		return zero, c.fail(endpoint, KindParse, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return zero, c.fail(endpoint, KindConnection, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(c.cfg.APIKeyHeader, c.cfg.APIKey)
	req.Header.Set(c.cfg.SignatureHeader, sign(c.cfg.APISecret, body))

	c.logger.Debug("Signed request prepared", utils.Endpoint(endpoint), utils.Nonce(nonce))
	return do[T](c, req, endpoint)
}

// do отправляет запрос и разворачивает обёртку ответа в T
//
// HTTP статус не интерпретируется: результат определяет только обёртка.
func do[T any](c *Coinmotion, req *http.Request, endpoint string) (result T, err error) {
	started := time.Now()
	defer func() {
		observeRequest(endpoint, started, err)
	}()

	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return result, c.fail(endpoint, KindConnection, err)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return result, c.fail(endpoint, KindConnection, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return result, c.fail(endpoint, KindConnection, err)
	}

	c.logger.Debug("Coinmotion API response",
		utils.Endpoint(endpoint),
		utils.Int("http_status", resp.StatusCode),
		utils.Latency(time.Since(started)),
	)

	env, err := decodeEnvelope(body)
	if err != nil {
		return result, c.fail(endpoint, KindParse, err)
	}

	switch e := env.(type) {
	case successEnvelope:
		if err := json.Unmarshal(e.payload, &result); err != nil {
			return result, c.fail(endpoint, KindParse, err)
		}
		return result, nil
	case backendErrorEnvelope:
		return result, &APIError{Exchange: coinmotionName, Endpoint: endpoint, Kind: KindBackend, Message: e.message}
	case unknownStatusEnvelope:
		return result, &APIError{Exchange: coinmotionName, Endpoint: endpoint, Kind: KindUnknownStatus, Status: e.status}
	default:
		return result, c.fail(endpoint, KindParse, nil)
	}
}

func (c *Coinmotion) fail(endpoint string, kind ErrorKind, err error) error {
	return &APIError{
		Exchange: coinmotionName,
		Endpoint: endpoint,
		Kind:     kind,
		Original: err,
	}
}
