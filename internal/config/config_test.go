package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bitcharge/pkg/crypto"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("COINMOTION_API_KEY", "key")
	t.Setenv("COINMOTION_API_SECRET", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Addr() != "0.0.0.0:8080" {
		t.Errorf("Addr() = %q", cfg.Server.Addr())
	}
	if cfg.Exchange.BaseURL != "https://api.coinmotion.com/v1" {
		t.Errorf("BaseURL = %q", cfg.Exchange.BaseURL)
	}
	if cfg.Exchange.APIKeyHeader != "X-CoinMotion-APIKey" || cfg.Exchange.SignatureHeader != "X-CoinMotion-Signature" {
		t.Errorf("headers = %q/%q", cfg.Exchange.APIKeyHeader, cfg.Exchange.SignatureHeader)
	}

	w := cfg.Worker
	if w.Heartbeat != time.Second || w.RateRefreshInterval != time.Minute || w.ExchangeInterval != 5*time.Minute {
		t.Errorf("schedule = %+v", w)
	}
	if w.RatesCacheTTL != time.Hour {
		t.Errorf("RatesCacheTTL = %v, want 1h", w.RatesCacheTTL)
	}
	if !w.WithdrawalFee.Equal(decimal.RequireFromString("0.90")) {
		t.Errorf("WithdrawalFee = %s, want 0.90", w.WithdrawalFee)
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("RATES_CACHE_TTL", "120")
	t.Setenv("EXCHANGE_INTERVAL", "10m")
	t.Setenv("WITHDRAWAL_FEE", "1.25")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example, http://b.example ,")
	t.Setenv("COINMOTION_BASE_URL", "http://localhost:1234/v1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	if cfg.Worker.RatesCacheTTL != 2*time.Minute {
		t.Errorf("RatesCacheTTL = %v, want 2m", cfg.Worker.RatesCacheTTL)
	}
	if cfg.Worker.ExchangeInterval != 10*time.Minute {
		t.Errorf("ExchangeInterval = %v", cfg.Worker.ExchangeInterval)
	}
	if !cfg.Worker.WithdrawalFee.Equal(decimal.RequireFromString("1.25")) {
		t.Errorf("WithdrawalFee = %s", cfg.Worker.WithdrawalFee)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "http://b.example" {
		t.Errorf("AllowedOrigins = %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Exchange.BaseURL != "http://localhost:1234/v1" {
		t.Errorf("BaseURL = %q", cfg.Exchange.BaseURL)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"missing api key", map[string]string{"COINMOTION_API_SECRET": "s"}, "COINMOTION_API_KEY"},
		{"missing api secret", map[string]string{"COINMOTION_API_KEY": "k"}, "COINMOTION_API_SECRET"},
		{"bad port", map[string]string{"SERVER_PORT": "70000"}, "SERVER_PORT"},
		{"bad fee", map[string]string{"WITHDRAWAL_FEE": "ninety"}, "WITHDRAWAL_FEE"},
		{"negative fee", map[string]string{"WITHDRAWAL_FEE": "-1"}, "WITHDRAWAL_FEE"},
		{"zero interval", map[string]string{"RATE_REFRESH_INTERVAL": "0s"}, "RATE_REFRESH_INTERVAL"},
		{"zero ttl", map[string]string{"RATES_CACHE_TTL": "0"}, "RATES_CACHE_TTL"},
		{"bad encryption key", map[string]string{"ENCRYPTION_KEY": "short"}, "ENCRYPTION_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("COINMOTION_API_KEY", "")
			t.Setenv("COINMOTION_API_SECRET", "")
			if !strings.HasPrefix(tt.name, "missing") {
				setRequired(t)
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatal("Load() error = nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %s", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_EncryptedSecrets(t *testing.T) {
	keyStr, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	key, _ := crypto.ParseKey(keyStr)
	sealedKey, _ := crypto.Seal("real-key", key)
	sealedSecret, _ := crypto.Seal("real-secret", key)

	t.Setenv("ENCRYPTION_KEY", keyStr)
	t.Setenv("COINMOTION_API_KEY", sealedKey)
	t.Setenv("COINMOTION_API_SECRET", sealedSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Exchange.APIKey != "real-key" || cfg.Exchange.APISecret != "real-secret" {
		t.Errorf("secrets = %q/%q", cfg.Exchange.APIKey, cfg.Exchange.APISecret)
	}
}

func TestLoad_EncryptedSecretWithoutKey(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", "")
	t.Setenv("COINMOTION_API_KEY", "enc:AAAA")
	t.Setenv("COINMOTION_API_SECRET", "plain")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "COINMOTION_API_KEY") {
		t.Errorf("Load() error = %v, want COINMOTION_API_KEY decryption error", err)
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	content := "COINMOTION_API_KEY=file-key\nCOINMOTION_API_SECRET=file-secret\nWITHDRAWAL_FEE=0.50\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	// Переменные окружения имеют приоритет над файлом
	t.Setenv("COINMOTION_API_KEY", "env-key")
	for _, k := range []string{"COINMOTION_API_SECRET", "WITHDRAWAL_FEE"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Exchange.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want env-key", cfg.Exchange.APIKey)
	}
	if cfg.Exchange.APISecret != "file-secret" {
		t.Errorf("APISecret = %q, want file-secret", cfg.Exchange.APISecret)
	}
	if !cfg.Worker.WithdrawalFee.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("WithdrawalFee = %s", cfg.Worker.WithdrawalFee)
	}
}

func TestLoad_MissingEnvFile(t *testing.T) {
	setRequired(t)
	if _, err := Load(filepath.Join(t.TempDir(), "absent.env")); err == nil {
		t.Error("explicit missing env file must be an error")
	}
}

func TestWorkerConfig_Validate(t *testing.T) {
	w := DefaultWorkerConfig()
	if err := w.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	w.Heartbeat = 0
	if err := w.Validate(); err == nil {
		t.Error("zero heartbeat must be rejected")
	}
}
