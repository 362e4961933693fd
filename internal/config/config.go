// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
// グローバル変数は使わず、各コンポーネントに明示的に注入する。
type Config struct {
	// Database
	DatabaseURL     string
	DatabaseTimeout time.Duration

	// Keycloak
	KeycloakBaseURL      string
	KeycloakRealm        string
	KeycloakClientID     string
	KeycloakClientSecret string
	ProviderTimeout      time.Duration

	// Session Token
	TokenSigningSecret string
	// TokenPreviousSigningSecret は鍵ローテーション期間中のみ設定する。
	// 設定されている場合、旧鍵で署名済みのトークンも検証を通過する。
	TokenPreviousSigningSecret string
	TokenTTL                   time.Duration
	TokenRefreshWindow         time.Duration

	// Rate Limit（req/min単位）
	RateLimitGeneral int
	RateLimitLogin   int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
// 起動時に失敗させることで、実行時のリクエスト処理中に設定不備が露見することを防ぐ。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.KeycloakBaseURL = os.Getenv("KEYCLOAK_BASE_URL")
	if cfg.KeycloakBaseURL == "" {
		missing = append(missing, "KEYCLOAK_BASE_URL")
	}

	cfg.KeycloakRealm = os.Getenv("KEYCLOAK_REALM")
	if cfg.KeycloakRealm == "" {
		missing = append(missing, "KEYCLOAK_REALM")
	}

	cfg.KeycloakClientID = os.Getenv("KEYCLOAK_CLIENT_ID")
	if cfg.KeycloakClientID == "" {
		missing = append(missing, "KEYCLOAK_CLIENT_ID")
	}

	cfg.KeycloakClientSecret = os.Getenv("KEYCLOAK_CLIENT_SECRET")
	if cfg.KeycloakClientSecret == "" {
		missing = append(missing, "KEYCLOAK_CLIENT_SECRET")
	}

	cfg.TokenSigningSecret = os.Getenv("TOKEN_SIGNING_SECRET")
	if cfg.TokenSigningSecret == "" {
		missing = append(missing, "TOKEN_SIGNING_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.TokenPreviousSigningSecret = os.Getenv("TOKEN_PREVIOUS_SIGNING_SECRET")
	cfg.TokenTTL = getEnvDuration("TOKEN_TTL", 30*time.Minute)
	cfg.TokenRefreshWindow = getEnvDuration("TOKEN_REFRESH_WINDOW", 10*time.Minute)
	cfg.ProviderTimeout = getEnvDuration("PROVIDER_TIMEOUT", 5*time.Second)
	cfg.DatabaseTimeout = getEnvDuration("DATABASE_TIMEOUT", 2*time.Second)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitLogin = getEnvInt("RATE_LIMIT_LOGIN", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
