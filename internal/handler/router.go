package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/passport/internal/metrics"
	"github.com/hitoshi/passport/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Metrics           metrics.MetricsCollector

	// 認証
	AuthService    AuthServiceInterface
	ProfileChecker ProfileChecker

	// プロフィール
	ProfileService ProfileServiceInterface

	// ヘルスチェック
	DBPinger        DBPinger
	ProviderChecker ProviderChecker

	// /metricsで公開するレジストリ
	MetricsGatherer prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → SecurityHeaders → CORS → Logging → Metrics
//
// 認証が必要なルートにはさらに Auth → RateLimit(General) を適用する。
// ログイン・登録系の未認証ルートにはIP単位のレート制限を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.ProfileChecker)
	profileHandler := NewProfileHandler(deps.ProfileService)
	healthHandler := NewHealthHandler(deps.DBPinger, deps.ProviderChecker)

	// --- 認証不要のルート ---

	r.Get("/health", healthHandler.Check)

	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// ログイン・登録系（IP単位のレート制限を適用）
	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.LoginMiddleware())
		}

		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/password-reset", authHandler.PasswordReset)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier))
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}

		r.Route("/auth", func(r chi.Router) {
			r.Get("/me", authHandler.Me)
			r.Get("/me/roles", authHandler.Roles)
			r.Get("/status", authHandler.Status)
			r.Post("/refresh", authHandler.Refresh)
			r.Post("/change-password", authHandler.ChangePassword)
		})

		r.Route("/users/me", func(r chi.Router) {
			r.Get("/", profileHandler.Get)
			r.Post("/", profileHandler.Create)
			r.Put("/", profileHandler.Update)
			r.Delete("/", profileHandler.Delete)
		})
	})

	return r
}
