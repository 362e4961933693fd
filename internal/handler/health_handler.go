package handler

import (
	"context"
	"net/http"
	"time"
)

// DBPinger はデータベースの到達性確認に必要なインターフェース。
// sql.DBの部分集合として定義する。
type DBPinger interface {
	PingContext(ctx context.Context) error
}

// ProviderChecker はIdPの到達性確認に必要なインターフェース。
// auth.Serviceの部分集合として定義する。
type ProviderChecker interface {
	CheckProvider(ctx context.Context) error
}

// HealthHandler はヘルスチェックのHTTPハンドラー。
// データベースとIdPの到達性を確認する。
type HealthHandler struct {
	db       DBPinger
	provider ProviderChecker
	timeout  time.Duration
}

// NewHealthHandler はHealthHandlerを生成する。
func NewHealthHandler(db DBPinger, provider ProviderChecker) *HealthHandler {
	return &HealthHandler{
		db:       db,
		provider: provider,
		timeout:  3 * time.Second,
	}
}

// Check は依存コンポーネントの状態を返す。
// すべて正常なら200、いずれかが到達不能なら503を返す。
// GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status := map[string]string{
		"status":   "ok",
		"database": "ok",
		"provider": "ok",
	}
	healthy := true

	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			status["database"] = "unreachable"
			healthy = false
		}
	}
	if h.provider != nil {
		if err := h.provider.CheckProvider(ctx); err != nil {
			status["provider"] = "unreachable"
			healthy = false
		}
	}

	statusCode := http.StatusOK
	if !healthy {
		status["status"] = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	writeJSONResponse(w, statusCode, status)
}
