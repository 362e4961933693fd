package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/passport/internal/model"
)

func testRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(1.0 / 60.0),
		GeneralBurst:    2,
		LoginRate:       rate.Limit(1.0 / 60.0),
		LoginBurst:      1,
		CleanupInterval: time.Minute,
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// バースト上限を超えたリクエストが429になること
func TestGeneralMiddleware_ExceedsBurst_Returns429(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())
	identity := &model.Identity{SubjectID: "subject-1"}

	statuses := make([]int, 3)
	for i := range statuses {
		req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
		req = req.WithContext(ContextWithIdentity(req.Context(), identity))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		statuses[i] = w.Code
	}

	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK {
		t.Errorf("first two requests = %v, want 200", statuses[:2])
	}
	if statuses[2] != http.StatusTooManyRequests {
		t.Errorf("third request = %d, want 429", statuses[2])
	}
}

// 429レスポンスにRetry-Afterヘッダーが含まれること
func TestGeneralMiddleware_RateLimitResponse_HasRetryAfter(t *testing.T) {
	cfg := testRateLimiterConfig()
	cfg.GeneralBurst = 1
	rl := NewRateLimiter(cfg)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())
	identity := &model.Identity{SubjectID: "subject-1"}

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
		req = req.WithContext(ContextWithIdentity(req.Context(), identity))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if i == 1 {
			if w.Code != http.StatusTooManyRequests {
				t.Fatalf("status = %d, want 429", w.Code)
			}
			if w.Header().Get("Retry-After") == "" {
				t.Error("expected Retry-After header")
			}
			body := decodeErrorBody(t, w)
			if body.Code != "RATE_LIMITED" {
				t.Errorf("Code = %q, want RATE_LIMITED", body.Code)
			}
		}
	}
}

// subject_idごとに独立したレート制限が適用されること
func TestGeneralMiddleware_IndependentPerSubject(t *testing.T) {
	cfg := testRateLimiterConfig()
	cfg.GeneralBurst = 1
	rl := NewRateLimiter(cfg)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	// subject-1の上限を使い切る
	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req = req.WithContext(ContextWithIdentity(req.Context(), &model.Identity{SubjectID: "subject-1"}))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	// subject-2は影響を受けない
	req2 := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req2 = req2.WithContext(ContextWithIdentity(req2.Context(), &model.Identity{SubjectID: "subject-2"}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req2)

	if w.Code != http.StatusOK {
		t.Errorf("status for other subject = %d, want 200", w.Code)
	}
	if rl.GeneralLimiterCount() != 2 {
		t.Errorf("GeneralLimiterCount = %d, want 2", rl.GeneralLimiterCount())
	}
}

// 未認証コンテキストでは401になること
func TestGeneralMiddleware_NoIdentity_Returns401(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

// ログインレート制限は接続元IPごとに独立して適用されること
func TestLoginMiddleware_IndependentPerIP(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.LoginMiddleware()(okHandler())

	// 同一IPの2回目は429
	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "203.0.113.7:51000"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != want {
			t.Errorf("request %d: status = %d, want %d", i, w.Code, want)
		}
	}

	// 別IPは影響を受けない
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "198.51.100.9:52000"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status for other IP = %d, want 200", w.Code)
	}
}

// X-Forwarded-Forの先頭IPがレート制限のキーになること
func TestLoginMiddleware_UsesForwardedFor(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.LoginMiddleware()(okHandler())

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:40000" // プロキシのアドレス
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != want {
			t.Errorf("request %d: status = %d, want %d", i, w.Code, want)
		}
	}

	if rl.LoginLimiterCount() != 1 {
		t.Errorf("LoginLimiterCount = %d, want 1", rl.LoginLimiterCount())
	}
}

// クリーンアップで期限切れエントリが削除されること
func TestRateLimiter_Cleanup_RemovesStaleEntries(t *testing.T) {
	cfg := testRateLimiterConfig()
	cfg.CleanupInterval = 10 * time.Millisecond
	rl := NewRateLimiter(cfg)
	defer rl.Stop()

	handler := rl.LoginMiddleware()(okHandler())
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "203.0.113.7:51000"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if rl.LoginLimiterCount() != 1 {
		t.Fatalf("LoginLimiterCount = %d, want 1", rl.LoginLimiterCount())
	}

	// TTL（CleanupInterval * 2）経過後にクリーンアップされるまで待つ
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if rl.LoginLimiterCount() == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Errorf("stale limiter entry was not cleaned up, count = %d", rl.LoginLimiterCount())
}
