package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/passport/internal/model"
)

type mockVerifier struct {
	verifyFn func(raw string) (*model.Identity, error)
}

func (m *mockVerifier) Verify(raw string) (*model.Identity, error) {
	if m.verifyFn != nil {
		return m.verifyFn(raw)
	}
	return nil, model.NewTokenMalformedError()
}

var _ TokenVerifier = (*mockVerifier)(nil)

func authTestIdentity() *model.Identity {
	return &model.Identity{
		SubjectID: "subject-1",
		Username:  "alice",
		Roles:     []string{"user"},
	}
}

// decodeErrorBody はレスポンスの統一エラーフォーマットをデコードする。
func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) ErrorResponseBody {
	t.Helper()
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v\nraw: %s", err, w.Body.String())
	}
	return body
}

// 有効なBearerトークンでIdentityがコンテキストに注入されること
func TestAuthMiddleware_ValidToken_InjectsIdentity(t *testing.T) {
	verifier := &mockVerifier{
		verifyFn: func(raw string) (*model.Identity, error) {
			if raw != "valid-token" {
				t.Errorf("raw = %q, want valid-token", raw)
			}
			return authTestIdentity(), nil
		},
	}

	var gotIdentity *model.Identity
	handler := NewAuthMiddleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := IdentityFromContext(r.Context())
		if err != nil {
			t.Errorf("IdentityFromContext failed: %v", err)
		}
		gotIdentity = identity
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotIdentity == nil || gotIdentity.SubjectID != "subject-1" {
		t.Errorf("identity = %+v, want subject-1", gotIdentity)
	}
}

// Authorizationヘッダーなしは401 TOKEN_MISSINGになること
func TestAuthMiddleware_MissingHeader_Returns401(t *testing.T) {
	handler := NewAuthMiddleware(&mockVerifier{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	body := decodeErrorBody(t, w)
	if body.Code != model.ErrCodeTokenMissing {
		t.Errorf("Code = %q, want %q", body.Code, model.ErrCodeTokenMissing)
	}
}

// Bearer以外のスキームは401 TOKEN_MALFORMEDになること
func TestAuthMiddleware_NonBearerScheme_Returns401(t *testing.T) {
	handler := NewAuthMiddleware(&mockVerifier{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	for _, header := range []string{"Basic dXNlcjpwYXNz", "Bearer", "Bearer "} {
		req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("header=%q: status = %d, want %d", header, w.Code, http.StatusUnauthorized)
		}
		body := decodeErrorBody(t, w)
		if body.Code != model.ErrCodeTokenMalformed {
			t.Errorf("header=%q: Code = %q, want %q", header, body.Code, model.ErrCodeTokenMalformed)
		}
	}
}

// 検証エラーの分類がそのままレスポンスに反映されること
func TestAuthMiddleware_VerifierError_MapsToErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"期限切れ", model.NewTokenExpiredError(), model.ErrCodeTokenExpired},
		{"署名不正", model.NewTokenInvalidSignatureError(), model.ErrCodeTokenInvalidSignature},
		{"解析不能", model.NewTokenMalformedError(), model.ErrCodeTokenMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := &mockVerifier{
				verifyFn: func(_ string) (*model.Identity, error) {
					return nil, tt.err
				},
			}
			handler := NewAuthMiddleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("handler should not be reached")
			}))

			req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			req.Header.Set("Authorization", "Bearer some-token")
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			body := decodeErrorBody(t, w)
			if body.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", body.Code, tt.wantCode)
			}
		})
	}
}

// ミドルウェアを通過していないコンテキストからはIdentityを取得できないこと
func TestIdentityFromContext_WithoutMiddleware_ReturnsError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)

	if _, err := IdentityFromContext(req.Context()); err == nil {
		t.Error("expected error for context without identity")
	}
}

// ContextWithIdentityで注入したIdentityが取得できること
func TestContextWithIdentity_RoundTrips(t *testing.T) {
	ctx := ContextWithIdentity(httptest.NewRequest(http.MethodGet, "/", nil).Context(), authTestIdentity())

	identity, err := IdentityFromContext(ctx)
	if err != nil {
		t.Fatalf("IdentityFromContext failed: %v", err)
	}
	if identity.SubjectID != "subject-1" {
		t.Errorf("SubjectID = %q, want subject-1", identity.SubjectID)
	}
}
