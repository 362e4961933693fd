package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/passport/internal/metrics"
	"github.com/hitoshi/passport/internal/model"
)

// --- モック定義 ---

type mockProvider struct {
	authenticateFn      func(ctx context.Context, username, password string) (*ProviderIdentity, error)
	registerFn          func(ctx context.Context, input RegisterInput) (*ProviderIdentity, error)
	verifyTokenFn       func(ctx context.Context, providerToken string) (*ProviderIdentity, error)
	sendPasswordResetFn func(ctx context.Context, email string) error
	changePasswordFn    func(ctx context.Context, subjectID, currentPassword, newPassword string) error
	pingFn              func(ctx context.Context) error
}

func (m *mockProvider) Authenticate(ctx context.Context, username, password string) (*ProviderIdentity, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, username, password)
	}
	return nil, nil
}

func (m *mockProvider) Register(ctx context.Context, input RegisterInput) (*ProviderIdentity, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, input)
	}
	return nil, nil
}

func (m *mockProvider) VerifyToken(ctx context.Context, providerToken string) (*ProviderIdentity, error) {
	if m.verifyTokenFn != nil {
		return m.verifyTokenFn(ctx, providerToken)
	}
	return nil, nil
}

func (m *mockProvider) SendPasswordReset(ctx context.Context, email string) error {
	if m.sendPasswordResetFn != nil {
		return m.sendPasswordResetFn(ctx, email)
	}
	return nil
}

func (m *mockProvider) ChangePassword(ctx context.Context, subjectID, currentPassword, newPassword string) error {
	if m.changePasswordFn != nil {
		return m.changePasswordFn(ctx, subjectID, currentPassword, newPassword)
	}
	return nil
}

func (m *mockProvider) Ping(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

type mockIssuer struct {
	issueFn   func(identity *model.Identity) (string, time.Time, error)
	refreshFn func(raw string) (string, time.Time, error)
}

func (m *mockIssuer) Issue(identity *model.Identity) (string, time.Time, error) {
	if m.issueFn != nil {
		return m.issueFn(identity)
	}
	return "issued-token", time.Now().Add(30 * time.Minute), nil
}

func (m *mockIssuer) Refresh(raw string) (string, time.Time, error) {
	if m.refreshFn != nil {
		return m.refreshFn(raw)
	}
	return "refreshed-token", time.Now().Add(30 * time.Minute), nil
}

// mockMetrics は呼び出しを記録するだけのメトリクス実装。
type mockMetrics struct {
	loginSuccesses int
	loginFailures  map[string]int
	registrations  int
	refreshes      int
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{loginFailures: map[string]int{}}
}

func (m *mockMetrics) RecordLoginSuccess()                 { m.loginSuccesses++ }
func (m *mockMetrics) RecordLoginFailure(reason string)    { m.loginFailures[reason]++ }
func (m *mockMetrics) RecordRegistration()                 { m.registrations++ }
func (m *mockMetrics) RecordTokenRefreshed()               { m.refreshes++ }
func (m *mockMetrics) RecordProviderRequest(_, _ string)   {}
func (m *mockMetrics) RecordProviderLatency(_ string, _ time.Duration) {}
func (m *mockMetrics) RecordHTTPStatus(_ int)              {}

// --- compile-time interface checks ---
var _ Provider = (*mockProvider)(nil)
var _ TokenIssuer = (*mockIssuer)(nil)
var _ metrics.MetricsCollector = (*mockMetrics)(nil)

func serviceIdentity() *ProviderIdentity {
	return &ProviderIdentity{
		SubjectID: "6f1f63f5-21f6-4d0e-bb64-a37a3a4d32ac",
		Username:  "alice",
		Email:     "alice@example.com",
		Roles:     []string{"user"},
	}
}

// --- テスト ---

// 正しい資格情報でログインするとセッショントークンとIdentityが返ること
func TestLogin_Success_ReturnsSessionToken(t *testing.T) {
	provider := &mockProvider{
		authenticateFn: func(_ context.Context, username, password string) (*ProviderIdentity, error) {
			if username != "alice" || password != "password123" {
				t.Errorf("unexpected credentials: %s / %s", username, password)
			}
			return serviceIdentity(), nil
		},
	}
	m := newMockMetrics()
	svc := NewService(provider, &mockIssuer{}, m)

	session, identity, err := svc.Login(context.Background(), "alice", "password123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if session.Token != "issued-token" {
		t.Errorf("Token = %q, want %q", session.Token, "issued-token")
	}
	if session.TokenType != "Bearer" {
		t.Errorf("TokenType = %q, want Bearer", session.TokenType)
	}
	if identity.SubjectID != "6f1f63f5-21f6-4d0e-bb64-a37a3a4d32ac" {
		t.Errorf("SubjectID = %q", identity.SubjectID)
	}
	if m.loginSuccesses != 1 {
		t.Errorf("loginSuccesses = %d, want 1", m.loginSuccesses)
	}
}

// 資格情報が拒否された場合はINVALID_CREDENTIALSがそのまま返ること
func TestLogin_InvalidCredentials_PropagatesError(t *testing.T) {
	provider := &mockProvider{
		authenticateFn: func(_ context.Context, _, _ string) (*ProviderIdentity, error) {
			return nil, model.NewInvalidCredentialsError()
		},
	}
	m := newMockMetrics()
	svc := NewService(provider, &mockIssuer{}, m)

	_, _, err := svc.Login(context.Background(), "alice", "wrong")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeInvalidCredentials {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeInvalidCredentials)
	}
	if m.loginFailures["invalid_credentials"] != 1 {
		t.Errorf("loginFailures[invalid_credentials] = %d, want 1", m.loginFailures["invalid_credentials"])
	}
}

// IdPに到達できない場合はPROVIDER_UNAVAILABLEが返り、原因別に記録されること
func TestLogin_ProviderUnavailable_RecordsReason(t *testing.T) {
	provider := &mockProvider{
		authenticateFn: func(_ context.Context, _, _ string) (*ProviderIdentity, error) {
			return nil, model.NewProviderUnavailableError()
		},
	}
	m := newMockMetrics()
	svc := NewService(provider, &mockIssuer{}, m)

	_, _, err := svc.Login(context.Background(), "alice", "password123")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeProviderUnavailable {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeProviderUnavailable)
	}
	if m.loginFailures["provider_unavailable"] != 1 {
		t.Errorf("loginFailures[provider_unavailable] = %d, want 1", m.loginFailures["provider_unavailable"])
	}
}

// 空の資格情報はIdPに問い合わせずVALIDATION_FAILEDで拒否されること
func TestLogin_EmptyCredentials_ReturnsValidationError(t *testing.T) {
	called := false
	provider := &mockProvider{
		authenticateFn: func(_ context.Context, _, _ string) (*ProviderIdentity, error) {
			called = true
			return serviceIdentity(), nil
		},
	}
	svc := NewService(provider, &mockIssuer{}, newMockMetrics())

	_, _, err := svc.Login(context.Background(), "", "")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeValidationFailed {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeValidationFailed)
	}
	if called {
		t.Error("provider should not be called with empty credentials")
	}
}

// 登録成功時にIdentityが返り、登録数が記録されること
func TestRegister_Success_ReturnsIdentity(t *testing.T) {
	provider := &mockProvider{
		registerFn: func(_ context.Context, input RegisterInput) (*ProviderIdentity, error) {
			return &ProviderIdentity{
				SubjectID: "new-subject-id",
				Username:  input.Username,
				Email:     input.Email,
				Roles:     []string{"user"},
			}, nil
		},
	}
	m := newMockMetrics()
	svc := NewService(provider, &mockIssuer{}, m)

	identity, err := svc.Register(context.Background(), RegisterInput{
		Username: "bob",
		Email:    "bob@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if identity.SubjectID != "new-subject-id" {
		t.Errorf("SubjectID = %q, want %q", identity.SubjectID, "new-subject-id")
	}
	if m.registrations != 1 {
		t.Errorf("registrations = %d, want 1", m.registrations)
	}
}

// 登録は同一入力でも冪等ではなく、2回目はDUPLICATE_USERになること
func TestRegister_Duplicate_PropagatesError(t *testing.T) {
	provider := &mockProvider{
		registerFn: func(_ context.Context, _ RegisterInput) (*ProviderIdentity, error) {
			return nil, model.NewDuplicateUserError()
		},
	}
	svc := NewService(provider, &mockIssuer{}, newMockMetrics())

	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "bob",
		Email:    "bob@example.com",
		Password: "password123",
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeDuplicateUser {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeDuplicateUser)
	}
}

// 不正な登録入力はIdPに問い合わせずVALIDATION_FAILEDになること
func TestRegister_InvalidInput_ReturnsValidationError(t *testing.T) {
	tests := []struct {
		name  string
		input RegisterInput
	}{
		{"ユーザー名なし", RegisterInput{Email: "a@example.com", Password: "password123"}},
		{"メールアドレス不正", RegisterInput{Username: "bob", Email: "not-an-email", Password: "password123"}},
		{"パスワード短すぎ", RegisterInput{Username: "bob", Email: "a@example.com", Password: "short"}},
	}

	svc := NewService(&mockProvider{}, &mockIssuer{}, newMockMetrics())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.input)

			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Code != model.ErrCodeValidationFailed {
				t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeValidationFailed)
			}
		})
	}
}

// リフレッシュ成功時に新しいトークンが返り、回数が記録されること
func TestRefresh_Success_ReturnsNewToken(t *testing.T) {
	m := newMockMetrics()
	svc := NewService(&mockProvider{}, &mockIssuer{}, m)

	session, err := svc.Refresh(context.Background(), "old-token")
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	if session.Token != "refreshed-token" {
		t.Errorf("Token = %q, want %q", session.Token, "refreshed-token")
	}
	if m.refreshes != 1 {
		t.Errorf("refreshes = %d, want 1", m.refreshes)
	}
}

// パスワード再設定はユーザーが存在しない場合でも成功を返すこと（列挙対策）
func TestRequestPasswordReset_ProviderFailure_StillSucceeds(t *testing.T) {
	provider := &mockProvider{
		sendPasswordResetFn: func(_ context.Context, _ string) error {
			return errors.New("user not found")
		},
	}
	svc := NewService(provider, &mockIssuer{}, newMockMetrics())

	if err := svc.RequestPasswordReset(context.Background(), "nobody@example.com"); err != nil {
		t.Errorf("expected success regardless of provider result, got %v", err)
	}
}

// パスワード変更は新パスワードの長さを検証してからIdPに委譲すること
func TestChangePassword_ShortNewPassword_ReturnsValidationError(t *testing.T) {
	called := false
	provider := &mockProvider{
		changePasswordFn: func(_ context.Context, _, _, _ string) error {
			called = true
			return nil
		},
	}
	svc := NewService(provider, &mockIssuer{}, newMockMetrics())

	err := svc.ChangePassword(context.Background(), "subject-1", "current-password", "short")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeValidationFailed {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeValidationFailed)
	}
	if called {
		t.Error("provider should not be called with invalid new password")
	}
}

// 現在のパスワード不一致はPASSWORD_MISMATCHとして返ること
func TestChangePassword_Mismatch_PropagatesError(t *testing.T) {
	provider := &mockProvider{
		changePasswordFn: func(_ context.Context, _, _, _ string) error {
			return model.NewPasswordMismatchError()
		},
	}
	svc := NewService(provider, &mockIssuer{}, newMockMetrics())

	err := svc.ChangePassword(context.Background(), "subject-1", "wrong-current", "new-password-123")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodePasswordMismatch {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodePasswordMismatch)
	}
}

// IdPに到達できない場合にCheckProviderがエラーを返すこと
func TestCheckProvider_Unreachable_ReturnsError(t *testing.T) {
	provider := &mockProvider{
		pingFn: func(_ context.Context) error {
			return errors.New("connection refused")
		},
	}
	svc := NewService(provider, &mockIssuer{}, newMockMetrics())

	if err := svc.CheckProvider(context.Background()); err == nil {
		t.Error("expected error when provider is unreachable")
	}
}
