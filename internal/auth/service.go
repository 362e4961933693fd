package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/passport/internal/metrics"
	"github.com/hitoshi/passport/internal/model"
)

// minPasswordLength は登録・パスワード変更時に要求する最小パスワード長。
const minPasswordLength = 8

// TokenIssuer はセッショントークンの発行とリフレッシュのインターフェース。
type TokenIssuer interface {
	Issue(identity *model.Identity) (string, time.Time, error)
	Refresh(raw string) (string, time.Time, error)
}

// SessionToken は発行済みセッショントークンを表す。
type SessionToken struct {
	Token     string
	TokenType string // 常に"Bearer"
	ExpiresAt time.Time
}

// Service は認証に関するビジネスロジックを提供する。
// 資格情報の検証はIdPに委譲し、成功時にローカル署名のセッショントークンを発行する。
type Service struct {
	provider Provider
	issuer   TokenIssuer
	metrics  metrics.MetricsCollector
}

// NewService はServiceを生成する。
func NewService(provider Provider, issuer TokenIssuer, collector metrics.MetricsCollector) *Service {
	return &Service{
		provider: provider,
		issuer:   issuer,
		metrics:  collector,
	}
}

// Login は資格情報をIdPで検証し、セッショントークンを発行する。
// パスワードはIdPへの転送のみに使用し、保持もログ出力もしない。
func (s *Service) Login(ctx context.Context, username, password string) (*SessionToken, *model.Identity, error) {
	if username == "" || password == "" {
		return nil, nil, model.NewValidationFailedError("ユーザー名とパスワードは必須です")
	}

	start := time.Now()
	providerIdentity, err := s.provider.Authenticate(ctx, username, password)
	s.metrics.RecordProviderLatency("authenticate", time.Since(start))
	if err != nil {
		s.recordLoginFailure(err)
		return nil, nil, err
	}
	s.metrics.RecordProviderRequest("authenticate", "success")

	identity := providerIdentity.Identity()
	session, err := s.issueSession(identity)
	if err != nil {
		s.metrics.RecordLoginFailure("token_issue")
		return nil, nil, err
	}

	s.metrics.RecordLoginSuccess()
	slog.Info("user logged in", slog.String("subject_id", identity.SubjectID))

	return session, identity, nil
}

// recordLoginFailure はログイン失敗を原因分類付きで記録する。
func (s *Service) recordLoginFailure(err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case model.ErrCodeInvalidCredentials:
			s.metrics.RecordProviderRequest("authenticate", "rejected")
			s.metrics.RecordLoginFailure("invalid_credentials")
			return
		case model.ErrCodeProviderUnavailable:
			s.metrics.RecordProviderRequest("authenticate", "unavailable")
			s.metrics.RecordLoginFailure("provider_unavailable")
			return
		}
	}
	s.metrics.RecordProviderRequest("authenticate", "error")
	s.metrics.RecordLoginFailure("internal")
}

// Register は新規ユーザーをIdPに登録する。
// 登録後のログインは別途 Login で行う（メールアドレス検証が先行するため自動ログインはしない）。
func (s *Service) Register(ctx context.Context, input RegisterInput) (*model.Identity, error) {
	if err := validateRegisterInput(input); err != nil {
		return nil, err
	}

	start := time.Now()
	providerIdentity, err := s.provider.Register(ctx, input)
	s.metrics.RecordProviderLatency("register", time.Since(start))
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeDuplicateUser {
			s.metrics.RecordProviderRequest("register", "duplicate")
		} else {
			s.metrics.RecordProviderRequest("register", "error")
		}
		return nil, err
	}
	s.metrics.RecordProviderRequest("register", "success")
	s.metrics.RecordRegistration()

	identity := providerIdentity.Identity()
	slog.Info("user registered",
		slog.String("subject_id", identity.SubjectID),
		slog.String("username", identity.Username),
	)

	return identity, nil
}

// validateRegisterInput は登録入力の形式を検証する。
func validateRegisterInput(input RegisterInput) error {
	var problems []string
	if input.Username == "" {
		problems = append(problems, "ユーザー名は必須です")
	}
	if input.Email == "" || !strings.Contains(input.Email, "@") {
		problems = append(problems, "有効なメールアドレスを指定してください")
	}
	if len(input.Password) < minPasswordLength {
		problems = append(problems, fmt.Sprintf("パスワードは%d文字以上を指定してください", minPasswordLength))
	}
	if len(problems) > 0 {
		return model.NewValidationFailedError(strings.Join(problems, "、"))
	}
	return nil
}

// Refresh は有効期限の近いセッショントークンを新しいトークンに差し替える。
// IdPへの問い合わせは行わない。
func (s *Service) Refresh(ctx context.Context, raw string) (*SessionToken, error) {
	newToken, expiresAt, err := s.issuer.Refresh(raw)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordTokenRefreshed()

	return &SessionToken{
		Token:     newToken,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
	}, nil
}

// RequestPasswordReset はパスワード再設定メールの送信を依頼する。
// アカウントの存在有無を外部に漏らさないため、失敗してもログに残すのみで常に成功を返す。
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	if email == "" || !strings.Contains(email, "@") {
		return model.NewValidationFailedError("有効なメールアドレスを指定してください")
	}

	if err := s.provider.SendPasswordReset(ctx, email); err != nil {
		slog.Warn("failed to send password reset email", slog.String("error", err.Error()))
	}
	return nil
}

// ChangePassword は認証済みユーザーのパスワードを変更する。
func (s *Service) ChangePassword(ctx context.Context, subjectID, currentPassword, newPassword string) error {
	if subjectID == "" {
		return fmt.Errorf("subject ID is required")
	}
	if len(newPassword) < minPasswordLength {
		return model.NewValidationFailedError(fmt.Sprintf("新しいパスワードは%d文字以上を指定してください", minPasswordLength))
	}

	if err := s.provider.ChangePassword(ctx, subjectID, currentPassword, newPassword); err != nil {
		return err
	}

	slog.Info("password changed", slog.String("subject_id", subjectID))
	return nil
}

// CheckProvider はIdPへの到達性を確認する。ヘルスチェック用。
func (s *Service) CheckProvider(ctx context.Context) error {
	if err := s.provider.Ping(ctx); err != nil {
		return fmt.Errorf("identity provider unreachable: %w", err)
	}
	return nil
}

// issueSession はIdentityからセッショントークンを発行する。
func (s *Service) issueSession(identity *model.Identity) (*SessionToken, error) {
	raw, expiresAt, err := s.issuer.Issue(identity)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	return &SessionToken{
		Token:     raw,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
	}, nil
}
