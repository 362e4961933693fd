// Package auth はIdP（Keycloak）への認証委譲とセッショントークンの発行を提供する。
package auth

import (
	"context"

	"github.com/hitoshi/passport/internal/model"
)

// ProviderIdentity はIdPから取得したユーザーのID情報を表す。
// IdP固有のレスポンス形状を変換した後の形であり、上位レイヤーには
// この型とローカルエラー分類のみが渡る。
type ProviderIdentity struct {
	SubjectID string
	Username  string
	Email     string
	FirstName string
	LastName  string
	Roles     []string
}

// Identity はドメインモデルのIdentityに変換する。
func (p *ProviderIdentity) Identity() *model.Identity {
	return &model.Identity{
		SubjectID: p.SubjectID,
		Username:  p.Username,
		Email:     p.Email,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Roles:     p.Roles,
	}
}

// RegisterInput は新規ユーザー登録の入力。
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	// Role は登録時に割り当てるレルムロール。未指定時は"user"。
	Role string
	// Attributes はIdP側に保存する追加属性。
	Attributes map[string][]string
}

// Provider はIdPに対する認証・ユーザー管理操作のインターフェース。
// 将来的にKeycloak以外のOpenID Connectプロバイダーに対応するための抽象化。
type Provider interface {
	// Authenticate は資格情報を検証し、成功時にID情報を返す。
	Authenticate(ctx context.Context, username, password string) (*ProviderIdentity, error)
	// Register は新規ユーザーをIdPに作成する。
	Register(ctx context.Context, input RegisterInput) (*ProviderIdentity, error)
	// VerifyToken はIdP発行のトークンを検証し、ID情報を返す。
	VerifyToken(ctx context.Context, providerToken string) (*ProviderIdentity, error)
	// SendPasswordReset はパスワード再設定メールの送信を依頼する。
	SendPasswordReset(ctx context.Context, email string) error
	// ChangePassword は現在のパスワードを検証した上で新しいパスワードを設定する。
	ChangePassword(ctx context.Context, subjectID, currentPassword, newPassword string) error
	// Ping はIdPへの到達性を確認する。
	Ping(ctx context.Context) error
}
