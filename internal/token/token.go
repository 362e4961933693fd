// Package token はセッショントークンの発行と検証を提供する。
//
// トークンはHS256署名のJWTであり、サーバー側には永続化しない。
// 有効性は署名と有効期限のみで判定する（失効リストは持たない設計上のトレードオフ。
// TTLを短く保つことで漏洩時の影響を限定する）。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hitoshi/passport/internal/model"
)

// signingMethod は許可する署名アルゴリズム。これ以外は検証段階で拒否する。
var signingMethod = jwt.SigningMethodHS256

// Claims はセッショントークンに埋め込むクレーム。
// subにはIdPのsubject識別子を格納する。
type Claims struct {
	Username  string   `json:"preferred_username,omitempty"`
	Email     string   `json:"email,omitempty"`
	FirstName string   `json:"given_name,omitempty"`
	LastName  string   `json:"family_name,omitempty"`
	Roles     []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// IssuerConfig はIssuerの設定。
type IssuerConfig struct {
	// SigningSecret は新規トークンの署名に使用する鍵。
	SigningSecret string
	// PreviousSigningSecret は鍵ローテーション期間中のみ設定する旧鍵。
	// 設定されている場合、旧鍵で署名済みのトークンも検証を通過する。
	// 新規発行は常にSigningSecretで行う。
	PreviousSigningSecret string
	// TTL はトークンの有効期間（デフォルト30分）。
	TTL time.Duration
	// RefreshWindow は有効期限のどれだけ前からリフレッシュを許可するか。
	RefreshWindow time.Duration
}

// Issuer はセッショントークンの発行・検証・リフレッシュを行う。
type Issuer struct {
	current       []byte
	previous      []byte // nilの場合はローテーション期間外
	ttl           time.Duration
	refreshWindow time.Duration
	now           func() time.Time // テストで差し替え可能
}

// NewIssuer はIssuerを生成する。
func NewIssuer(cfg IssuerConfig) *Issuer {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	if cfg.RefreshWindow <= 0 {
		cfg.RefreshWindow = 10 * time.Minute
	}

	iss := &Issuer{
		current:       []byte(cfg.SigningSecret),
		ttl:           cfg.TTL,
		refreshWindow: cfg.RefreshWindow,
		now:           time.Now,
	}
	if cfg.PreviousSigningSecret != "" {
		iss.previous = []byte(cfg.PreviousSigningSecret)
	}

	return iss
}

// Issue は認証済みIdentityからセッショントークンを発行する。
// 有効期限はissued-at + TTL。発行したトークンと有効期限を返す。
func (i *Issuer) Issue(identity *model.Identity) (string, time.Time, error) {
	if identity == nil || identity.SubjectID == "" {
		return "", time.Time{}, fmt.Errorf("identity with subject ID is required")
	}

	now := i.now()
	expiresAt := now.Add(i.ttl)

	claims := Claims{
		Username:  identity.Username,
		Email:     identity.Email,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		Roles:     identity.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.SubjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(i.current)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, expiresAt, nil
}

// Verify はトークンを検証し、埋め込まれたIdentityを復元する。
// 検証は署名と有効期限のチェックのみで、外部への問い合わせは行わない（副作用なし）。
// 失敗時はTOKEN_MALFORMED / TOKEN_EXPIRED / TOKEN_INVALID_SIGNATUREのいずれかを返す。
func (i *Issuer) Verify(raw string) (*model.Identity, error) {
	claims, err := i.parse(raw, i.current)
	if err != nil && errors.Is(err, jwt.ErrTokenSignatureInvalid) && i.previous != nil {
		// ローテーション期間中は旧鍵でも検証を試みる
		claims, err = i.parse(raw, i.previous)
	}
	if err != nil {
		return nil, translateJWTError(err)
	}

	return &model.Identity{
		SubjectID: claims.Subject,
		Username:  claims.Username,
		Email:     claims.Email,
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
		Roles:     claims.Roles,
	}, nil
}

// Refresh は有効期限が近い有効なトークンを受け取り、期限を延長した新トークンを発行する。
// IdPへの再問い合わせは行わない（即時失効性を犠牲にログイン頻度を下げる設計上の選択）。
// 有効期限までRefreshWindow以上残っている場合は発行しない。
func (i *Issuer) Refresh(raw string) (string, time.Time, error) {
	claims, err := i.parse(raw, i.current)
	if err != nil && errors.Is(err, jwt.ErrTokenSignatureInvalid) && i.previous != nil {
		claims, err = i.parse(raw, i.previous)
	}
	if err != nil {
		return "", time.Time{}, translateJWTError(err)
	}

	remaining := claims.ExpiresAt.Time.Sub(i.now())
	if remaining > i.refreshWindow {
		return "", time.Time{}, model.NewValidationFailedError("トークンの有効期限までまだ時間があるためリフレッシュできません")
	}

	identity := &model.Identity{
		SubjectID: claims.Subject,
		Username:  claims.Username,
		Email:     claims.Email,
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
		Roles:     claims.Roles,
	}

	return i.Issue(identity)
}

// parse は指定鍵でトークンを解析・検証する。
func (i *Issuer) parse(raw string, key []byte) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (interface{}, error) {
			if t.Method != signingMethod {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return key, nil
		},
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, jwt.ErrTokenMalformed
	}
	return claims, nil
}

// translateJWTError はjwtライブラリのエラーをローカルのエラー分類に変換する。
// 生のライブラリエラーを上位レイヤーに漏らさない。
func translateJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return model.NewTokenExpiredError()
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return model.NewTokenInvalidSignatureError()
	default:
		return model.NewTokenMalformedError()
	}
}
