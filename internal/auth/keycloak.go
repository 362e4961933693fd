package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/hitoshi/passport/internal/model"
)

// ignoredRealmRoles はKeycloakが自動付与する組み込みロール。
// ローカルトークンのロールクレームには含めない。
var ignoredRealmRoles = map[string]bool{
	"offline_access":    true,
	"uma_authorization": true,
	"uma_protection":    true,
}

// KeycloakConfig はKeycloakプロバイダーの設定。
type KeycloakConfig struct {
	BaseURL      string // 例: "http://localhost:8080"（テストではhttptestのURLで上書き可能）
	Realm        string
	ClientID     string
	ClientSecret string

	// Timeout はプロバイダーへの1リクエストあたりのタイムアウト（デフォルト5秒）。
	Timeout time.Duration
	// RetryBackoff は一時エラー時の1回リトライ前の待機時間（デフォルト200ms）。
	// ログインはレイテンシに敏感なためリトライは1回に留める。
	RetryBackoff time.Duration
}

// KeycloakProvider はKeycloakのOpenID Connectエンドポイントと
// Admin REST APIに対する認証・ユーザー管理操作を提供する。
// プロバイダー固有のレスポンス形状はこの境界の内側に閉じ込め、
// 上位レイヤーにはProviderIdentityとローカルエラー分類のみを返す。
type KeycloakProvider struct {
	config KeycloakConfig

	httpClient *http.Client
	// adminClient はclient credentialsでアクセストークンを自動更新するHTTPクライアント。
	adminClient *http.Client
}

// NewKeycloakProvider はKeycloakProviderを生成する。
func NewKeycloakProvider(config KeycloakConfig) *KeycloakProvider {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = 200 * time.Millisecond
	}

	httpClient := &http.Client{Timeout: config.Timeout}

	adminCreds := &clientcredentials.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		TokenURL:     tokenEndpoint(config),
	}
	// Admin APIクライアントの下回りにもタイムアウト付きクライアントを使わせる
	adminCtx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
	adminClient := adminCreds.Client(adminCtx)
	adminClient.Timeout = config.Timeout

	return &KeycloakProvider{
		config:      config,
		httpClient:  httpClient,
		adminClient: adminClient,
	}
}

// keycloakStatusError はKeycloakが2xx以外を返した場合のエラー。
// リトライ判定で参照するためステータスコードを保持する。
type keycloakStatusError struct {
	operation  string
	statusCode int
	body       string
}

func (e *keycloakStatusError) Error() string {
	return fmt.Sprintf("%s failed with status %d: %s", e.operation, e.statusCode, e.body)
}

func tokenEndpoint(cfg KeycloakConfig) string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", cfg.BaseURL, cfg.Realm)
}

func (p *KeycloakProvider) userinfoEndpoint() string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/userinfo", p.config.BaseURL, p.config.Realm)
}

func (p *KeycloakProvider) introspectEndpoint() string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token/introspect", p.config.BaseURL, p.config.Realm)
}

func (p *KeycloakProvider) realmEndpoint() string {
	return fmt.Sprintf("%s/realms/%s", p.config.BaseURL, p.config.Realm)
}

func (p *KeycloakProvider) adminURL(pathFormat string, args ...interface{}) string {
	return fmt.Sprintf("%s/admin/realms/%s", p.config.BaseURL, p.config.Realm) + fmt.Sprintf(pathFormat, args...)
}

// --- Authenticate ---

// keycloakUserinfo はuserinfoエンドポイントのレスポンス。
type keycloakUserinfo struct {
	Sub               string `json:"sub"`
	PreferredUsername string `json:"preferred_username"`
	Email             string `json:"email"`
	GivenName         string `json:"given_name"`
	FamilyName        string `json:"family_name"`
}

// keycloakIntrospection はイントロスペクションエンドポイントのレスポンス（必要な部分のみ）。
type keycloakIntrospection struct {
	Active      bool   `json:"active"`
	Sub         string `json:"sub"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	RealmAccess struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
	ResourceAccess map[string]struct {
		Roles []string `json:"roles"`
	} `json:"resource_access"`
}

// Authenticate はResource Owner Password Credentialsグラントで資格情報を検証し、
// 成功時にIdP上のID情報を返す。
// 資格情報が拒否された場合はINVALID_CREDENTIALS、
// ネットワーク・タイムアウト起因の失敗は1回のリトライ後にPROVIDER_UNAVAILABLEを返す。
func (p *KeycloakProvider) Authenticate(ctx context.Context, username, password string) (*ProviderIdentity, error) {
	oauthCfg := &oauth2.Config{
		ClientID:     p.config.ClientID,
		ClientSecret: p.config.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: tokenEndpoint(p.config)},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	var tok *oauth2.Token
	err := p.withRetry(ctx, func() error {
		var err error
		tok, err = oauthCfg.PasswordCredentialsToken(ctx, username, password)
		return err
	})
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && isCredentialRejection(retrieveErr.Response.StatusCode) {
			return nil, model.NewInvalidCredentialsError()
		}
		return nil, model.NewProviderUnavailableError()
	}

	// ユーザー情報の取得
	userinfo, err := p.fetchUserinfo(ctx, tok.AccessToken)
	if err != nil {
		return nil, err
	}

	// ロールの取得（イントロスペクション）
	roles, err := p.introspectRoles(ctx, tok.AccessToken)
	if err != nil {
		return nil, err
	}

	return &ProviderIdentity{
		SubjectID: userinfo.Sub,
		Username:  userinfo.PreferredUsername,
		Email:     userinfo.Email,
		FirstName: userinfo.GivenName,
		LastName:  userinfo.FamilyName,
		Roles:     roles,
	}, nil
}

// isCredentialRejection はトークンエンドポイントのステータスコードが
// 資格情報の拒否（リトライ不可）を意味するかを判定する。
func isCredentialRejection(statusCode int) bool {
	return statusCode == http.StatusUnauthorized || statusCode == http.StatusBadRequest ||
		statusCode == http.StatusForbidden
}

// fetchUserinfo はアクセストークンでuserinfoエンドポイントからID情報を取得する。
func (p *KeycloakProvider) fetchUserinfo(ctx context.Context, accessToken string) (*keycloakUserinfo, error) {
	var userinfo keycloakUserinfo
	err := p.withRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userinfoEndpoint(), nil)
		if err != nil {
			return fmt.Errorf("failed to create userinfo request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)

		resp, err := p.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("userinfo request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read userinfo response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return &keycloakStatusError{operation: "userinfo fetch", statusCode: resp.StatusCode, body: string(body)}
		}

		if err := json.Unmarshal(body, &userinfo); err != nil {
			return fmt.Errorf("failed to parse userinfo response: %w", err)
		}
		if userinfo.Sub == "" {
			return fmt.Errorf("empty sub in userinfo response")
		}
		return nil
	})
	if err != nil {
		return nil, model.NewProviderUnavailableError()
	}
	return &userinfo, nil
}

// introspectRoles はイントロスペクションエンドポイントからロール一覧を取得する。
// Keycloakの組み込みロール（default-roles-*等）は除外する。
func (p *KeycloakProvider) introspectRoles(ctx context.Context, accessToken string) ([]string, error) {
	form := url.Values{
		"token":         {accessToken},
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
	}

	var intro keycloakIntrospection
	err := p.withRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.introspectEndpoint(), strings.NewReader(form.Encode()))
		if err != nil {
			return fmt.Errorf("failed to create introspection request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := p.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("introspection request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read introspection response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return &keycloakStatusError{operation: "introspection", statusCode: resp.StatusCode, body: string(body)}
		}

		if err := json.Unmarshal(body, &intro); err != nil {
			return fmt.Errorf("failed to parse introspection response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, model.NewProviderUnavailableError()
	}

	return filterRoles(&intro), nil
}

// filterRoles はイントロスペクション結果からアプリケーションロールのみを抽出する。
func filterRoles(intro *keycloakIntrospection) []string {
	var roles []string

	for _, r := range intro.RealmAccess.Roles {
		if ignoredRealmRoles[r] || strings.HasPrefix(r, "default-roles-") {
			continue
		}
		roles = append(roles, r)
	}
	for _, access := range intro.ResourceAccess {
		for _, r := range access.Roles {
			if ignoredRealmRoles[r] {
				continue
			}
			roles = append(roles, r)
		}
	}

	return roles
}

// --- Register ---

// keycloakUserRepresentation はAdmin APIのユーザー作成リクエストボディ。
type keycloakUserRepresentation struct {
	Username        string                       `json:"username"`
	Email           string                       `json:"email,omitempty"`
	FirstName       string                       `json:"firstName,omitempty"`
	LastName        string                       `json:"lastName,omitempty"`
	Enabled         bool                         `json:"enabled"`
	EmailVerified   bool                         `json:"emailVerified"`
	RequiredActions []string                     `json:"requiredActions,omitempty"`
	Credentials     []keycloakCredential         `json:"credentials,omitempty"`
	Attributes      map[string][]string          `json:"attributes,omitempty"`
}

type keycloakCredential struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

// keycloakRole はAdmin APIのロール表現。
type keycloakRole struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Register はAdmin APIでユーザーを作成し、指定ロールを割り当てる。
// 既存のユーザー名・メールアドレスと衝突した場合はDUPLICATE_USERを返す。
// 検証メールの送信はベストエフォートで行い、失敗してもユーザー作成は成功扱いとする。
func (p *KeycloakProvider) Register(ctx context.Context, input RegisterInput) (*ProviderIdentity, error) {
	role := input.Role
	if role == "" {
		role = "user"
	}

	rep := keycloakUserRepresentation{
		Username:      input.Username,
		Email:         input.Email,
		FirstName:     input.FirstName,
		LastName:      input.LastName,
		Enabled:       true,
		EmailVerified: false,
		// 初回ログイン時にメールアドレスの確認を要求する
		RequiredActions: []string{"VERIFY_EMAIL"},
		Credentials: []keycloakCredential{
			{Type: "password", Value: input.Password, Temporary: false},
		},
		Attributes: input.Attributes,
	}

	userID, err := p.createUser(ctx, rep)
	if err != nil {
		return nil, err
	}

	if err := p.assignRealmRole(ctx, userID, role); err != nil {
		return nil, err
	}

	// 検証メール送信の失敗はユーザー作成を失敗させない
	_ = p.sendVerifyEmail(ctx, userID)

	return &ProviderIdentity{
		SubjectID: userID,
		Username:  input.Username,
		Email:     input.Email,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Roles:     []string{role},
	}, nil
}

// createUser はAdmin APIでユーザーを作成し、発行されたユーザーIDを返す。
func (p *KeycloakProvider) createUser(ctx context.Context, rep keycloakUserRepresentation) (string, error) {
	payload, err := json.Marshal(rep)
	if err != nil {
		return "", fmt.Errorf("failed to marshal user representation: %w", err)
	}

	var userID string
	err = p.withRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.adminURL("/users"), bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("failed to create user request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := p.adminClient.Do(req)
		if err != nil {
			return fmt.Errorf("create user request failed: %w", err)
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusCreated:
			// LocationヘッダーからユーザーIDを抽出する
			// 例: http://host/admin/realms/myrealm/users/6f1f63f5-...
			location := resp.Header.Get("Location")
			if idx := strings.LastIndex(location, "/"); idx >= 0 {
				userID = location[idx+1:]
			}
			if userID == "" {
				return fmt.Errorf("missing user ID in Location header")
			}
			return nil
		case http.StatusConflict:
			return model.NewDuplicateUserError()
		default:
			body, _ := io.ReadAll(resp.Body)
			return &keycloakStatusError{operation: "create user", statusCode: resp.StatusCode, body: string(body)}
		}
	})
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			return "", apiErr
		}
		return "", model.NewProviderUnavailableError()
	}

	return userID, nil
}

// assignRealmRole はレルムロールを取得してユーザーに割り当てる。
func (p *KeycloakProvider) assignRealmRole(ctx context.Context, userID, roleName string) error {
	// ロール表現の取得
	var role keycloakRole
	err := p.adminGetJSON(ctx, p.adminURL("/roles/%s", url.PathEscape(roleName)), &role)
	if err != nil {
		return err
	}

	// ロールマッピングの追加
	payload, err := json.Marshal([]keycloakRole{role})
	if err != nil {
		return fmt.Errorf("failed to marshal role mapping: %w", err)
	}

	err = p.withRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			p.adminURL("/users/%s/role-mappings/realm", userID), bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("failed to create role mapping request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := p.adminClient.Do(req)
		if err != nil {
			return fmt.Errorf("role mapping request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return &keycloakStatusError{operation: "role mapping", statusCode: resp.StatusCode, body: string(body)}
		}
		return nil
	})
	if err != nil {
		return model.NewProviderUnavailableError()
	}
	return nil
}

// sendVerifyEmail はメールアドレス検証メールの送信をKeycloakに依頼する。
func (p *KeycloakProvider) sendVerifyEmail(ctx context.Context, userID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		p.adminURL("/users/%s/send-verify-email", userID), nil)
	if err != nil {
		return fmt.Errorf("failed to create verify email request: %w", err)
	}

	resp, err := p.adminClient.Do(req)
	if err != nil {
		return fmt.Errorf("verify email request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("verify email failed with status %d", resp.StatusCode)
	}
	return nil
}

// --- VerifyToken ---

// VerifyToken はIdP発行のトークンをイントロスペクションで検証し、ID情報を返す。
// ローカル署名検証の代わりにIdPへ検証を委譲する場合にのみ使用する（オプション機能）。
func (p *KeycloakProvider) VerifyToken(ctx context.Context, providerToken string) (*ProviderIdentity, error) {
	form := url.Values{
		"token":         {providerToken},
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
	}

	var intro keycloakIntrospection
	err := p.withRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.introspectEndpoint(), strings.NewReader(form.Encode()))
		if err != nil {
			return fmt.Errorf("failed to create introspection request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := p.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("introspection request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read introspection response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return &keycloakStatusError{operation: "introspection", statusCode: resp.StatusCode, body: string(body)}
		}
		if err := json.Unmarshal(body, &intro); err != nil {
			return fmt.Errorf("failed to parse introspection response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, model.NewProviderUnavailableError()
	}

	if !intro.Active {
		return nil, model.NewTokenExpiredError()
	}

	return &ProviderIdentity{
		SubjectID: intro.Sub,
		Username:  intro.Username,
		Email:     intro.Email,
		Roles:     filterRoles(&intro),
	}, nil
}

// --- Password management ---

// SendPasswordReset はメールアドレスに対応するユーザーへ
// パスワード再設定メールの送信を依頼する。
// ユーザーが存在しない場合もエラーにしない（アカウント列挙対策は呼び出し側で行う）。
func (p *KeycloakProvider) SendPasswordReset(ctx context.Context, email string) error {
	// メールアドレスでユーザーを検索
	var users []struct {
		ID string `json:"id"`
	}
	searchURL := p.adminURL("/users") + "?email=" + url.QueryEscape(email) + "&exact=true"
	if err := p.adminGetJSON(ctx, searchURL, &users); err != nil {
		return err
	}
	if len(users) == 0 {
		return nil
	}

	// UPDATE_PASSWORDアクションの実行メールを送信（リンクは1時間有効）
	payload, err := json.Marshal([]string{"UPDATE_PASSWORD"})
	if err != nil {
		return fmt.Errorf("failed to marshal actions payload: %w", err)
	}

	actionURL := p.adminURL("/users/%s/execute-actions-email", users[0].ID) + "?lifespan=3600"
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, actionURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create reset email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.adminClient.Do(req)
	if err != nil {
		return fmt.Errorf("reset email request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("reset email failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// ChangePassword は現在のパスワードを検証した上で新しいパスワードを設定する。
// 現在のパスワードが誤っている場合はPASSWORD_MISMATCHを返す。
func (p *KeycloakProvider) ChangePassword(ctx context.Context, subjectID, currentPassword, newPassword string) error {
	// ユーザー名の取得
	var user struct {
		Username string `json:"username"`
	}
	if err := p.adminGetJSON(ctx, p.adminURL("/users/%s", subjectID), &user); err != nil {
		return err
	}
	if user.Username == "" {
		return model.NewInvalidCredentialsError()
	}

	// 現在のパスワードをROPCグラントで検証
	if _, err := p.Authenticate(ctx, user.Username, currentPassword); err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeInvalidCredentials {
			return model.NewPasswordMismatchError()
		}
		return err
	}

	// 新パスワードを設定
	payload, err := json.Marshal(keycloakCredential{
		Type:      "password",
		Value:     newPassword,
		Temporary: false,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		p.adminURL("/users/%s/reset-password", subjectID), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create reset password request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.adminClient.Do(req)
	if err != nil {
		return model.NewProviderUnavailableError()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("reset password failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// --- Health ---

// Ping はレルムエンドポイントへの到達性を確認する。ヘルスチェック用。
func (p *KeycloakProvider) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.realmEndpoint(), nil)
	if err != nil {
		return fmt.Errorf("failed to create realm request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("realm request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("realm endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// --- helpers ---

// adminGetJSON はAdmin APIへのGETを実行しJSONをデコードする。
func (p *KeycloakProvider) adminGetJSON(ctx context.Context, rawURL string, out interface{}) error {
	err := p.withRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create admin request: %w", err)
		}

		resp, err := p.adminClient.Do(req)
		if err != nil {
			return fmt.Errorf("admin request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read admin response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return &keycloakStatusError{operation: "admin request", statusCode: resp.StatusCode, body: string(body)}
		}

		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to parse admin response: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.NewProviderUnavailableError()
	}
	return nil
}

// withRetry はfnを実行し、一時エラーの場合のみ短いバックオフの後に1回だけ再試行する。
// APIError（分類済みエラー）はリトライせずそのまま返す。
func (p *KeycloakProvider) withRetry(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return err
	}
	if !isTransient(err) {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.config.RetryBackoff):
	}

	return fn()
}

// isTransient はエラーがリトライに値する一時的なものかを判定する。
// リトライするのはネットワーク障害と5xx応答のみで、
// 4xx応答や解析エラーは再試行しても結果が変わらないため即座に失敗させる。
func isTransient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return retrieveErr.Response.StatusCode >= http.StatusInternalServerError
	}
	var statusErr *keycloakStatusError
	if errors.As(err, &statusErr) {
		return statusErr.statusCode >= http.StatusInternalServerError
	}
	return false
}

// compile-time interface check
var _ Provider = (*KeycloakProvider)(nil)
