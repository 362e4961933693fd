// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, profile, provider, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidCredentials    = "INVALID_CREDENTIALS"
	ErrCodeDuplicateUser         = "DUPLICATE_USER"
	ErrCodeProviderUnavailable   = "PROVIDER_UNAVAILABLE"
	ErrCodeTokenMissing          = "TOKEN_MISSING"
	ErrCodeTokenMalformed        = "TOKEN_MALFORMED"
	ErrCodeTokenExpired          = "TOKEN_EXPIRED"
	ErrCodeTokenInvalidSignature = "TOKEN_INVALID_SIGNATURE"
	ErrCodeProfileNotFound       = "PROFILE_NOT_FOUND"
	ErrCodeProfileAlreadyExists  = "PROFILE_ALREADY_EXISTS"
	ErrCodeStoreUnavailable      = "STORE_UNAVAILABLE"
	ErrCodeValidationFailed      = "VALIDATION_FAILED"
	ErrCodePasswordMismatch      = "PASSWORD_MISMATCH"
)

// NewInvalidCredentialsError は認証失敗エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewDuplicateUserError は重複登録エラーを生成する。
func NewDuplicateUserError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateUser,
		Message:  "このユーザー名またはメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "別のユーザー名を指定するか、ログインをお試しください。",
	}
}

// NewProviderUnavailableError はIdP接続不可エラーを生成する。
// 一時的なエラーであり、呼び出し側はバックオフ付きでリトライしてよい。
func NewProviderUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeProviderUnavailable,
		Message:  "認証サービスに接続できません。",
		Category: "provider",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewTokenMissingError はトークン未提示エラーを生成する。
func NewTokenMissingError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenMissing,
		Message:  "認証トークンが指定されていません。",
		Category: "auth",
		Action:   "Authorizationヘッダーにトークンを指定してください。",
	}
}

// NewTokenMalformedError は解析不能トークンエラーを生成する。
func NewTokenMalformedError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenMalformed,
		Message:  "認証トークンの形式が不正です。",
		Category: "auth",
		Action:   "再度ログインしてトークンを取得し直してください。",
	}
}

// NewTokenExpiredError は期限切れトークンエラーを生成する。
// リトライ不可。再認証が必要。
func NewTokenExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenExpired,
		Message:  "認証トークンの有効期限が切れています。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewTokenInvalidSignatureError は署名検証失敗エラーを生成する。
func NewTokenInvalidSignatureError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenInvalidSignature,
		Message:  "認証トークンの署名を検証できません。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewProfileNotFoundError はプロフィール未作成エラーを生成する。
func NewProfileNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeProfileNotFound,
		Message:  "プロフィールが見つかりません。",
		Category: "profile",
		Action:   "先にプロフィールを作成してください。",
	}
}

// NewProfileAlreadyExistsError はプロフィール重複作成エラーを生成する。
func NewProfileAlreadyExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeProfileAlreadyExists,
		Message:  "プロフィールは既に存在します。",
		Category: "profile",
		Action:   "更新する場合はPUT /users/meを使用してください。",
	}
}

// NewStoreUnavailableError はデータストア接続不可エラーを生成する。
// 一時的なエラーであり、呼び出し側はバックオフ付きでリトライしてよい。
func NewStoreUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeStoreUnavailable,
		Message:  "データストアに接続できません。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewValidationFailedError はリクエスト内容の検証失敗エラーを生成する。
func NewValidationFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("リクエスト内容が不正です: %s", reason),
		Category: "validation",
		Action:   "リクエストの形式を確認してください。",
	}
}

// NewPasswordMismatchError は現在のパスワード不一致エラーを生成する。
func NewPasswordMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodePasswordMismatch,
		Message:  "現在のパスワードが正しくありません。",
		Category: "auth",
		Action:   "現在のパスワードを確認して再度お試しください。",
	}
}
