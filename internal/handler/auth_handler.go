// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/passport/internal/auth"
	"github.com/hitoshi/passport/internal/middleware"
	"github.com/hitoshi/passport/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Login(ctx context.Context, username, password string) (*auth.SessionToken, *model.Identity, error)
	Register(ctx context.Context, input auth.RegisterInput) (*model.Identity, error)
	Refresh(ctx context.Context, raw string) (*auth.SessionToken, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ChangePassword(ctx context.Context, subjectID, currentPassword, newPassword string) error
}

// ProfileChecker はプロフィールの有無を確認するインターフェース。
// 認証ステータス表示用にprofile.Serviceの部分集合として定義する。
type ProfileChecker interface {
	Exists(ctx context.Context, subjectID string) (bool, error)
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service        AuthServiceInterface
	profileChecker ProfileChecker
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, profileChecker ProfileChecker) *AuthHandler {
	return &AuthHandler{
		service:        service,
		profileChecker: profileChecker,
	}
}

// --- リクエスト・レスポンス型 ---

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type tokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        userResponse `json:"user"`
}

type userResponse struct {
	SubjectID string   `json:"subject_id"`
	Username  string   `json:"username"`
	Email     string   `json:"email,omitempty"`
	FirstName string   `json:"first_name,omitempty"`
	LastName  string   `json:"last_name,omitempty"`
	Roles     []string `json:"roles"`
}

func toUserResponse(identity *model.Identity) userResponse {
	roles := identity.Roles
	if roles == nil {
		roles = []string{}
	}
	return userResponse{
		SubjectID: identity.SubjectID,
		Username:  identity.Username,
		Email:     identity.Email,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		Roles:     roles,
	}
}

// --- ハンドラー ---

// Login は資格情報を検証しセッショントークンを発行する。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if apiErr := decodeJSONBody(r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	session, identity, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, tokenResponse{
		AccessToken: session.Token,
		TokenType:   session.TokenType,
		ExpiresAt:   session.ExpiresAt,
		User:        toUserResponse(identity),
	})
}

// Register は新規ユーザーを登録する。
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if apiErr := decodeJSONBody(r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	identity, err := h.service.Register(r.Context(), auth.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, map[string]interface{}{
		"user":    toUserResponse(identity),
		"message": "登録が完了しました。確認メールをご確認ください。",
	})
}

// Refresh は有効期限の近いトークンを新しいトークンに差し替える。
// POST /auth/refresh（要認証）
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	raw := bearerToken(r)
	if raw == "" {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewTokenMissingError())
		return
	}

	session, err := h.service.Refresh(r.Context(), raw)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewTokenMissingError())
		return
	}

	writeJSONResponse(w, http.StatusOK, tokenResponse{
		AccessToken: session.Token,
		TokenType:   session.TokenType,
		ExpiresAt:   session.ExpiresAt,
		User:        toUserResponse(identity),
	})
}

// Me は現在の認証済みユーザーのID情報を返す。
// GET /auth/me（要認証）
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewTokenMissingError())
		return
	}

	writeJSONResponse(w, http.StatusOK, toUserResponse(identity))
}

// Roles は現在の認証済みユーザーのロール一覧のみを返す。
// GET /auth/me/roles（要認証）
func (h *AuthHandler) Roles(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewTokenMissingError())
		return
	}

	roles := identity.Roles
	if roles == nil {
		roles = []string{}
	}
	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"roles": roles,
	})
}

// Status は認証状態とオンボーディングの次ステップを返す。
// GET /auth/status（要認証）
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewTokenMissingError())
		return
	}

	hasProfile, err := h.profileChecker.Exists(r.Context(), identity.SubjectID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	nextStep := "completed"
	if !hasProfile {
		nextStep = "create_profile"
	}

	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"authenticated": true,
		"subject_id":    identity.SubjectID,
		"has_profile":   hasProfile,
		"next_step":     nextStep,
	})
}

// PasswordReset はパスワード再設定メールの送信を依頼する。
// アカウントの存在有無によらず202を返す。
// POST /auth/password-reset
func (h *AuthHandler) PasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if apiErr := decodeJSONBody(r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusAccepted, map[string]string{
		"message": "登録されているメールアドレスであれば、パスワード再設定の案内を送信しました。",
	})
}

// ChangePassword は認証済みユーザーのパスワードを変更する。
// POST /auth/change-password（要認証）
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewTokenMissingError())
		return
	}

	var req changePasswordRequest
	if apiErr := decodeJSONBody(r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	if err := h.service.ChangePassword(r.Context(), identity.SubjectID, req.CurrentPassword, req.NewPassword); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// bearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
// 形式検証は認証ミドルウェアで済んでいる前提の簡易版。
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return token
}
