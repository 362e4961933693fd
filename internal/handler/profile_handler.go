package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/passport/internal/middleware"
	"github.com/hitoshi/passport/internal/model"
)

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	Get(ctx context.Context, subjectID string) (*model.Profile, error)
	Create(ctx context.Context, subjectID string, input *model.Profile) (*model.Profile, error)
	Update(ctx context.Context, subjectID string, update *model.ProfileUpdate) (*model.Profile, error)
	Delete(ctx context.Context, subjectID string) error
}

// ProfileHandler はプロフィール管理のHTTPハンドラー。
// 全操作は認証済みIdentityのsubject_idに対してのみ行う。
type ProfileHandler struct {
	service ProfileServiceInterface
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(service ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{
		service: service,
	}
}

// --- リクエスト・レスポンス型 ---

// createProfileRequest はプロフィール作成のリクエストボディ。
// subject_idは含まない（認証済みIdentityから決まる）。
type createProfileRequest struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	City     string `json:"city"`
	Country  string `json:"country"`
	Timezone string `json:"timezone"`
}

// updateProfileRequest はプロフィール部分更新のリクエストボディ。
// 省略されたフィールドは変更されない。
type updateProfileRequest struct {
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
	City     *string `json:"city"`
	Country  *string `json:"country"`
	Timezone *string `json:"timezone"`
}

type profileResponse struct {
	SubjectID string    `json:"subject_id"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	Country   string    `json:"country"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toProfileResponse(p *model.Profile) profileResponse {
	return profileResponse{
		SubjectID: p.SubjectID,
		FullName:  p.FullName,
		Phone:     p.Phone,
		Address:   p.Address,
		City:      p.City,
		Country:   p.Country,
		Timezone:  p.Timezone,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// --- ハンドラー ---

// Get は自身のプロフィールを返す。
// GET /users/me
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewTokenMissingError())
		return
	}

	profile, err := h.service.Get(r.Context(), identity.SubjectID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toProfileResponse(profile))
}

// Create は自身のプロフィールを新規作成する。冪等ではない。
// POST /users/me
func (h *ProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewTokenMissingError())
		return
	}

	var req createProfileRequest
	if apiErr := decodeJSONBody(r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	created, err := h.service.Create(r.Context(), identity.SubjectID, &model.Profile{
		FullName: req.FullName,
		Phone:    req.Phone,
		Address:  req.Address,
		City:     req.City,
		Country:  req.Country,
		Timezone: req.Timezone,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, toProfileResponse(created))
}

// Update は自身のプロフィールを部分更新する。
// PUT /users/me
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewTokenMissingError())
		return
	}

	var req updateProfileRequest
	if apiErr := decodeJSONBody(r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	updated, err := h.service.Update(r.Context(), identity.SubjectID, &model.ProfileUpdate{
		FullName: req.FullName,
		Phone:    req.Phone,
		Address:  req.Address,
		City:     req.City,
		Country:  req.Country,
		Timezone: req.Timezone,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toProfileResponse(updated))
}

// Delete は自身のプロフィールを削除する。
// DELETE /users/me
func (h *ProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewTokenMissingError())
		return
	}

	if err := h.service.Delete(r.Context(), identity.SubjectID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
