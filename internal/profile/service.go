// Package profile はプロフィールのCRUDビジネスロジックを提供する。
// 全操作は認証済みユーザー自身のsubject_idに対してのみ行われ、
// 他ユーザーのプロフィールに到達する手段は存在しない。
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/passport/internal/model"
	"github.com/hitoshi/passport/internal/repository"
)

// maxFieldLength はプロフィール各フィールドの最大長。
const maxFieldLength = 255

// defaultStoreTimeout はストア1回あたりのデフォルトタイムアウト。
const defaultStoreTimeout = 2 * time.Second

// Service はプロフィールに関するビジネスロジックを提供する。
type Service struct {
	repo repository.ProfileRepository
	// storeTimeout はリポジトリ呼び出し1回あたりのタイムアウト。
	// DBが応答しない場合もHTTPの書き込みタイムアウトを待たずに失敗させる。
	storeTimeout time.Duration
}

// NewService はServiceを生成する。
// storeTimeoutが0以下の場合はデフォルト値（2秒）を使用する。
func NewService(repo repository.ProfileRepository, storeTimeout time.Duration) *Service {
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}
	return &Service{
		repo:         repo,
		storeTimeout: storeTimeout,
	}
}

// storeContext はリポジトリ呼び出し用にタイムアウト付きコンテキストを生成する。
func (s *Service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}

// Get は認証済みユーザー自身のプロフィールを取得する。
// 未作成の場合はPROFILE_NOT_FOUNDを返す。
func (s *Service) Get(ctx context.Context, subjectID string) (*model.Profile, error) {
	if subjectID == "" {
		return nil, fmt.Errorf("subject ID is required")
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	profile, err := s.repo.FindBySubjectID(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if profile == nil {
		return nil, model.NewProfileNotFoundError()
	}

	return profile, nil
}

// Exists はプロフィールが作成済みかを返す。認証ステータス表示用。
func (s *Service) Exists(ctx context.Context, subjectID string) (bool, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	profile, err := s.repo.FindBySubjectID(ctx, subjectID)
	if err != nil {
		return false, fmt.Errorf("failed to check profile existence: %w", err)
	}
	return profile != nil, nil
}

// Create は認証済みユーザー自身のプロフィールを作成する。
// 冪等ではなく、既に存在する場合はPROFILE_ALREADY_EXISTSを返す。
func (s *Service) Create(ctx context.Context, subjectID string, input *model.Profile) (*model.Profile, error) {
	if subjectID == "" {
		return nil, fmt.Errorf("subject ID is required")
	}
	if err := validateProfileFields(input); err != nil {
		return nil, err
	}

	// subject_idはリクエストボディではなく認証済みIdentityから決まる
	input.SubjectID = subjectID

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	created, err := s.repo.Create(ctx, input)
	if err != nil {
		return nil, err
	}

	slog.Info("profile created", slog.String("subject_id", subjectID))
	return created, nil
}

// Update は認証済みユーザー自身のプロフィールを部分更新する。
// nilフィールドは変更されず、変更があればupdated_atが進む。
// プロフィールが存在しない場合はPROFILE_NOT_FOUNDを返す。
func (s *Service) Update(ctx context.Context, subjectID string, update *model.ProfileUpdate) (*model.Profile, error) {
	if subjectID == "" {
		return nil, fmt.Errorf("subject ID is required")
	}
	if update.IsEmpty() {
		return nil, model.NewValidationFailedError("更新対象のフィールドが指定されていません")
	}
	if err := validateUpdateFields(update); err != nil {
		return nil, err
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	updated, err := s.repo.UpdatePartial(ctx, subjectID, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if updated == nil {
		return nil, model.NewProfileNotFoundError()
	}

	slog.Info("profile updated", slog.String("subject_id", subjectID))
	return updated, nil
}

// Delete は認証済みユーザー自身のプロフィールを削除する。
// 存在しない場合も成功を返す（冪等）。
func (s *Service) Delete(ctx context.Context, subjectID string) error {
	if subjectID == "" {
		return fmt.Errorf("subject ID is required")
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	if err := s.repo.DeleteBySubjectID(ctx, subjectID); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	slog.Info("profile deleted", slog.String("subject_id", subjectID))
	return nil
}

// validateProfileFields は作成入力の各フィールド長を検証する。
func validateProfileFields(p *model.Profile) error {
	fields := map[string]string{
		"full_name": p.FullName,
		"phone":     p.Phone,
		"address":   p.Address,
		"city":      p.City,
		"country":   p.Country,
		"timezone":  p.Timezone,
	}
	for name, value := range fields {
		if len(value) > maxFieldLength {
			return model.NewValidationFailedError(fmt.Sprintf("%sが長すぎます（最大%d文字）", name, maxFieldLength))
		}
	}
	if p.Timezone != "" {
		if _, err := time.LoadLocation(p.Timezone); err != nil {
			return model.NewValidationFailedError("timezoneが不正です")
		}
	}
	return nil
}

// validateUpdateFields は部分更新入力の各フィールド長を検証する。
func validateUpdateFields(u *model.ProfileUpdate) error {
	fields := map[string]*string{
		"full_name": u.FullName,
		"phone":     u.Phone,
		"address":   u.Address,
		"city":      u.City,
		"country":   u.Country,
		"timezone":  u.Timezone,
	}
	for name, value := range fields {
		if value != nil && len(*value) > maxFieldLength {
			return model.NewValidationFailedError(fmt.Sprintf("%sが長すぎます（最大%d文字）", name, maxFieldLength))
		}
	}
	if u.Timezone != nil && *u.Timezone != "" {
		if _, err := time.LoadLocation(*u.Timezone); err != nil {
			return model.NewValidationFailedError("timezoneが不正です")
		}
	}
	return nil
}
