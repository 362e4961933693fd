// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/passport/internal/model"
)

// ProfileRepository はプロフィールデータの永続化インターフェース。
// subject_idごとに最大1件のプロフィールを保持する。
type ProfileRepository interface {
	// FindBySubjectID は指定subject_idのプロフィールを取得する。見つからない場合はnilを返す。
	FindBySubjectID(ctx context.Context, subjectID string) (*model.Profile, error)

	// Create はプロフィールを新規作成する。
	// 同一subject_idのプロフィールが既に存在する場合はPROFILE_ALREADY_EXISTSを返す。
	Create(ctx context.Context, profile *model.Profile) (*model.Profile, error)

	// UpdatePartial はnilでないフィールドのみを更新し、updated_atを進める。
	// プロフィールが存在しない場合はnilを返す。
	UpdatePartial(ctx context.Context, subjectID string, update *model.ProfileUpdate) (*model.Profile, error)

	// DeleteBySubjectID は指定subject_idのプロフィールを削除する。
	// 存在しない場合は何もせず成功を返す。
	DeleteBySubjectID(ctx context.Context, subjectID string) error
}
