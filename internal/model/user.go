// Package model はドメインモデルを定義する。
package model

import "time"

// Identity は認証済みユーザーのID情報を表す。
// IdP（Keycloak）が発行したクレーム、またはセッショントークンから復元したクレーム。
// 認証情報（パスワード等）は一切保持しない。
type Identity struct {
	// SubjectID はIdPが発行する安定した不透明識別子（UUID）。
	SubjectID string
	Username  string
	Email     string
	FirstName string
	LastName  string
	Roles     []string
}

// Profile は本システムが所有するユーザーの補足情報を表す。
// subject_idごとに最大1件。IdPのIdentityとはsubject_idで紐付く。
type Profile struct {
	// SubjectID は作成後に変更不可。
	SubjectID string
	FullName  string
	Phone     string
	Address   string
	City      string
	Country   string
	Timezone  string
	CreatedAt time.Time // 初回作成時に1度だけ設定される
	UpdatedAt time.Time // 変更のたびに更新される
}

// ProfileUpdate はプロフィールの部分更新を表す。
// nilフィールドは変更せず、既存の値を維持する。
type ProfileUpdate struct {
	FullName *string
	Phone    *string
	Address  *string
	City     *string
	Country  *string
	Timezone *string
}

// IsEmpty は更新対象フィールドが1つもないことを返す。
func (u *ProfileUpdate) IsEmpty() bool {
	return u.FullName == nil && u.Phone == nil && u.Address == nil &&
		u.City == nil && u.Country == nil && u.Timezone == nil
}
