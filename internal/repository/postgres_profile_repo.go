package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/passport/internal/model"
)

// uniqueViolation はPostgreSQLの一意制約違反のエラーコード。
const uniqueViolation = "23505"

const profileColumns = `subject_id, full_name, phone, address, city, country, timezone, created_at, updated_at`

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// FindBySubjectID は指定subject_idのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindBySubjectID(ctx context.Context, subjectID string) (*model.Profile, error) {
	profile := &model.Profile{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE subject_id = $1`,
		subjectID,
	).Scan(
		&profile.SubjectID, &profile.FullName, &profile.Phone, &profile.Address,
		&profile.City, &profile.Country, &profile.Timezone,
		&profile.CreatedAt, &profile.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile by subject ID: %w", err)
	}

	return profile, nil
}

// Create はプロフィールを新規作成する。
// created_at・updated_atはデータベース側で同一時刻に設定される。
// 同一subject_idのプロフィールが既に存在する場合はPROFILE_ALREADY_EXISTSを返す。
func (r *PostgresProfileRepo) Create(ctx context.Context, profile *model.Profile) (*model.Profile, error) {
	created := &model.Profile{}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO profiles (subject_id, full_name, phone, address, city, country, timezone)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+profileColumns,
		profile.SubjectID, profile.FullName, profile.Phone, profile.Address,
		profile.City, profile.Country, profile.Timezone,
	).Scan(
		&created.SubjectID, &created.FullName, &created.Phone, &created.Address,
		&created.City, &created.Country, &created.Timezone,
		&created.CreatedAt, &created.UpdatedAt,
	)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return nil, model.NewProfileAlreadyExistsError()
		}
		return nil, fmt.Errorf("failed to insert profile: %w", err)
	}

	return created, nil
}

// UpdatePartial はnilでないフィールドのみを単一のUPDATEで更新し、updated_atを進める。
// NULL引数はCOALESCEで既存値を維持する。プロフィールが存在しない場合はnilを返す。
func (r *PostgresProfileRepo) UpdatePartial(ctx context.Context, subjectID string, update *model.ProfileUpdate) (*model.Profile, error) {
	updated := &model.Profile{}
	err := r.db.QueryRowContext(ctx,
		`UPDATE profiles SET
			full_name = COALESCE($2, full_name),
			phone     = COALESCE($3, phone),
			address   = COALESCE($4, address),
			city      = COALESCE($5, city),
			country   = COALESCE($6, country),
			timezone  = COALESCE($7, timezone),
			updated_at = now()
		 WHERE subject_id = $1
		 RETURNING `+profileColumns,
		subjectID,
		update.FullName, update.Phone, update.Address,
		update.City, update.Country, update.Timezone,
	).Scan(
		&updated.SubjectID, &updated.FullName, &updated.Phone, &updated.Address,
		&updated.City, &updated.Country, &updated.Timezone,
		&updated.CreatedAt, &updated.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return updated, nil
}

// DeleteBySubjectID は指定subject_idのプロフィールを削除する。
// 存在しない場合は何もせず成功を返す。
func (r *PostgresProfileRepo) DeleteBySubjectID(ctx context.Context, subjectID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM profiles WHERE subject_id = $1`,
		subjectID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
