package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/hitoshi/bookman/internal/model"
)

// PostgresStatusRepo はPostgreSQLを使用した読書状態リポジトリ。
type PostgresStatusRepo struct {
	db *sql.DB
}

// NewPostgresStatusRepo はPostgresStatusRepoを生成する。
func NewPostgresStatusRepo(db *sql.DB) *PostgresStatusRepo {
	return &PostgresStatusRepo{db: db}
}

// FindByUserAndBook はユーザーIDと書籍IDで読書状態を取得する。未設定の場合はnilを返す。
func (r *PostgresStatusRepo) FindByUserAndBook(ctx context.Context, userID, bookID string) (*model.ReadingStatus, error) {
	var status model.ReadingStatus
	err := r.db.QueryRowContext(ctx,
		`SELECT status FROM book_statuses WHERE user_id = $1 AND book_id = $2`,
		userID, bookID,
	).Scan(&status)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("読書状態の取得に失敗しました: %w", err)
	}

	return &status, nil
}

// Upsert は読書状態をUNIQUE(user_id, book_id)制約で冪等にアップサートする。
func (r *PostgresStatusRepo) Upsert(ctx context.Context, userID, bookID string, status model.ReadingStatus) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO book_statuses (id, user_id, book_id, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, now(), now())
		 ON CONFLICT (user_id, book_id) DO UPDATE SET
		     status = EXCLUDED.status,
		     updated_at = EXCLUDED.updated_at`,
		uuid.New().String(), userID, bookID, status,
	)
	if err != nil {
		return fmt.Errorf("読書状態の保存に失敗しました: %w", err)
	}
	return nil
}

// Delete は読書状態を解除する。未設定でもエラーにならない。
func (r *PostgresStatusRepo) Delete(ctx context.Context, userID, bookID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM book_statuses WHERE user_id = $1 AND book_id = $2`,
		userID, bookID,
	)
	if err != nil {
		return fmt.Errorf("読書状態の削除に失敗しました: %w", err)
	}
	return nil
}

// DeleteByUserID はユーザーの全読書状態を削除する。
func (r *PostgresStatusRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM book_statuses WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("ユーザーの読書状態の削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ StatusRepository = (*PostgresStatusRepo)(nil)
