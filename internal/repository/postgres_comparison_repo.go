package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/bookman/internal/model"
)

// PostgresComparisonRepo はPostgreSQLを使用したペア比較リポジトリ。
// テーブルは追記専用で、行の更新・削除は退会時の一括削除のみ。
type PostgresComparisonRepo struct {
	db *sql.DB
}

// NewPostgresComparisonRepo はPostgresComparisonRepoを生成する。
func NewPostgresComparisonRepo(db *sql.DB) *PostgresComparisonRepo {
	return &PostgresComparisonRepo{db: db}
}

// ListInvolving は指定書籍が左右どちらかに現れるユーザーの全比較を返す。
// スコア導出は処理順に依存しないため、並び順は保証しない。
func (r *PostgresComparisonRepo) ListInvolving(ctx context.Context, userID, bookID string) ([]*model.Comparison, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, left_book_id, right_book_id, winner, created_at
		 FROM pairwise_comparisons
		 WHERE user_id = $1 AND (left_book_id = $2 OR right_book_id = $2)`,
		userID, bookID,
	)
	if err != nil {
		return nil, fmt.Errorf("比較履歴の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var comparisons []*model.Comparison
	for rows.Next() {
		c := &model.Comparison{}
		if err := rows.Scan(&c.ID, &c.UserID, &c.LeftBookID, &c.RightBookID, &c.Winner, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comparison: %w", err)
		}
		comparisons = append(comparisons, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comparisons: %w", err)
	}

	return comparisons, nil
}

// Insert は比較結果を1行追記する。
// 同じペアの再比較も新しい行になる（繰り返しは強化シグナルとして全行が調整に加算される）。
func (r *PostgresComparisonRepo) Insert(ctx context.Context, comparison *model.Comparison) error {
	if comparison.ID == "" {
		comparison.ID = uuid.New().String()
	}
	if comparison.CreatedAt.IsZero() {
		comparison.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO pairwise_comparisons (id, user_id, left_book_id, right_book_id, winner, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		comparison.ID, comparison.UserID,
		comparison.LeftBookID, comparison.RightBookID,
		comparison.Winner, comparison.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("比較結果の保存に失敗しました: %w", err)
	}

	return nil
}

// DeleteByUserID はユーザーの全比較を削除する。
func (r *PostgresComparisonRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM pairwise_comparisons WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("ユーザーの比較の削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ComparisonRepository = (*PostgresComparisonRepo)(nil)
